package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"CANProbe/internal/domain/models"
	domrepo "CANProbe/internal/domain/repository"
	"CANProbe/internal/service/cache"
	"CANProbe/internal/services/ranges"
)

// Analysis sources a ranges query may consult.
const (
	SourceAuto    = "auto"
	SourceLive    = "live"
	SourceGateway = "gateway"
)

const gatewayAnalysesKey = "gateway_analyses"

// RangesUseCase serves byte-range analyses merged across the live
// capture observer and the backend gateway. Sources are consulted
// concurrently; a failing source is reported, not fatal.
type RangesUseCase struct {
	live     domrepo.AnalysisProvider // nil when capture is disabled
	gateway  domrepo.AnalysisProvider // nil when no gateway is configured
	cache    cache.BytesCache         // nil disables gateway response caching
	cacheTTL time.Duration
	timeout  time.Duration
}

func NewRangesUseCase(live, gateway domrepo.AnalysisProvider, c cache.BytesCache, cacheTTL time.Duration) *RangesUseCase {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Second
	}
	return &RangesUseCase{live: live, gateway: gateway, cache: c, cacheTTL: cacheTTL, timeout: 10 * time.Second}
}

type GetRangesParams struct {
	IDs    []string
	Source string
}

// GetRanges merges per-byte ranges over the selected identifiers. An
// empty selection means every identifier the consulted sources have
// seen.
func (uc *RangesUseCase) GetRanges(ctx context.Context, p GetRangesParams) (*models.RangesReport, error) {
	all, errs, err := uc.collect(ctx, p.Source)
	if err != nil {
		return nil, err
	}

	res := &models.RangesReport{
		Source: sourceOrAuto(p.Source),
		Errors: errs,
	}
	res.IDs = effectiveIDs(p.IDs, all)
	res.Ranges = ranges.Merge(all, res.IDs)
	return res, nil
}

// GetAnalyses returns raw per-identifier analyses. With both sources
// consulted, live wins per identifier and the gateway fills identifiers
// live has not seen.
func (uc *RangesUseCase) GetAnalyses(ctx context.Context, source string) (*models.AnalysesReport, error) {
	all, errs, err := uc.collect(ctx, source)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(all))
	out := make([]models.IDAnalysis, 0, len(all))
	for _, a := range all {
		id := models.NormalizeCANID(a.CANID)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CANID < out[j].CANID })

	return &models.AnalysesReport{
		Source:   sourceOrAuto(source),
		Analyses: out,
		Errors:   errs,
	}, nil
}

// collect fans out to the selected sources. Live analyses are appended
// before gateway ones so that callers deduplicating by identifier keep
// the live view.
func (uc *RangesUseCase) collect(ctx context.Context, source string) ([]models.IDAnalysis, map[string]string, error) {
	source = sourceOrAuto(source)
	switch source {
	case SourceAuto, SourceLive, SourceGateway:
	default:
		return nil, nil, fmt.Errorf("unknown analysis source %q", source)
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	errs := map[string]string{}

	type item struct {
		name     string
		analyses []models.IDAnalysis
		err      error
	}
	ch := make(chan item, 2)
	var wg sync.WaitGroup

	launched := 0
	if source != SourceGateway {
		if uc.live != nil {
			launched++
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := uc.live.Analyses(ctx)
				ch <- item{SourceLive, v, err}
			}()
		} else if source == SourceLive {
			errs[SourceLive] = "live capture disabled"
		}
	}
	if source != SourceLive {
		if uc.gateway != nil {
			launched++
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := uc.gatewayAnalyses(ctx)
				ch <- item{SourceGateway, v, err}
			}()
		} else if source == SourceGateway {
			errs[SourceGateway] = "gateway not configured"
		}
	}
	if launched == 0 && len(errs) == 0 {
		errs["sources"] = "no analysis sources configured"
	}

	go func() { wg.Wait(); close(ch) }()

	var live, gw []models.IDAnalysis
	for it := range ch {
		if it.err != nil {
			errs[it.name] = it.err.Error()
			continue
		}
		if it.name == SourceLive {
			live = it.analyses
		} else {
			gw = it.analyses
		}
	}

	if len(errs) == 0 {
		errs = nil
	}
	return append(live, gw...), errs, nil
}

// gatewayAnalyses serves the gateway view through the byte cache so
// console polling does not hammer the backend.
func (uc *RangesUseCase) gatewayAnalyses(ctx context.Context) ([]models.IDAnalysis, error) {
	if uc.cache != nil {
		if b, ok, err := uc.cache.GetBytes(gatewayAnalysesKey); err == nil && ok {
			var cached []models.IDAnalysis
			if json.Unmarshal(b, &cached) == nil {
				return cached, nil
			}
		}
	}
	analyses, err := uc.gateway.Analyses(ctx)
	if err != nil {
		return nil, err
	}
	if uc.cache != nil {
		if b, err := json.Marshal(analyses); err == nil {
			_ = uc.cache.SetBytes(gatewayAnalysesKey, b, uc.cacheTTL)
		}
	}
	return analyses, nil
}

func sourceOrAuto(s string) string {
	if s == "" {
		return SourceAuto
	}
	return s
}

// effectiveIDs normalizes and deduplicates the requested identifiers,
// falling back to every identifier present in the analyses. The
// fallback is sorted so the report does not depend on source order.
func effectiveIDs(requested []string, analyses []models.IDAnalysis) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(requested))
	if len(requested) > 0 {
		for _, id := range requested {
			n := models.NormalizeCANID(id)
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
		return out
	}
	for _, a := range analyses {
		n := models.NormalizeCANID(a.CANID)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
