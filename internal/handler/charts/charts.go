// Package charts renders operator-facing HTML charts: candidate series
// overlays and merged byte-range views. Debugging aids, no auth.
package charts

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/labstack/echo/v4"

	"CANProbe/internal/domain/models"
	icache "CANProbe/internal/service/cache"
	"CANProbe/internal/usecase"
	pkgcache "CANProbe/pkg/cache"
	xhttp "CANProbe/pkg/http"
	applogger "CANProbe/pkg/logger"
)

const snapshotTTL = 2 * time.Second

// Handler serves the chart pages. cache may be nil; it short-circuits
// re-rendering while the console polls.
type Handler struct {
	session *usecase.DiscoverySession
	ranges  *usecase.RangesUseCase
	cache   icache.BytesCache
	logger  *applogger.Logger
}

func NewHandler(session *usecase.DiscoverySession, ranges *usecase.RangesUseCase, cache icache.BytesCache, logger *applogger.Logger) *Handler {
	return &Handler{session: session, ranges: ranges, cache: cache, logger: logger}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/charts")
	g.GET("/candidate", h.Candidate)
	g.GET("/ranges", h.Ranges)
}

// Candidate plots one ranked candidate: the OBD samples against the
// transformed CAN series over the shared timestamps.
func (h *Handler) Candidate(c echo.Context) error {
	index := 0
	if v := c.QueryParam("index"); v != "" {
		index = xhttp.ParseIntDefault(v, -1)
	}
	if index < 0 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("index must be a non-negative integer"))
	}

	cacheKey := pkgcache.Key("charts:candidate", index)
	if b, ok := h.cached(cacheKey); ok {
		return c.HTMLBlob(http.StatusOK, b)
	}

	st := h.session.Status()
	if index >= len(st.Candidates) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no candidate at index %d (have %d)", index, len(st.Candidates)))
	}
	cand := st.Candidates[index]

	x := make([]string, len(cand.Timestamps))
	obd := make([]opts.LineData, len(cand.Timestamps))
	can := make([]opts.LineData, len(cand.Timestamps))
	for i, ts := range cand.Timestamps {
		x[i] = strconv.FormatFloat(ts, 'f', 2, 64)
		obd[i] = opts.LineData{Value: cand.OBDValues[i]}
		can[i] = opts.LineData{Value: cand.CANTransformed[i]}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Candidate Correlation",
			Theme:     "dark",
			Width:     "1200px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s bytes %d..%d (%s) vs PID %s", cand.CANID, cand.ByteIndex, cand.ByteEnd, cand.ModelType, st.PID),
			Subtitle: fmt.Sprintf("pearson=%.3f spearman=%.3f confidence=%.3f n=%d",
				cand.Pearson, cand.Spearman, cand.Confidence, cand.NSamples),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)"}),
	)
	line.SetXAxis(x).
		AddSeries("OBD", obd).
		AddSeries("CAN transformed", can)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		h.logger.Error("charts.candidate render error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("render chart: %v", err))
	}
	h.store(cacheKey, buf.Bytes())
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

// Ranges draws the merged byte ranges of the selected identifiers as
// min/max bars with the distinct-value count on top.
func (h *Handler) Ranges(c echo.Context) error {
	req := &models.RangesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.ranges.GetRanges(c.Request().Context(), usecase.GetRangesParams{
		IDs:    splitIDs(req.IDs),
		Source: req.Source,
	})
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	if len(report.Ranges) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no observed ranges for the selection"))
	}

	x := make([]string, len(report.Ranges))
	minS := make([]opts.BarData, len(report.Ranges))
	maxS := make([]opts.BarData, len(report.Ranges))
	uniq := make([]opts.BarData, len(report.Ranges))
	for i, r := range report.Ranges {
		x[i] = "byte " + strconv.Itoa(r.Index)
		minS[i] = opts.BarData{Value: r.Min}
		maxS[i] = opts.BarData{Value: r.Max}
		uniq[i] = opts.BarData{Value: r.Unique}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Byte Ranges",
			Theme:     "dark",
			Width:     "1000px",
			Height:    "560px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Merged byte ranges",
			Subtitle: fmt.Sprintf("source=%s ids=%d", report.Source, len(report.IDs)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("min", minS).
		AddSeries("max", maxS).
		AddSeries("unique", uniq,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		h.logger.Error("charts.ranges render error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("render chart: %v", err))
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (h *Handler) cached(key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	b, ok, err := h.cache.GetBytes(key)
	if err != nil || !ok {
		return nil, false
	}
	return b, true
}

func (h *Handler) store(key string, b []byte) {
	if h.cache == nil {
		return
	}
	if err := h.cache.SetBytes(key, b, snapshotTTL); err != nil {
		h.logger.Warn("charts cache_set_error", applogger.Error(err))
	}
}

// splitIDs turns the comma-separated ids parameter into a slice.
func splitIDs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
