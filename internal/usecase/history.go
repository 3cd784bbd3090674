package usecase

import (
	"context"
	"fmt"
	"time"

	"CANProbe/internal/domain/models"
	domrepo "CANProbe/internal/domain/repository"
)

// HistoryUseCase provides business logic for querying archived run records.
type HistoryUseCase struct {
	store domrepo.SampleStorage // nil when no queryable archive is configured
}

func NewHistoryUseCase(store domrepo.SampleStorage) *HistoryUseCase {
	return &HistoryUseCase{store: store}
}

type GetHistoryParams struct {
	RunID string
	From  time.Time
	To    time.Time
	Kind  string // optional: obd_sample | accepted_signal | fuzz_frame
	Limit int
}

type GetHistoryResult struct {
	RunID   string                  `json:"run_id"`
	From    time.Time               `json:"from"`
	To      time.Time               `json:"to"`
	Count   int                     `json:"count"`
	Records []*models.ArchiveRecord `json:"records"`
}

func (uc *HistoryUseCase) GetHistory(ctx context.Context, p GetHistoryParams) (*GetHistoryResult, error) {
	if uc.store == nil {
		return nil, fmt.Errorf("archive storage not configured")
	}
	if p.RunID == "" {
		return nil, fmt.Errorf("run id required")
	}
	if !p.From.IsZero() && !p.To.IsZero() && p.From.After(p.To) {
		return nil, fmt.Errorf("from must be <= to")
	}
	if p.Limit <= 0 {
		p.Limit = 1000
	}
	if p.Limit > 10000 {
		p.Limit = 10000
	}

	recs, err := uc.store.Query(ctx, p.RunID, p.From, p.To, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	if p.Kind != "" {
		kept := recs[:0]
		for _, r := range recs {
			if string(r.Kind) == p.Kind {
				kept = append(kept, r)
			}
		}
		recs = kept
	}
	if len(recs) > p.Limit {
		recs = recs[:p.Limit]
	}

	return &GetHistoryResult{
		RunID:   p.RunID,
		From:    p.From,
		To:      p.To,
		Count:   len(recs),
		Records: recs,
	}, nil
}
