package repository

import (
	"context"

	"CANProbe/internal/domain/models"
)

// SignalStore persists the DBC signal model.
type SignalStore interface {
	Add(ctx context.Context, s *models.Signal) (int64, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*models.Signal, error)
	List(ctx context.Context) ([]models.Signal, error)
	// Messages groups stored signals by CAN ID, ordered by ID then name.
	Messages(ctx context.Context) ([]models.Message, error)
	Close() error
}
