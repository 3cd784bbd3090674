package service

import (
	"context"

	"CANProbe/internal/domain/models"
	"CANProbe/internal/domain/repository"
)

// OfflineCorrelator runs one batch correlation against the engine.
type OfflineCorrelator interface {
	Run(ctx context.Context, req models.OfflineDiscoveryRequest) (*models.RunResult, error)
}

// StreamDialer opens live correlation streams. Each discovery run dials
// its own stream; the session owns the returned connection.
type StreamDialer interface {
	Dial(ctx context.Context) (repository.EngineStream, error)
}
