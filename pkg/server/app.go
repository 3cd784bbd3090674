package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"CANProbe/internal/domain/models"
	domrepo "CANProbe/internal/domain/repository"
	mid "CANProbe/internal/middleware"
	"CANProbe/internal/usecase"
	pkgch "CANProbe/pkg/clickhouse"
	"CANProbe/pkg/config"
	xhttp "CANProbe/pkg/http"
	pkgkafka "CANProbe/pkg/kafka"
	applogger "CANProbe/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	handler    xhttp.Handler
	session    *usecase.DiscoverySession
	fuzzer     *usecase.Fuzzer
	capture    *usecase.CaptureFeed   // nil when live capture is disabled
	pipeline   *mid.ArchivePipeline   // nil when archiving is disabled
	router     *usecase.ArchiveRouter // owns publisher/storage handles
	signals    domrepo.SignalStore
	producer   *pkgkafka.Producer // nil unless Kafka is configured
	chClient   *pkgch.Client      // nil unless the ClickHouse backend is configured
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	handler xhttp.Handler,
	session *usecase.DiscoverySession,
	fuzzer *usecase.Fuzzer,
	capture *usecase.CaptureFeed,
	pipeline *mid.ArchivePipeline,
	router *usecase.ArchiveRouter,
	signals domrepo.SignalStore,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:      cfg,
		logger:   logger,
		handler:  handler,
		session:  session,
		fuzzer:   fuzzer,
		capture:  capture,
		pipeline: pipeline,
		router:   router,
		signals:  signals,
		producer: producer,
		chClient: chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if a.pipeline != nil {
		a.pipeline.Start(ctx)
		a.logger.Info("archive pipeline started",
			applogger.String("backend", a.cfg.Archive.Backend))
	}

	if a.capture != nil {
		go func() {
			if err := a.capture.Start(ctx); err != nil {
				a.logger.Error("capture feed error", applogger.Error(err))
			}
		}()
		a.logger.Info("capture feed started",
			applogger.String("topic", a.cfg.Capture.Topic))
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("console ready",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("engine", a.cfg.Engine.BaseURL))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown stops services in dependency order: event sources first, then
// the HTTP surface, then the archive path so buffered records can drain.
func (a *App) shutdown(ctx context.Context) error {
	if a.session != nil {
		if err := a.session.Stop(ctx); err != nil {
			a.logger.Warn("live session stop error", applogger.Error(err))
		}
	}
	if a.fuzzer != nil {
		if err := a.fuzzer.Stop(); err != nil && !errors.Is(err, models.ErrNotRunning) {
			a.logger.Warn("fuzzer stop error", applogger.Error(err))
		}
	}

	if a.capture != nil {
		if err := a.capture.Shutdown(ctx); err != nil {
			a.logger.Warn("capture feed stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.pipeline != nil {
		a.pipeline.Stop()
	}

	// Flush aggregated error logs while the producer is still usable.
	a.logger.RemoveCollector()

	if a.router != nil {
		a.router.Close()
	}
	// The router closes the producer when it owns the Kafka publisher;
	// a producer built only for log collection is closed here.
	if a.producer != nil && domrepo.NormalizeBackend(a.cfg.Archive.Backend) != domrepo.BackendKafka {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.signals != nil {
		if err := a.signals.Close(); err != nil {
			a.logger.Warn("signal store close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
