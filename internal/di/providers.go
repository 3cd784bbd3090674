package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	domrepo "CANProbe/internal/domain/repository"
	domsvc "CANProbe/internal/domain/service"
	"CANProbe/internal/handler/api"
	"CANProbe/internal/handler/charts"
	mid "CANProbe/internal/middleware"
	internalrepo "CANProbe/internal/repository"
	icache "CANProbe/internal/service/cache"
	"CANProbe/internal/service/engine"
	"CANProbe/internal/service/gateway"
	"CANProbe/internal/services/framelog"
	"CANProbe/internal/services/ranges"
	"CANProbe/internal/usecase"
	pkgcache "CANProbe/pkg/cache"
	pkgch "CANProbe/pkg/clickhouse"
	"CANProbe/pkg/config"
	xhttp "CANProbe/pkg/http"
	pkgkafka "CANProbe/pkg/kafka"
	applogger "CANProbe/pkg/logger"
	"CANProbe/pkg/metrics"
	"CANProbe/pkg/server"
)

// fuzzLogDepth bounds the in-memory ring of recently fuzzed frames.
const fuzzLogDepth = 256

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if lc.Format == "" {
		lc.Format = "json"
	}
	if lc.Output == "" {
		lc.Output = "stdout"
	}
	return applogger.New(lc)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when the
// archive backend is not ClickHouse.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if domrepo.NormalizeBackend(cfg.Archive.Backend) != domrepo.BackendClickHouse {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideSampleStorage creates the queryable run-record archive on top of
// ClickHouse, ensuring the schema exists.
func ProvideSampleStorage(chClient *pkgch.Client, cfg *config.Config, logger *applogger.Logger) (domrepo.SampleStorage, error) {
	if chClient == nil {
		return nil, nil
	}
	archive := internalrepo.NewClickHouseArchive(chClient, cfg.Archive.Table)
	archive.SetLogger(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := archive.Init(ctx); err != nil {
		_ = chClient.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return archive, nil
}

// ProvideKafkaProducer creates a Kafka producer when the archive backend
// or the log collector needs one.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	needed := domrepo.NormalizeBackend(cfg.Archive.Backend) == domrepo.BackendKafka ||
		cfg.Logger.CollectTopic != ""
	if !needed {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideSamplePublisher creates the Kafka archive publisher, or nil when
// the archive backend is not Kafka.
func ProvideSamplePublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.SamplePublisher {
	if producer == nil || domrepo.NormalizeBackend(cfg.Archive.Backend) != domrepo.BackendKafka {
		return nil
	}
	return internalrepo.NewKafkaArchivePublisher(producer, cfg.Archive.Topic)
}

// ProvideArchiveRouter routes run records to the configured backend.
func ProvideArchiveRouter(pub domrepo.SamplePublisher, store domrepo.SampleStorage, m domrepo.Metrics, cfg *config.Config) *usecase.ArchiveRouter {
	return usecase.NewArchiveRouter(pub, store, m, domrepo.NormalizeBackend(cfg.Archive.Backend))
}

// ProvideArchivePipeline builds the throttling/buffering middleware in
// front of the archive router, or nil when archiving is disabled.
func ProvideArchivePipeline(router *usecase.ArchiveRouter, m domrepo.Metrics, cfg *config.Config) *mid.ArchivePipeline {
	if domrepo.NormalizeBackend(cfg.Archive.Backend) == domrepo.BackendNone {
		return nil
	}
	return mid.NewArchivePipeline(router, m,
		mid.WithMaxRPS(cfg.Archive.MaxRPS),
		mid.WithBufferSize(cfg.Archive.BufferSize),
	)
}

// ProvideObserver creates the live byte-range observer.
func ProvideObserver(cfg *config.Config) *ranges.Observer {
	if cfg.Capture.MaxSamples > 0 {
		return ranges.NewObserver(ranges.WithMaxSamples(cfg.Capture.MaxSamples))
	}
	return ranges.NewObserver()
}

// ProvideKafkaConsumer creates a Kafka consumer for the capture feed, or
// nil when live capture is disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Capture.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideCaptureFeed wires the frame handler into the consumer, or nil
// when live capture is disabled.
func ProvideCaptureFeed(consumer *pkgkafka.Consumer, observer *ranges.Observer, m domrepo.Metrics, cfg *config.Config) *usecase.CaptureFeed {
	if consumer == nil {
		return nil
	}
	handler := usecase.NewFrameHandler(cfg.Capture.Topic, observer, m)
	return usecase.NewCaptureFeed(consumer, handler)
}

// ProvideSignalStore opens the embedded signal database.
func ProvideSignalStore(cfg *config.Config) (domrepo.SignalStore, error) {
	path := cfg.Store.Path
	if path == "" {
		path = "canprobe.db"
	}
	store, err := internalrepo.NewSQLiteSignalStore(path)
	if err != nil {
		return nil, fmt.Errorf("signal store: %w", err)
	}
	return store, nil
}

// ProvideOfflineCorrelator creates the HTTP client for offline engine runs.
func ProvideOfflineCorrelator(cfg *config.Config) domsvc.OfflineCorrelator {
	return engine.NewOfflineClient(cfg)
}

// ProvideStreamDialer creates the WebSocket dialer for live engine runs.
func ProvideStreamDialer(cfg *config.Config) domsvc.StreamDialer {
	return engine.NewDialer(cfg)
}

// ProvideGatewayClient creates the CAN gateway client, or nil when no
// gateway is configured.
func ProvideGatewayClient(cfg *config.Config) *gateway.Client {
	if cfg.Gateway.BaseURL == "" {
		return nil
	}
	return gateway.NewClient(cfg)
}

// ProvideBytesCache selects the snapshot cache backend.
func ProvideBytesCache(cfg *config.Config) (icache.BytesCache, error) {
	switch cfg.Cache.Kind {
	case "", "memory":
		return icache.NewTTLCache(), nil
	case "redis", "layered":
		host, port, err := splitRedisAddr(cfg.Cache.Redis.Addr)
		if err != nil {
			return nil, fmt.Errorf("cache addr: %w", err)
		}
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(host),
			pkgcache.WithRedisPort(port),
			pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
			pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		var svc pkgcache.Service = rc
		if cfg.Cache.Kind == "layered" {
			svc = pkgcache.NewLayeredCache(rc, cfg.Cache.LocalEntries)
		}
		return icache.NewServiceCache(svc), nil
	default:
		return nil, fmt.Errorf("unknown cache kind %q", cfg.Cache.Kind)
	}
}

func splitRedisAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("port %q: %w", portStr, err)
	}
	return host, port, nil
}

// ProvideRing creates the fuzzed-frame log ring.
func ProvideRing() *framelog.Ring {
	return framelog.NewRing(fuzzLogDepth)
}

// ProvideDiscoverySession creates the correlation session use case.
func ProvideDiscoverySession(
	correlator domsvc.OfflineCorrelator,
	dialer domsvc.StreamDialer,
	store domrepo.SignalStore,
	pipeline *mid.ArchivePipeline,
	m domrepo.Metrics,
) *usecase.DiscoverySession {
	var sink domrepo.SampleSink
	if pipeline != nil {
		sink = pipeline
	}
	return usecase.NewDiscoverySession(correlator, dialer, store, sink, m)
}

// ProvideFuzzer creates the fuzzing use case. The analysis source is the
// live observer when capture is enabled, the gateway otherwise.
func ProvideFuzzer(
	observer *ranges.Observer,
	gw *gateway.Client,
	ring *framelog.Ring,
	pipeline *mid.ArchivePipeline,
	m domrepo.Metrics,
	cfg *config.Config,
) *usecase.Fuzzer {
	var provider domrepo.AnalysisProvider
	switch {
	case cfg.Capture.Enabled:
		provider = observer
	case gw != nil:
		provider = gw
	}
	var sender domrepo.FrameSender
	if gw != nil {
		sender = gw
	}
	var sink domrepo.SampleSink
	if pipeline != nil {
		sink = pipeline
	}
	return usecase.NewFuzzer(provider, sender, ring, sink, m)
}

// ProvideRangesUseCase creates the byte-range aggregation use case.
func ProvideRangesUseCase(observer *ranges.Observer, gw *gateway.Client, c icache.BytesCache, cfg *config.Config) *usecase.RangesUseCase {
	var live domrepo.AnalysisProvider
	if cfg.Capture.Enabled {
		live = observer
	}
	var gwp domrepo.AnalysisProvider
	if gw != nil {
		gwp = gw
	}
	return usecase.NewRangesUseCase(live, gwp, c, cfg.Cache.TTL)
}

// ProvideHistoryUseCase creates the archive query use case.
func ProvideHistoryUseCase(storage domrepo.SampleStorage) *usecase.HistoryUseCase {
	return usecase.NewHistoryUseCase(storage)
}

// ProvideHTTPHandler assembles the REST and chart handlers into one
// route registrar.
func ProvideHTTPHandler(
	store domrepo.SignalStore,
	session *usecase.DiscoverySession,
	fuzzer *usecase.Fuzzer,
	rangesUC *usecase.RangesUseCase,
	history *usecase.HistoryUseCase,
	storage domrepo.SampleStorage,
	c icache.BytesCache,
	logger *applogger.Logger,
) xhttp.Handler {
	return api.NewRouter(
		api.NewSignalsHandler(store, logger),
		api.NewDiscoveryHandler(session, logger),
		api.NewFuzzHandler(fuzzer, logger),
		api.NewRangesHandler(rangesUC, history, logger),
		api.NewSystemHandler(storage),
		charts.NewHandler(session, rangesUC, c, logger),
	)
}

// kafkaLogPublisher adapts the Kafka producer to the log collector.
type kafkaLogPublisher struct {
	p *pkgkafka.Producer
}

func (k kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return k.p.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	handler xhttp.Handler,
	session *usecase.DiscoverySession,
	fuzzer *usecase.Fuzzer,
	capture *usecase.CaptureFeed,
	pipeline *mid.ArchivePipeline,
	router *usecase.ArchiveRouter,
	store domrepo.SignalStore,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *server.App {
	if cfg.Logger.CollectTopic != "" && producer != nil {
		logger.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Logger.CollectTopic,
			Publisher:      kafkaLogPublisher{producer},
		})
	}
	return server.New(cfg, logger, handler, session, fuzzer, capture, pipeline, router, store, producer, chClient)
}
