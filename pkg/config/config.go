package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment"`
	Server      ServerConfig     `yaml:"server"`
	Logger      LoggerConfig     `yaml:"logger"`
	Engine      EngineConfig     `yaml:"engine"`
	Gateway     GatewayConfig    `yaml:"gateway"`
	Store       StoreConfig      `yaml:"store"`
	Archive     ArchiveConfig    `yaml:"archive"`
	Capture     CaptureConfig    `yaml:"capture"`
	Cache       CacheConfig      `yaml:"cache"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	// CollectTopic enables aggregated error-log publishing to Kafka.
	// Requires kafka.brokers; empty disables collection.
	CollectTopic string `yaml:"collect_topic"`
}

// EngineConfig locates the external correlation engine.
type EngineConfig struct {
	BaseURL      string        `yaml:"base_url"` // offline HTTP endpoint
	WSURL        string        `yaml:"ws_url"`   // live WebSocket endpoint
	Timeout      time.Duration `yaml:"timeout"`
	PingInterval time.Duration `yaml:"ping_interval"`
}

// GatewayConfig locates the CAN bus gateway backend. Optional; without
// it frame sending and backend analyses are disabled.
type GatewayConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// StoreConfig locates the embedded signal database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ArchiveConfig selects the run-record archive backend.
type ArchiveConfig struct {
	Backend    string `yaml:"backend"` // kafka | clickhouse | none
	Topic      string `yaml:"topic"`   // kafka backend
	Table      string `yaml:"table"`   // clickhouse backend
	MaxRPS     int    `yaml:"max_rps"`
	BufferSize int    `yaml:"buffer_size"`
}

// CaptureConfig enables the raw-frame Kafka feed.
type CaptureConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Topic      string `yaml:"topic"`
	MaxSamples int    `yaml:"max_samples"` // example payloads retained per id
}

type CacheConfig struct {
	Kind         string        `yaml:"kind"` // memory | redis | layered
	TTL          time.Duration `yaml:"ttl"`
	LocalEntries int           `yaml:"local_entries"` // layered kind: L1 size
	Redis        RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers      []string            `yaml:"brokers"`
	RequiredAcks int                 `yaml:"required_acks"`
	Compression  string              `yaml:"compression"`
	Producer     KafkaProducerConfig `yaml:"producer"`
	Consumer     KafkaConsumerConfig `yaml:"consumer"`
}

type KafkaProducerConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	Linger       time.Duration `yaml:"linger"`
	BatchBytes   int           `yaml:"batch_bytes"`
	BatchSize    int           `yaml:"batch_size"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	Async        bool          `yaml:"async"`
}

type KafkaConsumerConfig struct {
	GroupID    string        `yaml:"group_id"`
	Workers    int           `yaml:"workers"`
	BufferSize int           `yaml:"buffer_size"`
	RetryMax   int           `yaml:"retry_max"`
	BackoffMin time.Duration `yaml:"backoff_min"`
	BackoffMax time.Duration `yaml:"backoff_max"`
	DLQTopic   string        `yaml:"dlq_topic"`
	MinBytes   int           `yaml:"min_bytes"`
	MaxBytes   int           `yaml:"max_bytes"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	Database         string        `yaml:"database"`
	User             string        `yaml:"user"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("ENGINE_URL"); v != "" {
		c.Engine.BaseURL = v
	}
	if v := os.Getenv("ENGINE_WS_URL"); v != "" {
		c.Engine.WSURL = v
	}
	if v := os.Getenv("GATEWAY_URL"); v != "" {
		c.Gateway.BaseURL = v
	}
	if v := os.Getenv("ARCHIVE_BACKEND"); v != "" {
		c.Archive.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CAPTURE_TOPIC"); v != "" {
		c.Capture.Topic = v
	}
	if v := os.Getenv("STORE_PATH"); v != "" {
		c.Store.Path = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Engine.BaseURL == "" {
		return fmt.Errorf("engine.base_url is required")
	}
	if c.Engine.WSURL == "" {
		return fmt.Errorf("engine.ws_url is required")
	}
	switch c.Archive.Backend {
	case "", "none":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers required for archive.backend 'kafka'")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host required for archive.backend 'clickhouse'")
		}
	default:
		return fmt.Errorf("archive.backend must be 'kafka', 'clickhouse' or 'none', got '%s'", c.Archive.Backend)
	}
	if c.Capture.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when capture.enabled")
	}
	switch c.Cache.Kind {
	case "", "memory":
	case "redis", "layered":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr required for cache.kind '%s'", c.Cache.Kind)
		}
	default:
		return fmt.Errorf("cache.kind must be 'memory', 'redis' or 'layered', got '%s'", c.Cache.Kind)
	}
	if c.Logger.CollectTopic != "" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when logger.collect_topic is set")
	}
	return nil
}
