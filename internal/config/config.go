package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// HTTP holds HTTP server configuration.
type HTTP struct {
	Host string
	Port int
}

// Auth configures bearer token verification for the identity middleware.
type Auth struct {
	JWTSecret string
}

// Seckill configures the flash-sale order flow.
type Seckill struct {
	// PurchaseCap is the per-user ticket cap for a single ticket type.
	PurchaseCap int
	// OrderTTL is how long a pending order stays payable.
	OrderTTL time.Duration
	// SweepInterval is how often expired unpaid orders have their stock
	// returned to the pool.
	SweepInterval time.Duration
}

// Cache configures caching behavior and backend selection.
type Cache struct {
	Enabled    bool
	Driver     string
	DefaultTTL time.Duration
	Redis      Redis
}

// Redis contains redis-specific connection settings.
type Redis struct {
	Addr     string
	Password string
	DB       int
}

// Messaging configures the message bus used by the application.
type Messaging struct {
	Driver        string
	Enabled       bool
	Kafka         Kafka
	ConsumerGroup string
	Workers       Worker
}

// Kafka holds Kafka connection details.
type Kafka struct {
	Brokers        []string
	ClientID       string
	Topic          string
	CommitInterval time.Duration
	MinBytes       int
	MaxBytes       int
	ConnectTimeout time.Duration
}

// Worker configures background worker concurrency and polling.
type Worker struct {
	Enabled      bool
	PollInterval time.Duration
	Concurrency  int
}

// Database holds primary and read replica connection settings.
type Database struct {
	Driver          string
	WriterDSN       string
	ReaderDSN       string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
}

// Observability contains logging, tracing, and metrics configuration.
type Observability struct {
	ServiceName     string
	Environment     string
	LogLevel        string
	LogEncoding     string
	EnableTracing   bool
	TraceExporter   string
	TraceEndpoint   string
	TraceInsecure   bool
	EnableMetrics   bool
	MetricsExporter string
	PrometheusPath  string
}

// Config wraps all application configuration knobs.
type Config struct {
	HTTP          HTTP
	Auth          Auth
	Seckill       Seckill
	Cache         Cache
	Messaging     Messaging
	Database      Database
	Observability Observability
}

// Module wires the configuration loader into the Fx graph.
var Module = fx.Provide(New)

var loadEnvOnce sync.Once

// New builds a Config from environment variables or defaults.
func New() (Config, error) {
	loadEnvOnce.Do(func() {
		_ = godotenv.Load()
	})

	cfg := Config{
		HTTP: HTTP{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnvAsInt("HTTP_PORT", 8080),
		},
		Auth: Auth{
			JWTSecret: getEnv("JWT_SECRET", "boxoffice-dev-secret"),
		},
		Seckill: Seckill{
			PurchaseCap:   getEnvAsInt("SECKILL_PURCHASE_CAP", 5),
			OrderTTL:      getEnvAsDuration("SECKILL_ORDER_TTL", 30*time.Minute),
			SweepInterval: getEnvAsDuration("SECKILL_SWEEP_INTERVAL", time.Minute),
		},
		Cache: Cache{
			Enabled:    getEnvAsBool("CACHE_ENABLED", true),
			Driver:     getEnv("CACHE_DRIVER", "redis"),
			DefaultTTL: getEnvAsDuration("CACHE_DEFAULT_TTL", time.Minute*5),
			Redis: Redis{
				Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
				Password: getEnv("REDIS_PASSWORD", ""),
				DB:       getEnvAsInt("REDIS_DB", 0),
			},
		},
		Messaging: Messaging{
			Driver:  getEnv("MESSAGING_DRIVER", "kafka"),
			Enabled: getEnvAsBool("MESSAGING_ENABLED", true),
			Kafka: Kafka{
				Brokers:        getEnvAsStringSlice("KAFKA_BROKERS", []string{"127.0.0.1:9092"}),
				ClientID:       getEnv("KAFKA_CLIENT_ID", "boxoffice-service"),
				Topic:          getEnv("KAFKA_TOPIC", "orders.events"),
				CommitInterval: getEnvAsDuration("KAFKA_COMMIT_INTERVAL", time.Second),
				MinBytes:       getEnvAsInt("KAFKA_MIN_BYTES", 10e3),
				MaxBytes:       getEnvAsInt("KAFKA_MAX_BYTES", 10e6),
				ConnectTimeout: getEnvAsDuration("KAFKA_CONNECT_TIMEOUT", 5*time.Second),
			},
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "boxoffice-worker"),
			Workers: Worker{
				Enabled:      getEnvAsBool("WORKER_ENABLED", true),
				PollInterval: getEnvAsDuration("WORKER_POLL_INTERVAL", time.Second),
				Concurrency:  getEnvAsInt("WORKER_CONCURRENCY", 4),
			},
		},
		Database: Database{
			Driver:          getEnv("DB_DRIVER", "mysql"),
			WriterDSN:       getEnv("DB_WRITER_DSN", "boxoffice:boxoffice@tcp(localhost:3306)/boxoffice?parseTime=true"),
			ReaderDSN:       getEnv("DB_READER_DSN", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", time.Minute*5),
		},
		Observability: Observability{
			ServiceName:     getEnv("OBS_SERVICE_NAME", "boxoffice"),
			Environment:     getEnv("OBS_ENVIRONMENT", "local"),
			LogLevel:        getEnv("OBS_LOG_LEVEL", "info"),
			LogEncoding:     getEnv("OBS_LOG_ENCODING", "json"),
			EnableTracing:   getEnvAsBool("OBS_ENABLE_TRACING", true),
			TraceExporter:   getEnv("OBS_TRACE_EXPORTER", "stdout"),
			TraceEndpoint:   getEnv("OBS_OTLP_ENDPOINT", "localhost:4317"),
			TraceInsecure:   getEnvAsBool("OBS_OTLP_INSECURE", true),
			EnableMetrics:   getEnvAsBool("OBS_ENABLE_METRICS", true),
			MetricsExporter: getEnv("OBS_METRICS_EXPORTER", "prometheus"),
			PrometheusPath:  getEnv("OBS_PROMETHEUS_PATH", "/metrics"),
		},
	}

	if cfg.HTTP.Port <= 0 {
		return Config{}, fmt.Errorf("invalid HTTP port: %d", cfg.HTTP.Port)
	}
	if cfg.Auth.JWTSecret == "" {
		return Config{}, fmt.Errorf("missing JWT_SECRET")
	}
	if cfg.Database.WriterDSN == "" {
		return Config{}, fmt.Errorf("missing DB_WRITER_DSN")
	}
	if cfg.Database.ReaderDSN == "" {
		cfg.Database.ReaderDSN = cfg.Database.WriterDSN
	}

	cfg.Seckill.normalize()
	if err := cfg.Cache.normalize(); err != nil {
		return Config{}, err
	}
	if err := cfg.Messaging.normalize(); err != nil {
		return Config{}, err
	}
	cfg.Observability.normalize()

	return cfg, nil
}

func (s *Seckill) normalize() {
	if s.PurchaseCap < 1 {
		s.PurchaseCap = 1
	}
	if s.OrderTTL <= 0 {
		s.OrderTTL = 30 * time.Minute
	}
	if s.SweepInterval <= 0 {
		s.SweepInterval = time.Minute
	}
}

func (c *Cache) normalize() error {
	if !c.Enabled {
		c.Driver = "noop"
	}
	switch c.Driver {
	case "redis", "noop":
	default:
		return fmt.Errorf("unsupported cache driver: %s", c.Driver)
	}
	if c.Driver == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("missing REDIS_ADDR for redis cache")
	}
	if c.DefaultTTL < 0 {
		c.DefaultTTL = time.Minute * 5
	}
	return nil
}

func (m *Messaging) normalize() error {
	if !m.Enabled {
		m.Driver = "noop"
	}
	switch m.Driver {
	case "kafka", "noop":
	default:
		return fmt.Errorf("unsupported messaging driver: %s", m.Driver)
	}

	if m.Driver == "kafka" {
		if len(m.Kafka.Brokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS must be provided")
		}
		if m.Kafka.Topic == "" {
			return fmt.Errorf("KAFKA_TOPIC must be provided")
		}
		if m.ConsumerGroup == "" {
			return fmt.Errorf("KAFKA_CONSUMER_GROUP must be provided")
		}
	}

	if m.Workers.Concurrency <= 0 {
		m.Workers.Concurrency = 1
	}
	if m.Workers.PollInterval <= 0 {
		m.Workers.PollInterval = time.Second
	}
	return nil
}

func (o *Observability) normalize() {
	o.LogLevel = lowerOr(o.LogLevel, "info")
	o.LogEncoding = lowerOr(o.LogEncoding, "json")
	o.TraceExporter = lowerOr(o.TraceExporter, "stdout")
	o.MetricsExporter = lowerOr(o.MetricsExporter, "prometheus")

	if o.PrometheusPath == "" {
		o.PrometheusPath = "/metrics"
	} else if !strings.HasPrefix(o.PrometheusPath, "/") {
		o.PrometheusPath = "/" + o.PrometheusPath
	}
}

func lowerOr(value, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fallback
	}
	return value
}
