// Package config loads and validates the service configuration from a YAML
// file with environment-variable overrides. Every subsystem has a typed
// section with defaults, so an empty file yields a runnable local setup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/errors"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Texts     TextsConfig     `yaml:"texts"`
	Rules     RulesConfig     `yaml:"rules"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Cache     CacheConfig     `yaml:"cache"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	AllowOrigins    []string      `yaml:"allowOrigins"`
	// RateLimit is requests per RateWindow per client; 0 disables limiting.
	RateLimit       int           `yaml:"rateLimit"`
	RateWindow      time.Duration `yaml:"rateWindow"`
}

// TextsConfig locates the document library.
type TextsConfig struct {
	Dir       string `yaml:"dir"`
	Extension string `yaml:"extension"`
}

// Synonym sources.
const (
	SynonymsFromFile     = "file"
	SynonymsFromPostgres = "postgres"
)

// RulesConfig names the tokenizer and synonym sources.
type RulesConfig struct {
	SeparatorsFile string        `yaml:"separatorsFile"`
	NoiseWordsFile string        `yaml:"noiseWordsFile"`
	SynonymsFile   string        `yaml:"synonymsFile"`
	SynonymsSource string        `yaml:"synonymsSource"`
	Watch          bool          `yaml:"watch"`
	WatchDebounce  time.Duration `yaml:"watchDebounce"`
}

// PipelineConfig sizes the worker pool and the ranked output.
type PipelineConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queueSize"`
	TopK      int `yaml:"topK"`
	LogTopN   int `yaml:"logTopN"`
}

// Cache backends.
const (
	CacheRedis = "redis"
	CacheLocal = "local"
	CacheNone  = "none"
)

// CacheConfig selects where ranked results are cached.
type CacheConfig struct {
	Backend          string        `yaml:"backend"`
	LocalSize        int           `yaml:"localSize"`
	FailureThreshold int           `yaml:"failureThreshold"`
	ResetTimeout     time.Duration `yaml:"resetTimeout"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Brokers       []string `yaml:"brokers"`
	ConsumerGroup string   `yaml:"consumerGroup"`
	Topic         string   `yaml:"topic"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// AnalyticsConfig controls run telemetry.
type AnalyticsConfig struct {
	BufferSize       int           `yaml:"bufferSize"`
	BatchSize        int           `yaml:"batchSize"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls run span logging.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate float64 `yaml:"sampleRate"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3005,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			RequestTimeout:  45 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			AllowOrigins:    []string{"*"},
			RateLimit:       120,
			RateWindow:      time.Minute,
		},
		Texts: TextsConfig{
			Dir:       "./texts",
			Extension: ".txt",
		},
		Rules: RulesConfig{
			SeparatorsFile: "./config/separators.txt",
			NoiseWordsFile: "./config/noise_words.txt",
			SynonymsFile:   "./config/synonyms.txt",
			SynonymsSource: SynonymsFromFile,
			Watch:          true,
			WatchDebounce:  200 * time.Millisecond,
		},
		Pipeline: PipelineConfig{
			Workers:   8,
			QueueSize: 256,
			TopK:      100,
			LogTopN:   30,
		},
		Cache: CacheConfig{
			Backend:          CacheLocal,
			LocalSize:        128,
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "wordfreq-analytics",
			Topic:         "wordfreq-runs",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "wordfreq",
			User:            "wordfreq",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Analytics: AnalyticsConfig{
			BufferSize:       10000,
			BatchSize:        100,
			FlushInterval:    5 * time.Second,
			SnapshotInterval: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			SampleRate: 1,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.Pipeline.Workers < 1 {
		problems = append(problems, fmt.Sprintf("pipeline.workers must be at least 1, got %d", c.Pipeline.Workers))
	}
	if c.Pipeline.QueueSize < 0 {
		problems = append(problems, fmt.Sprintf("pipeline.queueSize must not be negative, got %d", c.Pipeline.QueueSize))
	}
	if c.Pipeline.TopK < 1 {
		problems = append(problems, fmt.Sprintf("pipeline.topK must be at least 1, got %d", c.Pipeline.TopK))
	}
	if c.Pipeline.LogTopN < 0 {
		problems = append(problems, fmt.Sprintf("pipeline.logTopN must not be negative, got %d", c.Pipeline.LogTopN))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port out of range: %d", c.Server.Port))
	}
	if c.Server.RateLimit < 0 {
		problems = append(problems, fmt.Sprintf("server.rateLimit must not be negative, got %d", c.Server.RateLimit))
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow <= 0 {
		problems = append(problems, "server.rateLimit requires a positive server.rateWindow")
	}
	switch c.Rules.SynonymsSource {
	case SynonymsFromFile:
	case SynonymsFromPostgres:
		if !c.Postgres.Enabled {
			problems = append(problems, "rules.synonymsSource=postgres requires postgres.enabled")
		}
	default:
		problems = append(problems, fmt.Sprintf("rules.synonymsSource must be %q or %q, got %q",
			SynonymsFromFile, SynonymsFromPostgres, c.Rules.SynonymsSource))
	}
	switch c.Cache.Backend {
	case CacheRedis, CacheLocal, CacheNone:
	default:
		problems = append(problems, fmt.Sprintf("cache.backend must be redis, local or none, got %q", c.Cache.Backend))
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		problems = append(problems, "kafka.enabled requires brokers and topic")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

// applyEnvOverrides reads WF_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	setInt("WF_SERVER_PORT", &cfg.Server.Port)
	setInt("WF_SERVER_RATE_LIMIT", &cfg.Server.RateLimit)
	setString("WF_TEXTS_DIR", &cfg.Texts.Dir)
	setString("WF_RULES_SEPARATORS_FILE", &cfg.Rules.SeparatorsFile)
	setString("WF_RULES_NOISE_WORDS_FILE", &cfg.Rules.NoiseWordsFile)
	setString("WF_RULES_SYNONYMS_FILE", &cfg.Rules.SynonymsFile)
	setString("WF_RULES_SYNONYMS_SOURCE", &cfg.Rules.SynonymsSource)
	setBool("WF_RULES_WATCH", &cfg.Rules.Watch)
	setInt("WF_PIPELINE_WORKERS", &cfg.Pipeline.Workers)
	setInt("WF_PIPELINE_QUEUE_SIZE", &cfg.Pipeline.QueueSize)
	setInt("WF_PIPELINE_TOP_K", &cfg.Pipeline.TopK)
	setString("WF_CACHE_BACKEND", &cfg.Cache.Backend)
	setString("WF_REDIS_ADDR", &cfg.Redis.Addr)
	setString("WF_REDIS_PASSWORD", &cfg.Redis.Password)
	setBool("WF_KAFKA_ENABLED", &cfg.Kafka.Enabled)
	if v := os.Getenv("WF_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	setString("WF_KAFKA_TOPIC", &cfg.Kafka.Topic)
	setBool("WF_POSTGRES_ENABLED", &cfg.Postgres.Enabled)
	setString("WF_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("WF_POSTGRES_PORT", &cfg.Postgres.Port)
	setString("WF_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setString("WF_POSTGRES_USER", &cfg.Postgres.User)
	setString("WF_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setString("WF_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)
	setString("WF_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("WF_LOGGING_FORMAT", &cfg.Logging.Format)
	setBool("WF_METRICS_ENABLED", &cfg.Metrics.Enabled)
	setInt("WF_METRICS_PORT", &cfg.Metrics.Port)
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
