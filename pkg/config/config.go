// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Lists, Objects, Bench, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Lists    ListsConfig    `yaml:"lists"`
	Objects  ObjectsConfig  `yaml:"objects"`
	Bench    BenchConfig    `yaml:"bench"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RateLimit       float64       `yaml:"rateLimit"`
	RateBurst       int           `yaml:"rateBurst"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
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

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	BenchRuns string `yaml:"benchRuns"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// ListsConfig controls where posting lists are loaded from and how they are
// replicated into synthetic large lists.
type ListsConfig struct {
	Dir         string `yaml:"dir"`
	SegmentPath string `yaml:"segmentPath"`
	NumRepeats  int    `yaml:"numRepeats"`
	Offset      int    `yaml:"offset"`
}

// ObjectsConfig points at the S3-compatible bucket segments are published
// to and fetched from.
type ObjectsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"useSSL"`
}

// BenchConfig controls the benchmark harness.
type BenchConfig struct {
	Runs          int      `yaml:"runs"`
	Concurrency   int      `yaml:"concurrency"`
	OrderOperands bool     `yaml:"orderOperands"`
	Algorithms    []string `yaml:"algorithms"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
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
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading a file.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       50,
			RateBurst:       100,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "intersection",
			User:            "intersection",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "intersection-reports",
			Topics: KafkaTopics{
				BenchRuns: "bench-runs",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 5 * time.Minute,
		},
		Lists: ListsConfig{
			Dir:        "postinglists",
			NumRepeats: 1,
			Offset:     0,
		},
		Objects: ObjectsConfig{
			Endpoint: "localhost:9000",
			Bucket:   "posting-segments",
			Prefix:   "segments/",
		},
		Bench: BenchConfig{
			Runs:          10,
			Concurrency:   2,
			OrderOperands: true,
			Algorithms:    []string{"linear", "binary", "gallop", "skip"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

func (c *Config) validate() error {
	if c.Lists.NumRepeats < 1 {
		return fmt.Errorf("lists.numRepeats must be >= 1, got %d", c.Lists.NumRepeats)
	}
	if c.Lists.Offset < 0 {
		return fmt.Errorf("lists.offset must be >= 0, got %d", c.Lists.Offset)
	}
	if c.Bench.Runs < 1 {
		return fmt.Errorf("bench.runs must be >= 1, got %d", c.Bench.Runs)
	}
	if c.Objects.Enabled && c.Objects.Bucket == "" {
		return fmt.Errorf("objects.bucket is required when objects.enabled is set")
	}
	if c.Bench.Concurrency < 1 {
		c.Bench.Concurrency = 1
	}
	return nil
}

// applyEnvOverrides reads PI_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PI_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PI_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("PI_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("PI_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("PI_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("PI_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("PI_KAFKA_ENABLED"); v != "" {
		cfg.Kafka.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("PI_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("PI_REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("PI_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PI_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("PI_LISTS_DIR"); v != "" {
		cfg.Lists.Dir = v
	}
	if v := os.Getenv("PI_LISTS_REPEATS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Lists.NumRepeats = n
		}
	}
	if v := os.Getenv("PI_LISTS_OFFSET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Lists.Offset = n
		}
	}
	if v := os.Getenv("PI_OBJECTS_ENABLED"); v != "" {
		cfg.Objects.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("PI_OBJECTS_ENDPOINT"); v != "" {
		cfg.Objects.Endpoint = v
	}
	if v := os.Getenv("PI_OBJECTS_ACCESS_KEY"); v != "" {
		cfg.Objects.AccessKey = v
	}
	if v := os.Getenv("PI_OBJECTS_SECRET_KEY"); v != "" {
		cfg.Objects.SecretKey = v
	}
	if v := os.Getenv("PI_OBJECTS_BUCKET"); v != "" {
		cfg.Objects.Bucket = v
	}
	if v := os.Getenv("PI_BENCH_RUNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Bench.Runs = n
		}
	}
	if v := os.Getenv("PI_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PI_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
