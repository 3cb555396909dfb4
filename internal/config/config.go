package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	Downloader  DownloaderConfig
	FFmpeg      FFmpegConfig
	Credentials CredentialsConfig
	Redis       RedisConfig
	Events      EventsConfig
	Storage     StorageConfig
	Database    DatabaseConfig
	Queue       QueueConfig
	Webhook     WebhookConfig
	Logging     LoggingConfig
	Metrics     MetricsConfig
	Tracing     TracingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// JWTSecret enables bearer-token auth on the API when set
	JWTSecret string
	RateLimit RateLimitConfig
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// DownloaderConfig holds controller and engine settings
type DownloaderConfig struct {
	OutputDir          string
	DataDir            string
	QuietPeriod        time.Duration
	SegmentConcurrency int
	SegmentTimeout     time.Duration
	APIBaseURL         string
	PlaybackBaseURL    string
	UserAgent          string
	RequestsPerSecond  float64
	RequestTimeout     time.Duration
}

// FFmpegConfig holds ffmpeg discovery and install settings
type FFmpegConfig struct {
	Path       string
	InstallURL string
}

// CredentialsConfig selects the credential store
type CredentialsConfig struct {
	Backend string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	CacheTTL time.Duration
}

// EventsConfig selects the event bus
type EventsConfig struct {
	Backend string
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// QueueConfig holds message queue configuration
type QueueConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Vhost    string
	Exchange string
}

// WebhookConfig holds the download outcome webhook
type WebhookConfig struct {
	Enabled    bool
	URL        string
	Secret     string
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// MetricsConfig holds the metrics server configuration
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// TracingConfig holds Jaeger configuration
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
}

// Backend names
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Load reads configuration from file and environment variables. A .env file
// next to the config file is loaded first; it never overrides variables that
// are already set. Nested keys map to env names like SERVER_PORT.
func Load(configPath string) (*Config, error) {
	dotenv := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", dotenv, err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	switch c.Credentials.Backend {
	case BackendFile, BackendRedis:
	default:
		return fmt.Errorf("unknown credentials backend %q", c.Credentials.Backend)
	}
	switch c.Events.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown events backend %q", c.Events.Backend)
	}
	if (c.Credentials.Backend == BackendRedis || c.Events.Backend == BackendRedis) && !c.Redis.Enabled {
		return fmt.Errorf("redis backend selected but redis is disabled")
	}
	if c.Downloader.SegmentConcurrency <= 0 {
		return fmt.Errorf("downloader.segmentConcurrency must be positive")
	}
	if c.Webhook.Enabled && c.Webhook.URL == "" {
		return fmt.Errorf("webhook.url is required when the webhook is enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.readTimeout", "30s")
	v.SetDefault("server.writeTimeout", "0s")
	v.SetDefault("server.shutdownTimeout", "10s")
	v.SetDefault("server.jwtSecret", "")
	v.SetDefault("server.rateLimit.enabled", true)
	v.SetDefault("server.rateLimit.requestsPerSecond", 20)
	v.SetDefault("server.rateLimit.burst", 40)

	// Downloader defaults
	v.SetDefault("downloader.outputDir", "")
	v.SetDefault("downloader.dataDir", "./data")
	v.SetDefault("downloader.quietPeriod", "500ms")
	v.SetDefault("downloader.segmentConcurrency", 20)
	v.SetDefault("downloader.segmentTimeout", "30s")
	v.SetDefault("downloader.apiBaseURL", "https://api.chzzk.naver.com")
	v.SetDefault("downloader.playbackBaseURL", "https://apis.naver.com")
	v.SetDefault("downloader.userAgent", "")
	v.SetDefault("downloader.requestsPerSecond", 5)
	v.SetDefault("downloader.requestTimeout", "30s")

	// FFmpeg defaults
	v.SetDefault("ffmpeg.path", "ffmpeg")
	v.SetDefault("ffmpeg.installURL", "")

	v.SetDefault("credentials.backend", BackendFile)
	v.SetDefault("events.backend", BackendMemory)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cacheTTL", "10m")

	// Storage defaults
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.accessKeyID", "minioadmin")
	v.SetDefault("storage.secretAccessKey", "minioadmin")
	v.SetDefault("storage.bucketName", "chzzk-downloads")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.useSSL", false)

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "chzzkdl")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxConns", 5)
	v.SetDefault("database.minConns", 1)

	// Queue defaults
	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.host", "localhost")
	v.SetDefault("queue.port", 5672)
	v.SetDefault("queue.user", "guest")
	v.SetDefault("queue.password", "guest")
	v.SetDefault("queue.vhost", "/")
	v.SetDefault("queue.exchange", "chzzkdl.downloads")

	// Webhook defaults
	v.SetDefault("webhook.enabled", false)
	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.maxRetries", 3)
	v.SetDefault("webhook.retryDelay", "1s")
	v.SetDefault("webhook.timeout", "10s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.serviceName", "chzzkdl")
	v.SetDefault("tracing.endpoint", "localhost:6831")
}
