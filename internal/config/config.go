package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Intake policies for video that fails to convert
const (
	IntakePolicyKeepOriginal = "keep_original"
	IntakePolicyFail         = "fail"
)

// Config holds all configuration for the application
type Config struct {
	Transcoder TranscoderConfig
	Logging    LoggingConfig
	Intake     IntakeConfig
	Export     ExportConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Storage    StorageConfig
	Metrics    MetricsConfig
	Tracing    TracingConfig
}

// TranscoderConfig holds transcoding configuration
type TranscoderConfig struct {
	FFmpegPath  string
	FFprobePath string
	TempDir     string
	VideoCodec  string
	AudioCodec  string
	Preset      string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// IntakeConfig holds submission intake configuration
type IntakeConfig struct {
	VideoFailurePolicy string
}

// ExportConfig holds batch export configuration
type ExportConfig struct {
	EnableCache bool
	CacheTTL    time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
	Prefix          string
}

// MetricsConfig holds metrics server configuration
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	ServiceName    string
	JaegerEndpoint string
}

// Load reads configuration from file and environment variables.
// An empty path loads defaults and environment overrides only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MEDIACONV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
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

// Validate checks values that have a fixed set of options
func (c *Config) Validate() error {
	switch c.Intake.VideoFailurePolicy {
	case IntakePolicyKeepOriginal, IntakePolicyFail:
	default:
		return fmt.Errorf("invalid intake.videoFailurePolicy %q", c.Intake.VideoFailurePolicy)
	}
	if c.Transcoder.FFmpegPath == "" {
		return fmt.Errorf("transcoder.ffmpegPath must not be empty")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Transcoder defaults
	v.SetDefault("transcoder.ffmpegPath", "ffmpeg")
	v.SetDefault("transcoder.ffprobePath", "ffprobe")
	v.SetDefault("transcoder.tempDir", "/tmp/mediaconv")
	v.SetDefault("transcoder.videoCodec", "libx264")
	v.SetDefault("transcoder.audioCodec", "aac")
	v.SetDefault("transcoder.preset", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")

	// Intake defaults
	v.SetDefault("intake.videoFailurePolicy", IntakePolicyKeepOriginal)

	// Export defaults
	v.SetDefault("export.enableCache", false)
	v.SetDefault("export.cacheTTL", "24h")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "submissions")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxConns", 4)
	v.SetDefault("database.minConns", 1)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Storage defaults
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.accessKeyID", "minioadmin")
	v.SetDefault("storage.secretAccessKey", "minioadmin")
	v.SetDefault("storage.bucketName", "exports")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.useSSL", false)
	v.SetDefault("storage.prefix", "exports/")

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)

	// Tracing defaults
	v.SetDefault("tracing.serviceName", "mediaconv")
	v.SetDefault("tracing.jaegerEndpoint", "")
}
