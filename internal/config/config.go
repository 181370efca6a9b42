// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	DBDriver                   string `mapstructure:"DB_DRIVER"`
	DBHost                     string `mapstructure:"DB_HOST"`
	DBPort                     string `mapstructure:"DB_PORT"`
	DBUser                     string `mapstructure:"DB_USER"`
	DBPassword                 string `mapstructure:"DB_PASSWORD"`
	DBName                     string `mapstructure:"DB_NAME"`
	DBSSLMode                  string `mapstructure:"DB_SSLMODE"`
	DBSQLitePath               string `mapstructure:"DB_SQLITE_PATH"`
	DBSchemaMode               string `mapstructure:"DB_SCHEMA_MODE"`
	DBMaxOpenConns             int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns             int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes   int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBAutoMigrateAllowDestruct bool   `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`

	RedisURL            string `mapstructure:"REDIS_URL"`
	UserCacheTTLSeconds int    `mapstructure:"USER_CACHE_TTL_SECONDS"`

	IdentityJWTSecret       string `mapstructure:"IDENTITY_JWT_SECRET"`
	IdentityJWKSURL         string `mapstructure:"IDENTITY_JWKS_URL"`
	IdentityIssuer          string `mapstructure:"IDENTITY_ISSUER"`
	WebhookSecret           string `mapstructure:"WEBHOOK_SECRET"`
	WebhookToleranceSeconds int    `mapstructure:"WEBHOOK_TOLERANCE_SECONDS"`

	StorageDriver        string `mapstructure:"STORAGE_DRIVER"`
	OSSEndpoint          string `mapstructure:"OSS_ENDPOINT"`
	OSSAccessKeyID       string `mapstructure:"OSS_ACCESS_KEY_ID"`
	OSSAccessKeySecret   string `mapstructure:"OSS_ACCESS_KEY_SECRET"`
	OSSBucket            string `mapstructure:"OSS_BUCKET"`
	OSSPublicBaseURL     string `mapstructure:"OSS_PUBLIC_BASE_URL"`
	UploadURLTTLSeconds  int    `mapstructure:"UPLOAD_URL_TTL_SECONDS"`
	MaxVideoUploadSizeMB int    `mapstructure:"MAX_VIDEO_UPLOAD_MB"`
	MaxAvatarUploadMB    int    `mapstructure:"MAX_AVATAR_UPLOAD_MB"`

	MaxMediaPerPost  int `mapstructure:"MAX_MEDIA_PER_POST"`
	MaxContentLength int `mapstructure:"MAX_CONTENT_LENGTH"`
	DefaultPageLimit int `mapstructure:"DEFAULT_PAGE_LIMIT"`
	MaxPageLimit     int `mapstructure:"MAX_PAGE_LIMIT"`

	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter    string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint       string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	TracingSampleRatio float64 `mapstructure:"TRACING_SAMPLE_RATIO"`

	SeedPreset string `mapstructure:"SEED_PRESET"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	SetDefaults(viper.GetViper())

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// SetDefaults registers every key with its development default so that
// AutomaticEnv can resolve it during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8375")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "murmur")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_SQLITE_PATH", "murmur.db")
	v.SetDefault("DB_SCHEMA_MODE", "hybrid")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	v.SetDefault("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE", false)

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("USER_CACHE_TTL_SECONDS", 300)

	v.SetDefault("IDENTITY_JWT_SECRET", "dev-identity-secret-change-in-production")
	v.SetDefault("IDENTITY_JWKS_URL", "")
	v.SetDefault("IDENTITY_ISSUER", "")
	v.SetDefault("WEBHOOK_SECRET", "")
	v.SetDefault("WEBHOOK_TOLERANCE_SECONDS", 300)

	v.SetDefault("STORAGE_DRIVER", "memory")
	v.SetDefault("OSS_ENDPOINT", "")
	v.SetDefault("OSS_ACCESS_KEY_ID", "")
	v.SetDefault("OSS_ACCESS_KEY_SECRET", "")
	v.SetDefault("OSS_BUCKET", "")
	v.SetDefault("OSS_PUBLIC_BASE_URL", "")
	v.SetDefault("UPLOAD_URL_TTL_SECONDS", 900)
	v.SetDefault("MAX_VIDEO_UPLOAD_MB", 200)
	v.SetDefault("MAX_AVATAR_UPLOAD_MB", 5)

	v.SetDefault("MAX_MEDIA_PER_POST", 2)
	v.SetDefault("MAX_CONTENT_LENGTH", 500)
	v.SetDefault("DEFAULT_PAGE_LIMIT", 20)
	v.SetDefault("MAX_PAGE_LIMIT", 100)

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("TRACING_SAMPLE_RATIO", 1.0)

	v.SetDefault("SEED_PRESET", "")
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
}

// IsProduction reports whether error details must be withheld from clients.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

func (c *Config) UploadURLTTL() time.Duration {
	return time.Duration(c.UploadURLTTLSeconds) * time.Second
}

func (c *Config) WebhookTolerance() time.Duration {
	return time.Duration(c.WebhookToleranceSeconds) * time.Second
}

func (c *Config) UserCacheTTL() time.Duration {
	return time.Duration(c.UserCacheTTLSeconds) * time.Second
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.MaxPageLimit < 1 {
		return errors.New("MAX_PAGE_LIMIT must be positive")
	}
	if c.DefaultPageLimit < 1 || c.DefaultPageLimit > c.MaxPageLimit {
		return fmt.Errorf("DEFAULT_PAGE_LIMIT must be between 1 and %d", c.MaxPageLimit)
	}
	if c.MaxMediaPerPost < 1 {
		return errors.New("MAX_MEDIA_PER_POST must be positive")
	}
	if c.MaxContentLength < 1 {
		return errors.New("MAX_CONTENT_LENGTH must be positive")
	}

	switch c.StorageDriver {
	case "memory":
	case "oss":
		if c.OSSEndpoint == "" || c.OSSBucket == "" {
			return errors.New("OSS_ENDPOINT and OSS_BUCKET are required when STORAGE_DRIVER=oss")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}

	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	if c.IdentityJWTSecret == "" && c.IdentityJWKSURL == "" {
		return errors.New("one of IDENTITY_JWT_SECRET or IDENTITY_JWKS_URL is required")
	}

	// Strict checks for production
	if c.IsProduction() {
		if c.IdentityJWKSURL == "" && len(c.IdentityJWTSecret) < 32 {
			return errors.New("IDENTITY_JWT_SECRET must be at least 32 characters in production")
		}
		if c.WebhookSecret == "" {
			return errors.New("WEBHOOK_SECRET is required in production")
		}
		if c.DBDriver == "postgres" && (c.DBPassword == "password" || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBDriver == "postgres" && (c.DBSSLMode == "disable" || c.DBSSLMode == "") {
			return errors.New("DB_SSLMODE must not be 'disable' in production")
		}
		if c.StorageDriver == "memory" {
			return errors.New("STORAGE_DRIVER=memory is not allowed in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	}

	return nil
}
