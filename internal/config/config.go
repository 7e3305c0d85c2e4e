// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Store drivers understood by the bootstrap layer.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMongo    = "mongo"
)

// Media providers understood by the bootstrap layer.
const (
	MediaCloudinary = "cloudinary"
	MediaS3         = "s3"
	MediaMemory     = "memory"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env            string `mapstructure:"APP_ENV"`
	Port           string `mapstructure:"PORT"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	LogFormat      string `mapstructure:"LOG_FORMAT"`

	JWTSecret   string `mapstructure:"JWT_SECRET"`
	JWTIssuer   string `mapstructure:"JWT_ISSUER"`
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	JWTTTLHours int    `mapstructure:"JWT_TTL_HOURS"`

	StoreDriver              string `mapstructure:"STORE_DRIVER"`
	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	DBPath                   string `mapstructure:"DB_PATH"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	MongoURI                 string `mapstructure:"MONGO_URI"`
	MongoDatabase            string `mapstructure:"MONGO_DATABASE"`

	RedisURL string `mapstructure:"REDIS_URL"`

	MediaProvider       string `mapstructure:"MEDIA_PROVIDER"`
	CloudinaryURL       string `mapstructure:"CLOUDINARY_URL"`
	CloudinaryCloudName string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `mapstructure:"CLOUDINARY_API_SECRET"`
	S3Bucket            string `mapstructure:"S3_BUCKET"`
	S3Region            string `mapstructure:"S3_REGION"`
	S3Endpoint          string `mapstructure:"S3_ENDPOINT"`
	S3AccessKeyID       string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey   string `mapstructure:"S3_SECRET_ACCESS_KEY"`
	S3PublicBaseURL     string `mapstructure:"S3_PUBLIC_BASE_URL"`
	S3ForcePathStyle    bool   `mapstructure:"S3_FORCE_PATH_STYLE"`
	ImageFolder         string `mapstructure:"IMAGE_FOLDER"`
	DocumentFolder      string `mapstructure:"DOCUMENT_FOLDER"`
	UploadMaxFileMB     int    `mapstructure:"UPLOAD_MAX_FILE_MB"`
	UploadMaxFiles      int    `mapstructure:"UPLOAD_MAX_FILES"`
	UploadConcurrency   int    `mapstructure:"UPLOAD_CONCURRENCY"`

	TracingEnabled bool   `mapstructure:"TRACING_ENABLED"`
	OTLPEndpoint   string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// FeatureFlags is a comma separated key=value list, e.g. "activity_stream=25%".
	FeatureFlags string `mapstructure:"FEATURE_FLAGS"`
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

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
		slog.Info("loaded profile-specific configuration", slog.String("file", "config."+env+".yml"))
	}

	setDefaults()

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

func setDefaults() {
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("PORT", "5000")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "")

	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("JWT_ISSUER", "inkwell-api")
	viper.SetDefault("JWT_AUDIENCE", "inkwell-client")
	viper.SetDefault("JWT_TTL_HOURS", 168)

	viper.SetDefault("STORE_DRIVER", StorePostgres)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "inkwell")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_PATH", "inkwell.db")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 10)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DATABASE", "inkwell")

	viper.SetDefault("REDIS_URL", "localhost:6379")

	viper.SetDefault("MEDIA_PROVIDER", MediaCloudinary)
	viper.SetDefault("CLOUDINARY_URL", "")
	viper.SetDefault("CLOUDINARY_CLOUD_NAME", "")
	viper.SetDefault("CLOUDINARY_API_KEY", "")
	viper.SetDefault("CLOUDINARY_API_SECRET", "")
	viper.SetDefault("S3_BUCKET", "")
	viper.SetDefault("S3_REGION", "us-east-1")
	viper.SetDefault("S3_ENDPOINT", "")
	viper.SetDefault("S3_ACCESS_KEY_ID", "")
	viper.SetDefault("S3_SECRET_ACCESS_KEY", "")
	viper.SetDefault("S3_PUBLIC_BASE_URL", "")
	viper.SetDefault("S3_FORCE_PATH_STYLE", false)
	viper.SetDefault("IMAGE_FOLDER", "blog-images")
	viper.SetDefault("DOCUMENT_FOLDER", "blog-documents")
	viper.SetDefault("UPLOAD_MAX_FILE_MB", 10)
	viper.SetDefault("UPLOAD_MAX_FILES", 10)
	viper.SetDefault("UPLOAD_CONCURRENCY", 5)

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	viper.SetDefault("FEATURE_FLAGS", "activity_stream=on")
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	c.MediaProvider = strings.ToLower(strings.TrimSpace(c.MediaProvider))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
}

// IsProduction reports whether the config targets a production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// IsLocal reports whether the config targets development or test.
func (c *Config) IsLocal() bool {
	return c.Env == "" || c.Env == "development" || c.Env == "test"
}

// UploadMaxFileBytes returns the per-file upload ceiling in bytes.
func (c *Config) UploadMaxFileBytes() int64 {
	return int64(c.UploadMaxFileMB) * 1024 * 1024
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.JWTTTLHours <= 0 {
		return errors.New("JWT_TTL_HOURS must be positive")
	}

	switch c.StoreDriver {
	case StorePostgres, StoreSQLite, StoreMongo:
	default:
		return fmt.Errorf("STORE_DRIVER %q is not supported", c.StoreDriver)
	}

	switch c.MediaProvider {
	case MediaCloudinary:
		if c.CloudinaryURL == "" && (c.CloudinaryCloudName == "" || c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "") {
			if !c.IsLocal() {
				return errors.New("cloudinary credentials are required (CLOUDINARY_URL or cloud name, key and secret)")
			}
			slog.Warn("cloudinary credentials missing; uploads will fail until configured")
		}
	case MediaS3:
		if c.S3Bucket == "" {
			return errors.New("S3_BUCKET is required when MEDIA_PROVIDER is s3")
		}
	case MediaMemory:
		if !c.IsLocal() {
			return errors.New("MEDIA_PROVIDER memory is only allowed in development and test")
		}
	default:
		return fmt.Errorf("MEDIA_PROVIDER %q is not supported", c.MediaProvider)
	}

	if c.UploadMaxFileMB <= 0 || c.UploadMaxFiles <= 0 {
		return errors.New("upload limits must be positive")
	}
	if c.UploadConcurrency <= 0 {
		return errors.New("UPLOAD_CONCURRENCY must be positive")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.StoreDriver == StorePostgres {
			if c.DBPassword == "password" || c.DBPassword == "" {
				return errors.New("a strong DB_PASSWORD is required in production")
			}
			if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
				return errors.New("DB_SSLMODE must enable TLS in production")
			}
		}
		if c.AllowedOrigins == "*" {
			slog.Warn("ALLOWED_ORIGINS is set to '*' in production")
		}
	} else if len(c.JWTSecret) < 32 {
		slog.Warn("JWT_SECRET is shorter than 32 characters; use a stronger secret for production")
	}

	return nil
}
