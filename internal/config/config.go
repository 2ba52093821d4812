package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		ENV string `yaml:"env"`
	} `yaml:"app"`

	Log struct {
		Level     string `yaml:"level"`
		Format    string `yaml:"format"`
		Component string `yaml:"component"`
		Source    bool   `yaml:"source"`
	} `yaml:"log"`

	DB struct {
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"db"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	GRPC struct {
		Host string `yaml:"host"`
		Port string `yaml:"port"`
	} `yaml:"grpc"`

	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	Auth struct {
		JWTSecret     string        `yaml:"jwt_secret"`
		TokenTTL      time.Duration `yaml:"token_ttl"`
		BCryptCost    int           `yaml:"bcrypt_cost"`
		Required      bool          `yaml:"required"`
		ResetTokenTTL time.Duration `yaml:"reset_token_ttl"`
	} `yaml:"auth"`

	Storage struct {
		Provider  string        `yaml:"provider"`
		LocalDir  string        `yaml:"local_dir"`
		BaseURL   string        `yaml:"base_url"`
		S3Bucket  string        `yaml:"s3_bucket"`
		S3Region  string        `yaml:"s3_region"`
		URLExpiry time.Duration `yaml:"url_expiry"`
	} `yaml:"storage"`

	Mail struct {
		Provider       string `yaml:"provider"`
		SendGridAPIKey string `yaml:"sendgrid_api_key"`
		From           string `yaml:"from"`
		FromName       string `yaml:"from_name"`
		ResetURL       string `yaml:"reset_url"`
	} `yaml:"mail"`

	Social struct {
		DefaultPageSize      int           `yaml:"default_page_size"`
		MaxPageSize          int           `yaml:"max_page_size"`
		HydrationConcurrency int           `yaml:"hydration_concurrency"`
		CountCacheTTL        time.Duration `yaml:"count_cache_ttl"`
	} `yaml:"social"`
}

// New builds a config from built-in defaults overridden by environment variables.
func New() *Config {
	cfg := defaults()
	applyEnv(cfg)
	return cfg
}

// Load reads .env (if present), then the YAML file at path (if non-empty),
// then environment variables. Later sources win.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations that cannot start a server.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported db driver: %q", c.DB.Driver)
	}
	switch c.Storage.Provider {
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("local storage directory not specified")
		}
	case "s3":
		if c.Storage.S3Bucket == "" || c.Storage.S3Region == "" {
			return fmt.Errorf("S3 configuration incomplete")
		}
	default:
		return fmt.Errorf("unsupported storage provider: %q", c.Storage.Provider)
	}
	switch c.Mail.Provider {
	case "mock":
		if c.IsProduction() {
			return fmt.Errorf("mock mail provider cannot be used in production")
		}
	case "sendgrid":
		if c.Mail.SendGridAPIKey == "" {
			return fmt.Errorf("SendGrid API key is required")
		}
	default:
		return fmt.Errorf("unsupported mail provider: %q", c.Mail.Provider)
	}
	if c.IsProduction() && c.Auth.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("JWT secret must be changed for production")
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.App.ENV == "production" }

const defaultJWTSecret = "change-me-in-production"

func defaults() *Config {
	cfg := &Config{}
	cfg.App.ENV = "development"

	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Log.Component = "grpc_server"

	cfg.DB.Driver = "mysql"
	cfg.DB.Host = "localhost"
	cfg.DB.Port = "3306"
	cfg.DB.User = "root"
	cfg.DB.Password = "root"
	cfg.DB.Name = "ffmclub"

	cfg.Redis.Addr = "localhost:6379"

	cfg.GRPC.Host = "127.0.0.1"
	cfg.GRPC.Port = "50051"
	cfg.HTTP.Addr = "127.0.0.1:8080"

	cfg.Auth.JWTSecret = defaultJWTSecret
	cfg.Auth.TokenTTL = 24 * time.Hour
	cfg.Auth.BCryptCost = 10
	cfg.Auth.ResetTokenTTL = time.Hour

	cfg.Storage.Provider = "local"
	cfg.Storage.LocalDir = "./uploads"
	cfg.Storage.BaseURL = "http://localhost:8080/uploads"
	cfg.Storage.S3Region = "us-east-1"
	cfg.Storage.URLExpiry = 7 * 24 * time.Hour

	cfg.Mail.Provider = "mock"
	cfg.Mail.From = "noreply@ffm.club"
	cfg.Mail.FromName = "FFM Club"
	cfg.Mail.ResetURL = "http://localhost:8080/reset-password"

	cfg.Social.DefaultPageSize = 50
	cfg.Social.MaxPageSize = 100
	cfg.Social.HydrationConcurrency = 8
	cfg.Social.CountCacheTTL = time.Hour
	return cfg
}

func applyEnv(cfg *Config) {
	cfg.App.ENV = getEnvDefault("APP_ENV", cfg.App.ENV)

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", cfg.Log.Format)
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", cfg.Log.Component)
	if v, ok := os.LookupEnv("LOG_SOURCE"); ok {
		cfg.Log.Source = isTruthy(v)
	}

	// Database
	cfg.DB.Driver = strings.ToLower(getEnvDefault("DB_DRIVER", cfg.DB.Driver))
	cfg.DB.Host = getEnvDefault("DB_HOST", cfg.DB.Host)
	cfg.DB.Port = getEnvDefault("DB_PORT", cfg.DB.Port)
	cfg.DB.User = getEnvDefault("DB_USER", cfg.DB.User)
	cfg.DB.Password = getEnvDefault("DB_PASSWORD", cfg.DB.Password)
	cfg.DB.Name = getEnvDefault("DB_NAME", cfg.DB.Name)
	cfg.DB.DSN = getEnvDefault("DB_DSN", cfg.DB.DSN)
	if cfg.DB.DSN == "" {
		cfg.DB.DSN = buildDSN(cfg)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB)

	// gRPC + ops HTTP
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", cfg.GRPC.Host)
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", cfg.GRPC.Port)
	cfg.HTTP.Addr = getEnvDefault("HTTP_ADDR", cfg.HTTP.Addr)

	// Auth
	cfg.Auth.JWTSecret = getEnvDefault("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.TokenTTL = getEnvDuration("TOKEN_TTL", cfg.Auth.TokenTTL)
	cfg.Auth.BCryptCost = getEnvInt("BCRYPT_COST", cfg.Auth.BCryptCost)
	cfg.Auth.ResetTokenTTL = getEnvDuration("RESET_TOKEN_TTL", cfg.Auth.ResetTokenTTL)
	if v, ok := os.LookupEnv("AUTH_REQUIRED"); ok {
		cfg.Auth.Required = isTruthy(v)
	}

	// Storage
	cfg.Storage.Provider = strings.ToLower(getEnvDefault("STORAGE_PROVIDER", cfg.Storage.Provider))
	cfg.Storage.LocalDir = getEnvDefault("LOCAL_UPLOAD_DIR", cfg.Storage.LocalDir)
	cfg.Storage.BaseURL = getEnvDefault("STORAGE_BASE_URL", cfg.Storage.BaseURL)
	cfg.Storage.S3Bucket = getEnvDefault("S3_BUCKET_NAME", cfg.Storage.S3Bucket)
	cfg.Storage.S3Region = getEnvDefault("AWS_REGION", cfg.Storage.S3Region)
	cfg.Storage.URLExpiry = getEnvDuration("STORAGE_URL_EXPIRY", cfg.Storage.URLExpiry)

	// Mail
	cfg.Mail.Provider = strings.ToLower(getEnvDefault("MAIL_PROVIDER", cfg.Mail.Provider))
	cfg.Mail.SendGridAPIKey = getEnvDefault("SENDGRID_API_KEY", cfg.Mail.SendGridAPIKey)
	cfg.Mail.From = getEnvDefault("MAIL_FROM", cfg.Mail.From)
	cfg.Mail.FromName = getEnvDefault("MAIL_FROM_NAME", cfg.Mail.FromName)
	cfg.Mail.ResetURL = getEnvDefault("PASSWORD_RESET_URL", cfg.Mail.ResetURL)

	// Social
	cfg.Social.DefaultPageSize = getEnvInt("DEFAULT_PAGE_SIZE", cfg.Social.DefaultPageSize)
	cfg.Social.MaxPageSize = getEnvInt("MAX_PAGE_SIZE", cfg.Social.MaxPageSize)
	cfg.Social.HydrationConcurrency = getEnvInt("HYDRATION_CONCURRENCY", cfg.Social.HydrationConcurrency)
	cfg.Social.CountCacheTTL = getEnvDuration("COUNT_CACHE_TTL", cfg.Social.CountCacheTTL)
}

func buildDSN(cfg *Config) string {
	switch cfg.DB.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name,
		)
	case "sqlite":
		return cfg.DB.Name + ".db"
	default:
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
