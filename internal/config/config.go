// Package config loads the server configuration.
//
// SOURCES (highest priority first):
//  1. Environment variables prefixed with SNEAKERS_, e.g. SNEAKERS_DATABASE_DSN
//  2. An optional YAML file (config.yaml in the working directory, or the
//     path given with --config)
//  3. Built-in defaults (applyDefaults)
//
// Nested keys map to env names by replacing "." with "_":
// storage.public_base_url → SNEAKERS_STORAGE_PUBLIC_BASE_URL.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DevJWTSecret is used when no secret is configured outside production.
const DevJWTSecret = "development-only-jwt-secret-change-me"

// Config holds all application configuration.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Catalog  CatalogConfig
	Log      LogConfig
	HTTP     HTTPConfig
}

// AppConfig holds application-wide settings.
type AppConfig struct {
	Name    string
	Env     string // development, production
	Port    int
	BaseURL string // public origin, used to build OAuth callback and upload URLs
}

// DatabaseConfig selects and configures the relational store.
type DatabaseConfig struct {
	Driver   string // sqlite, postgres
	Path     string // sqlite file path, or ":memory:"
	DSN      string // postgres connection string
	MaxConns int32  // postgres pool size
}

// AuthConfig holds session and sign-in settings.
type AuthConfig struct {
	JWTSecret          string
	TokenTTL           time.Duration
	Issuer             string
	CookieSecure       bool
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// StorageConfig selects the object store used for uploaded images.
type StorageConfig struct {
	Driver        string // local, s3
	LocalDir      string
	PublicBaseURL string // prefix for public object URLs
	Bucket        string
	Region        string
	Endpoint      string // S3-compatible endpoint, e.g. MinIO
	AccessKey     string
	SecretKey     string
	UsePathStyle  bool
}

// CatalogConfig configures the third-party sneaker search.
type CatalogConfig struct {
	BaseURL           string
	APIKey            string
	Host              string
	RequestsPerMinute int
	Timeout           time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	MaxUploadBytes   int64
	CORSAllowOrigins []string
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// GitHubEnabled reports whether GitHub sign-in is configured.
func (c *Config) GitHubEnabled() bool {
	return c.Auth.GitHubClientID != "" && c.Auth.GitHubClientSecret != ""
}

// Load reads configuration from file and environment. path may be empty,
// in which case config.yaml is looked up in the working directory and its
// absence is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SNEAKERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Port:    v.GetInt("app.port"),
			BaseURL: v.GetString("app.base_url"),
		},
		Database: DatabaseConfig{
			Driver:   v.GetString("database.driver"),
			Path:     v.GetString("database.path"),
			DSN:      v.GetString("database.dsn"),
			MaxConns: v.GetInt32("database.max_conns"),
		},
		Auth: AuthConfig{
			JWTSecret:          v.GetString("auth.jwt_secret"),
			TokenTTL:           v.GetDuration("auth.token_ttl"),
			Issuer:             v.GetString("auth.issuer"),
			CookieSecure:       v.GetBool("auth.cookie_secure"),
			GitHubClientID:     v.GetString("auth.github_client_id"),
			GitHubClientSecret: v.GetString("auth.github_client_secret"),
			GitHubCallbackURL:  v.GetString("auth.github_callback_url"),
		},
		Storage: StorageConfig{
			Driver:        v.GetString("storage.driver"),
			LocalDir:      v.GetString("storage.local_dir"),
			PublicBaseURL: v.GetString("storage.public_base_url"),
			Bucket:        v.GetString("storage.bucket"),
			Region:        v.GetString("storage.region"),
			Endpoint:      v.GetString("storage.endpoint"),
			AccessKey:     v.GetString("storage.access_key"),
			SecretKey:     v.GetString("storage.secret_key"),
			UsePathStyle:  v.GetBool("storage.use_path_style"),
		},
		Catalog: CatalogConfig{
			BaseURL:           v.GetString("catalog.base_url"),
			APIKey:            v.GetString("catalog.api_key"),
			Host:              v.GetString("catalog.host"),
			RequestsPerMinute: v.GetInt("catalog.requests_per_minute"),
			Timeout:           v.GetDuration("catalog.timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			MaxUploadBytes:   v.GetInt64("http.max_upload_bytes"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "sneaker-rotation"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == 0 {
		cfg.App.Port = 8080
	}
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.App.Port)
	}
	cfg.App.BaseURL = strings.TrimRight(cfg.App.BaseURL, "/")

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/sneakers.db"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}

	if cfg.Auth.JWTSecret == "" && cfg.App.Env != "production" {
		cfg.Auth.JWTSecret = DevJWTSecret
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = cfg.App.Name
	}
	if cfg.Auth.GitHubCallbackURL == "" {
		cfg.Auth.GitHubCallbackURL = cfg.App.BaseURL + "/auth/github/callback"
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "local"
	}
	if cfg.Storage.LocalDir == "" {
		cfg.Storage.LocalDir = "data/uploads"
	}
	if cfg.Storage.PublicBaseURL == "" && cfg.Storage.Driver == "local" {
		cfg.Storage.PublicBaseURL = cfg.App.BaseURL + "/uploads"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "sneakers"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}

	if cfg.Catalog.BaseURL == "" {
		cfg.Catalog.BaseURL = "https://kickscrew-sneakers-data.p.rapidapi.com"
	}
	if cfg.Catalog.Host == "" {
		cfg.Catalog.Host = "kickscrew-sneakers-data.p.rapidapi.com"
	}
	if cfg.Catalog.RequestsPerMinute == 0 {
		cfg.Catalog.RequestsPerMinute = 30
	}
	if cfg.Catalog.Timeout == 0 {
		cfg.Catalog.Timeout = 10 * time.Second
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxUploadBytes == 0 {
		cfg.HTTP.MaxUploadBytes = 5 << 20 // 5MB
	}
}

// validate rejects configurations the server cannot start with.
func (c *Config) validate() error {
	switch c.App.Env {
	case "development", "production", "test":
	default:
		return fmt.Errorf("config: app.env must be development, production or test, got %q", c.App.Env)
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("config: database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("config: database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("config: unknown database.driver %q", c.Database.Driver)
	}

	switch c.Storage.Driver {
	case "local":
		if c.Storage.LocalDir == "" {
			return errors.New("config: storage.local_dir is required for local storage")
		}
	case "s3":
		if c.Storage.PublicBaseURL == "" {
			return errors.New("config: storage.public_base_url is required for s3 storage")
		}
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}

	if len(c.Auth.JWTSecret) < 16 {
		return errors.New("config: auth.jwt_secret must be at least 16 characters")
	}
	if c.IsProduction() {
		if len(c.Auth.JWTSecret) < 32 || c.Auth.JWTSecret == DevJWTSecret {
			return errors.New("config: production requires auth.jwt_secret of at least 32 characters")
		}
		if !c.Auth.CookieSecure {
			return errors.New("config: production requires auth.cookie_secure=true")
		}
	}

	if c.Catalog.RequestsPerMinute < 0 {
		return errors.New("config: catalog.requests_per_minute must not be negative")
	}
	if c.HTTP.MaxUploadBytes < 0 {
		return errors.New("config: http.max_upload_bytes must not be negative")
	}

	return nil
}
