// Package main provides the ProjTrack server CLI.
package main

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Supported storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config represents the server configuration. Values come from an optional
// YAML file, then environment variables. Secrets are environment-only.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
	Web     WebConfig     `yaml:"web"`
	Verbose bool          `yaml:"verbose" env:"PROJTRACK_VERBOSE"`
}

// ServerConfig contains listener settings.
type ServerConfig struct {
	HTTPAddress    string    `yaml:"http_address" env:"PROJTRACK_HTTP_ADDRESS" env-default:":8080"`
	MetricsAddress string    `yaml:"metrics_address" env:"PROJTRACK_METRICS_ADDRESS" env-default:":9090"`
	HTTPTLS        TLSConfig `yaml:"http_tls"`
}

// TLSConfig contains HTTPS settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled" env:"PROJTRACK_TLS_ENABLED"`
	CertFile string `yaml:"cert_file" env:"PROJTRACK_TLS_CERT_FILE"`
	KeyFile  string `yaml:"key_file" env:"PROJTRACK_TLS_KEY_FILE"`
}

// StorageConfig selects and configures the backing store.
type StorageConfig struct {
	Driver        string        `yaml:"driver" env:"PROJTRACK_STORAGE_DRIVER" env-default:"sqlite"`
	SQLitePath    string        `yaml:"sqlite_path" env:"PROJTRACK_SQLITE_PATH" env-default:"./data/projtrack.db"`
	MongoURI      string        `yaml:"-" env:"PROJTRACK_MONGO_URI"`
	MongoDatabase string        `yaml:"mongo_database" env:"PROJTRACK_MONGO_DATABASE" env-default:"projtrack"`
	MongoTimeout  time.Duration `yaml:"mongo_connect_timeout" env:"PROJTRACK_MONGO_CONNECT_TIMEOUT" env-default:"10s"`
}

// AuthConfig contains token, lockout and rate limit settings.
type AuthConfig struct {
	JWTSecret        string        `yaml:"-" env:"PROJTRACK_JWT_SECRET"`
	AccessTokenTTL   time.Duration `yaml:"access_token_ttl" env:"PROJTRACK_ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL  time.Duration `yaml:"refresh_token_ttl" env:"PROJTRACK_REFRESH_TOKEN_TTL" env-default:"168h"`
	LockoutThreshold int           `yaml:"lockout_threshold" env:"PROJTRACK_LOCKOUT_THRESHOLD" env-default:"5"`
	LockoutDuration  time.Duration `yaml:"lockout_duration" env:"PROJTRACK_LOCKOUT_DURATION" env-default:"15m"`
	LoginRateLimit   int           `yaml:"login_rate_limit" env:"PROJTRACK_LOGIN_RATE_LIMIT" env-default:"10"`
	LoginRateBurst   int           `yaml:"login_rate_burst" env:"PROJTRACK_LOGIN_RATE_BURST" env-default:"5"`
	BcryptCost       int           `yaml:"bcrypt_cost" env:"PROJTRACK_BCRYPT_COST" env-default:"10"`
}

// WebConfig contains web UI settings.
type WebConfig struct {
	Disabled         bool          `yaml:"disabled" env:"PROJTRACK_WEB_DISABLED"`
	BasePath         string        `yaml:"base_path" env:"PROJTRACK_WEB_BASE_PATH" env-default:"/ui"`
	SessionTTL       time.Duration `yaml:"session_ttl" env:"PROJTRACK_SESSION_TTL" env-default:"24h"`
	UseSecureCookies bool          `yaml:"secure_cookies" env:"PROJTRACK_SECURE_COOKIES"`
	SessionSecret    string        `yaml:"-" env:"PROJTRACK_SESSION_SECRET"`
	CSRFSecret       string        `yaml:"-" env:"PROJTRACK_CSRF_SECRET"`
}

// LoadConfig reads path (when non-empty) and then the environment.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// LoadStorageConfig is LoadConfig for commands that only touch the store.
// It skips the secret checks the HTTP server needs.
func LoadStorageConfig(path string) (*StorageConfig, error) {
	cfg := &Config{}
	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg.Storage, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Storage.validate(); err != nil {
		return err
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("PROJTRACK_JWT_SECRET environment variable is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("PROJTRACK_JWT_SECRET must be at least 32 characters")
	}
	if !c.Web.Disabled {
		if c.Web.SessionSecret == "" {
			return fmt.Errorf("PROJTRACK_SESSION_SECRET is required when the web UI is enabled")
		}
		if c.Web.CSRFSecret == "" {
			return fmt.Errorf("PROJTRACK_CSRF_SECRET is required when the web UI is enabled")
		}
	}
	if c.Server.HTTPTLS.Enabled {
		if c.Server.HTTPTLS.CertFile == "" {
			return fmt.Errorf("server.http_tls.cert_file is required when TLS is enabled")
		}
		if c.Server.HTTPTLS.KeyFile == "" {
			return fmt.Errorf("server.http_tls.key_file is required when TLS is enabled")
		}
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("auth token TTLs must be positive")
	}
	return nil
}

// validate checks the driver-specific settings.
func (s *StorageConfig) validate() error {
	switch s.Driver {
	case DriverSQLite:
		if s.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite driver")
		}
	case DriverMongo:
		if s.MongoURI == "" {
			return fmt.Errorf("PROJTRACK_MONGO_URI is required for the mongo driver")
		}
		if s.MongoDatabase == "" {
			return fmt.Errorf("storage.mongo_database is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q (want %s or %s)", s.Driver, DriverSQLite, DriverMongo)
	}
	return nil
}
