// Package config loads server settings from the environment, an optional
// .env file, and command-line flags, in that order of increasing priority.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	BlobFS = "fs"
	BlobS3 = "s3"
)

// Config holds every tunable of the server. Zero values never reach the
// rest of the program: Load fills defaults from the envDefault tags.
type Config struct {
	Port    string `env:"PORT"     envDefault:"8080"`
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	DBDriver    string `env:"DB_DRIVER"    envDefault:"sqlite"`
	DBPath      string `env:"DB_PATH"      envDefault:"data/secret-share.db"`
	DatabaseURI string `env:"DATABASE_URI"`

	BlobBackend string `env:"BLOB_BACKEND" envDefault:"fs"`
	BlobDir     string `env:"BLOB_DIR"     envDefault:"data/private"`
	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION"    envDefault:"us-east-1"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`

	JWTSecret          string        `env:"JWT_SECRET"`
	TokenTTL           time.Duration `env:"TOKEN_TTL"            envDefault:"12h"`
	GitHubClientID     string        `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string        `env:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string        `env:"GITHUB_CALLBACK_URL"`

	ItemLifetime   time.Duration `env:"ITEM_LIFETIME"   envDefault:"24h"`
	PasswordLength int           `env:"PASSWORD_LENGTH" envDefault:"15"`
	BcryptCost     int           `env:"BCRYPT_COST"     envDefault:"12"`
	MaxUploadMB    int64         `env:"MAX_UPLOAD_MB"   envDefault:"50"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads .env (if present), then the environment, then args.
// args excludes the program name, as in os.Args[1:].
func Load(args []string) (*Config, error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}

	fs := flag.NewFlagSet("secret-share", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "public base URL used in item links")
	fs.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "storage driver: sqlite or postgres")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database file")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL connection string")
	fs.StringVar(&cfg.BlobBackend, "blob", cfg.BlobBackend, "file storage backend: fs or s3")
	fs.StringVar(&cfg.BlobDir, "blob-dir", cfg.BlobDir, "directory for uploaded files (fs backend)")
	fs.StringVar(&cfg.S3Bucket, "s3-bucket", cfg.S3Bucket, "bucket for uploaded files (s3 backend)")
	fs.DurationVar(&cfg.ItemLifetime, "lifetime", cfg.ItemLifetime, "how long an item stays retrievable")
	fs.IntVar(&cfg.PasswordLength, "password-length", cfg.PasswordLength, "length of generated item passwords")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: parsing flags: %w", err)
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.DatabaseURI == "" {
			errs = append(errs, errors.New("DATABASE_URI is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not one of sqlite, postgres", c.DBDriver))
	}

	switch c.BlobBackend {
	case BlobFS:
		if c.BlobDir == "" {
			errs = append(errs, errors.New("BLOB_DIR is required for the fs backend"))
		}
	case BlobS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("BLOB_BACKEND %q is not one of fs, s3", c.BlobBackend))
	}

	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("BASE_URL %q must be an absolute http(s) URL", c.BaseURL))
	}
	if c.ItemLifetime <= 0 {
		errs = append(errs, errors.New("ITEM_LIFETIME must be positive"))
	}
	if c.PasswordLength < 4 || c.PasswordLength > 72 {
		errs = append(errs, errors.New("PASSWORD_LENGTH must be between 4 and 72"))
	}
	if c.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// MaxUploadBytes is MaxUploadMB in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// CallbackURL is the GitHub OAuth callback, derived from BaseURL when unset.
func (c *Config) CallbackURL() string {
	if c.GitHubCallbackURL != "" {
		return c.GitHubCallbackURL
	}
	return c.BaseURL + "/auth/github/callback"
}
