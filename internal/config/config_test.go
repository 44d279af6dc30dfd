package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads so the host environment cannot
// leak into a test. Original values are restored on cleanup.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "BASE_URL", "DB_DRIVER", "DB_PATH", "DATABASE_URI",
		"BLOB_BACKEND", "BLOB_DIR", "S3_BUCKET", "S3_REGION", "S3_ENDPOINT",
		"S3_ACCESS_KEY", "S3_SECRET_KEY", "JWT_SECRET", "TOKEN_TTL",
		"GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET", "GITHUB_CALLBACK_URL",
		"ITEM_LIFETIME", "PASSWORD_LENGTH", "BCRYPT_COST", "MAX_UPLOAD_MB",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		if v, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { _ = os.Setenv(k, v) })
		}
		_ = os.Unsetenv(k)
	}
	// Keep a stray .env in the package dir from being picked up.
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.DBDriver != DriverSQLite || cfg.BlobBackend != BlobFS {
		t.Errorf("driver/backend = %q/%q, want sqlite/fs", cfg.DBDriver, cfg.BlobBackend)
	}
	if cfg.ItemLifetime != 24*time.Hour {
		t.Errorf("ItemLifetime = %v, want 24h", cfg.ItemLifetime)
	}
	if cfg.PasswordLength != 15 {
		t.Errorf("PasswordLength = %d, want 15", cfg.PasswordLength)
	}
	if cfg.MaxUploadBytes() != 50<<20 {
		t.Errorf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes(), 50<<20)
	}
	if got := cfg.CallbackURL(); got != "http://localhost:8080/auth/github/callback" {
		t.Errorf("CallbackURL = %q", got)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URI", "postgres://u:p@localhost:5432/share")
	t.Setenv("ITEM_LIFETIME", "2h")
	t.Setenv("BASE_URL", "https://share.example.com/")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DBDriver != DriverPostgres {
		t.Errorf("DBDriver = %q", cfg.DBDriver)
	}
	if cfg.ItemLifetime != 2*time.Hour {
		t.Errorf("ItemLifetime = %v", cfg.ItemLifetime)
	}
	if cfg.BaseURL != "https://share.example.com" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.BaseURL)
	}
}

func TestLoad_FlagsBeatEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")

	cfg, err := Load([]string{"-port", "9100", "-lifetime", "30m"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "9100" {
		t.Errorf("Port = %q, want 9100 from flag", cfg.Port)
	}
	if cfg.ItemLifetime != 30*time.Minute {
		t.Errorf("ItemLifetime = %v, want 30m", cfg.ItemLifetime)
	}
}

func TestLoad_BadEnvValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("ITEM_LIFETIME", "forever")

	if _, err := Load(nil); err == nil {
		t.Fatal("Load() expected error for unparsable duration")
	}
}

func TestLoad_UnknownFlag(t *testing.T) {
	clearEnv(t)

	if _, err := Load([]string{"-nope"}); err == nil {
		t.Fatal("Load() expected error for unknown flag")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:           "8080",
			BaseURL:        "http://localhost:8080",
			DBDriver:       DriverSQLite,
			DBPath:         "x.db",
			BlobBackend:    BlobFS,
			BlobDir:        "blobs",
			ItemLifetime:   time.Hour,
			PasswordLength: 15,
			MaxUploadMB:    1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, "DB_DRIVER"},
		{"postgres without uri", func(c *Config) { c.DBDriver = DriverPostgres }, "DATABASE_URI"},
		{"s3 without bucket", func(c *Config) { c.BlobBackend = BlobS3 }, "S3_BUCKET"},
		{"unknown backend", func(c *Config) { c.BlobBackend = "gcs" }, "BLOB_BACKEND"},
		{"relative base url", func(c *Config) { c.BaseURL = "localhost:8080" }, "BASE_URL"},
		{"zero lifetime", func(c *Config) { c.ItemLifetime = 0 }, "ITEM_LIFETIME"},
		{"password too short", func(c *Config) { c.PasswordLength = 2 }, "PASSWORD_LENGTH"},
		{"password too long", func(c *Config) { c.PasswordLength = 100 }, "PASSWORD_LENGTH"},
		{"zero upload", func(c *Config) { c.MaxUploadMB = 0 }, "MAX_UPLOAD_MB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	c := &Config{DBDriver: "x", BlobBackend: "y", BaseURL: "nope"}
	err := c.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, want := range []string{"DB_DRIVER", "BLOB_BACKEND", "BASE_URL", "ITEM_LIFETIME"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %s", err, want)
		}
	}
}
