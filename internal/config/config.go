// Package config handles application configuration loading from the
// environment. Values are resolved through viper so every key can be
// overridden by an environment variable of the same (upper-cased) name.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
	StorageS3       = "s3"
	StorageSupabase = "supabase"
)

// Config holds all application configuration values.
type Config struct {
	// Server settings
	Host     string
	Port     string
	Env      string // "development", "production", "testing"
	LogLevel string

	// TrustProxy reads the client address from forwarding headers. Only
	// safe behind a reverse proxy that sets them.
	TrustProxy bool

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (sessions + page cache)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// Object storage for course cover images. Empty driver disables uploads.
	StorageDriver string
	S3Endpoint    string
	S3Region      string
	S3AccessKey   string
	S3SecretKey   string
	S3PublicURL   string
	SupabaseURL   string
	SupabaseKey   string // public (anon) key
	StorageBucket string

	// AnalyticsSalt is mixed into the hashed client IP of recorded clicks.
	AnalyticsSalt string

	// Development seed account.
	AdminEmail    string
	AdminPassword string
}

const devAnalyticsSalt = "dev-salt"

// defaults mirrors the development setup in docker-compose.
var defaults = map[string]any{
	"app_host":          "0.0.0.0",
	"app_port":          "8080",
	"app_env":           "development",
	"log_level":         "debug",
	"trust_proxy":       false,
	"postgres_host":     "localhost",
	"postgres_port":     "5432",
	"postgres_user":     "catalog",
	"postgres_password": "changeme",
	"postgres_db":       "catalog",
	"valkey_host":       "localhost",
	"valkey_port":       "6379",
	"valkey_password":   "",
	"storage_driver":    "",
	"s3_endpoint":       "",
	"s3_region":         "us-east-1",
	"s3_access_key":     "",
	"s3_secret_key":     "",
	"s3_bucket":         "course-images",
	"s3_public_url":     "",
	"supabase_url":      "",
	"supabase_key":      "",
	"supabase_bucket":   "course-images",
	"analytics_salt":    devAnalyticsSalt,
	"admin_email":       "admin@catalog.local",
	"admin_password":    "admin",
}

// Load reads configuration from the environment, applying defaults for
// development. Returns an error if critical values are missing or invalid
// in production mode.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Host:     v.GetString("app_host"),
		Port:     v.GetString("app_port"),
		Env:      v.GetString("app_env"),
		LogLevel: v.GetString("log_level"),

		TrustProxy: v.GetBool("trust_proxy"),

		DBHost:     v.GetString("postgres_host"),
		DBPort:     v.GetString("postgres_port"),
		DBUser:     v.GetString("postgres_user"),
		DBPassword: v.GetString("postgres_password"),
		DBName:     v.GetString("postgres_db"),

		ValkeyHost:     v.GetString("valkey_host"),
		ValkeyPort:     v.GetString("valkey_port"),
		ValkeyPassword: v.GetString("valkey_password"),

		StorageDriver: strings.ToLower(strings.TrimSpace(v.GetString("storage_driver"))),
		S3Endpoint:    v.GetString("s3_endpoint"),
		S3Region:      v.GetString("s3_region"),
		S3AccessKey:   v.GetString("s3_access_key"),
		S3SecretKey:   v.GetString("s3_secret_key"),
		S3PublicURL:   v.GetString("s3_public_url"),
		SupabaseURL:   v.GetString("supabase_url"),
		SupabaseKey:   v.GetString("supabase_key"),

		AnalyticsSalt: v.GetString("analytics_salt"),
		AdminEmail:    v.GetString("admin_email"),
		AdminPassword: v.GetString("admin_password"),
	}

	switch cfg.StorageDriver {
	case "":
	case StorageS3:
		cfg.StorageBucket = v.GetString("s3_bucket")
	case StorageSupabase:
		cfg.StorageBucket = v.GetString("supabase_bucket")
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			return nil, errors.New("SUPABASE_URL and SUPABASE_KEY are required when STORAGE_DRIVER=supabase")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
		if cfg.AnalyticsSalt == "" || cfg.AnalyticsSalt == devAnalyticsSalt {
			return nil, fmt.Errorf("ANALYTICS_SALT must be set in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// StorageEnabled reports whether a storage driver was configured.
func (c *Config) StorageEnabled() bool {
	return c.StorageDriver != ""
}
