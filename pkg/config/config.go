package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

var (
	// ErrMissingConfig is wrapped by Validate when required settings are absent.
	ErrMissingConfig = errors.New("missing configuration")
	// ErrInvalidConfig is wrapped by Validate when a setting is present but unusable.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// DatabaseConfig holds the PostgreSQL connection settings
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Host string
	Port string
	// AllowedOrigin is reflected in CORS responses; empty allows any origin.
	AllowedOrigin string
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
}

// StorageConfig holds the object storage settings for service logos
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the externally reachable base URL of the object store.
	PublicURL string
}

// LogConfig selects the logger level and encoding
type LogConfig struct {
	Level  string
	Format string
}

// Config is the application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Storage  StorageConfig
	Log      LogConfig
}

// Load reads an optional .env file and then the environment. Keys already
// present in the environment take precedence over the file.
func Load(envFiles ...string) *Config {
	// a missing .env file is not an error
	_ = godotenv.Load(envFiles...)

	return &Config{
		Database: DatabaseConfig{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "collab_lists"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Server: ServerConfig{
			Host:          getEnv("SERVER_HOST", ""),
			Port:          getEnv("SERVER_PORT", "8080"),
			AllowedOrigin: os.Getenv("CORS_ALLOWED_ORIGIN"),
			SecureCookies: getBool("SESSION_SECURE_COOKIE", false),
		},
		Storage: StorageConfig{
			Endpoint:  os.Getenv("STORAGE_ENDPOINT"),
			AccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
			SecretKey: os.Getenv("STORAGE_SECRET_KEY"),
			Bucket:    getEnv("STORAGE_BUCKET", "service-assets"),
			UseSSL:    getBool("STORAGE_USE_SSL", false),
			PublicURL: os.Getenv("STORAGE_PUBLIC_URL"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// Validate reports every required setting that is missing, and failing
// that, every setting whose value cannot be used.
func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" && c.Database.Host == "" {
		missing = append(missing, "DATABASE_URL or DB_HOST")
	}
	if c.Storage.Endpoint == "" {
		missing = append(missing, "STORAGE_ENDPOINT")
	}
	if c.Storage.AccessKey == "" {
		missing = append(missing, "STORAGE_ACCESS_KEY")
	}
	if c.Storage.SecretKey == "" {
		missing = append(missing, "STORAGE_SECRET_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	var invalid []string
	if strings.Contains(c.Database.URL, "://") {
		if _, err := pq.ParseURL(c.Database.URL); err != nil {
			invalid = append(invalid, "DATABASE_URL")
		}
	}
	// minio wants host[:port] without scheme or path
	if strings.Contains(c.Storage.Endpoint, "/") {
		invalid = append(invalid, "STORAGE_ENDPOINT")
	}
	if c.Storage.PublicURL != "" {
		u, err := url.Parse(c.Storage.PublicURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			invalid = append(invalid, "STORAGE_PUBLIC_URL")
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(invalid, ", "))
	}
	return nil
}

// GetDatabaseConnectionString returns DATABASE_URL when set, otherwise
// a key/value DSN built from the DB_* settings.
func (c *Config) GetDatabaseConnectionString() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Name, c.Database.SSLMode)
	if c.Database.Password != "" {
		dsn += " password=" + c.Database.Password
	}
	return dsn
}

// GetServerAddr returns the listen address
func (c *Config) GetServerAddr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// GetStoragePublicURL returns the base URL used for public object links.
func (c *Config) GetStoragePublicURL() string {
	if c.Storage.PublicURL != "" {
		return strings.TrimRight(c.Storage.PublicURL, "/")
	}
	scheme := "http"
	if c.Storage.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + c.Storage.Endpoint
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
