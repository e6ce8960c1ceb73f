package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Secrets     SecretsConfig
	Asaas       AsaasConfig
	RateLimit   RateLimitConfig
	Logger      LoggerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int
	Host        string
	MetricsPort int
	// PublicBaseURL is the externally reachable origin, used for callback URLs
	PublicBaseURL string
	// TrustProxyHeaders honours X-Forwarded-For and friends for client IPs
	TrustProxyHeaders bool
	ShutdownTimeout   time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
	// PasswordSecret names the secret holding the password when
	// Password is empty
	PasswordSecret string
}

// SecretsConfig selects the secret backend
type SecretsConfig struct {
	Manager    string // env, aws or vault
	AWSRegion  string
	AWSProfile string
	VaultAddr  string
	VaultToken string
	// VaultRoleID and VaultSecretID switch Vault to AppRole auth
	VaultRoleID   string
	VaultSecretID string
}

// AsaasConfig holds the webhook ingress settings
type AsaasConfig struct {
	WebhookPublicURL  string
	WebhookAllowedIPs string
	WebhookDedup      bool
}

// RateLimitConfig holds webhook rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	Backend           string // memory or redis
	RedisURL          string
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads an optional .env file and then the environment. Variables
// already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFromEnv()
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	env := getEnv("ENVIRONMENT", "development")
	cfg := &Config{
		Environment: env,
		Server: ServerConfig{
			Port:              getEnvAsInt("SERVER_PORT", 8080),
			Host:              getEnv("SERVER_HOST", "0.0.0.0"),
			MetricsPort:       getEnvAsInt("METRICS_PORT", 9090),
			PublicBaseURL:     strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
			TrustProxyHeaders: getEnvAsBool("TRUST_PROXY_HEADERS", false),
			ShutdownTimeout:   getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvAsInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", ""),
			Database:       getEnv("DB_NAME", "lawdesk"),
			SSLMode:        getEnv("DB_SSL_MODE", "disable"),
			MaxConns:       int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:       int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			PasswordSecret: getEnv("DB_PASSWORD_SECRET", ""),
		},
		Secrets: SecretsConfig{
			Manager:       strings.ToLower(getEnv("SECRET_MANAGER", "env")),
			AWSRegion:     getEnv("AWS_REGION", "sa-east-1"),
			AWSProfile:    getEnv("AWS_PROFILE", ""),
			VaultAddr:     getEnv("VAULT_ADDR", ""),
			VaultToken:    getEnv("VAULT_TOKEN", ""),
			VaultRoleID:   getEnv("VAULT_ROLE_ID", ""),
			VaultSecretID: getEnv("VAULT_SECRET_ID", ""),
		},
		Asaas: AsaasConfig{
			WebhookPublicURL:  getEnv("ASAAS_WEBHOOK_PUBLIC_URL", ""),
			WebhookAllowedIPs: getEnv("ASAAS_WEBHOOK_ALLOWED_IPS", ""),
			WebhookDedup:      getEnvAsBool("ASAAS_WEBHOOK_DEDUP", false),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 20),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 40),
			Backend:           strings.ToLower(getEnv("RATE_LIMIT_BACKEND", "memory")),
			RedisURL:          getEnv("REDIS_URL", ""),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", env != "production"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Secrets.Manager {
	case "env", "aws", "vault":
	default:
		return fmt.Errorf("SECRET_MANAGER must be env, aws or vault, got %q", c.Secrets.Manager)
	}
	if c.Secrets.Manager == "vault" && c.Secrets.VaultAddr == "" {
		return fmt.Errorf("VAULT_ADDR is required when SECRET_MANAGER=vault")
	}

	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if c.RateLimit.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when RATE_LIMIT_BACKEND=redis")
		}
	default:
		return fmt.Errorf("RATE_LIMIT_BACKEND must be memory or redis, got %q", c.RateLimit.Backend)
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	if c.Database.URL == "" && c.Database.Password == "" && c.Database.PasswordSecret == "" {
		return fmt.Errorf("DATABASE_URL, DB_PASSWORD or DB_PASSWORD_SECRET is required")
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection URL. DATABASE_URL wins
// when set; otherwise it is assembled from the DB_* parts with password.
func (c *DatabaseConfig) ConnectionString(password string) string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
