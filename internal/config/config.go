package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Lockout   LockoutConfig
	RateLimit RateLimitConfig
	Identity  IdentityConfig
	Admin     AdminConfig
	Email     EmailConfig
}

type DatabaseConfig struct {
	Driver            string
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	SQLitePath        string
	AutoMigrate       bool
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// LockoutConfig drives the login attempt policy
type LockoutConfig struct {
	MaxLoginAttempts    int
	LoginAttemptsWindow time.Duration
	LockoutDuration     time.Duration
	Retention           time.Duration
	LedgerTimeout       time.Duration
	CleanupInterval     time.Duration
	FailureDelay        time.Duration // Minimum response time for rejected credentials
	FailureJitter       time.Duration
}

type RateLimitConfig struct {
	MaxAttempts         int
	Window              time.Duration
	Capacity            int
	IPRequestsPerMinute int
}

// IdentityConfig points at the Supabase project used to verify credentials
type IdentityConfig struct {
	SupabaseURL      string
	SupabaseAnonKey  string
	ResetRedirectURL string
}

// Enabled reports whether the identity provider is configured
func (c IdentityConfig) Enabled() bool {
	return c.SupabaseURL != "" && c.SupabaseAnonKey != ""
}

type AdminConfig struct {
	ServiceRoleSecret string
}

type EmailConfig struct {
	FromAddress string
	AWSRegion   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Driver:            strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "projectflow"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			SQLitePath:        getEnv("SQLITE_PATH", "loginguard.db"),
			AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: parseList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 60*time.Second),
		},
		Lockout: LockoutConfig{
			MaxLoginAttempts:    getEnvAsInt("MAX_LOGIN_ATTEMPTS", 5),
			LoginAttemptsWindow: getEnvAsDuration("LOGIN_ATTEMPTS_WINDOW", 15*time.Minute),
			LockoutDuration:     getEnvAsDuration("LOCKOUT_DURATION", 15*time.Minute),
			Retention:           getEnvAsDuration("LOGIN_ATTEMPT_RETENTION", 24*time.Hour),
			LedgerTimeout:       getEnvAsDuration("LEDGER_TIMEOUT", 5*time.Second),
			CleanupInterval:     getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
			FailureDelay:        getEnvAsDuration("LOGIN_FAILURE_DELAY", 200*time.Millisecond),
			FailureJitter:       getEnvAsDuration("LOGIN_FAILURE_JITTER", 100*time.Millisecond),
		},
		RateLimit: RateLimitConfig{
			MaxAttempts:         getEnvAsInt("RATE_LIMIT_MAX_ATTEMPTS", 10),
			Window:              getEnvAsDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
			Capacity:            getEnvAsInt("RATE_LIMIT_CAPACITY", 1000),
			IPRequestsPerMinute: getEnvAsInt("IP_REQUESTS_PER_MINUTE", 30),
		},
		Identity: IdentityConfig{
			SupabaseURL:      strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
			SupabaseAnonKey:  getEnv("SUPABASE_ANON_KEY", ""),
			ResetRedirectURL: getEnv("PASSWORD_RESET_REDIRECT_URL", "http://localhost:3000/auth/reset-password"),
		},
		Admin: AdminConfig{
			ServiceRoleSecret: getEnv("SERVICE_ROLE_SECRET", ""),
		},
		Email: EmailConfig{
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
		},
	}

	switch cfg.Database.Driver {
	case DriverPostgres:
		if cfg.Database.Password == "" {
			return nil, fmt.Errorf("DB_PASSWORD is required")
		}
	case DriverSQLite:
	default:
		return nil, fmt.Errorf("DB_DRIVER must be %q or %q (got %q)", DriverPostgres, DriverSQLite, cfg.Database.Driver)
	}

	if err := cfg.Lockout.validate(); err != nil {
		return nil, err
	}

	if err := cfg.RateLimit.validate(); err != nil {
		return nil, err
	}

	if err := validateServiceRoleSecret(cfg.Admin.ServiceRoleSecret, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c LockoutConfig) validate() error {
	if c.MaxLoginAttempts < 1 {
		return fmt.Errorf("MAX_LOGIN_ATTEMPTS must be at least 1 (got %d)", c.MaxLoginAttempts)
	}
	if c.LoginAttemptsWindow <= 0 || c.LockoutDuration <= 0 {
		return fmt.Errorf("LOGIN_ATTEMPTS_WINDOW and LOCKOUT_DURATION must be positive")
	}
	if c.Retention < c.LoginAttemptsWindow {
		return fmt.Errorf("LOGIN_ATTEMPT_RETENTION (%s) must not be shorter than LOGIN_ATTEMPTS_WINDOW (%s)",
			c.Retention, c.LoginAttemptsWindow)
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("CLEANUP_INTERVAL must be positive")
	}
	return nil
}

func (c RateLimitConfig) validate() error {
	if c.MaxAttempts < 1 || c.Capacity < 1 || c.IPRequestsPerMinute < 1 {
		return fmt.Errorf("rate limit attempts, capacity and per-minute limits must be at least 1")
	}
	if c.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

// validateServiceRoleSecret enforces minimum strength for the admin token secret
func validateServiceRoleSecret(secret, env string) error {
	if secret == "" {
		if env == "production" {
			return fmt.Errorf("SERVICE_ROLE_SECRET is required in production")
		}
		return nil
	}

	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("SERVICE_ROLE_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return parseList(getEnv("ALLOWED_ORIGINS", ""))
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
	}
}
