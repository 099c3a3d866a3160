package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Lockout  LockoutConfig
	Cache    CacheConfig
}

type DatabaseConfig struct {
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
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	CookieDomain   string
}

type AuthConfig struct {
	// AdminTokenSecret and SiteTokenSecret must differ so an admin session
	// token never validates as a site token or vice versa.
	AdminTokenSecret string
	SiteTokenSecret  string
	AdminTokenExpiry time.Duration

	// AdminPassword seeds the singleton admin credential on first boot. It is
	// ignored once the credential exists; rotation goes through the
	// change-password endpoint.
	AdminPassword string

	CleanupInterval  time.Duration
	AttemptRetention time.Duration

	TimingDelayBaseMs   int
	TimingDelayRandomMs int
}

type LockoutConfig struct {
	// StrictThreshold counts failures with the canonical invalid-credential
	// reason; LooseThreshold counts every other failure. Both apply over the
	// trailing Window.
	StrictThreshold int
	LooseThreshold  int
	Window          time.Duration
	LockoutDuration time.Duration
}

type CacheConfig struct {
	// RedisAddr empty means the in-memory TTL cache is used instead.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	GeoTTL        time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	adminTokenSecret := getEnv("ADMIN_TOKEN_SECRET", "")
	if adminTokenSecret == "" {
		return nil, fmt.Errorf("ADMIN_TOKEN_SECRET is required")
	}
	siteTokenSecret := getEnv("SITE_TOKEN_SECRET", "")
	if siteTokenSecret == "" {
		return nil, fmt.Errorf("SITE_TOKEN_SECRET is required")
	}
	if adminTokenSecret == siteTokenSecret {
		return nil, fmt.Errorf("ADMIN_TOKEN_SECRET and SITE_TOKEN_SECRET must differ")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "gatehouse"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: parseCSV(getEnv("TRUSTED_PROXIES", "")),
			CookieDomain:   getEnv("COOKIE_DOMAIN", ""),
		},
		Auth: AuthConfig{
			AdminTokenSecret:    adminTokenSecret,
			SiteTokenSecret:     siteTokenSecret,
			AdminTokenExpiry:    getEnvAsDuration("ADMIN_TOKEN_EXPIRY", 7*24*time.Hour),
			AdminPassword:       getEnv("ADMIN_PASSWORD", ""),
			CleanupInterval:     getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
			AttemptRetention:    getEnvAsDuration("ATTEMPT_RETENTION", 90*24*time.Hour),
			TimingDelayBaseMs:   getEnvAsInt("TIMING_DELAY_BASE_MS", 100),
			TimingDelayRandomMs: getEnvAsInt("TIMING_DELAY_RANDOM_MS", 100),
		},
		Lockout: LockoutConfig{
			StrictThreshold: getEnvAsInt("LOCKOUT_STRICT_THRESHOLD", 5),
			LooseThreshold:  getEnvAsInt("LOCKOUT_LOOSE_THRESHOLD", 10),
			Window:          getEnvAsDuration("LOCKOUT_WINDOW", 1*time.Hour),
			LockoutDuration: getEnvAsDuration("LOCKOUT_DURATION", 1*time.Hour),
		},
		Cache: CacheConfig{
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			GeoTTL:        getEnvAsDuration("GEO_CACHE_TTL", 24*time.Hour),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateTokenSecret("ADMIN_TOKEN_SECRET", adminTokenSecret, env); err != nil {
		return nil, err
	}
	if err := validateTokenSecret("SITE_TOKEN_SECRET", siteTokenSecret, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateTokenSecret enforces minimum security standards for signing secrets
func validateTokenSecret(name, secret, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires stronger secret (256 bits)
	}

	if len(secret) < minLength {
		return fmt.Errorf("%s must be at least %d characters in %s environment (got %d)",
			name, minLength, env, len(secret))
	}

	// Check against common weak secrets
	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("%s cannot be a common weak value", name)
		}
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

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{} // Default to no origins in production
		}
		return parseCSV(originsStr)
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
