package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultSessionSecret is used when SESSION_SECRET is unset outside production.
const DefaultSessionSecret = "default-secret"

// Session persistence backends.
const (
	BackendMySQL  = "mysql"
	BackendRedis  = "redis"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	Env            string
	ServerPort     string
	MySQLDSN       string
	RedisAddr      string
	RedisDB        int
	RedisPass      string
	BoltPath       string
	SessionBackend string
	SessionSecrets []string
	SessionTTL     time.Duration
	SessionRolling bool
	BcryptCost     int
	LogLevel       string
	LogPretty      bool
	SwaggerHost    string
}

// Load builds Config from environment with sensible defaults.
// Call Validate before using the result.
func Load() *Config {
	return &Config{
		Env:            getEnv("APP_ENV", "development"),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		MySQLDSN:       getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/app?charset=utf8mb4&parseTime=True&loc=Local"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		RedisPass:      os.Getenv("REDIS_PASSWORD"),
		BoltPath:       getEnv("BOLT_PATH", "sessions.db"),
		SessionBackend: getEnv("SESSION_BACKEND", BackendMySQL),
		SessionSecrets: splitList(os.Getenv("SESSION_SECRET")),
		SessionTTL:     getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		SessionRolling: getEnvBool("SESSION_ROLLING", false),
		BcryptCost:     getEnvInt("SALT_ROUNDS", 0),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogPretty:      getEnvBool("LOG_PRETTY", true),
		SwaggerHost:    os.Getenv("SWAGGER_HOST"),
	}
}

// IsProduction reports whether the application runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UsesDefaultSecret reports whether no session secret was configured.
func (c *Config) UsesDefaultSecret() bool {
	return len(c.SessionSecrets) == 0
}

// Secrets returns the configured session secrets, falling back to the
// insecure default when none are set.
func (c *Config) Secrets() []string {
	if c.UsesDefaultSecret() {
		return []string{DefaultSessionSecret}
	}
	return c.SessionSecrets
}

// Validate checks the settings the process cannot run without.
func (c *Config) Validate() error {
	if c.BcryptCost == 0 {
		return errors.New("SALT_ROUNDS is not set")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("SALT_ROUNDS must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	}
	if c.IsProduction() && c.UsesDefaultSecret() {
		return errors.New("SESSION_SECRET is required in production")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	switch c.SessionBackend {
	case BackendMySQL, BackendRedis, BackendBolt, BackendMemory:
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
