// Package config loads server settings from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/joho/godotenv"
	"github.com/mikepea/shorturls/pkg/shorturls/shortcode"
)

// Link store backends.
const (
	LinkStoreSQLite   = "sqlite"
	LinkStorePostgres = "postgres"
)

// Resolution cache backends.
const (
	CacheNone     = "none"
	CacheMemory   = "memory"
	CacheRedis    = "redis"
	CacheMemcache = "memcache"
)

// Development credentials used when nothing is configured.
const (
	DefaultJWTSecret     = "shorturls-dev-secret-change-in-production"
	DefaultAdminEmail    = "admin@shorturls.local"
	DefaultAdminPassword = "changeme"
)

type Config struct {
	Port    string
	BaseURL string

	DBPath         string // SQLite file for accounts, and links when LinkStore is sqlite
	LinkStore      string
	DatabaseURL    string // Postgres DSN, used when LinkStore is postgres
	ConnectRetries uint64

	Cache           string
	RedisURL        string
	MemcacheServers []string
	CacheTTL        time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	CodeLength  int
	MaxAttempts int

	AdminEmail    string
	AdminPassword string
}

// Load reads configuration. A missing .env file is not an error.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		glog.V(1).Infof("No .env file loaded: %v", err)
	}

	return &Config{
		Port:    getEnv("PORT", "8080"),
		BaseURL: strings.TrimRight(getEnv("SHORTURLS_BASE_URL", "http://localhost:8080"), "/"),

		DBPath:         getEnv("SHORTURLS_DB_PATH", "shorturls.db"),
		LinkStore:      getEnv("SHORTURLS_LINK_STORE", LinkStoreSQLite),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		ConnectRetries: uint64(getEnvInt("SHORTURLS_CONNECT_RETRIES", 5)),

		Cache:           getEnv("SHORTURLS_CACHE", CacheNone),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
		MemcacheServers: splitList(getEnv("MEMCACHE_SERVERS", "localhost:11211")),
		CacheTTL:        getEnvDuration("SHORTURLS_CACHE_TTL", 5*time.Minute),

		JWTSecret: getEnv("JWT_SECRET", DefaultJWTSecret),
		JWTTTL:    getEnvDuration("JWT_TTL", 24*time.Hour),

		CodeLength:  getEnvInt("SHORTURLS_CODE_LENGTH", shortcode.DefaultLength),
		MaxAttempts: getEnvInt("SHORTURLS_MAX_ATTEMPTS", 10),

		AdminEmail:    getEnv("SHORTURLS_ADMIN_EMAIL", DefaultAdminEmail),
		AdminPassword: getEnv("SHORTURLS_ADMIN_PASSWORD", DefaultAdminPassword),
	}
}

// InsecureDefaults returns the environment variables whose values are still
// the built-in development credentials.
func (c *Config) InsecureDefaults() []string {
	var keys []string
	if c.JWTSecret == DefaultJWTSecret {
		keys = append(keys, "JWT_SECRET")
	}
	if c.AdminPassword == DefaultAdminPassword {
		keys = append(keys, "SHORTURLS_ADMIN_PASSWORD")
	}
	return keys
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
		glog.Warningf("Ignoring invalid %s=%q", key, value)
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s", "5m") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	glog.Warningf("Ignoring invalid %s=%q", key, value)
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
