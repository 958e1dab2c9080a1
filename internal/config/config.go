package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// StoreDriverFile keeps the document in ~/.murmuration/local_database
	StoreDriverFile = "file"
	// StoreDriverRedis keeps the document under a single Redis key
	StoreDriverRedis = "redis"

	databaseFileName = "local_database"
	nodeConfigName   = "config"
)

type Config struct {
	ListenPort      string        // ex: ":3030"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	DataDir        string // directory holding local_database and config (default: $HOME/.murmuration)
	DatabaseFile   string // path of the whole-document JSON database
	NodeConfigFile string // path of the node toggles file read by the storage node

	SyncInterval    time.Duration // import scheduler cadence (default: 4h)
	SyncConcurrency int           // max concurrent origin syncs (0 = unbounded)
	OriginTimeout   time.Duration // per-request timeout for origin fetches

	StoreDriver string // "file" | "redis"

	// Redis (only used when StoreDriver == "redis")
	RedisAddr           string
	RedisUser           string
	RedisPassword       string
	RedisDB             int
	RedisKey            string
	RedisDT             time.Duration
	RedisRT             time.Duration
	RedisWT             time.Duration
	RedisMaxWait        time.Duration
	RedisPingTimeout    time.Duration
	RedisPoolSize       int
	RedisConnectTimeout time.Duration
	RedisRetryInterval  time.Duration
	RedisWarnThreshold  int

	AllowedHosts []string // optional, restrict owner API to specific Host headers
	AllowedCIDRS []string // optional, restrict ops endpoints to specific IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers
	CORSOrigins  []string // allowed origins for the front end

	SharedRateBurst  int // token bucket size for peer-facing routes
	SharedRatePerMin int // refill per IP per minute for peer-facing routes
}

func Load() *Config {
	dataDir := getenv("BITSCREEN_DATA_DIR", defaultDataDir())

	cfg := &Config{
		// Server settings
		ListenPort:      ":" + strings.TrimPrefix(getenv("PORT", "3030"), ":"),
		ShutdownTimeout: mustDuration("BITSCREEN_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("BITSCREEN_LOG_LEVEL", "info"),
		PrettyLog: mustBool("BITSCREEN_PRETTY_LOG", true),

		// Files
		DataDir:        dataDir,
		DatabaseFile:   filepath.Join(dataDir, databaseFileName),
		NodeConfigFile: filepath.Join(dataDir, nodeConfigName),

		// Import sync
		SyncInterval:    mustDuration("BITSCREEN_SYNC_INTERVAL", 4*time.Hour),
		SyncConcurrency: getenvInt("BITSCREEN_SYNC_CONCURRENCY", 8),
		OriginTimeout:   mustDuration("BITSCREEN_ORIGIN_TIMEOUT", 30*time.Second),

		StoreDriver: strings.ToLower(getenv("BITSCREEN_STORE_DRIVER", StoreDriverFile)),

		// Redis settings
		RedisAddr:           getenv("BITSCREEN_REDIS_ADDR", "localhost:6379"),
		RedisUser:           getenv("BITSCREEN_REDIS_USERNAME", ""),
		RedisPassword:       getenv("BITSCREEN_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("BITSCREEN_REDIS_DB", 0),
		RedisKey:            getenv("BITSCREEN_REDIS_KEY", "bitscreen:local_database"),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("BITSCREEN_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("BITSCREEN_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("BITSCREEN_TRUST_PROXY", false),
		CORSOrigins:  splitAndTrim(getenv("BITSCREEN_CORS_ORIGINS", "*")),

		SharedRateBurst:  getenvInt("BITSCREEN_SHARED_RATE_BURST", 60),
		SharedRatePerMin: getenvInt("BITSCREEN_SHARED_RATE_PER_MIN", 120),
	}

	if cfg.StoreDriver != StoreDriverFile && cfg.StoreDriver != StoreDriverRedis {
		panic(fmt.Sprintf("❌ FATAL: unknown BITSCREEN_STORE_DRIVER %q (want %q or %q)",
			cfg.StoreDriver, StoreDriverFile, StoreDriverRedis))
	}

	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = 4 * time.Hour
	}
	if cfg.SyncConcurrency < 0 {
		cfg.SyncConcurrency = 0
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfgCopy.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// defaultDataDir resolves ~/.murmuration from HOME, falling back to the OS lookup.
func defaultDataDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		if h, err := os.UserHomeDir(); err == nil {
			home = h
		}
	}
	return filepath.Join(home, ".murmuration")
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
