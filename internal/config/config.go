package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAccessSecret  = "your-access-secret-key"
	defaultRefreshSecret = "your-refresh-secret-key"
)

type Config struct {
	Database    DatabaseConfig
	JWT         JWTConfig
	Server      ServerConfig
	CORS        CORSConfig
	Upload      UploadConfig
	Redis       RedisConfig
	RateLimit   RateLimitConfig
	AMQP        AMQPConfig
	Log         LogConfig
	Maintenance MaintenanceConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

type JWTConfig struct {
	AccessSecret       string
	RefreshSecret      string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type ServerConfig struct {
	Port    string
	GinMode string
}

// Production reports whether the server runs in gin release mode
func (s ServerConfig) Production() bool {
	return s.GinMode == "release"
}

type CORSConfig struct {
	AllowedOrigins []string
}

// UploadConfig controls where uploaded images live and how they are served
type UploadConfig struct {
	Dir         string
	SubDir      string
	PublicPath  string
	MaxFileSize int64
	MaxFiles    int
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// RateLimitConfig holds per-IP fixed window budgets
type RateLimitConfig struct {
	Enabled bool
	Window  time.Duration
	General int
	Auth    int
	Upload  int
	Prefix  string
}

type AMQPConfig struct {
	URL   string
	Queue string
}

type LogConfig struct {
	Level  string
	Format string
}

type MaintenanceConfig struct {
	SessionPurgeSpec string
	OrphanSweepSpec  string
	OrphanGrace      time.Duration
}

func LoadConfig() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "3306"),
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "fad_monitoring"),
		},
		JWT: JWTConfig{
			AccessSecret:       getEnv("ACCESS_TOKEN_SECRET", defaultAccessSecret),
			RefreshSecret:      getEnv("REFRESH_TOKEN_SECRET", defaultRefreshSecret),
			AccessTokenExpiry:  parseDuration(getEnv("ACCESS_TOKEN_TTL", "15m"), 15*time.Minute),
			RefreshTokenExpiry: parseDuration(getEnv("REFRESH_TOKEN_TTL", "168h"), 7*24*time.Hour),
		},
		Server: ServerConfig{
			Port:    getEnv("PORT", "5001"),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		},
		Upload: UploadConfig{
			Dir:         getEnv("UPLOAD_DIR", "./uploads"),
			SubDir:      getEnv("UPLOAD_SUBDIR", "TPS"),
			PublicPath:  getEnv("UPLOAD_PUBLIC_PATH", "/uploads"),
			MaxFileSize: int64(parseInt(getEnv("UPLOAD_MAX_FILE_SIZE", "5242880"), 5<<20)),
			MaxFiles:    parseInt(getEnv("UPLOAD_MAX_FILES", "20"), 20),
		},
		Redis: RedisConfig{
			Enabled:  parseBool(getEnv("REDIS_ENABLED", "false")),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		RateLimit: RateLimitConfig{
			Enabled: parseBool(getEnv("RATE_LIMIT_ENABLED", "true")),
			Window:  parseDuration(getEnv("RATE_LIMIT_WINDOW", "15m"), 15*time.Minute),
			General: parseInt(getEnv("RATE_LIMIT_GENERAL", "100"), 100),
			Auth:    parseInt(getEnv("RATE_LIMIT_AUTH", "5"), 5),
			Upload:  parseInt(getEnv("RATE_LIMIT_UPLOAD", "20"), 20),
			Prefix:  getEnv("RATE_LIMIT_PREFIX", "rl"),
		},
		AMQP: AMQPConfig{
			URL:   getEnv("AMQP_URL", ""),
			Queue: getEnv("AMQP_AUDIT_QUEUE", "audit.changelog"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", ""),
		},
		Maintenance: MaintenanceConfig{
			SessionPurgeSpec: getEnv("SESSION_PURGE_SCHEDULE", "@every 1h"),
			OrphanSweepSpec:  getEnv("ORPHAN_SWEEP_SCHEDULE", "@daily"),
			OrphanGrace:      parseDuration(getEnv("ORPHAN_GRACE", "1h"), time.Hour),
		},
	}

	return config
}

// Validate rejects configurations that must not reach production
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Production() {
		if c.JWT.AccessSecret == defaultAccessSecret || c.JWT.RefreshSecret == defaultRefreshSecret {
			errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must be set"))
		}
		if len(c.CORS.AllowedOrigins) == 0 {
			errs = append(errs, errors.New("ALLOWED_ORIGINS must be set in release mode"))
		}
	}
	if c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, errors.New("access and refresh secrets must differ"))
	}
	if c.Upload.MaxFiles < 1 {
		errs = append(errs, fmt.Errorf("UPLOAD_MAX_FILES must be positive, got %d", c.Upload.MaxFiles))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, def time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		fmt.Printf("Warning: Invalid duration format '%s', using default\n", s)
		return def
	}
	return duration
}

func parseInt(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func parseList(s string) []string {
	items := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
