package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"giftcircle/pkg/logger"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	HTTPPort    string
	HTTP        HTTPConfig
	Env         string
	StoreDriver string
	CORS        CORSConfig
	DB          DBConfig
	Supabase    SupabaseConfig
	Realtime    RealtimeConfig
	Receipts    ReceiptsConfig
	Claims      ClaimsConfig
}

type HTTPConfig struct {
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	RequestTimeout    time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type DBConfig struct {
	DSN             string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	TimeZone        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type SupabaseConfig struct {
	URL            string
	PublishableKey string
	JWTSecret      string
	AuthTimeout    time.Duration
	SkipAuth       bool
	MockUserID     string
	MockUserEmail  string
}

type RealtimeConfig struct {
	Enabled              bool
	ListenerMinReconnect time.Duration
	ListenerMaxReconnect time.Duration
}

type ReceiptsConfig struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
	PublicBaseURL   string
	MaxSizeBytes    int64
}

type ClaimsConfig struct {
	MaxBatch int
}

func Load(log logger.Logger) (Config, error) {
	err := loadDotEnv(log)
	if err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		HTTP: HTTPConfig{
			ReadHeaderTimeout: getEnvDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			IdleTimeout:       getEnvDuration("HTTP_IDLE_TIMEOUT", 2*time.Minute),
			RequestTimeout:    getEnvDuration("HTTP_REQUEST_TIMEOUT", 30*time.Second),
		},
		Env:         getEnv("ENV", "development"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		DB: DBConfig{
			DSN:             getEnv("DB_DSN", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "giftcircle"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			TimeZone:        getEnv("DB_TIMEZONE", "UTC"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Supabase: SupabaseConfig{
			URL:            getEnv("SUPABASE_URL", ""),
			PublishableKey: getEnv("SUPABASE_PUBLISHABLE_KEY", getEnv("VITE_SUPABASE_PUBLISHABLE_KEY", "")),
			JWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),
			AuthTimeout:    getEnvDuration("SUPABASE_AUTH_TIMEOUT", 5*time.Second),
			SkipAuth:       getEnvBool("AUTH_SKIP", false),
			MockUserID:     getEnv("AUTH_MOCK_USER_ID", "00000000-0000-0000-0000-000000000001"),
			MockUserEmail:  getEnv("AUTH_MOCK_USER_EMAIL", ""),
		},
		Realtime: RealtimeConfig{
			Enabled:              getEnvBool("REALTIME_ENABLED", true),
			ListenerMinReconnect: getEnvDuration("REALTIME_LISTENER_MIN_RECONNECT", 10*time.Second),
			ListenerMaxReconnect: getEnvDuration("REALTIME_LISTENER_MAX_RECONNECT", time.Minute),
		},
		Receipts: ReceiptsConfig{
			Bucket:          getEnv("RECEIPTS_S3_BUCKET", ""),
			Region:          getEnv("RECEIPTS_S3_REGION", "us-east-1"),
			Endpoint:        getEnv("RECEIPTS_S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("RECEIPTS_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("RECEIPTS_S3_SECRET_ACCESS_KEY", ""),
			PathStyle:       getEnvBool("RECEIPTS_S3_PATH_STYLE", false),
			PublicBaseURL:   getEnv("RECEIPTS_PUBLIC_BASE_URL", ""),
			MaxSizeBytes:    int64(getEnvInt("RECEIPTS_MAX_SIZE_BYTES", 5<<20)),
		},
		Claims: ClaimsConfig{
			MaxBatch: getEnvInt("CLAIMS_MAX_BATCH", 50),
		},
	}
	cfg.Receipts.Enabled = cfg.Receipts.Bucket != ""

	switch cfg.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}

func (c DBConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.TimeZone
}
