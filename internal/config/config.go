package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Storage backends for aggregates.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Chat backends. ChatStore keeps chat next to the other aggregates.
const (
	ChatStore  = "store"
	ChatScylla = "scylla"
)

// Image backends.
const (
	ImagesNone       = "none"
	ImagesMinio      = "minio"
	ImagesCloudinary = "cloudinary"
)

// Config holds service configuration.
type Config struct {
	DatabaseURL   string
	MigrationsDir string
	ServerAddr    string
	LogLevel      zerolog.Level

	SessionTTL          time.Duration
	SessionCookieName   string
	SessionCookieSecure bool

	StoreBackend string
	ChatBackend  string
	Scylla       ScyllaConfig

	ImageBackend      string
	ImageMaxDimension int
	Minio             MinioConfig
	Cloudinary        CloudinaryConfig

	KafkaBrokers []string
	KafkaTopic   string

	SSEHeartbeat time.Duration
}

type ScyllaConfig struct {
	Hosts       []string
	Keyspace    string
	Username    string
	Password    string
	Consistency string
	Timeout     time.Duration
}

type MinioConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Load reads configuration from the environment. Values in a .env file in the
// working directory fill in variables that are not already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "barter_hub")
		pass := getenv("POSTGRES_PASSWORD", "barter_hub_pass")
		db := getenv("POSTGRES_DB", "barter_hub")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}

	level, err := zerolog.ParseLevel(strings.ToLower(getenv("LOG_LEVEL", "info")))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	cfg := &Config{
		DatabaseURL:   dsn,
		MigrationsDir: getenv("MIGRATIONS_DIR", "internal/migrations"),
		ServerAddr:    getenv("SERVER_ADDR", "0.0.0.0:8080"),
		LogLevel:      level,

		SessionTTL:          parseDuration(getenv("SESSION_TTL", "24h"), 24*time.Hour),
		SessionCookieName:   getenv("SESSION_COOKIE_NAME", "barter_hub_session"),
		SessionCookieSecure: parseBool(getenv("SESSION_COOKIE_SECURE", "false"), false),

		StoreBackend: strings.ToLower(getenv("STORE_BACKEND", StoreMemory)),
		ChatBackend:  strings.ToLower(getenv("CHAT_BACKEND", ChatStore)),
		Scylla: ScyllaConfig{
			Hosts:       splitList(getenv("SCYLLA_HOSTS", "127.0.0.1")),
			Keyspace:    getenv("SCYLLA_KEYSPACE", "barter_chat"),
			Username:    os.Getenv("SCYLLA_USERNAME"),
			Password:    os.Getenv("SCYLLA_PASSWORD"),
			Consistency: getenv("SCYLLA_CONSISTENCY", "QUORUM"),
			Timeout:     parseDuration(os.Getenv("SCYLLA_TIMEOUT"), 5*time.Second),
		},

		ImageBackend:      strings.ToLower(getenv("IMAGE_BACKEND", ImagesNone)),
		ImageMaxDimension: parseInt(getenv("IMAGE_MAX_DIMENSION", "1600"), 1600),
		Minio: MinioConfig{
			Endpoint:      getenv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey:     os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey:     os.Getenv("MINIO_SECRET_KEY"),
			Bucket:        getenv("MINIO_BUCKET", "barter-images"),
			UseSSL:        parseBool(os.Getenv("MINIO_USE_SSL"), false),
			PublicBaseURL: os.Getenv("MINIO_PUBLIC_URL"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
			Folder:    getenv("CLOUDINARY_FOLDER", "barter-hub"),
		},

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getenv("KAFKA_TOPIC", "exchange-events"),

		SSEHeartbeat: parseDuration(getenv("SSE_HEARTBEAT", "25s"), 25*time.Second),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case StoreMemory, StorePostgres:
	default:
		return fmt.Errorf("STORE_BACKEND must be %s or %s, got %q", StoreMemory, StorePostgres, c.StoreBackend)
	}
	switch c.ChatBackend {
	case ChatStore, ChatScylla:
	default:
		return fmt.Errorf("CHAT_BACKEND must be %s or %s, got %q", ChatStore, ChatScylla, c.ChatBackend)
	}
	switch c.ImageBackend {
	case ImagesNone, ImagesMinio, ImagesCloudinary:
	default:
		return fmt.Errorf("IMAGE_BACKEND must be %s, %s or %s, got %q", ImagesNone, ImagesMinio, ImagesCloudinary, c.ImageBackend)
	}
	return nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseInt(val string, def int) int {
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}

func parseBool(val string, def bool) bool {
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}
