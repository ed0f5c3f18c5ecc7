package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	HTTP    ServerConfig
	GRPC    ServerConfig
	DB      DBConfig
	Log     LogConfig
	Kafka   KafkaConfig
	ZaloPay ZaloPayConfig
	PayOS   PayOSConfig
	Webhook WebhookConfig
	Outbox  OutboxConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type KafkaConfig struct {
	Brokers  []string
	SSL      bool
	Username string
	Password string
	ClientID string
}

type ZaloPayConfig struct {
	AppID    string
	Key1     string
	Key2     string
	Endpoint string
}

type PayOSConfig struct {
	ClientID    string
	APIKey      string
	ChecksumKey string
}

type WebhookConfig struct {
	BaseURL string
}

type OutboxConfig struct {
	BatchSize      int32
	MaxRetries     int32
	RetentionDays  int
	TickInterval   time.Duration
	PublishTimeout time.Duration
	ExhaustedScan  time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	brokersRaw := os.Getenv("KAFKA_BROKERS")
	if brokersRaw == "" {
		return nil, errors.New("KAFKA_BROKERS environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "payment-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		DB: DBConfig{
			DSN:             dsn,
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("DB_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Kafka: KafkaConfig{
			Brokers:  splitAndTrim(brokersRaw),
			SSL:      getBoolEnv("KAFKA_SSL", false),
			Username: getEnv("KAFKA_USERNAME", ""),
			Password: getEnv("KAFKA_PASSWORD", ""),
			ClientID: getEnv("KAFKA_CLIENT_ID", "payment-service"),
		},
		ZaloPay: ZaloPayConfig{
			AppID:    getEnv("ZALOPAY_APP_ID", ""),
			Key1:     getEnv("ZALOPAY_KEY1", ""),
			Key2:     getEnv("ZALOPAY_KEY2", ""),
			Endpoint: getEnv("ZALOPAY_ENDPOINT", "https://sb-openapi.zalopay.vn/v2"),
		},
		PayOS: PayOSConfig{
			ClientID:    getEnv("PAYOS_CLIENT_ID", ""),
			APIKey:      getEnv("PAYOS_API_KEY", ""),
			ChecksumKey: getEnv("PAYOS_CHECKSUM_KEY", ""),
		},
		Webhook: WebhookConfig{
			BaseURL: getEnv("WEBHOOK_BASE_URL", ""),
		},
		Outbox: OutboxConfig{
			BatchSize:      int32(getIntEnv("OUTBOX_BATCH_SIZE", 100)),
			MaxRetries:     int32(getIntEnv("OUTBOX_MAX_RETRIES", 5)),
			RetentionDays:  getIntEnv("OUTBOX_RETENTION_DAYS", 7),
			TickInterval:   getSecondsEnv("OUTBOX_TICK_SECONDS", 5*time.Second),
			PublishTimeout: getSecondsEnv("OUTBOX_PUBLISH_TIMEOUT_SECONDS", 30*time.Second),
			ExhaustedScan:  getMinutesEnv("OUTBOX_EXHAUSTED_SCAN_MINUTES", 60*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
