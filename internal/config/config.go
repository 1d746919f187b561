package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Notification delivery modes.
const (
	NotifyDirect = "direct"
	NotifyAsync  = "async"
	NotifyKafka  = "kafka"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	RedisURL string

	JWTSecret string
	JWTTTL    time.Duration

	MeiliSearchHost string
	MeiliMasterKey  string

	CloudinaryUploadFolder string

	KafkaBrokers           []string
	KafkaNotificationTopic string
	KafkaGroupID           string
	NotifyMode             string

	FCMCredentialsPath string

	RateLimitPerMinute int64
	CEPSubmitCooldown  time.Duration
	AttendanceDraftTTL time.Duration
	ReminderCron       string
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		RedisURL: os.Getenv("REDIS_URL"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		MeiliSearchHost: getEnv("MEILISEARCH_HOST", "http://localhost:7700"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		CloudinaryUploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "campustrack/cep_proofs"),

		KafkaBrokers:           splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaNotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", "campustrack.notifications"),
		KafkaGroupID:           getEnv("KAFKA_GROUP_ID", "campustrack-notifier"),
		NotifyMode:             getEnv("NOTIFY_MODE", NotifyAsync),

		FCMCredentialsPath: os.Getenv("FCM_CREDENTIALS_PATH"),

		ReminderCron: getEnv("REMINDER_CRON", "0 8 * * *"),
	}

	if cfg.JWTSecret == "" {
		if cfg.AppEnv != "development" {
			return nil, fmt.Errorf("JWT_SECRET is required outside development")
		}
		cfg.JWTSecret = "dev-secret"
	}

	switch cfg.NotifyMode {
	case NotifyDirect, NotifyAsync, NotifyKafka:
	default:
		return nil, fmt.Errorf("invalid NOTIFY_MODE %q", cfg.NotifyMode)
	}
	if cfg.NotifyMode == NotifyKafka && len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("NOTIFY_MODE=kafka requires KAFKA_BROKERS")
	}

	// Parsing durations
	var err error
	cfg.JWTTTL, err = parseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	cfg.CEPSubmitCooldown, err = parseDuration(getEnv("CEP_SUBMIT_COOLDOWN", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CEP_SUBMIT_COOLDOWN: %w", err)
	}
	cfg.AttendanceDraftTTL, err = parseDuration(getEnv("ATTENDANCE_DRAFT_TTL", "12h"))
	if err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_DRAFT_TTL: %w", err)
	}

	cfg.RateLimitPerMinute, err = strconv.ParseInt(getEnv("RATE_LIMIT_PER_MINUTE", "120"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	return cfg, nil
}

// Origins returns the CORS allow-list.
func (c *Config) Origins() []string {
	origins := splitList(c.AllowedOrigins)
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
