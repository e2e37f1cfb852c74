package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	SQLitePath  string

	// External collaborator identifiers (opaque to the core)
	SheetID       string
	WorkspaceDBID string
	MailAccount   string
	SnapshotPath  string

	// Approval & auth
	WebhookSecret string
	JWTSecret     string

	// Replenishment policy
	AutoApproveCost float64 // 0 disables auto-approval

	// Notification retry policy
	NotifyMaxAttempts int
	NotifyBackoffBase time.Duration
	NotifyBackoffCap  time.Duration

	// Detection cycle
	CycleInterval time.Duration

	// Kafka Configuration
	KafkaBrokers     []string
	KafkaTopicAlerts string
	KafkaTopicPlans  string
	KafkaGroupID     string
	KafkaClientID    string
	KafkaAcks        string
	KafkaRetries     int
	KafkaDLQTopic    string

	// Redis (idempotency dedup)
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	DedupTTL      time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	kafkaBrokersStr := getEnv("KAFKA_BROKERS", "localhost:9093")
	kafkaBrokers := strings.Split(kafkaBrokersStr, ",")
	for i, broker := range kafkaBrokers {
		kafkaBrokers[i] = strings.TrimSpace(broker)
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		SQLitePath:  getEnv("SQLITE_PATH", "data/plans.db"),

		SheetID:       getEnv("SHEET_ID", ""),
		WorkspaceDBID: getEnv("WORKSPACE_DB_ID", ""),
		MailAccount:   getEnv("MAIL_ACCOUNT", ""),
		SnapshotPath:  getEnv("SNAPSHOT_PATH", "data/inventory.csv"),

		WebhookSecret: getEnv("WEBHOOK_SECRET", "change-me-webhook-secret"),
		JWTSecret:     getEnv("JWT_SECRET", "your-secret-key-change-in-production-min-32-chars"),

		AutoApproveCost: getEnvAsFloat("AUTO_APPROVE_COST", 0),

		NotifyMaxAttempts: getEnvAsInt("NOTIFY_MAX_ATTEMPTS", 3),
		NotifyBackoffBase: getEnvAsDuration("NOTIFY_BACKOFF_BASE", time.Second),
		NotifyBackoffCap:  getEnvAsDuration("NOTIFY_BACKOFF_CAP", 10*time.Second),

		CycleInterval: getEnvAsDuration("CYCLE_INTERVAL", 15*time.Minute),

		KafkaBrokers:     kafkaBrokers,
		KafkaTopicAlerts: getEnv("KAFKA_TOPIC_ALERTS", "replenishment.alerts"),
		KafkaTopicPlans:  getEnv("KAFKA_TOPIC_PLANS", "replenishment.plans"),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "inventory-pulse-notifier"),
		KafkaClientID:    getEnv("KAFKA_CLIENT_ID", "inventory-pulse"),
		KafkaAcks:        getEnv("KAFKA_ACKS", "all"),
		KafkaRetries:     getEnvAsInt("KAFKA_RETRIES", 3),
		KafkaDLQTopic:    getEnv("KAFKA_DLQ_TOPIC", ""),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		DedupTTL:      getEnvAsDuration("DEDUP_TTL", 24*time.Hour),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return result
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return result
}
