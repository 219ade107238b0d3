package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Email    EmailConfig
	Razorpay RazorpayConfig
	Admin    AdminConfig
	Pricing  PricingConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers []string
	Topics  TopicConfig
	Enabled bool
}

type TopicConfig struct {
	OrderReserved  string
	OrderConfirmed string
}

type EmailConfig struct {
	APIKey   string
	FromName string
	From     string
	// PaymentLink is included in offline reservation reminders so the
	// purchaser knows where to coordinate payment.
	PaymentLink string
}

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	// WebhookSecret signs webhook deliveries; it is configured on the
	// gateway dashboard and is not the API key secret.
	WebhookSecret string
	BaseURL       string
}

type AdminConfig struct {
	SecretKey string
	// ReminderExclusions are emails skipped by the bulk offline
	// reminder sweep (test and admin accounts).
	ReminderExclusions []string
}

type PricingConfig struct {
	RegularPrice   int64
	EarlyBirdPrice int64
	PartyPrice     int64
	EarlyBirdLimit int
	MaxPerOrder    int
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":1337"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:          getEnv("POSTGRES_DSN", ""),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_ADDR", "localhost:9092")},
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Topics: TopicConfig{
				OrderReserved:  getEnv("KAFKA_TOPIC_ORDER_RESERVED", "fest.orders.reserved"),
				OrderConfirmed: getEnv("KAFKA_TOPIC_ORDER_CONFIRMED", "fest.orders.confirmed"),
			},
		},
		Email: EmailConfig{
			APIKey:      getEnv("RESEND_API_KEY", ""),
			FromName:    getEnv("EMAIL_FROM_NAME", "Fest Tickets"),
			From:        getEnv("EMAIL_FROM", "tickets@fest.example"),
			PaymentLink: getEnv("OFFLINE_PAYMENT_LINK", ""),
		},
		Razorpay: RazorpayConfig{
			KeyID:         getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret:     getEnv("RAZORPAY_KEY_SECRET", ""),
			WebhookSecret: getEnv("RAZORPAY_WEBHOOK_SECRET", ""),
			BaseURL:       getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
		},
		Admin: AdminConfig{
			SecretKey:          getEnv("ADMIN_SECRET_KEY", ""),
			ReminderExclusions: getEnvList("REMINDER_EXCLUDED_EMAILS", nil),
		},
		Pricing: PricingConfig{
			RegularPrice:   int64(getEnvInt("TICKET_PRICE_REGULAR", 549)),
			EarlyBirdPrice: int64(getEnvInt("TICKET_PRICE_EARLY", 494)),
			PartyPrice:     int64(getEnvInt("PARTY_TICKET_PRICE", 499)),
			EarlyBirdLimit: getEnvInt("EARLY_BIRD_LIMIT", 102),
			MaxPerOrder:    getEnvInt("MAX_TICKETS_PER_ORDER", 5),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
