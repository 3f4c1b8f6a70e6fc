package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress        string
	DatabaseURI       string
	WebhookSecret     string
	PaymentAPIAddress string
	PaymentAPIKey     string
	RedisAddress      string
	KafkaBrokers      []string
	NotificationTopic string
	AckTimeout        time.Duration
	EffectTimeout     time.Duration
	EffectWorkers     int
	ShutdownTimeout   time.Duration
}

const (
	defaultRunAddress        = ":8080"
	defaultRedisAddress      = "localhost:6379"
	defaultKafkaBrokers      = "localhost:9092"
	defaultNotificationTopic = "storefront-notifications"
	defaultAckTimeout        = 5 * time.Second
	defaultEffectTimeout     = 3 * time.Second
	defaultEffectWorkers     = 4
	defaultShutdownTimeout   = 10 * time.Second
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:        getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:       getString(lookup, "DATABASE_URI", ""),
		WebhookSecret:     getString(lookup, "WEBHOOK_SECRET", ""),
		PaymentAPIAddress: getString(lookup, "PAYMENT_API_ADDRESS", ""),
		PaymentAPIKey:     getString(lookup, "PAYMENT_API_KEY", ""),
		RedisAddress:      getString(lookup, "REDIS_ADDRESS", defaultRedisAddress),
		NotificationTopic: getString(lookup, "NOTIFICATION_TOPIC", defaultNotificationTopic),
		AckTimeout:        getDuration(lookup, "ACK_TIMEOUT", defaultAckTimeout),
		EffectTimeout:     getDuration(lookup, "EFFECT_TIMEOUT", defaultEffectTimeout),
		EffectWorkers:     getInt(lookup, "EFFECT_WORKERS", defaultEffectWorkers),
		ShutdownTimeout:   getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}

	brokers := getString(lookup, "KAFKA_BROKERS", defaultKafkaBrokers)

	fs := flag.NewFlagSet("webhookd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		ackTimeoutStr      = cfg.AckTimeout.String()
		effectTimeoutStr   = cfg.EffectTimeout.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.WebhookSecret, "webhook-secret", cfg.WebhookSecret, "Shared secret for webhook signature verification")
	fs.StringVar(&cfg.PaymentAPIAddress, "payment-api", cfg.PaymentAPIAddress, "Payment provider API base URL")
	fs.StringVar(&cfg.PaymentAPIKey, "payment-key", cfg.PaymentAPIKey, "Payment provider API key")
	fs.StringVar(&cfg.RedisAddress, "redis", cfg.RedisAddress, "Redis address for cache invalidation")
	fs.StringVar(&brokers, "kafka-brokers", brokers, "Comma-separated Kafka broker list")
	fs.StringVar(&cfg.NotificationTopic, "notification-topic", cfg.NotificationTopic, "Kafka topic for notification payloads")
	fs.StringVar(&ackTimeoutStr, "ack-timeout", ackTimeoutStr, "Webhook acknowledgement budget")
	fs.StringVar(&effectTimeoutStr, "effect-timeout", effectTimeoutStr, "Per-effect execution timeout")
	fs.IntVar(&cfg.EffectWorkers, "effect-workers", cfg.EffectWorkers, "Number of concurrent effect workers")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.AckTimeout, err = time.ParseDuration(ackTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid ack timeout: %w", err)
	}

	if cfg.EffectTimeout, err = time.ParseDuration(effectTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid effect timeout: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if secretFile, ok := lookup("WEBHOOK_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read webhook secret file: %w", err)
		}
		cfg.WebhookSecret = strings.TrimSpace(string(content))
	}

	cfg.KafkaBrokers = splitBrokers(brokers)

	if cfg.EffectWorkers <= 0 {
		cfg.EffectWorkers = defaultEffectWorkers
	}

	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = defaultAckTimeout
	}

	if cfg.EffectTimeout <= 0 {
		cfg.EffectTimeout = defaultEffectTimeout
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("webhook secret must be provided")
	}

	if cfg.PaymentAPIAddress == "" {
		return nil, fmt.Errorf("payment provider API address must be provided")
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker must be provided")
	}

	return cfg, nil
}

func splitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
