package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// DefaultFeedURL is the national meteorological service observations endpoint.
const DefaultFeedURL = "https://www.ilmateenistus.ee/ilma_andmed/xml/observations.php"

// DefaultCronSpec fires at second 0 of minute 15 of every hour, a few
// minutes after the upstream refreshes the feed.
const DefaultCronSpec = "0 15 * * * *"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	FeedURL      string
	FetchTimeout time.Duration

	SchedulerEnabled bool
	SchedulerCron    string

	SQLitePath string
	SQLiteDSN  string

	// Kafka observation publisher configuration.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		FeedURL:      envOrDefault("WEATHER_FEED_URL", DefaultFeedURL),
		FetchTimeout: fetchTimeout,

		SchedulerEnabled: envOrDefault("SCHEDULER_ENABLED", "true") == "true",
		SchedulerCron:    envOrDefault("SCHEDULER_CRON", DefaultCronSpec),

		SQLitePath: envOrDefault("SQLITE_PATH", "data/observations.db"),
		SQLiteDSN:  os.Getenv("SQLITE_DSN"),

		KafkaBrokers: brokers,
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "weather-observations"),
		KafkaEnabled: kafkaEnabled,
	}

	if cfg.FeedURL == "" {
		return nil, errors.New("WEATHER_FEED_URL is required")
	}
	if cfg.SchedulerCron == "" {
		return nil, errors.New("SCHEDULER_CRON is required")
	}
	if cfg.SQLitePath == "" && cfg.SQLiteDSN == "" {
		return nil, errors.New("SQLITE_PATH or SQLITE_DSN is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
