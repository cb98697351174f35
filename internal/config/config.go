package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Voice provider event stream.
	VoiceEventsURL     string `env:"VOICE_EVENTS_URL"`
	VoiceAPIKey        string `env:"VOICE_API_KEY"`
	VoiceWebhookSecret string `env:"VOICE_WEBHOOK_SECRET"`

	// Optional analytics export.
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"transcript-turns"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_ENABLED is set but KAFKA_BROKERS is empty")
	}

	if c.VoiceEventsURL != "" &&
		!strings.HasPrefix(c.VoiceEventsURL, "ws://") &&
		!strings.HasPrefix(c.VoiceEventsURL, "wss://") {
		return fmt.Errorf("VOICE_EVENTS_URL must be a ws:// or wss:// URL")
	}

	if isProduction {
		if c.VoiceAPIKey == "" {
			log.Warn().Msg("VOICE_API_KEY is empty in production: provider event stream disabled")
		}
		if c.VoiceWebhookSecret == "" {
			log.Warn().Msg("VOICE_WEBHOOK_SECRET is empty in production: webhook signature verification disabled")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
