package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})
}

func TestLoad(t *testing.T) {
	originalEnv := map[string]string{
		"PORT":                 os.Getenv("PORT"),
		"DATABASE_URL":         os.Getenv("DATABASE_URL"),
		"REDIS_URL":            os.Getenv("REDIS_URL"),
		"LOG_LEVEL":            os.Getenv("LOG_LEVEL"),
		"VOICE_EVENTS_URL":     os.Getenv("VOICE_EVENTS_URL"),
		"VOICE_API_KEY":        os.Getenv("VOICE_API_KEY"),
		"VOICE_WEBHOOK_SECRET": os.Getenv("VOICE_WEBHOOK_SECRET"),
		"KAFKA_ENABLED":        os.Getenv("KAFKA_ENABLED"),
		"KAFKA_BROKERS":        os.Getenv("KAFKA_BROKERS"),
		"KAFKA_TOPIC":          os.Getenv("KAFKA_TOPIC"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Unsetenv("PORT")
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("KAFKA_ENABLED")
		os.Unsetenv("KAFKA_TOPIC")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
		assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.False(t, cfg.KafkaEnabled)
		assert.Equal(t, "transcript-turns", cfg.KafkaTopic)
	})

	t.Run("loads custom values", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("PORT", "3000")
		os.Setenv("LOG_LEVEL", "debug")
		os.Setenv("KAFKA_ENABLED", "true")
		os.Setenv("KAFKA_BROKERS", "broker-1:9092,broker-2:9092")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.True(t, cfg.KafkaEnabled)
		assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	})

	t.Run("fails without DATABASE_URL", func(t *testing.T) {
		os.Unsetenv("DATABASE_URL")
		os.Setenv("REDIS_URL", "redis://localhost:6379")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("fails without REDIS_URL", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Unsetenv("REDIS_URL")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Port:        8080,
			DatabaseURL: "postgres://localhost/test",
			RedisURL:    "redis://localhost:6379",
		}
	}

	t.Run("accepts a minimal config", func(t *testing.T) {
		assert.NoError(t, base().Validate(false))
	})

	t.Run("rejects kafka enabled without brokers", func(t *testing.T) {
		cfg := base()
		cfg.KafkaEnabled = true

		err := cfg.Validate(false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "KAFKA_BROKERS")
	})

	t.Run("rejects non-websocket voice events url", func(t *testing.T) {
		cfg := base()
		cfg.VoiceEventsURL = "https://voice.example.com/events"

		err := cfg.Validate(false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "VOICE_EVENTS_URL")
	})

	t.Run("accepts wss voice events url", func(t *testing.T) {
		cfg := base()
		cfg.VoiceEventsURL = "wss://voice.example.com/events"

		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("production validation only warns on missing secrets", func(t *testing.T) {
		assert.NoError(t, base().Validate(true))
	})
}
