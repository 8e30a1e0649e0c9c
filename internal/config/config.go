package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrEmptyEnvironmentVariable = errors.New("empty environment variable")

// Context store backends
const (
	ContextStoreMemory = "memory"
	ContextStoreRedis  = "redis"
	ContextStoreSealed = "sealed"
)

// Config holds all application configuration
type Config struct {
	Twilio       TwilioConfig
	OpenAI       OpenAIConfig
	Services     ServicesConfig
	ContextStore ContextStoreConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Session      SessionConfig
	Server       ServerConfig
}

// TwilioConfig holds call control credentials
type TwilioConfig struct {
	AccountSID        string
	AuthToken         string
	PhoneNumber       string
	ValidateSignature bool
}

// OpenAIConfig holds realtime session settings
type OpenAIConfig struct {
	APIKey             string
	RealtimeURL        string
	Voice              string
	Temperature        float64
	TranscriptionModel string
}

// ServicesConfig holds external service API keys and configuration
type ServicesConfig struct {
	BaseURL            string
	ResendAPIKey       string
	DefaultEmailSender string
	TranscriptEmailTo  string
}

// ContextStoreConfig selects and tunes the call context backend
type ContextStoreConfig struct {
	Backend string
	TTL     time.Duration
	SealKey string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// KafkaConfig holds Kafka/event streaming configuration
type KafkaConfig struct {
	Brokers string
	Topic   string
}

// SessionConfig holds per-call relay tuning
type SessionConfig struct {
	ContextRetryAttempts int
	ContextRetryInterval time.Duration
	GoodbyeDelay         time.Duration
	ClosingPhrases       []string
	CleanupTimeout       time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int
	// StartCallRateLimit is the number of calls a client may start per
	// minute, zero disables limiting
	StartCallRateLimit int
}

// Load reads and validates all required environment variables
func Load() (*Config, error) {
	// Load env.local in non-production environments
	if os.Getenv("GO_ENV") != "production" {
		if err := godotenv.Load("env.local"); err != nil {
			return nil, fmt.Errorf("failed to load env.local: %w", err)
		}
	}

	cfg := &Config{}

	var err error
	if cfg.Twilio.AccountSID, err = requireEnv("TWILIO_ACCOUNT_SID"); err != nil {
		return nil, err
	}
	if cfg.Twilio.AuthToken, err = requireEnv("TWILIO_AUTH_TOKEN"); err != nil {
		return nil, err
	}
	if cfg.Twilio.PhoneNumber, err = requireEnv("TWILIO_PHONE_NUMBER"); err != nil {
		return nil, err
	}
	if cfg.Twilio.ValidateSignature, err = getBoolWithDefault("VALIDATE_TWILIO_SIGNATURE", false); err != nil {
		return nil, err
	}

	if cfg.OpenAI.APIKey, err = requireEnv("OPENAI_API_KEY"); err != nil {
		return nil, err
	}
	cfg.OpenAI.RealtimeURL = getEnvWithDefault("OPENAI_REALTIME_URL",
		"wss://api.openai.com/v1/realtime?model=gpt-4o-realtime-preview-2024-10-01")
	cfg.OpenAI.Voice = getEnvWithDefault("OPENAI_VOICE", "shimmer")
	cfg.OpenAI.TranscriptionModel = getEnvWithDefault("OPENAI_TRANSCRIPTION_MODEL", "whisper-1")
	cfg.OpenAI.Temperature, err = strconv.ParseFloat(getEnvWithDefault("OPENAI_TEMPERATURE", "0.8"), 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OPENAI_TEMPERATURE: %w", err)
	}

	if cfg.Services.BaseURL, err = requireEnv("BASE_URL"); err != nil {
		return nil, err
	}
	cfg.Services.ResendAPIKey = os.Getenv("RESEND_API_KEY")
	cfg.Services.DefaultEmailSender = os.Getenv("DEFAULT_EMAIL_SENDER_ADDRESS")
	cfg.Services.TranscriptEmailTo = os.Getenv("TRANSCRIPT_EMAIL_TO")

	// Context store configuration
	cfg.ContextStore.Backend = strings.ToLower(getEnvWithDefault("CONTEXT_STORE", ContextStoreMemory))
	switch cfg.ContextStore.Backend {
	case ContextStoreMemory, ContextStoreRedis:
	case ContextStoreSealed:
		if cfg.ContextStore.SealKey, err = requireEnv("CONTEXT_SEAL_KEY"); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported CONTEXT_STORE %q", cfg.ContextStore.Backend)
	}
	ttlSeconds, err := strconv.Atoi(getEnvWithDefault("CONTEXT_TTL_SECONDS", "3600"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse CONTEXT_TTL_SECONDS: %w", err)
	}
	cfg.ContextStore.TTL = time.Duration(ttlSeconds) * time.Second

	// Redis configuration
	if cfg.Redis.Enabled, err = getBoolWithDefault("REDIS_ENABLED", cfg.ContextStore.Backend == ContextStoreRedis); err != nil {
		return nil, err
	}
	cfg.Redis.Host = getEnvWithDefault("REDIS_HOST", "localhost")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if cfg.Redis.Port, err = strconv.Atoi(getEnvWithDefault("REDIS_PORT", "6379")); err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_PORT: %w", err)
	}
	if cfg.Redis.DB, err = strconv.Atoi(getEnvWithDefault("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_DB: %w", err)
	}
	if cfg.ContextStore.Backend == ContextStoreRedis && !cfg.Redis.Enabled {
		return nil, fmt.Errorf("CONTEXT_STORE=redis requires REDIS_ENABLED")
	}

	// Kafka configuration (optional transcript sink)
	cfg.Kafka.Brokers = os.Getenv("KAFKA_BROKERS")
	cfg.Kafka.Topic = getEnvWithDefault("KAFKA_TOPIC", "call-events")

	// Session configuration
	if cfg.Session.ContextRetryAttempts, err = strconv.Atoi(getEnvWithDefault("CONTEXT_RETRY_ATTEMPTS", "5")); err != nil {
		return nil, fmt.Errorf("failed to parse CONTEXT_RETRY_ATTEMPTS: %w", err)
	}
	if cfg.Session.ContextRetryInterval, err = getMillisWithDefault("CONTEXT_RETRY_INTERVAL_MS", "500"); err != nil {
		return nil, err
	}
	if cfg.Session.GoodbyeDelay, err = getMillisWithDefault("GOODBYE_DELAY_MS", "6000"); err != nil {
		return nil, err
	}
	if cfg.Session.CleanupTimeout, err = getMillisWithDefault("CLEANUP_TIMEOUT_MS", "5000"); err != nil {
		return nil, err
	}
	cfg.Session.ClosingPhrases = splitList(getEnvWithDefault("CLOSING_PHRASES", "goodbye,take care,have a nice day"))

	// Server configuration
	cfg.Server.Port, err = strconv.Atoi(getEnvWithDefault("SERVER_PORT", "3000"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SERVER_PORT: %w", err)
	}
	cfg.Server.StartCallRateLimit, err = strconv.Atoi(getEnvWithDefault("START_CALL_RATE_LIMIT_RPM", "30"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse START_CALL_RATE_LIMIT_RPM: %w", err)
	}

	return cfg, nil
}

// KafkaBrokers returns the configured broker list, empty when Kafka is off
func (c *KafkaConfig) KafkaBrokers() []string {
	return splitList(c.Brokers)
}

// Addr returns the host:port Redis address
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// requireEnv retrieves an environment variable or returns an error if empty
func requireEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s is not set: %w", key, ErrEmptyEnvironmentVariable)
	}
	return value, nil
}

// getEnvWithDefault retrieves an environment variable or returns a default value
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getBoolWithDefault(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return parsed, nil
}

func getMillisWithDefault(key, defaultValue string) (time.Duration, error) {
	ms, err := strconv.Atoi(getEnvWithDefault(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
