package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port       int
	LogLevel   string
	Env        string
	DB         DBConfig
	Ledger     LedgerConfig
	Settlement SettlementConfig
	Kafka      KafkaConfig
	RateLimit  RateLimitConfig
}

// DBConfig holds the database configuration
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// LedgerConfig holds the connection details for the ledger node
type LedgerConfig struct {
	NodeAddress string
	APIToken    string
}

// SettlementConfig bounds the synchronous confirmation wait and the
// in-flight deduplication window
type SettlementConfig struct {
	MaxPollRounds   int
	PollInterval    time.Duration
	MaxPollInterval time.Duration
	InFlightTTL     time.Duration
}

// KafkaConfig holds the settings for publishing settlement events
type KafkaConfig struct {
	Brokers          []string
	SettlementsTopic string
	ConsumerGroup    string
}

// RateLimitConfig bounds per-actor settlement traffic
type RateLimitConfig struct {
	ActorMaxTokens  float64
	ActorRefillRate float64
}

// getEnv retrieves the value of an environment variable or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

// getEnvInt retrieves an integer environment variable or a default
func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)

	if !exists {
		return defaultValue, nil
	}

	n, err := strconv.Atoi(value)

	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return n, nil
}

// Load reads the configuration from environment variables and returns a Config struct.
func Load() (*Config, error) {
	port, err := getEnvInt("PORT", 8080)

	if err != nil {
		return nil, err
	}

	dbPort, err := getEnvInt("DB_PORT", 5432)

	if err != nil {
		return nil, err
	}

	maxPollRounds, err := getEnvInt("SETTLEMENT_MAX_POLL_ROUNDS", 10)

	if err != nil {
		return nil, err
	}

	pollIntervalMs, err := getEnvInt("SETTLEMENT_POLL_INTERVAL_MS", 1000)

	if err != nil {
		return nil, err
	}

	inFlightTTLSec, err := getEnvInt("SETTLEMENT_INFLIGHT_TTL_SECONDS", 120)

	if err != nil {
		return nil, err
	}

	// An empty KAFKA_BROKERS disables event publishing; outbox events are
	// logged instead of sent to a broker
	var brokers []string

	if raw := getEnv("KAFKA_BROKERS", "localhost:9092"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return &Config{
		Port:     port,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Env:      getEnv("APP_ENV", "development"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "settlement"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Ledger: LedgerConfig{
			NodeAddress: getEnv("LEDGER_NODE_ADDRESS", "http://localhost:4001"),
			APIToken:    getEnv("LEDGER_API_TOKEN", ""),
		},
		Settlement: SettlementConfig{
			MaxPollRounds:   maxPollRounds,
			PollInterval:    time.Duration(pollIntervalMs) * time.Millisecond,
			MaxPollInterval: 10 * time.Second,
			InFlightTTL:     time.Duration(inFlightTTLSec) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:          brokers,
			SettlementsTopic: getEnv("KAFKA_SETTLEMENTS_TOPIC", "settlement-events"),
			ConsumerGroup:    getEnv("KAFKA_CONSUMER_GROUP", "settlement-api"),
		},
		RateLimit: RateLimitConfig{
			ActorMaxTokens:  10,
			ActorRefillRate: 1,
		},
	}, nil
}

// GetDBConnString returns the database connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode)
}
