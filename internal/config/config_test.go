package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "settlement", cfg.DB.Name)
	assert.Equal(t, "http://localhost:4001", cfg.Ledger.NodeAddress)
	assert.Equal(t, 10, cfg.Settlement.MaxPollRounds)
	assert.Equal(t, time.Second, cfg.Settlement.PollInterval)
	assert.Equal(t, 2*time.Minute, cfg.Settlement.InFlightTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "settlement-events", cfg.Kafka.SettlementsTopic)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SETTLEMENT_MAX_POLL_ROUNDS", "3")
	t.Setenv("SETTLEMENT_POLL_INTERVAL_MS", "250")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 3, cfg.Settlement.MaxPollRounds)
	assert.Equal(t, 250*time.Millisecond, cfg.Settlement.PollInterval)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_EmptyBrokersDisablesKafka(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoad_InvalidInteger(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}

func TestGetDBConnString(t *testing.T) {
	cfg := &Config{DB: DBConfig{
		Host: "db", Port: 5433, User: "u", Password: "p", Name: "settlement", SSLMode: "disable",
	}}

	assert.Equal(t, "host=db port=5433 user=u password=p dbname=settlement sslmode=disable", cfg.GetDBConnString())
}
