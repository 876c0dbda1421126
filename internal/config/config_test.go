package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("POSTGRES_USER", "stagepass")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "stagepass")
}

func TestNewDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(50), cfg.Queue.MaxActive)
	assert.Equal(t, 10*time.Second, cfg.Queue.SweepInterval)
	assert.Equal(t, time.Minute, cfg.Queue.ActiveTTL)
	assert.Equal(t, 5*time.Minute, cfg.Reservation.HoldWindow)
	assert.Equal(t, time.Minute, cfg.Reaper.Interval)
	assert.Equal(t, 1000, cfg.Reaper.BatchSize)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestNewMissingPostgresCreds(t *testing.T) {
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("POSTGRES_PASSWORD", "x")
	t.Setenv("POSTGRES_DB", "x")

	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_USER")
}

func TestNewParsesOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("QUEUE_MAX_ACTIVE", "200")
	t.Setenv("RESERVATION_HOLD_WINDOW", "2m30s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, int64(200), cfg.Queue.MaxActive)
	assert.Equal(t, 150*time.Second, cfg.Reservation.HoldWindow)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestNewRejectsBadValues(t *testing.T) {
	setRequired(t)
	t.Setenv("QUEUE_MAX_ACTIVE", "0")

	_, err := New()
	require.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{
		User:     "u",
		Password: "p",
		Name:     "db",
		Host:     "pg",
		Port:     5433,
		SSLMode:  "disable",
	}

	assert.Equal(t, "postgres://u:p@pg:5433/db?sslmode=disable", cfg.DSN())
}
