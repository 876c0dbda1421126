package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Queue       QueueConfig
	Reservation ReservationConfig
	Reaper      ReaperConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

type KafkaConfig struct {
	Brokers []string
	// Consumer group for the sold-out ranking listener.
	RankGroup string
}

type QueueConfig struct {
	// Maximum number of ACTIVE admission tokens per concert.
	MaxActive int64
	// How often waiting tokens are promoted.
	SweepInterval time.Duration
	// How long an active token admits its holder before it expires.
	ActiveTTL time.Duration
	// TTL on waiting token bookkeeping keys.
	WaitingTTL time.Duration
}

type ReservationConfig struct {
	// How long a pending reservation holds its seat.
	HoldWindow time.Duration
	// Lease on the per-seat lock; a crashed holder self-expires.
	LockLease time.Duration
}

type ReaperConfig struct {
	Interval  time.Duration
	BatchSize int
	// Lease on the global expire-batch lock.
	LockLease time.Duration
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverPort, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresPort, err := intEnv("POSTGRES_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresUser := os.Getenv("POSTGRES_USER")
	if postgresUser == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
	}

	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	if postgresPassword == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
	}

	postgresDB := os.Getenv("POSTGRES_DB")
	if postgresDB == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_DB", op)
	}

	maxActive, err := intEnv("QUEUE_MAX_ACTIVE", 50)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if maxActive <= 0 {
		return nil, fmt.Errorf("%s: QUEUE_MAX_ACTIVE must be positive", op)
	}

	sweepInterval, err := durationEnv("QUEUE_SWEEP_INTERVAL", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	activeTTL, err := durationEnv("QUEUE_ACTIVE_TTL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	waitingTTL, err := durationEnv("QUEUE_WAITING_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	holdWindow, err := durationEnv("RESERVATION_HOLD_WINDOW", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lockLease, err := durationEnv("RESERVATION_LOCK_LEASE", 3*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reaperInterval, err := durationEnv("REAPER_INTERVAL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reaperBatch, err := intEnv("REAPER_BATCH_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reaperLease, err := durationEnv("REAPER_LOCK_LEASE", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	brokers := strings.Split(getenv("KAFKA_BROKERS", "localhost:9092"), ",")
	for i := range brokers {
		brokers[i] = strings.TrimSpace(brokers[i])
	}

	return &Config{
		Server: ServerConfig{
			Host: getenv("SERVER_HOST", "localhost"),
			Port: serverPort,
		},
		Postgres: PostgresConfig{
			User:     postgresUser,
			Password: postgresPassword,
			Name:     postgresDB,
			Host:     getenv("POSTGRES_HOST", "localhost"),
			Port:     postgresPort,
			SSLMode:  getenv("POSTGRES_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		Kafka: KafkaConfig{
			Brokers:   brokers,
			RankGroup: getenv("KAFKA_RANK_GROUP", "stagepass-rank"),
		},
		Queue: QueueConfig{
			MaxActive:     int64(maxActive),
			SweepInterval: sweepInterval,
			ActiveTTL:     activeTTL,
			WaitingTTL:    waitingTTL,
		},
		Reservation: ReservationConfig{
			HoldWindow: holdWindow,
			LockLease:  lockLease,
		},
		Reaper: ReaperConfig{
			Interval:  reaperInterval,
			BatchSize: reaperBatch,
			LockLease: reaperLease,
		},
	}, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return v, nil
}
