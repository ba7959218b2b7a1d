package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime parameter of the application.
type Config struct {
	DatabaseURL  string
	RedisURL     string
	JWTSecretKey string
	ServerPort   int

	// QueueEntryTTL is how long a WAITING queue entry may sit unmatched
	// before the scheduler cancels it.
	QueueEntryTTL time.Duration
	// SchedulerInterval drives both the tournament status scheduler and the
	// queue expiry scheduler.
	SchedulerInterval time.Duration
	// QueueClaimAttempts bounds how many candidates one JoinQueue call may
	// try to claim before giving up and leaving the entry waiting.
	QueueClaimAttempts int
}

// Load reads configuration from environment variables. A .env file is loaded
// first when present; missing .env is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intFromEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	queueTTL, err := durationFromEnv("QUEUE_ENTRY_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	schedulerInterval, err := durationFromEnv("SCHEDULER_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	claimAttempts, err := intFromEnv("QUEUE_CLAIM_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}
	if claimAttempts <= 0 {
		return nil, fmt.Errorf("QUEUE_CLAIM_ATTEMPTS must be positive, got %d", claimAttempts)
	}

	return &Config{
		DatabaseURL:        dbURL,
		RedisURL:           redisURL,
		JWTSecretKey:       jwtKey,
		ServerPort:         port,
		QueueEntryTTL:      queueTTL,
		SchedulerInterval:  schedulerInterval,
		QueueClaimAttempts: claimAttempts,
	}, nil
}

func intFromEnv(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return value, nil
}

func durationFromEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", name, value)
	}
	return value, nil
}
