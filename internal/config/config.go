package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the market simulator.
type Config struct {
	Port             int
	LogLevel         string
	TickInterval     time.Duration
	BroadcastEvery   int
	DecayFraction    float64
	Profile          string
	ProfileFile      string
	Seed             int64
	CommandBuffer    int
	SubscriberBuffer int
	ReadTimeout      time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	tickInterval, err := getDuration("TICK_INTERVAL", 20*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid TICK_INTERVAL: %w", err)
	}
	if tickInterval <= 0 {
		return nil, fmt.Errorf("invalid TICK_INTERVAL: %v, must be positive", tickInterval)
	}

	broadcastEvery, err := getInt("BROADCAST_EVERY", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid BROADCAST_EVERY: %w", err)
	}
	if broadcastEvery < 1 {
		return nil, fmt.Errorf("invalid BROADCAST_EVERY: %d, must be at least 1", broadcastEvery)
	}

	decayFraction, err := getFloat("DECAY_FRACTION", 0.05)
	if err != nil {
		return nil, fmt.Errorf("invalid DECAY_FRACTION: %w", err)
	}
	if decayFraction < 0 || decayFraction > 1 {
		return nil, fmt.Errorf("invalid DECAY_FRACTION: %v, must be within [0, 1]", decayFraction)
	}

	seed, err := getInt64("SEED", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid SEED: %w", err)
	}

	commandBuffer, err := getInt("COMMAND_BUFFER", 1024)
	if err != nil {
		return nil, fmt.Errorf("invalid COMMAND_BUFFER: %w", err)
	}
	if commandBuffer < 1 {
		return nil, fmt.Errorf("invalid COMMAND_BUFFER: %d, must be at least 1", commandBuffer)
	}

	subscriberBuffer, err := getInt("SUBSCRIBER_BUFFER", 256)
	if err != nil {
		return nil, fmt.Errorf("invalid SUBSCRIBER_BUFFER: %w", err)
	}
	if subscriberBuffer < 1 {
		return nil, fmt.Errorf("invalid SUBSCRIBER_BUFFER: %d, must be at least 1", subscriberBuffer)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:             port,
		LogLevel:         logLevel,
		TickInterval:     tickInterval,
		BroadcastEvery:   broadcastEvery,
		DecayFraction:    decayFraction,
		Profile:          getStr("PROFILE", "very_volatile"),
		ProfileFile:      getStr("PROFILE_FILE", ""),
		Seed:             seed,
		CommandBuffer:    commandBuffer,
		SubscriberBuffer: subscriberBuffer,
		ReadTimeout:      readTimeout,
		IdleTimeout:      idleTimeout,
		ShutdownTimeout:  shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getInt64(key string, defaultVal int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
