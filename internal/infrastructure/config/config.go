// Package config reads service settings from the environment. Values from a .env file are
// already in the environment when Load runs (godotenv autoload in main).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverDynamoDB = "dynamodb"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
)

type Config struct {
	HTTPPort string
	LogMode  string

	StorageDriver  string
	SequenceDriver string

	DatabaseURL      string
	RedisAddr        string
	RedisPassword    string
	RedisSequenceKey string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	AllocationMaxAttempts     uint
	AllocationInitialInterval time.Duration
	MutateMaxAttempts         int
}

// Load reads and validates the configuration. Malformed numbers and durations are
// reported rather than replaced by their defaults.
func Load() (Config, error) {
	allocAttempts, errAlloc := getenvUint("ALLOCATION_MAX_ATTEMPTS", 5)
	allocInterval, errInterval := getenvDuration("ALLOCATION_INITIAL_INTERVAL", 50*time.Millisecond)
	mutateAttempts, errMutate := getenvInt("MUTATE_MAX_ATTEMPTS", 3)
	if err := errors.Join(errAlloc, errInterval, errMutate); err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTPPort:                  getenvDefault("HTTP_PORT", "8080"),
		LogMode:                   getenvDefault("LOG_MODE", "dev"),
		StorageDriver:             strings.ToLower(getenvDefault("STORAGE_DRIVER", DriverDynamoDB)),
		DatabaseURL:               os.Getenv("DATABASE_URL"),
		RedisAddr:                 getenvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:             os.Getenv("REDIS_PASSWORD"),
		RedisSequenceKey:          getenvDefault("REDIS_SEQUENCE_KEY", "quotes:sequence"),
		JWTSecret:                 os.Getenv("JWT_SECRET"),
		JWTIssuer:                 os.Getenv("JWT_ISSUER"),
		JWTAudience:               os.Getenv("JWT_AUDIENCE"),
		AllocationMaxAttempts:     allocAttempts,
		AllocationInitialInterval: allocInterval,
		MutateMaxAttempts:         mutateAttempts,
	}
	cfg.SequenceDriver = strings.ToLower(getenvDefault("SEQUENCE_DRIVER", cfg.StorageDriver))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.StorageDriver {
	case DriverDynamoDB, DriverPostgres, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER %q not supported", c.StorageDriver))
	}
	switch c.SequenceDriver {
	case DriverDynamoDB, DriverPostgres, DriverMemory, DriverRedis:
	default:
		errs = append(errs, fmt.Errorf("SEQUENCE_DRIVER %q not supported", c.SequenceDriver))
	}
	if (c.StorageDriver == DriverPostgres || c.SequenceDriver == DriverPostgres) && c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
	}
	// A process-local counter next to shared storage would hand out duplicate numbers.
	if c.SequenceDriver == DriverMemory && c.StorageDriver != DriverMemory {
		errs = append(errs, errors.New("SEQUENCE_DRIVER=memory requires STORAGE_DRIVER=memory"))
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.AllocationMaxAttempts == 0 {
		errs = append(errs, errors.New("ALLOCATION_MAX_ATTEMPTS must be positive"))
	}
	if c.AllocationInitialInterval <= 0 {
		errs = append(errs, errors.New("ALLOCATION_INITIAL_INTERVAL must be positive"))
	}
	if c.MutateMaxAttempts <= 0 {
		errs = append(errs, errors.New("MUTATE_MAX_ATTEMPTS must be positive"))
	}
	return errors.Join(errs...)
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return i, nil
}

// getenvUint rejects negative values instead of letting them wrap.
func getenvUint(key string, def uint) (uint, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	i, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a non-negative integer", key, v)
	}
	return uint(i), nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration", key, v)
	}
	return d, nil
}
