package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// LoadConfig loads and validates the service configuration.
//
// Steps, in order:
//  1. Enforce UTC timezone to prevent calendar drift bugs.
//  2. Load a .env file if present (non-fatal if absent; never overrides
//     variables already set in the environment).
//  3. Process envconfig tags to populate the Config struct.
//  4. Validate the populated struct with go-playground/validator.
//
// Any parse or validation failure is returned as an error so the entry point
// can fail fast.
func LoadConfig() (*Config, error) {
	time.Local = time.UTC

	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment configuration: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
