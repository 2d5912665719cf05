// Package config loads the runtime's environment-driven configuration:
// database connection, HTTP port, and LLM provider selection. There is no
// YAML registry here -- scenarios and personas are authored data living in
// the store, not static config, so the config surface stays small.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/codeready-toolchain/simulator/pkg/database"
	"github.com/codeready-toolchain/simulator/pkg/llm"
	"github.com/joho/godotenv"
)

// Config is the full set of settings read from the environment.
type Config struct {
	HTTPPort string
	GinMode  string

	Database database.Config
	LLM      llm.Config
}

// Load reads .env (if present) then the process environment, applying
// defaults for anything unset. envPath may be empty, in which case only the
// process environment is consulted.
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			// Missing .env is not fatal -- the process environment (e.g. a
			// container's injected env vars) may already carry everything.
			fmt.Fprintf(os.Stderr, "config: no .env file at %s, using process environment\n", envPath)
		}
	}

	provider := llm.Provider(getEnv("LLM_PROVIDER", string(llm.ProviderAnthropic)))
	apiKey := os.Getenv("LLM_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("config: LLM_API_KEY is required")
	}

	temperature, err := getEnvFloat("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return nil, err
	}
	maxTokens, err := getEnvInt("LLM_MAX_TOKENS", 1024)
	if err != nil {
		return nil, err
	}

	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "release"),
		Database: dbCfg,
		LLM: llm.Config{
			Provider:    provider,
			APIKey:      apiKey,
			Model:       os.Getenv("LLM_MODEL"),
			Temperature: float32(temperature),
			MaxTokens:   maxTokens,
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: invalid integer for %s: %w", key, err)
	}
	return v, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid float for %s: %w", key, err)
	}
	return v, nil
}
