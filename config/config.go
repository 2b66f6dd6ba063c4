// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config structure
type Config struct {
	LLMProvider     string        `json:"llmProvider"`
	APIKey          string        `json:"apiKey"`
	BaseURL         string        `json:"baseUrl"`
	ModelName       string        `json:"modelName"`
	MaxTokens       int           `json:"maxTokens"`
	PythonPath      string        `json:"pythonPath"`
	DataDir         string        `json:"dataDir"`
	DBPath          string        `json:"dbPath"`
	Port            string        `json:"port"`
	Password        string        `json:"password"`
	SessionCapacity int           `json:"sessionCapacity"`
	ScriptTimeout   time.Duration `json:"scriptTimeout"`
	DetailedLog     bool          `json:"detailedLog"`
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	cfg := Config{
		LLMProvider:     getEnv("LLM_PROVIDER", "OpenAI"),
		APIKey:          getEnv("LLM_API_KEY", ""),
		BaseURL:         getEnv("LLM_BASE_URL", ""),
		ModelName:       getEnv("LLM_MODEL", "gpt-4o-2024-05-13"),
		MaxTokens:       getEnvInt("LLM_MAX_TOKENS", 2000),
		PythonPath:      getEnv("PYTHON_PATH", ""),
		DataDir:         getEnv("DATA_DIR", "./data"),
		DBPath:          getEnv("DB_PATH", "./data/datasets.db"),
		Port:            getEnv("PORT", "8000"),
		Password:        getEnv("ACCESS_PASSWORD", ""),
		SessionCapacity: getEnvInt("SESSION_CAPACITY", 256),
		ScriptTimeout:   time.Duration(getEnvInt("SCRIPT_TIMEOUT_SECONDS", 60)) * time.Second,
		DetailedLog:     getEnvBool("DETAILED_LOG", false),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if c.ModelName == "" {
		return fmt.Errorf("LLM_MODEL must not be empty")
	}
	if c.SessionCapacity <= 0 {
		return fmt.Errorf("SESSION_CAPACITY must be positive, got %d", c.SessionCapacity)
	}
	if c.ScriptTimeout <= 0 {
		return fmt.Errorf("SCRIPT_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
