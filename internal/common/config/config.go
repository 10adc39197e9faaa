// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Catalogue CatalogueConfig `mapstructure:"catalogue"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Prompt    PromptConfig    `mapstructure:"prompt"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	CORSOrigins     []string `mapstructure:"cors_origins"`
	MaxBodyBytes    int64    `mapstructure:"max_body_bytes"`
	ShutdownTimeout int      `mapstructure:"shutdown_timeout"` // milliseconds
}

// Addr returns the listen address for the HTTP server
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// LLMConfig holds settings for the chat completion backend.
type LLMConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

const (
	CatalogueSourceFile  = "file"
	CatalogueSourceRedis = "redis"
)

// CatalogueConfig describes where the product catalogue is read from at startup.
type CatalogueConfig struct {
	Source      string `mapstructure:"source"`
	Path        string `mapstructure:"path"`
	RedisKey    string `mapstructure:"redis_key"`
	LoadTimeout int    `mapstructure:"load_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PromptConfig holds the tunables of prompt assembly.
type PromptConfig struct {
	BrandName          string `mapstructure:"brand_name"`
	ContextMaxChars    int    `mapstructure:"context_max_chars"`
	HistoryLimit       int    `mapstructure:"history_limit"`
	MaxRecommendations int    `mapstructure:"max_recommendations"`
	StrictDefault      bool   `mapstructure:"strict_default"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
