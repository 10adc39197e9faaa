// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, then configs/config.<APP_ENVIRONMENT>.yaml,
// then the environment. Missing files are not an error.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // ignore error if not found

	return build(v, env)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return build(v, os.Getenv("APP_ENVIRONMENT"))
}

func build(v *viper.Viper, env string) (*Config, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = env
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// envKeys binds every nested key to its canonical variable (server.port ->
// SERVER_PORT) plus the plain names operators already use for this kind of
// service. The environment always wins over the YAML files; the first set
// variable in the list is used.
var envKeys = map[string][]string{
	"server.port":              {"PORT"},
	"server.max_body_bytes":    nil,
	"llm.api_key":              {"OPENAI_API_KEY"},
	"llm.base_url":             {"OPENAI_BASE_URL"},
	"llm.model":                {"OPENAI_MODEL"},
	"llm.timeout":              nil,
	"llm.max_tokens":           nil,
	"llm.temperature":          nil,
	"catalogue.source":         nil,
	"catalogue.path":           {"PRODUCTS_PATH"},
	"catalogue.redis_key":      nil,
	"database.redis.address":   {"REDIS_ADDRESS"},
	"database.redis.password":  {"REDIS_PASSWORD"},
	"database.redis.db":        nil,
	"prompt.brand_name":        {"BRAND_NAME"},
	"prompt.context_max_chars": nil,
	"prompt.history_limit":     nil,
	"prompt.strict_default":    nil,
	"logging.level":            nil,
	"logging.format":           nil,
}

func bindEnvKeys(v *viper.Viper) {
	for key, aliases := range envKeys {
		canonical := strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
		_ = v.BindEnv(append([]string{key, canonical}, aliases...)...)
	}
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			// An unset variable expands to "" so a placeholder never
			// survives as a literal value.
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "shop-assistant"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15000
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}

	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 30000
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 600
	}

	if cfg.Catalogue.Source == "" {
		cfg.Catalogue.Source = CatalogueSourceFile
	}
	if cfg.Catalogue.Path == "" {
		cfg.Catalogue.Path = "data/products.json"
	}
	if cfg.Catalogue.RedisKey == "" {
		cfg.Catalogue.RedisKey = "catalogue:products"
	}
	if cfg.Catalogue.LoadTimeout == 0 {
		cfg.Catalogue.LoadTimeout = 5000
	}

	if cfg.Prompt.BrandName == "" {
		cfg.Prompt.BrandName = "StickerShop"
	}
	if cfg.Prompt.ContextMaxChars == 0 {
		cfg.Prompt.ContextMaxChars = 6000
	}
	if cfg.Prompt.HistoryLimit == 0 {
		cfg.Prompt.HistoryLimit = 12
	}
	if cfg.Prompt.MaxRecommendations == 0 {
		cfg.Prompt.MaxRecommendations = 3
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// validateConfig validates structural configuration. A missing LLM api key is
// deliberately not checked here: chat requests report it individually.
func validateConfig(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", cfg.Server.Port)
	}
	if cfg.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}

	switch cfg.Catalogue.Source {
	case CatalogueSourceFile:
	case CatalogueSourceRedis:
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for the redis catalogue source")
		}
	default:
		return fmt.Errorf("catalogue.source %q is not supported", cfg.Catalogue.Source)
	}

	if cfg.LLM.Timeout < 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}
	if cfg.LLM.MaxTokens < 0 {
		return fmt.Errorf("llm.max_tokens must be positive")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2]")
	}

	if cfg.Prompt.ContextMaxChars < 0 || cfg.Prompt.HistoryLimit < 0 || cfg.Prompt.MaxRecommendations < 0 {
		return fmt.Errorf("prompt limits must be positive")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
