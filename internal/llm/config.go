package llm

import "time"

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
