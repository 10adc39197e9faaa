package prompt

import "shop-assistant/internal/models"

const (
	DefaultBrandName          = "StickerShop"
	DefaultContextMaxChars    = 6000
	DefaultHistoryLimit       = 12
	DefaultMaxRecommendations = 3
	DefaultModel              = "gpt-4o-mini"
	DefaultMaxTokens          = 600
)

type Config struct {
	BrandName          string
	ContextMaxChars    int
	HistoryLimit       int
	MaxRecommendations int
	Decoding           models.DecodingConfig
}

func LoadConfig() *Config {
	return &Config{
		BrandName:          DefaultBrandName,
		ContextMaxChars:    DefaultContextMaxChars,
		HistoryLimit:       DefaultHistoryLimit,
		MaxRecommendations: DefaultMaxRecommendations,
		Decoding: models.DecodingConfig{
			Model:       DefaultModel,
			Temperature: 0,
			MaxTokens:   DefaultMaxTokens,
		},
	}
}

func (c Config) withDefaults() Config {
	if c.BrandName == "" {
		c.BrandName = DefaultBrandName
	}
	if c.ContextMaxChars <= 0 {
		c.ContextMaxChars = DefaultContextMaxChars
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.MaxRecommendations <= 0 {
		c.MaxRecommendations = DefaultMaxRecommendations
	}
	if c.Decoding.Model == "" {
		c.Decoding.Model = DefaultModel
	}
	if c.Decoding.MaxTokens <= 0 {
		c.Decoding.MaxTokens = DefaultMaxTokens
	}
	return c
}
