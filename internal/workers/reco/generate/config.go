// internal/workers/reco/generate/config.go
package recogenerate

import "time"

type Config struct {
	GenAIBaseURL    string
	APIKey          string
	Timeout         time.Duration
	MaxRetries      int
	DefaultTopK     int
	DefaultCurrency string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:         20 * time.Second,
		MaxRetries:      2,
		DefaultTopK:     5,
		DefaultCurrency: "AUD",
	}
}
