// internal/workers/price/compare-full/config.go
package comparefull

type Config struct {
	MinResults      int
	DefaultRegion   string
	DefaultCurrency string
}

func LoadConfig() *Config {
	return &Config{
		MinResults:      12,
		DefaultRegion:   "AU",
		DefaultCurrency: "AUD",
	}
}
