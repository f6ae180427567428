// internal/common/config/config.go
package config

import "fmt"

type Config struct {
	App       AppConfig             `mapstructure:"app"`
	Server    ServerConfig          `mapstructure:"server"`
	Agent     AgentConfig           `mapstructure:"agent"`
	Database  DatabaseConfig        `mapstructure:"database"`
	Providers ProvidersConfig       `mapstructure:"providers"`
	APIs      APIsConfig            `mapstructure:"apis"`
	Memory    MemoryConfig          `mapstructure:"memory"`
	Dialogues DialoguesConfig       `mapstructure:"dialogues"`
	Tools     map[string]ToolConfig `mapstructure:"tools"` // keyed by tool name, "." replaced with "_"
	Registry  RegistryConfig        `mapstructure:"registry"`
	Logging   LoggingConfig         `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// AgentConfig tunes intent routing and the price-compare pipeline.
type AgentConfig struct {
	MinResults      int    `mapstructure:"min_results"`
	TrialTimeout    int    `mapstructure:"trial_timeout"` // milliseconds
	TrialMaxResults int    `mapstructure:"trial_max_results"`
	DefaultRegion   string `mapstructure:"default_region"`
	DefaultCurrency string `mapstructure:"default_currency"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ProvidersConfig selects the listing sources used by price comparison.
type ProvidersConfig struct {
	Shopping ShoppingProviderConfig `mapstructure:"shopping"`
	Catalog  CatalogProviderConfig  `mapstructure:"catalog"`
}

type ShoppingProviderConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Engine     string `mapstructure:"engine"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxResults int    `mapstructure:"max_results"`
}

type CatalogProviderConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Index      string `mapstructure:"index"`
	MaxResults int    `mapstructure:"max_results"`
}

type APIsConfig struct {
	GenAI struct {
		BaseURL    string `mapstructure:"base_url"`
		APIKey     string `mapstructure:"api_key"`
		Timeout    int    `mapstructure:"timeout"` // milliseconds
		MaxRetries int    `mapstructure:"max_retries"`
	} `mapstructure:"genai"`
}

// MemoryConfig selects the short-term memory backend: "memory" or "redis".
type MemoryConfig struct {
	Backend string `mapstructure:"backend"`
	TTL     int    `mapstructure:"ttl"` // milliseconds
}

type DialoguesConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	HistoryLimit int  `mapstructure:"history_limit"`
}

// ToolConfig holds per-tool runtime settings keyed by tool name.
type ToolConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Timeout int  `mapstructure:"timeout"` // milliseconds
}

type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
