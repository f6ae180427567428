// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	MemoryBackendInProcess = "memory"
	MemoryBackendRedis     = "redis"
)

var envPlaceholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::([^}]*))?\}`)

func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
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
	_ = v.MergeInConfig()

	return build(v)
}

func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return build(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func build(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env", "../../../.env"}
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
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} and ${VAR:default} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok || !strings.Contains(strVal, "${") {
			continue
		}
		v.Set(key, expandPlaceholders(strVal))
	}
}

func expandPlaceholders(s string) string {
	return envPlaceholder.ReplaceAllStringFunc(s, func(m string) string {
		parts := envPlaceholder.FindStringSubmatch(m)
		if val, ok := os.LookupEnv(parts[1]); ok && val != "" {
			return val
		}
		return parts[2]
	})
}

func overrideEmptyConfig(cfg *Config) {
	if cfg.Providers.Shopping.APIKey == "" {
		if val := os.Getenv("SHOPPING_API_KEY"); val != "" {
			cfg.Providers.Shopping.APIKey = val
		}
	}
	if cfg.APIs.GenAI.APIKey == "" {
		if val := os.Getenv("GENAI_API_KEY"); val != "" {
			cfg.APIs.GenAI.APIKey = val
		}
	}
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "shopping-agent"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}

	if cfg.Agent.MinResults == 0 {
		cfg.Agent.MinResults = 12
	}
	if cfg.Agent.TrialTimeout == 0 {
		cfg.Agent.TrialTimeout = 4000
	}
	if cfg.Agent.TrialMaxResults == 0 {
		cfg.Agent.TrialMaxResults = 6
	}
	if cfg.Agent.DefaultRegion == "" {
		cfg.Agent.DefaultRegion = "AU"
	}
	if cfg.Agent.DefaultCurrency == "" {
		cfg.Agent.DefaultCurrency = "AUD"
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if cfg.Providers.Shopping.Engine == "" {
		cfg.Providers.Shopping.Engine = "google_shopping"
	}
	if cfg.Providers.Shopping.Timeout == 0 {
		cfg.Providers.Shopping.Timeout = 10000
	}
	if cfg.Providers.Shopping.MaxResults == 0 {
		cfg.Providers.Shopping.MaxResults = 40
	}
	if cfg.Providers.Catalog.Index == "" {
		cfg.Providers.Catalog.Index = "listings"
	}
	if cfg.Providers.Catalog.MaxResults == 0 {
		cfg.Providers.Catalog.MaxResults = 40
	}

	if cfg.APIs.GenAI.Timeout == 0 {
		cfg.APIs.GenAI.Timeout = 20000
	}
	if cfg.APIs.GenAI.MaxRetries == 0 {
		cfg.APIs.GenAI.MaxRetries = 2
	}

	if cfg.Memory.Backend == "" {
		cfg.Memory.Backend = MemoryBackendInProcess
	}
	if cfg.Memory.TTL == 0 {
		cfg.Memory.TTL = int((24 * time.Hour).Milliseconds())
	}
	if cfg.Dialogues.HistoryLimit == 0 {
		cfg.Dialogues.HistoryLimit = 5
	}

	if cfg.Registry.Path == "" {
		cfg.Registry.Path = "configs/tool-registry.json"
	}

	for name, tool := range cfg.Tools {
		if tool.Timeout == 0 {
			tool.Timeout = 30000
		}
		cfg.Tools[name] = tool
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Agent.MinResults < 0 {
		return fmt.Errorf("agent.min_results must not be negative")
	}

	switch cfg.Memory.Backend {
	case MemoryBackendInProcess:
	case MemoryBackendRedis:
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for the redis memory backend")
		}
	default:
		return fmt.Errorf("memory.backend %q is not supported", cfg.Memory.Backend)
	}

	if cfg.Dialogues.Enabled {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required when dialogues are enabled")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required when dialogues are enabled")
		}
	}

	if !cfg.Providers.Shopping.Enabled && !cfg.Providers.Catalog.Enabled {
		return fmt.Errorf("at least one listing provider must be enabled")
	}
	if cfg.Providers.Shopping.Enabled && cfg.Providers.Shopping.BaseURL == "" {
		return fmt.Errorf("providers.shopping.base_url is required")
	}
	if cfg.Providers.Catalog.Enabled && cfg.Database.Elasticsearch.GetURL() == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required for the catalog provider")
	}

	return nil
}

func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// toolKey maps a dotted tool name onto its config key; viper splits keys on ".".
func toolKey(toolName string) string {
	return strings.ReplaceAll(toolName, ".", "_")
}

// GetToolConfig returns the settings for a tool, enabled with a 30s timeout when unset.
func GetToolConfig(cfg *Config, toolName string) ToolConfig {
	if tool, exists := cfg.Tools[toolKey(toolName)]; exists {
		return tool
	}
	return ToolConfig{Enabled: true, Timeout: 30000}
}

func IsToolEnabled(cfg *Config, toolName string) bool {
	if tool, exists := cfg.Tools[toolKey(toolName)]; exists {
		return tool.Enabled
	}
	return true
}
