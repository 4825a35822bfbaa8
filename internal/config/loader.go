package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig reads the YAML config file at path and applies environment
// overrides with the MARKETPLACE_SYNC_ prefix (e.g. MARKETPLACE_SYNC_SERVER_PORT).
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("MARKETPLACE_SYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Marketplace.BaseURL == "" {
		return nil, fmt.Errorf("marketplace.base_url is required")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "10m")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)

	v.SetDefault("marketplace.page_size", 100)
	v.SetDefault("marketplace.request_timeout", "30s")

	v.SetDefault("sync.max_pages", 0)
	v.SetDefault("sync.rate_limit_cooldown", "60s")
	v.SetDefault("sync.rate_limit_max_retries", 0)

	v.SetDefault("scheduler.enabled", false)
}
