package config

import (
	"time"
)

type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	Marketplace MarketplaceConfig `mapstructure:"marketplace"`
	Proxy       ProxyConfig       `mapstructure:"proxy"`
	Sync        SyncConfig        `mapstructure:"sync"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

type MarketplaceConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	PageSize       int    `mapstructure:"page_size"`
	RequestTimeout string `mapstructure:"request_timeout"`
}

func (m MarketplaceConfig) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(m.RequestTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

type ProxyConfig struct {
	Endpoints []string `mapstructure:"endpoints"`
}

type SyncConfig struct {
	MaxPages            int    `mapstructure:"max_pages"`
	RateLimitCooldown   string `mapstructure:"rate_limit_cooldown"`
	RateLimitMaxRetries int    `mapstructure:"rate_limit_max_retries"`
}

func (s SyncConfig) GetRateLimitCooldown() time.Duration {
	d, err := time.ParseDuration(s.RateLimitCooldown)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

type SchedulerConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	Jobs    []JobConfig `mapstructure:"jobs"`
}

type JobConfig struct {
	TenantID string   `mapstructure:"tenant_id"`
	APIKey   string   `mapstructure:"api_key"`
	Kinds    []string `mapstructure:"kinds"`
	Schedule string   `mapstructure:"schedule"`
}

type ServerConfig struct {
	Port         int      `mapstructure:"port"`
	Host         string   `mapstructure:"host"`
	AuthToken    string   `mapstructure:"auth_token"`
	ReadTimeout  string   `mapstructure:"read_timeout"`
	WriteTimeout string   `mapstructure:"write_timeout"`
	CorsOrigins  []string `mapstructure:"cors_origins"`
}

func (s ServerConfig) GetReadTimeout() time.Duration {
	d, _ := time.ParseDuration(s.ReadTimeout)
	return d
}

func (s ServerConfig) GetWriteTimeout() time.Duration {
	d, _ := time.ParseDuration(s.WriteTimeout)
	return d
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
