package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Port                string  `mapstructure:"PORT"`
	LogMode             string  `mapstructure:"LOG_MODE"`
	DatabaseDriver      string  `mapstructure:"DATABASE_DRIVER"`
	DatabasePath        string  `mapstructure:"DATABASE_PATH"`
	DatabaseURL         string  `mapstructure:"DATABASE_URL"`
	MissionCatalogPath  string  `mapstructure:"MISSION_CATALOG_PATH"`
	JWTSecret           string  `mapstructure:"JWT_SECRET"`
	DiscordClientID     string  `mapstructure:"DISCORD_CLIENT_ID"`
	DiscordClientSecret string  `mapstructure:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURL  string  `mapstructure:"DISCORD_REDIRECT_URL"`
	DiscordGuildID      string  `mapstructure:"DISCORD_GUILD_ID"`
	DiscordBotToken     string  `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordAdminRoleID  string  `mapstructure:"DISCORD_ADMIN_ROLE_ID"`
	FrontendURL         string  `mapstructure:"FRONTEND_URL"`
	RateLimitRPS        float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst      int     `mapstructure:"RATE_LIMIT_BURST"`
}

var boundKeys = []string{
	"PORT",
	"LOG_MODE",
	"DATABASE_DRIVER",
	"DATABASE_PATH",
	"DATABASE_URL",
	"MISSION_CATALOG_PATH",
	"JWT_SECRET",
	"DISCORD_CLIENT_ID",
	"DISCORD_CLIENT_SECRET",
	"DISCORD_REDIRECT_URL",
	"DISCORD_GUILD_ID",
	"DISCORD_BOT_TOKEN",
	"DISCORD_ADMIN_ROLE_ID",
	"FRONTEND_URL",
	"RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST",
}

// LoadConfig reads configuration from the environment and, when configFile is
// not empty, from that file first. Environment variables win over the file.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_MODE", "development")
	v.SetDefault("DATABASE_DRIVER", DriverSQLite)
	v.SetDefault("DATABASE_PATH", "engagement.db")
	v.SetDefault("DISCORD_REDIRECT_URL", "http://127.0.0.1:8080/auth/discord/callback")
	v.SetDefault("FRONTEND_URL", "http://127.0.0.1:4000/")
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)

	for _, key := range boundKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}
