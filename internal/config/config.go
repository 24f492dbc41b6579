package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "discord-statuskeeper/internal/errors"
)

type Config struct {
	Discord DiscordConfig `mapstructure:"discord"`
	App     AppConfig     `mapstructure:"app"`
	Status  StatusConfig  `mapstructure:"status"`
}

type DiscordConfig struct {
	Token   string `mapstructure:"token"`
	GuildID string `mapstructure:"guild_id"`
}

type AppConfig struct {
	Port     int    `mapstructure:"port"`
	APIToken string `mapstructure:"api_token"`
}

type StatusConfig struct {
	Path            string `mapstructure:"path"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
}

func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")

	// Environment variables
	viper.SetEnvPrefix("")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// The conventional bare env names, including the legacy TOKEN fallback.
	_ = viper.BindEnv("discord.token", "DISCORD_TOKEN", "TOKEN")
	_ = viper.BindEnv("discord.guild_id", "DISCORD_GUILD_ID", "GUILD_ID")
	_ = viper.BindEnv("app.port", "PORT")
	_ = viper.BindEnv("app.api_token", "API_TOKEN")

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// A bot without a token cannot do anything useful; fail fast instead
	// of limping along without a gateway connection.
	if cfg.Discord.Token == "" {
		return nil, apperrors.NewConfigError("DISCORD_TOKEN is not set", nil)
	}

	return &cfg, nil
}

func setDefaults() {
	// Discord defaults
	viper.SetDefault("discord.token", "")
	viper.SetDefault("discord.guild_id", "")

	// App defaults
	viper.SetDefault("app.port", 8080)
	viper.SetDefault("app.api_token", "")

	// Status defaults
	viper.SetDefault("status.path", "data/status.json")
	viper.SetDefault("status.interval_seconds", 60)
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.Status.IntervalSeconds) * time.Second
}
