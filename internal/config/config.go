package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Notifier NotifierConfig `mapstructure:"notifier"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

// SMTPConfig is filled from the config file and then overridden by SMTP_*
// environment variables, so credentials stay out of checked-in config.
type SMTPConfig struct {
	Host     string `mapstructure:"host" envconfig:"HOST"`
	Port     int    `mapstructure:"port" envconfig:"PORT"`
	Username string `mapstructure:"username" envconfig:"USERNAME"`
	Password string `mapstructure:"password" envconfig:"PASSWORD"`
	From     string `mapstructure:"from" envconfig:"FROM"`
}

type NotifierConfig struct {
	MaxRetries              int `mapstructure:"max_retries"`
	BatchSize               int `mapstructure:"batch_size"`
	ClaimTTLSeconds         int `mapstructure:"claim_ttl_seconds"`
	DispatchIntervalSeconds int `mapstructure:"dispatch_interval_seconds"`
	ReminderIntervalSeconds int `mapstructure:"reminder_interval_seconds"`
	ReminderWindowSeconds   int `mapstructure:"reminder_window_seconds"`
	DefaultLeadMinutes      int `mapstructure:"default_lead_minutes"`
	MinLeadMinutes          int `mapstructure:"min_lead_minutes"`
	MaxLeadMinutes          int `mapstructure:"max_lead_minutes"`
	SettingsCacheTTLSeconds int `mapstructure:"settings_cache_ttl_seconds"`
}

func (c NotifierConfig) ClaimTTL() time.Duration {
	return time.Duration(c.ClaimTTLSeconds) * time.Second
}

func (c NotifierConfig) DispatchInterval() time.Duration {
	return time.Duration(c.DispatchIntervalSeconds) * time.Second
}

func (c NotifierConfig) ReminderInterval() time.Duration {
	return time.Duration(c.ReminderIntervalSeconds) * time.Second
}

func (c NotifierConfig) SettingsCacheTTL() time.Duration {
	return time.Duration(c.SettingsCacheTTLSeconds) * time.Second
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeout_seconds", 30)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("redis.enabled", false)

	viper.SetDefault("smtp.port", 587)

	viper.SetDefault("notifier.max_retries", 3)
	viper.SetDefault("notifier.batch_size", 25)
	viper.SetDefault("notifier.claim_ttl_seconds", 300)
	viper.SetDefault("notifier.dispatch_interval_seconds", 30)
	viper.SetDefault("notifier.reminder_interval_seconds", 30)
	viper.SetDefault("notifier.reminder_window_seconds", 90)
	viper.SetDefault("notifier.default_lead_minutes", 60)
	viper.SetDefault("notifier.min_lead_minutes", 30)
	viper.SetDefault("notifier.max_lead_minutes", 1440)
	viper.SetDefault("notifier.settings_cache_ttl_seconds", 60)
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing file is fine; defaults plus environment cover it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("smtp", &config.SMTP); err != nil {
		return nil, fmt.Errorf("failed to process SMTP environment: %w", err)
	}

	return &config, nil
}
