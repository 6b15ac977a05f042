// Package config loads connection settings for a WAMP client from
// environment variables and an optional config file, grounded on
// go-server-3/internal/config/config.go's viper-defaults idiom.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything needed to dial a router and join a realm.
type Config struct {
	Connect ConnectConfig `mapstructure:"connect"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ConnectConfig describes the router endpoint and session parameters.
type ConnectConfig struct {
	URL              string        `mapstructure:"url"`
	Realm            string        `mapstructure:"realm"`
	Serializer       string        `mapstructure:"serializer"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	MaxReceiveLength int           `mapstructure:"max_receive_length"`
}

// AuthConfig configures WAMP-CRA/Ticket authentication, when the router
// requires it.
type AuthConfig struct {
	AuthID string `mapstructure:"authid"`
	Secret string `mapstructure:"secret"`
	Ticket string `mapstructure:"ticket"`
}

// LoggingConfig controls zap logger level/encoding.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// MetricsConfig controls the optional Prometheus HTTP endpoint.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
	Endpoint   string `mapstructure:"endpoint"`
}

// Load reads configuration from environment variables prefixed WAMP_ and
// an optional "wampclient" config file in the working directory.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("connect.url", "ws://127.0.0.1:8080/ws")
	v.SetDefault("connect.realm", "realm1")
	v.SetDefault("connect.serializer", "json")
	v.SetDefault("connect.dial_timeout", 10*time.Second)
	v.SetDefault("connect.max_receive_length", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", ":9094")
	v.SetDefault("metrics.endpoint", "/metrics")

	v.SetConfigName("wampclient")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("WAMP")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config unmarshal: %w", err)
	}

	if cfg.Connect.URL == "" {
		return Config{}, fmt.Errorf("connect.url must not be empty")
	}

	return cfg, nil
}
