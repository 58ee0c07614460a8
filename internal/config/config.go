// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	NodeHost      string `mapstructure:"node_host"`
	NodePort      int    `mapstructure:"node_port"`
	Password      string `mapstructure:"password"`
	UserID        string `mapstructure:"user_id"`
	ClientName    string `mapstructure:"client_name"`
	EventPrefix   string `mapstructure:"event_prefix"`
	BackoffBaseMs int    `mapstructure:"backoff_base_ms"`
	BackoffMaxMs  int    `mapstructure:"backoff_max_ms"`
	MaxReconnects int    `mapstructure:"max_reconnects"`
	RestTimeoutMs int    `mapstructure:"rest_timeout_ms"`
	DebugLogging  bool   `mapstructure:"debug_logging"`
	LogFile       string `mapstructure:"log_file"`
}

const (
	DefaultNodeHost      = "localhost"
	DefaultNodePort      = 2333
	DefaultClientName    = "nodelink"
	DefaultEventPrefix   = "nodelink_"
	DefaultBackoffBaseMs = 1000
	DefaultBackoffMaxMs  = 60000
	DefaultMaxReconnects = 5
	DefaultRestTimeoutMs = 5000
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"node_host":       DefaultNodeHost,
		"node_port":       DefaultNodePort,
		"client_name":     DefaultClientName,
		"event_prefix":    DefaultEventPrefix,
		"backoff_base_ms": DefaultBackoffBaseMs,
		"backoff_max_ms":  DefaultBackoffMaxMs,
		"max_reconnects":  DefaultMaxReconnects,
		"rest_timeout_ms": DefaultRestTimeoutMs,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.Password == "" {
		return errors.New("missing node password in configuration")
	}
	if cfg.UserID == "" {
		return errors.New("missing user_id in configuration")
	}
	if cfg.NodeHost == "" {
		return errors.New("missing node_host in configuration")
	}
	if cfg.NodePort <= 0 || cfg.NodePort > 65535 {
		return errors.New("invalid node_port")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.BackoffBaseMs <= 0 {
		return errors.New("invalid backoff_base_ms")
	}
	if cfg.BackoffMaxMs < cfg.BackoffBaseMs {
		return errors.New("backoff_max_ms must be >= backoff_base_ms")
	}
	if cfg.RestTimeoutMs <= 0 {
		return errors.New("invalid rest_timeout_ms")
	}
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("NODELINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envPassword := v.GetString("PASSWORD")
	if envPassword != "" {
		cfg.Password = envPassword
	}

	envUserID := v.GetString("USER_ID")
	if envUserID != "" {
		cfg.UserID = envUserID
	}

	envHost := v.GetString("NODE_HOST")
	if envHost != "" {
		cfg.NodeHost = envHost
	}
	return nil
}

// WebsocketURL is the node's websocket address.
func (c *Config) WebsocketURL() string {
	return fmt.Sprintf("ws://%s:%d", c.NodeHost, c.NodePort)
}

// RestURL is the node's HTTP API address.
func (c *Config) RestURL() string {
	return fmt.Sprintf("http://%s:%d", c.NodeHost, c.NodePort)
}

// BackoffBase returns the base reconnect delay.
func (c *Config) BackoffBase() time.Duration {
	return time.Duration(c.BackoffBaseMs) * time.Millisecond
}

// BackoffMax returns the reconnect delay cap.
func (c *Config) BackoffMax() time.Duration {
	return time.Duration(c.BackoffMaxMs) * time.Millisecond
}

// RestTimeout returns the track resolver request timeout.
func (c *Config) RestTimeout() time.Duration {
	return time.Duration(c.RestTimeoutMs) * time.Millisecond
}
