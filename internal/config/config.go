// Package config provides the service configuration model and its loader.
//
// Configuration comes from three layers, later ones winning:
//
//  1. built-in defaults (see SetDefaults),
//  2. an optional YAML file,
//  3. TEMPLATES_* environment variables, where nested keys join with "_"
//     (TEMPLATES_STORAGE_DSN sets storage.dsn).
//
// Callers may apply a final layer of explicit overrides, typically from CLI
// flags, through Load's overrides argument.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "TEMPLATES"

// Config is the complete service configuration.
type Config struct {
	Server  Server  `mapstructure:"server" yaml:"server" json:"server"`
	Storage Storage `mapstructure:"storage" yaml:"storage" json:"storage"`
	Metrics Metrics `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
	Log     Log     `mapstructure:"log" yaml:"log" json:"log"`
}

// Server configures the HTTP API.
type Server struct {
	Addr            string        `mapstructure:"addr" yaml:"addr" json:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	// BodyLimit caps request bodies, in echo's size notation ("1M", "512K").
	BodyLimit string `mapstructure:"body_limit" yaml:"body_limit" json:"body_limit"`
}

// Storage selects the template catalog backend.
type Storage struct {
	Kind     string `mapstructure:"kind" yaml:"kind" json:"kind"` // sqlite | postgres
	DSN      string `mapstructure:"dsn" yaml:"dsn" json:"dsn"`
	MaxConns int    `mapstructure:"max_conns" yaml:"max_conns" json:"max_conns"`
}

// Metrics selects and configures the metrics backend.
type Metrics struct {
	Backend        string   `mapstructure:"backend" yaml:"backend" json:"backend"` // none | prometheus | datadog
	Job            string   `mapstructure:"job" yaml:"job" json:"job"`
	PushgatewayURL string   `mapstructure:"pushgateway_url" yaml:"pushgateway_url" json:"pushgateway_url"`
	DatadogAddr    string   `mapstructure:"datadog_addr" yaml:"datadog_addr" json:"datadog_addr"`
	Namespace      string   `mapstructure:"namespace" yaml:"namespace" json:"namespace"`
	Tags           []string `mapstructure:"tags" yaml:"tags" json:"tags"`
}

// Log configures the process logger.
type Log struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`    // debug | info | warn | error
	Format string `mapstructure:"format" yaml:"format" json:"format"` // json | text
}

// SetDefaults registers the built-in defaults on v. Every key the service
// reads must have a default so environment overrides are picked up by
// Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.body_limit", "1M")

	v.SetDefault("storage.kind", "sqlite")
	v.SetDefault("storage.dsn", "file:templates.db")
	v.SetDefault("storage.max_conns", 0)

	v.SetDefault("metrics.backend", "none")
	v.SetDefault("metrics.job", "to-orderly")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.datadog_addr", "")
	v.SetDefault("metrics.namespace", "")
	v.SetDefault("metrics.tags", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load builds a Config from defaults, the optional YAML file at path, the
// environment and overrides (dotted keys, e.g. "server.addr").
func Load(path string, overrides map[string]any) (Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	for k, val := range overrides {
		v.Set(k, val)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return c, nil
}
