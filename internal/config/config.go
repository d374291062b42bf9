// Package config loads contactwriter's runtime configuration the way
// beads' cmd/bd loads its own: an optional YAML file providing
// defaults, environment variables and command-line flags layered on top
// via spf13/viper, grounded on beads' internal/config package
// (local_config.go, yaml_config.go).
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is contactwriter's full runtime configuration.
type Config struct {
	// DBPath is the sqlite database file path. ":memory:" for an ephemeral
	// database.
	DBPath string `mapstructure:"db" yaml:"db"`
	// AggregationEnabled toggles the matcher/composer pipeline; false
	// persists contacts without ever creating or updating aggregates.
	AggregationEnabled bool `mapstructure:"aggregation" yaml:"aggregation"`
	// MatchThreshold overrides the matcher's default score cutoff (7).
	MatchThreshold int `mapstructure:"match-threshold" yaml:"match-threshold"`
}

// Default returns the built-in defaults, applied before any file, env or
// flag layer.
func Default() Config {
	return Config{
		DBPath:             "contactwriter.db",
		AggregationEnabled: true,
		MatchThreshold:     7,
	}
}

// Load builds a Config by layering, in increasing priority: built-in
// defaults, an optional YAML file at configPath (if it exists),
// CONTACTWRITER_*-prefixed environment variables, and whatever flags the
// caller already bound into v (cmd/contactwriter binds cobra flags into v
// before calling Load).
func Load(v *viper.Viper, configPath string) (Config, error) {
	defaults := Default()
	v.SetDefault("db", defaults.DBPath)
	v.SetDefault("aggregation", defaults.AggregationEnabled)
	v.SetDefault("match-threshold", defaults.MatchThreshold)

	v.SetEnvPrefix("CONTACTWRITER")
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			raw, err := os.ReadFile(configPath)
			if err != nil {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
			var fileValues map[string]any
			if err := yaml.Unmarshal(raw, &fileValues); err != nil {
				return Config{}, fmt.Errorf("parse config file: %w", err)
			}
			if err := v.MergeConfigMap(fileValues); err != nil {
				return Config{}, fmt.Errorf("merge config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
