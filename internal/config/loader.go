package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix is the prefix of every environment override.
const envPrefix = "SURVEY"

// ConfigPathEnv names the variable holding an optional YAML config path.
const ConfigPathEnv = "SURVEY_CONFIG"

// newViper builds a viper instance reading YAML, with SURVEY_ env overrides
// where nested keys like "redis.addr" map to SURVEY_REDIS_ADDR.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerDefaults(v)
	return v
}

// Load reads the YAML file at configPath, applies SURVEY_* overrides and
// defaults, and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from SURVEY_* environment variables only.
//
//	SURVEY_<SECTION>_<FIELD>   e.g.  SURVEY_SERVER_PORT, SURVEY_REDIS_ADDR
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// LoadDefault loads the file named by SURVEY_CONFIG when set, otherwise the
// environment alone. An explicit path argument takes precedence over both.
func LoadDefault(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path == "" {
		return LoadFromEnv()
	}
	return Load(path)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}
