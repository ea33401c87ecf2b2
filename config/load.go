package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/buildsys/brick-api/errors"
)

// EnvPrefix is prepended to every environment override, e.g.
// BRICK_SERVER_PORT or BRICK_GRAPH_FILES="a.ttl,b.ttl".
const EnvPrefix = "BRICK"

// DefaultConfigFile is read from the working directory when no path is given.
const DefaultConfigFile = "brick.toml"

// NewViper returns a viper instance with defaults, environment binding and,
// when present, the TOML file at path merged in. Callers may bind flags on
// the result before passing it to FromViper.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if _, err := os.Stat(path); err != nil {
		if explicit {
			return nil, errors.Wrapf(err, "config file %s", path)
		}
		return v, nil
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}
	return v, nil
}

// FromViper unmarshals and validates the configuration.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads configuration from defaults, the optional file and the
// environment.
func Load(path string) (*Config, error) {
	v, err := NewViper(path)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}
