// Package democonfig loads settings for the demo command that drives
// incrementum end to end. It is not part of the engine itself: a real
// integration configures a Manager and BuildContext programmatically, the
// way doc.go's example does.
package democonfig

import (
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Config holds the demo command's runtime settings, populated from
// incrementum.toml, INCREMENTUM_* environment variables, and CLI flags.
type Config struct {
	InputDir   string   `mapstructure:"input_dir" toml:"input_dir"`
	OutputDir  string   `mapstructure:"output_dir" toml:"output_dir"`
	StateDir   string   `mapstructure:"state_dir" toml:"state_dir"`
	BuilderID  string   `mapstructure:"builder_id" toml:"builder_id"`
	Includes   []string `mapstructure:"includes" toml:"includes"`
	Excludes   []string `mapstructure:"excludes" toml:"excludes"`
	FullBuild  bool     `mapstructure:"full_build" toml:"full_build"`
	Verbose    bool     `mapstructure:"verbose" toml:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// value not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("input_dir", "in")
	viper.SetDefault("output_dir", "out")
	viper.SetDefault("state_dir", ".incrementum")
	viper.SetDefault("builder_id", "incrementum.demo")
	viper.SetDefault("includes", []string{"**/*"})
	viper.SetDefault("excludes", []string{})
	viper.SetDefault("full_build", false)
	viper.SetDefault("verbose", false)

	viper.SetEnvPrefix("INCREMENTUM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("incrementum")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WriteExample marshals cfg as TOML into fs at path, used by the demo's
// "init" subcommand to scaffold an incrementum.toml a user can edit.
func WriteExample(fs afero.Fs, path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, path, data, 0o644)
}
