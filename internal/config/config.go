// Package config loads vclpp settings from defaults, an optional
// .vclpp.yaml file, VCLPP_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// FileName is the config file looked up in the working directory.
	FileName  = ".vclpp"
	EnvPrefix = "VCLPP"
)

// Config keys, shared with the flag names they are bound to.
const (
	KeyExtension   = "extension"
	KeyVCLJunk     = "vcljunk"
	KeyIncludeDirs = "include_dirs"
	KeyVerbose     = "verbose"
)

type Config struct {
	Extension   string
	VCLJunk     bool
	IncludeDirs []string
	Verbose     bool
	// File is the config file that was read, if any.
	File string
}

func DefaultConfig() *Config {
	return &Config{
		Extension:   ".vsm",
		VCLJunk:     false,
		IncludeDirs: []string{},
		Verbose:     false,
	}
}

type LoadOptions struct {
	// ConfigFile overrides the lookup of .vclpp.yaml in SearchDirs.
	ConfigFile string
	SearchDirs []string
	// Flags are bound by their config key name; unchanged flags do not
	// override file or environment values.
	Flags *pflag.FlagSet
	// Fs is the filesystem config files are read from, the OS by default.
	Fs afero.Fs
}

// Load resolves the configuration. Precedence: flags, environment, file,
// defaults.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	if opts.Fs != nil {
		v.SetFs(opts.Fs)
	}

	defaults := DefaultConfig()
	v.SetDefault(KeyExtension, defaults.Extension)
	v.SetDefault(KeyVCLJunk, defaults.VCLJunk)
	v.SetDefault(KeyIncludeDirs, defaults.IncludeDirs)
	v.SetDefault(KeyVerbose, defaults.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for _, key := range []string{KeyExtension, KeyVCLJunk, KeyIncludeDirs, KeyVerbose} {
			if f := opts.Flags.Lookup(flagName(key)); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", f.Name, err)
				}
			}
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		for _, dir := range opts.SearchDirs {
			v.AddConfigPath(dir)
		}
	}

	if opts.ConfigFile != "" || len(opts.SearchDirs) > 0 {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if opts.ConfigFile != "" || !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{
		Extension:   v.GetString(KeyExtension),
		VCLJunk:     v.GetBool(KeyVCLJunk),
		IncludeDirs: v.GetStringSlice(KeyIncludeDirs),
		Verbose:     v.GetBool(KeyVerbose),
		File:        v.ConfigFileUsed(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that would produce an unusable output path.
func (c *Config) Validate() error {
	if c.Extension == "" {
		return errors.New("extension must not be empty")
	}
	if !strings.HasPrefix(c.Extension, ".") {
		return fmt.Errorf("extension %q must start with '.'", c.Extension)
	}
	if strings.ContainsAny(c.Extension, `/\`) {
		return fmt.Errorf("extension %q must not contain path separators", c.Extension)
	}
	return nil
}

// flagName maps a config key to its command line flag.
func flagName(key string) string {
	if key == KeyIncludeDirs {
		return "include"
	}
	return strings.ReplaceAll(key, "_", "-")
}
