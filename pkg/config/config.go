/*
 * Copyright 2021-present by Nedim Sabic Sabic
 * https://www.fibratus.io
 * All Rights Reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config assembles pstool settings from command line flags,
// environment variables, and the optional configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rabbitstack/pstool/pkg/ps"
	"github.com/rabbitstack/pstool/pkg/tuner"
	"github.com/rabbitstack/pstool/pkg/util/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	configFile = "config-file"
	access     = "access"
	profiles   = "profiles"

	envPrefix = "PSTOOL"
)

// Config stores configuration options for fine-tuning the behaviour of pstool.
type Config struct {
	// Log contains log-specific configuration options
	Log log.Config `json:"logging" yaml:"logging"`
	// Tuner contains affinity profiles and the wait settings
	Tuner tuner.Config `json:"tuner" yaml:"tuner"`
	// Access are the rights processes are opened with
	Access ps.Access `json:"access" yaml:"access"`

	flags *pflag.FlagSet
	viper *viper.Viper
	opts  *Options
}

// Options determines which config flags are toggled depending on the command type.
type Options struct {
	tuner bool
}

// Option is the type alias for the config option.
type Option func(*Options)

// WithTuner enables the flags that control the affinity tuner.
func WithTuner() Option {
	return func(o *Options) {
		o.tuner = true
	}
}

// NewWithOpts builds a new configuration store from a variety of sources such as configuration files,
// environment variables or command line flags.
func NewWithOpts(options ...Option) *Config {
	opts := &Options{}
	for _, opt := range options {
		opt(opts)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	c := &Config{
		viper: v,
		flags: new(pflag.FlagSet),
		opts:  opts,
	}
	c.addFlags()

	return c
}

// MustViperize adds the flag set to the Cobra command and binds them within the Viper flags.
func (c *Config) MustViperize(cmd *cobra.Command) {
	cmd.PersistentFlags().AddFlagSet(c.flags)
	if err := c.viper.BindPFlags(c.flags); err != nil {
		panic(err)
	}
}

// File returns the config file path.
func (c *Config) File() string { return c.viper.GetString(configFile) }

// TryLoadFile attempts to load the configuration file from specified path on the file system.
func (c *Config) TryLoadFile(file string) error {
	c.viper.SetConfigFile(file)
	return c.viper.ReadInConfig()
}

// Load reads the configuration file. The default file is optional, whereas
// the file given explicitly must exist.
func (c *Config) Load() error {
	file := c.File()
	if file == "" {
		return nil
	}
	if _, err := os.Stat(file); err != nil && !c.flags.Changed(configFile) {
		return nil
	}
	if err := c.TryLoadFile(file); err != nil {
		return fmt.Errorf("couldn't load the %s config file: %v", file, err)
	}
	return nil
}

// Init setups the configuration state from Viper.
func (c *Config) Init() error {
	c.Log.InitFromViper(c.viper)
	c.Tuner.InitFromViper(c.viper)

	var err error
	c.Access, err = ps.ParseAccess(c.viper.GetString(access))
	if err != nil {
		return err
	}

	c.Tuner.Profiles = nil
	if p := c.viper.Get(profiles); p != nil {
		if err := decode(p, &c.Tuner.Profiles); err != nil {
			return fmt.Errorf("invalid profiles: %v", err)
		}
	}
	return nil
}

// Validate ensures that all configuration options provided by user have the expected values. It returns
// the list of validation errors prefixed with the offending configuration property/flag.
func (c *Config) Validate() error {
	if file := c.viper.ConfigFileUsed(); file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		var out interface{}
		switch filepath.Ext(file) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(b, &out)
		case ".json":
			err = json.Unmarshal(b, &out)
		default:
			return fmt.Errorf("%s is not a supported config file extension", filepath.Ext(file))
		}
		if err != nil {
			return fmt.Errorf("couldn't read the config file: %v", err)
		}
		if valid, errs := validate(out); !valid || len(errs) > 0 {
			return fmt.Errorf("invalid config: %v", errors.Join(errs...))
		}
	}
	// now validate the Viper config flags
	if valid, errs := validate(c.viper.AllSettings()); !valid || len(errs) > 0 {
		return fmt.Errorf("invalid config: %v", errors.Join(errs...))
	}
	for _, p := range c.Tuner.Profiles {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("invalid config: %v", err)
		}
	}
	return nil
}

// DefaultFile returns the path of the configuration file used when none is given.
func DefaultFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "pstool", "pstool.yml")
}

func (c *Config) addFlags() {
	c.flags.String(configFile, DefaultFile(), "Indicates the location of the configuration file")
	c.flags.String(access, "QUERY_LIMITED_INFORMATION", "Access rights processes are opened with, e.g. QUERY_LIMITED_INFORMATION|SET_INFORMATION")
	if c.opts.tuner {
		tuner.AddFlags(c.flags)
	}
	c.Log.AddFlags(c.flags)
}
