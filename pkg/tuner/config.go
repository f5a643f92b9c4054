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

package tuner

import (
	"fmt"
	"time"

	"github.com/rabbitstack/pstool/pkg/cpuset"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	waitInitialInterval = "tuner.wait.initial-interval"
	waitMaxInterval     = "tuner.wait.max-interval"
	waitMaxElapsed      = "tuner.wait.max-elapsed"
)

// Profile pins processes whose image name matches the pattern to the set of processors.
type Profile struct {
	// Name identifies the profile in logs and results.
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	// Image is the image name pattern. It may contain '*' and '?' wildcards and is
	// matched case-insensitively.
	Image string `json:"image" yaml:"image" mapstructure:"image"`
	// CPUs is the processor list, e.g. 0-3,6.
	CPUs string `json:"cpus" yaml:"cpus" mapstructure:"cpus"`
}

// Validate checks the profile has the name and the image pattern, and
// that the processor list is well-formed.
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile for image %q has no name", p.Image)
	}
	if p.Image == "" {
		return fmt.Errorf("profile %s has no image pattern", p.Name)
	}
	if _, err := cpuset.Parse(p.CPUs); err != nil {
		return fmt.Errorf("profile %s: %v", p.Name, err)
	}
	return nil
}

// WaitConfig controls how long the tuner waits for a process to appear.
type WaitConfig struct {
	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration `json:"initial-interval" yaml:"initial-interval"`
	// MaxInterval caps the delay between two retries.
	MaxInterval time.Duration `json:"max-interval" yaml:"max-interval"`
	// MaxElapsed is the total time after which the tuner gives up. Zero means wait forever.
	MaxElapsed time.Duration `json:"max-elapsed" yaml:"max-elapsed"`
}

// Config contains the tuner settings.
type Config struct {
	// Profiles are evaluated in order. The first matching profile wins.
	Profiles []Profile `json:"profiles" yaml:"profiles"`
	// Wait contains settings for waiting on processes to start.
	Wait WaitConfig `json:"wait" yaml:"wait"`
}

// AddFlags registers persistent tuner flags.
func AddFlags(flags *pflag.FlagSet) {
	flags.Duration(waitInitialInterval, 250*time.Millisecond, "Specifies the delay before the first lookup retry while waiting for a process")
	flags.Duration(waitMaxInterval, 5*time.Second, "Specifies the maximum delay between lookup retries while waiting for a process")
	flags.Duration(waitMaxElapsed, 5*time.Minute, "Specifies how long to wait for a process to appear. Zero waits forever")
}

// InitFromViper initializes the wait settings from Viper. Profiles are decoded
// by the configuration loader since they can only come from the config file.
func (c *Config) InitFromViper(v *viper.Viper) {
	c.Wait.InitialInterval = v.GetDuration(waitInitialInterval)
	c.Wait.MaxInterval = v.GetDuration(waitMaxInterval)
	c.Wait.MaxElapsed = v.GetDuration(waitMaxElapsed)
}
