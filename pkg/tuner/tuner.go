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

// Package tuner pins processes to processor sets according to image name profiles.
package tuner

import (
	"context"
	"expvar"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/rabbitstack/pstool/pkg/cpuset"
	pserrors "github.com/rabbitstack/pstool/pkg/errors"
	"github.com/rabbitstack/pstool/pkg/util/wildcard"
	log "github.com/sirupsen/logrus"
)

var (
	profilesApplied = expvar.NewMap("tuner.profiles.applied")
	profilesFailed  = expvar.NewMap("tuner.profiles.failed")
	waitRetries     = expvar.NewInt("tuner.wait.retries")
)

// Result describes the outcome of applying the profile to a single process.
type Result struct {
	// Profile is the name of the matching profile.
	Profile string
	// PID is the process identifier.
	PID uint32
	// Image is the process image name.
	Image string
	// Previous is the affinity mask before the change.
	Previous uintptr
	// Applied is the affinity mask the process was pinned to.
	Applied uintptr
	// Err is set if the affinity couldn't be changed.
	Err error
}

type profile struct {
	Profile
	cpus cpuset.Set
}

// Tuner applies affinity profiles to processes.
type Tuner struct {
	profiles []profile
	wait     WaitConfig
	src      Source
}

// New creates the tuner for the given configuration. All profiles are
// validated upfront.
func New(c Config, src Source) (*Tuner, error) {
	t := &Tuner{wait: c.Wait, src: src}
	for _, p := range c.Profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		t.profiles = append(t.profiles, profile{Profile: p, cpus: cpuset.MustParse(p.CPUs)})
	}
	return t, nil
}

// Match returns the first profile whose image pattern matches the image name.
func (t *Tuner) Match(image string) (Profile, bool) {
	p, ok := t.match(image)
	if !ok {
		return Profile{}, false
	}
	return p.Profile, true
}

func (t *Tuner) match(image string) (profile, bool) {
	for _, p := range t.profiles {
		if wildcard.MatchFold(p.Image, image) {
			return p, true
		}
	}
	return profile{}, false
}

// Apply enumerates processes once and pins every process matching a profile.
// Failures to pin individual processes are reported in the results and
// don't abort the run.
func (t *Tuner) Apply(ctx context.Context) ([]Result, error) {
	targets, err := t.src.Processes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't enumerate processes")
	}
	defer closeAll(targets)

	var results []Result
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		image, err := target.Name()
		if err != nil {
			continue
		}
		p, ok := t.match(image)
		if !ok {
			continue
		}
		results = append(results, t.apply(target, image, p))
	}
	return results, nil
}

func (t *Tuner) apply(target Target, image string, p profile) Result {
	r := Result{Profile: p.Name, Image: image}
	r.PID, r.Err = target.ID()
	if r.Err != nil {
		return t.failed(r)
	}
	sys, err := target.SystemAffinityMask()
	if err != nil {
		r.Err = err
		return t.failed(r)
	}
	set := p.cpus.Intersect(cpuset.FromMask(sys))
	if set.IsEmpty() {
		r.Err = fmt.Errorf("processors %s are not available on this system (%s)", p.cpus, cpuset.FromMask(sys))
		return t.failed(r)
	}
	if set.Count() < p.cpus.Count() {
		log.Warnf("profile %s: only processors %s are available for %s (%d)", p.Name, set, image, r.PID)
	}
	r.Previous, r.Err = target.SetAffinityMask(set.Mask())
	if r.Err != nil {
		return t.failed(r)
	}
	r.Applied = set.Mask()
	profilesApplied.Add(p.Name, 1)
	log.Infof("profile %s: pinned %s (%d) to processors %s", p.Name, image, r.PID, set)
	return r
}

func (t *Tuner) failed(r Result) Result {
	profilesFailed.Add(r.Profile, 1)
	log.Warnf("profile %s: couldn't pin %s (%d): %v", r.Profile, r.Image, r.PID, r.Err)
	return r
}

// WaitFor polls the process source until a process whose image name matches
// the pattern appears. The delay between lookups grows exponentially up to the
// configured maximum. The returned process is owned by the caller.
func (t *Tuner) WaitFor(ctx context.Context, image string) (Target, error) {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     t.wait.InitialInterval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         t.wait.MaxInterval,
		MaxElapsedTime:      t.wait.MaxElapsed,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()

	for {
		target, err := t.find(ctx, image)
		if err != nil {
			return nil, err
		}
		if target != nil {
			return target, nil
		}
		delay := b.NextBackOff()
		if delay == backoff.Stop {
			return nil, errors.Wrapf(pserrors.ErrNoProcess{Name: image}, "gave up after %v", t.wait.MaxElapsed)
		}
		waitRetries.Add(1)
		log.Debugf("%s not running. Retrying in %v...", image, delay)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (t *Tuner) find(ctx context.Context, image string) (Target, error) {
	targets, err := t.src.Processes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't enumerate processes")
	}
	var found Target
	for _, target := range targets {
		if found == nil {
			if name, err := target.Name(); err == nil && wildcard.MatchFold(image, name) {
				found = target
				continue
			}
		}
		_ = target.Close()
	}
	return found, nil
}
