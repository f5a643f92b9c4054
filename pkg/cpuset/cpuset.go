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

// Package cpuset converts between the list notation of logical processors,
// such as 0-3,6, and the affinity masks consumed by the scheduler API.
package cpuset

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/rabbitstack/pstool/pkg/errors"
)

// MaxProcessors is the number of logical processors an affinity mask can address.
const MaxProcessors = bits.UintSize

// Set is the set of logical processors.
type Set struct {
	bits *bitset.BitSet
}

// New creates the set from the given processor numbers.
func New(processors ...uint) (Set, error) {
	s := Set{bits: bitset.New(MaxProcessors)}
	for _, p := range processors {
		if p >= MaxProcessors {
			return Set{}, errors.ErrProcessorOutOfRange(p)
		}
		s.bits.Set(p)
	}
	return s, nil
}

// FromMask creates the set from the affinity mask.
func FromMask(mask uintptr) Set {
	return Set{bits: bitset.From([]uint64{uint64(mask)})}
}

// Parse parses the processor list. The list consists of comma-separated
// processor numbers or inclusive ranges, e.g. 0-3,6,8-9.
func Parse(s string) (Set, error) {
	set := Set{bits: bitset.New(MaxProcessors)}
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(tok, "-")
		from, err := parseProcessor(lo)
		if err != nil {
			return Set{}, err
		}
		to := from
		if isRange {
			to, err = parseProcessor(hi)
			if err != nil {
				return Set{}, err
			}
			if to < from {
				return Set{}, fmt.Errorf("invalid processor range %q", tok)
			}
		}
		for p := from; p <= to; p++ {
			set.bits.Set(p)
		}
	}
	if set.bits.None() {
		return Set{}, fmt.Errorf("no processors in %q", s)
	}
	return set, nil
}

// MustParse is like Parse but panics if the list is invalid.
func MustParse(s string) Set {
	set, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return set
}

func parseProcessor(s string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid processor number %q", s)
	}
	if n >= MaxProcessors {
		return 0, errors.ErrProcessorOutOfRange(uint(n))
	}
	return uint(n), nil
}

// Mask returns the affinity mask of the set.
func (s Set) Mask() uintptr {
	var mask uintptr
	if s.bits == nil {
		return mask
	}
	for p, ok := s.bits.NextSet(0); ok && p < MaxProcessors; p, ok = s.bits.NextSet(p + 1) {
		mask |= 1 << p
	}
	return mask
}

// Contains determines whether the processor is in the set.
func (s Set) Contains(processor uint) bool {
	return s.bits != nil && s.bits.Test(processor)
}

// Count returns the number of processors in the set.
func (s Set) Count() uint {
	if s.bits == nil {
		return 0
	}
	return s.bits.Count()
}

// IsEmpty determines whether the set has no processors.
func (s Set) IsEmpty() bool { return s.Count() == 0 }

// IsSubsetOf determines whether all processors of the set are present in other.
func (s Set) IsSubsetOf(other Set) bool {
	if s.bits == nil {
		return true
	}
	if other.bits == nil {
		return s.bits.None()
	}
	return other.bits.IsSuperSet(s.bits)
}

// Intersect returns the processors present in both sets.
func (s Set) Intersect(other Set) Set {
	if s.bits == nil || other.bits == nil {
		return Set{bits: bitset.New(MaxProcessors)}
	}
	return Set{bits: s.bits.Intersection(other.bits)}
}

// Processors returns the processor numbers in ascending order.
func (s Set) Processors() []uint {
	if s.bits == nil {
		return nil
	}
	procs := make([]uint, 0, s.bits.Count())
	for p, ok := s.bits.NextSet(0); ok; p, ok = s.bits.NextSet(p + 1) {
		procs = append(procs, p)
	}
	return procs
}

// String renders the set in the list notation. Adjacent processors are
// collapsed into ranges.
func (s Set) String() string {
	procs := s.Processors()
	if len(procs) == 0 {
		return ""
	}
	var sb strings.Builder
	for i := 0; i < len(procs); {
		j := i
		for j+1 < len(procs) && procs[j+1] == procs[j]+1 {
			j++
		}
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(procs[i]), 10))
		if j > i {
			sb.WriteByte('-')
			sb.WriteString(strconv.FormatUint(uint64(procs[j]), 10))
		}
		i = j + 1
	}
	return sb.String()
}
