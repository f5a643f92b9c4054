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

package cpuset

import (
	"testing"

	"github.com/rabbitstack/pstool/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	var tests = []struct {
		in   string
		mask uintptr
		str  string
		err  bool
	}{
		{"0", 0x1, "0", false},
		{"0-3", 0xF, "0-3", false},
		{"0-3,6", 0x4F, "0-3,6", false},
		{" 1 , 3 - 4 ", 0x1A, "1,3-4", false},
		{"6,0-3,2", 0x4F, "0-3,6", false},
		{"5-5", 0x20, "5", false},
		{"31", 1 << 31, "31", false},
		{"", 0, "", true},
		{",", 0, "", true},
		{"3-1", 0, "", true},
		{"a", 0, "", true},
		{"1-", 0, "", true},
		{"-1", 0, "", true},
		{"64", 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			set, err := Parse(tt.in)
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.mask, set.Mask())
			assert.Equal(t, tt.str, set.String())
		})
	}
}

func TestParseOutOfRange(t *testing.T) {
	_, err := Parse("0,70")
	require.Error(t, err)
	assert.EqualError(t, err, errors.ErrProcessorOutOfRange(70).Error())
}

func TestFromMask(t *testing.T) {
	set := FromMask(0xF0F)
	assert.Equal(t, "0-3,8-11", set.String())
	assert.Equal(t, uint(8), set.Count())
	assert.True(t, set.Contains(9))
	assert.False(t, set.Contains(4))
	assert.Equal(t, uintptr(0xF0F), set.Mask())
	assert.Equal(t, []uint{0, 1, 2, 3, 8, 9, 10, 11}, set.Processors())

	assert.True(t, FromMask(0).IsEmpty())
	assert.Equal(t, ^uintptr(0), FromMask(^uintptr(0)).Mask())
}

func TestNew(t *testing.T) {
	set, err := New(2, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "0-2", set.String())

	_, err = New(MaxProcessors)
	require.Error(t, err)
}

func TestSetOperations(t *testing.T) {
	sys := MustParse("0-7")
	assert.True(t, MustParse("1,3").IsSubsetOf(sys))
	assert.False(t, MustParse("6-8").IsSubsetOf(sys))
	assert.True(t, Set{}.IsSubsetOf(sys))
	assert.Equal(t, "6-7", MustParse("6-8").Intersect(sys).String())
	assert.True(t, Set{}.Intersect(sys).IsEmpty())
	assert.Zero(t, Set{}.Mask())
	assert.Panics(t, func() { MustParse("x") })
}
