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

package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTree(t *testing.T) {
	for _, args := range [][]string{
		{"ps"},
		{"threads"},
		{"modules"},
		{"affinity", "get"},
		{"affinity", "set"},
		{"ideal"},
		{"cycles"},
		{"apply"},
		{"version"},
	} {
		cmd, _, err := RootCmd.Find(args)
		require.NoError(t, err, args)
		assert.Equal(t, args[len(args)-1], cmd.Name())
	}
}

func TestCommandFlags(t *testing.T) {
	var tests = []struct {
		args []string
		flag string
		def  string
	}{
		{[]string{"ps"}, "name", ""},
		{[]string{"modules"}, "handles", "false"},
		{[]string{"cycles"}, "interval", "1s"},
		{[]string{"cycles"}, "samples", "5"},
		{[]string{"apply"}, "wait", "false"},
		{[]string{"affinity", "set"}, "thread", "false"},
		{[]string{"ps"}, "access", "QUERY_LIMITED_INFORMATION"},
		{[]string{"apply"}, "tuner.wait.max-elapsed", "5m0s"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			cmd, _, err := RootCmd.Find(tt.args)
			require.NoError(t, err)
			f := cmd.Flag(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.def, f.DefValue)
		})
	}
}

func TestCycleDelta(t *testing.T) {
	prev := map[uint32]uint64{4: 1000, 8: 5000}

	assert.Equal(t, uint64(500), cycleDelta(prev, 4, 1500))
	assert.Equal(t, uint64(0), cycleDelta(prev, 4, 1000))
	// reused identifier with a fresh counter
	assert.Equal(t, uint64(200), cycleDelta(prev, 8, 200))
	assert.Equal(t, uint64(300), cycleDelta(prev, 12, 300))
}
