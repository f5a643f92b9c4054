//go:build windows
// +build windows

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

package ps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rabbitstack/pstool/pkg/errors"
	"github.com/rabbitstack/pstool/pkg/handle"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/windows"
)

func testBinary(t *testing.T) string {
	exe, err := os.Executable()
	require.NoError(t, err)
	return filepath.Base(exe)
}

func TestAllProcesses(t *testing.T) {
	procs, err := AllWithAccess(QueryLimitedInformation)
	require.NoError(t, err)

	list, err := procs.Collect()
	require.NoError(t, err)
	require.NotEmpty(t, list)

	var found bool
	for _, proc := range list {
		pid, err := proc.ID()
		require.NoError(t, err)
		if pid == windows.GetCurrentProcessId() {
			found = true
		}
		require.NoError(t, proc.Close())
	}
	assert.True(t, found, "the calling process is missing from the enumeration")
}

func TestOpenProcess(t *testing.T) {
	pid := windows.GetCurrentProcessId()
	proc, err := Open(pid)
	require.NoError(t, err)
	defer proc.Close()

	id, err := proc.ID()
	require.NoError(t, err)
	assert.Equal(t, pid, id)
	assert.Equal(t, AllAccess, proc.Access())
	assert.True(t, proc.IsRunning())

	name, err := proc.Name()
	require.NoError(t, err)
	assert.Equal(t, testBinary(t), name)

	path, err := proc.Path()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, `\`+name))
}

func TestOpenProcessInvalidPID(t *testing.T) {
	_, err := Open(0)
	require.Error(t, err)
	assert.True(t, errors.IsOSError(err))
}

func TestCurrentProcess(t *testing.T) {
	proc := Current()
	assert.True(t, proc.Handle().IsPseudo())
	assert.True(t, proc.IsRunning())

	pid, err := proc.ID()
	require.NoError(t, err)
	assert.Equal(t, windows.GetCurrentProcessId(), pid)

	require.NoError(t, proc.Close())
	// closing the pseudo-handle is a no-op
	_, err = Current().ID()
	require.NoError(t, err)
}

func TestOpenByName(t *testing.T) {
	proc, err := OpenByNameWithAccess(testBinary(t), QueryLimitedInformation)
	require.NoError(t, err)
	defer proc.Close()

	pid, err := proc.ID()
	require.NoError(t, err)
	assert.Equal(t, windows.GetCurrentProcessId(), pid)
	assert.Equal(t, QueryLimitedInformation, proc.Access())
}

func TestOpenByNameNoProcess(t *testing.T) {
	_, err := OpenByNameWithAccess("pstool-no-such-process.exe", QueryLimitedInformation)
	require.Error(t, err)
	assert.True(t, errors.IsNoProcess(err))
	assert.Contains(t, err.Error(), "pstool-no-such-process.exe")
}

func TestOpenByNameIsCaseSensitive(t *testing.T) {
	_, err := OpenByNameWithAccess(strings.ToUpper(testBinary(t))+"x", QueryLimitedInformation)
	assert.True(t, errors.IsNoProcess(err))
}

func TestProcessIntoRaw(t *testing.T) {
	proc, err := OpenWithAccess(windows.GetCurrentProcessId(), QueryLimitedInformation)
	require.NoError(t, err)

	raw := proc.IntoRaw()
	assert.True(t, proc.Handle().IsClosed())

	restored := FromHandle(handle.New(raw), QueryLimitedInformation)
	defer restored.Close()
	pid, err := restored.ID()
	require.NoError(t, err)
	assert.Equal(t, windows.GetCurrentProcessId(), pid)
}

func TestProcessAffinityMask(t *testing.T) {
	proc := Current()

	mask, err := proc.AffinityMask()
	require.NoError(t, err)
	sys, err := proc.SystemAffinityMask()
	require.NoError(t, err)
	assert.NotZero(t, mask)
	assert.Equal(t, mask, mask&sys, "process mask must be a subset of the system mask")

	lowest := mask & -mask
	prev, err := proc.SetAffinityMask(lowest)
	require.NoError(t, err)
	assert.Equal(t, mask, prev)

	current, err := proc.AffinityMask()
	require.NoError(t, err)
	assert.Equal(t, lowest, current)

	prev, err = proc.SetAffinityMask(mask)
	require.NoError(t, err)
	assert.Equal(t, lowest, prev)
}

func TestSetAffinityMaskOutsideSystemMask(t *testing.T) {
	proc := Current()
	mask, err := proc.AffinityMask()
	require.NoError(t, err)
	sys, err := proc.SystemAffinityMask()
	require.NoError(t, err)

	// either holds processors missing from the system or is empty when all are present
	_, err = proc.SetAffinityMask(^sys)
	require.Error(t, err)
	assert.True(t, errors.IsOSError(err))

	current, err := proc.AffinityMask()
	require.NoError(t, err)
	assert.Equal(t, mask, current)
}

func TestClosedProcessFails(t *testing.T) {
	var tests = []struct {
		name string
		open func(t *testing.T) *Process
	}{
		{"owned", func(t *testing.T) *Process {
			proc, err := OpenWithAccess(windows.GetCurrentProcessId(), QueryLimitedInformation|SetInformation)
			require.NoError(t, err)
			return proc
		}},
		{"pseudo", func(t *testing.T) *Process { return Current() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mask, err := Current().AffinityMask()
			require.NoError(t, err)

			proc := tt.open(t)
			require.NoError(t, proc.Close())

			_, err = proc.ID()
			require.Error(t, err)
			assert.True(t, errors.IsOSError(err))
			assert.ErrorIs(t, err, windows.ERROR_INVALID_HANDLE)

			assert.False(t, proc.IsRunning())

			_, err = proc.Path()
			assert.True(t, errors.IsOSError(err))
			_, err = proc.Name()
			assert.Error(t, err)
			_, err = proc.AffinityMask()
			assert.True(t, errors.IsOSError(err))

			_, err = proc.SetAffinityMask(mask & -mask)
			assert.True(t, errors.IsOSError(err))
			current, err := Current().AffinityMask()
			require.NoError(t, err)
			assert.Equal(t, mask, current, "closed process must not alter the calling process")

			_, err = proc.Threads()
			assert.True(t, errors.IsOSError(err))
			_, err = proc.ModuleEntries()
			assert.True(t, errors.IsOSError(err))
		})
	}
}

func TestSetAffinityMaskAccessDenied(t *testing.T) {
	proc, err := OpenWithAccess(windows.GetCurrentProcessId(), QueryLimitedInformation)
	require.NoError(t, err)
	defer proc.Close()

	mask, err := proc.AffinityMask()
	require.NoError(t, err)
	_, err = proc.SetAffinityMask(mask)
	require.Error(t, err)
	assert.True(t, errors.IsAccessDenied(err))
}

func TestProcessThreadIDs(t *testing.T) {
	proc := Current()
	ids, err := proc.ThreadIDs()
	require.NoError(t, err)

	var n int
	for range ids.All() {
		n++
	}
	require.NoError(t, ids.Err())
	assert.GreaterOrEqual(t, n, 1)
}

func TestProcessThreads(t *testing.T) {
	proc := Current()
	pid, err := proc.ID()
	require.NoError(t, err)

	threads, err := proc.Threads()
	require.NoError(t, err)

	var n int
	for thread := range threads.All() {
		tpid, err := thread.ProcessID()
		require.NoError(t, err)
		assert.Equal(t, pid, tpid)
		require.NoError(t, thread.Close())
		n++
	}
	require.NoError(t, threads.Err())
	assert.GreaterOrEqual(t, n, 1)
}

func TestIteratorsReleaseSnapshots(t *testing.T) {
	live := handle.Live()

	for i := 0; i < 20; i++ {
		procs, err := AllWithAccess(QueryLimitedInformation)
		require.NoError(t, err)
		require.True(t, procs.Next())
		require.NoError(t, procs.Process().Close())
		require.NoError(t, procs.Close())

		ids, err := Current().ThreadIDs()
		require.NoError(t, err)
		for range ids.All() {
			break
		}

		entries, err := Current().ModuleEntries()
		require.NoError(t, err)
		for entries.Next() {
		}
	}

	assert.Equal(t, live, handle.Live())
}

func TestProcessModules(t *testing.T) {
	proc := Current()
	mods, err := proc.Modules()
	require.NoError(t, err)
	require.NotEmpty(t, mods)

	// the first module is the process image
	name, err := mods[0].Name()
	require.NoError(t, err)
	assert.True(t, strings.EqualFold(testBinary(t), name))
}

func TestProcessModuleByName(t *testing.T) {
	proc := Current()

	mod, err := proc.Module("kernel32.dll")
	require.NoError(t, err)
	info, err := mod.Info()
	require.NoError(t, err)
	assert.Equal(t, uintptr(mod.Handle()), info.BaseAddress)
	assert.NotZero(t, info.Size)

	_, err = proc.Module("pstool-missing.dll")
	require.Error(t, err)
	errno, ok := errors.Errno(err)
	require.True(t, ok)
	assert.Equal(t, windows.ERROR_MOD_NOT_FOUND, errno)

	_, err = proc.Module("kernel32\x00.dll")
	require.Error(t, err)
	assert.True(t, errors.IsNulName(err))
}

func TestLookupModule(t *testing.T) {
	proc := Current()
	mods, err := proc.Modules()
	require.NoError(t, err)

	mod, err := lookupModule(mods, "NTDLL.DLL")
	require.NoError(t, err)
	name, err := mod.Name()
	require.NoError(t, err)
	assert.True(t, strings.EqualFold("ntdll.dll", name))

	path, err := mod.Path()
	require.NoError(t, err)
	byPath, err := lookupModule(mods, strings.ToUpper(path))
	require.NoError(t, err)
	assert.Equal(t, mod.Handle(), byPath.Handle())

	_, err = lookupModule(mods, "ntdll")
	require.Error(t, err)
}

func TestModuleEntries(t *testing.T) {
	entries, err := Current().ModuleEntries()
	require.NoError(t, err)

	var names []string
	for e := range entries.All() {
		assert.Equal(t, windows.GetCurrentProcessId(), e.ProcessID)
		assert.NotZero(t, e.BaseSize)
		names = append(names, strings.ToLower(e.Name))
	}
	require.NoError(t, entries.Err())
	assert.Contains(t, names, strings.ToLower(testBinary(t)))
	assert.Contains(t, names, "kernel32.dll")
}

func TestModuleOutlivesClosedProcess(t *testing.T) {
	proc, err := Open(windows.GetCurrentProcessId())
	require.NoError(t, err)
	mods, err := proc.Modules()
	require.NoError(t, err)
	require.NoError(t, proc.Close())

	_, err = mods[0].Name()
	assert.True(t, errors.IsProcessClosed(err))
	_, err = mods[0].Info()
	assert.True(t, errors.IsProcessClosed(err))
}

func TestCrossCheckWithGopsutil(t *testing.T) {
	p, err := process.NewProcess(int32(windows.GetCurrentProcessId()))
	require.NoError(t, err)
	exe, err := p.Exe()
	require.NoError(t, err)

	path, err := Current().Path()
	require.NoError(t, err)
	assert.True(t, strings.EqualFold(exe, path), "%s != %s", exe, path)

	pids, err := process.Pids()
	require.NoError(t, err)
	assert.Contains(t, pids, int32(windows.GetCurrentProcessId()))
}
