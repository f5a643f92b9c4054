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
	"expvar"
	"os"
	"unsafe"

	"github.com/rabbitstack/pstool/pkg/handle"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"
)

// maxBadLengthRetries bounds the number of attempts to create the module
// snapshot while the target process keeps failing with ERROR_BAD_LENGTH.
const maxBadLengthRetries = 5

var (
	snapshotsOpened   = expvar.NewMap("ps.snapshot.opened")
	snapshotErrors    = expvar.NewMap("ps.snapshot.errors")
	skippedEntries    = expvar.NewMap("ps.snapshot.skipped.entries")
	badLengthRetries  = expvar.NewInt("ps.snapshot.bad.length.retries")
	moduleListResizes = expvar.NewInt("ps.module.list.resizes")
)

// snapshot walks the toolhelp snapshot table forward only. Every advance
// issues exactly one API call: the first one calls the *32First function
// and all the subsequent calls go through the *32Next function. The entry
// is zeroed and its size field is set before each call, because the API
// rejects entries that don't declare the expected structure size.
//
// The snapshot handle is released as soon as the walk reaches the end of
// the table, fails, or is closed by the caller.
type snapshot[E any] struct {
	h       *handle.Handle
	name    string
	first   func(windows.Handle, *E) error
	next    func(windows.Handle, *E) error
	prepare func(*E)
	started bool
	done    bool
	err     error
}

func openSnapshot[E any](
	flags, pid uint32,
	name string,
	first, next func(windows.Handle, *E) error,
	prepare func(*E),
) (*snapshot[E], error) {
	snap, err := windows.CreateToolhelp32Snapshot(flags, pid)
	for i := 0; err == windows.ERROR_BAD_LENGTH && i < maxBadLengthRetries; i++ {
		// the module table of the target process is being modified
		badLengthRetries.Add(1)
		log.Debugf("retrying %s snapshot for pid %d: %v", name, pid, err)
		snap, err = windows.CreateToolhelp32Snapshot(flags, pid)
	}
	if err != nil {
		snapshotErrors.Add(name, 1)
		return nil, os.NewSyscallError("CreateToolhelp32Snapshot", err)
	}
	snapshotsOpened.Add(name, 1)
	return &snapshot[E]{
		h:       handle.New(snap),
		name:    name,
		first:   first,
		next:    next,
		prepare: prepare,
	}, nil
}

func openProcessSnapshot() (*snapshot[windows.ProcessEntry32], error) {
	return openSnapshot(
		windows.TH32CS_SNAPPROCESS,
		0,
		"Process32",
		windows.Process32First,
		windows.Process32Next,
		func(e *windows.ProcessEntry32) { *e = windows.ProcessEntry32{Size: uint32(unsafe.Sizeof(*e))} },
	)
}

func openThreadSnapshot() (*snapshot[windows.ThreadEntry32], error) {
	return openSnapshot(
		windows.TH32CS_SNAPTHREAD,
		0,
		"Thread32",
		windows.Thread32First,
		windows.Thread32Next,
		func(e *windows.ThreadEntry32) { *e = windows.ThreadEntry32{Size: uint32(unsafe.Sizeof(*e))} },
	)
}

func openModuleSnapshot(pid uint32) (*snapshot[windows.ModuleEntry32], error) {
	return openSnapshot(
		windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32,
		pid,
		"Module32",
		windows.Module32First,
		windows.Module32Next,
		func(e *windows.ModuleEntry32) { *e = windows.ModuleEntry32{Size: uint32(unsafe.Sizeof(*e))} },
	)
}

// advance fills the entry with the next record from the snapshot table.
// It returns false when the table is exhausted or the API call fails.
func (s *snapshot[E]) advance(e *E) bool {
	if s.done {
		return false
	}
	s.prepare(e)
	var (
		err error
		fn  = s.name + "Next"
	)
	if !s.started {
		s.started = true
		fn = s.name + "First"
		err = s.first(s.h.Raw(), e)
	} else {
		err = s.next(s.h.Raw(), e)
	}
	if err != nil {
		if err != windows.ERROR_NO_MORE_FILES {
			snapshotErrors.Add(s.name, 1)
			s.err = os.NewSyscallError(fn, err)
		}
		_ = s.close()
		return false
	}
	return true
}

func (s *snapshot[E]) close() error {
	s.done = true
	return s.h.Close()
}

// skip accounts for the entry that was dropped from the sequence.
func skip(kind string, id uint32, err error) {
	skippedEntries.Add(kind, 1)
	log.Debugf("skipping %s %d: %v", kind, id, err)
}
