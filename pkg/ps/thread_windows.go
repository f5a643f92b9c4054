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
	"math/bits"
	"os"

	"github.com/rabbitstack/pstool/pkg/handle"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"
)

// Thread represents the handle to the thread running in the local machine.
type Thread struct {
	handle *handle.Handle
}

// OpenThread opens the thread with the given identifier requesting all access rights.
func OpenThread(tid uint32) (*Thread, error) {
	h, err := windows.OpenThread(threadAllAccess, false, tid)
	if err != nil {
		return nil, os.NewSyscallError("OpenThread", err)
	}
	return &Thread{handle: handle.New(h)}, nil
}

// ThreadFromHandle builds the thread from the handle. The thread takes the ownership of the handle.
func ThreadFromHandle(h *handle.Handle) *Thread {
	return &Thread{handle: h}
}

// CurrentThread returns the thread that represents the calling thread. The thread is
// backed by a pseudo-handle that is only valid on the thread that obtained it, so the
// goroutine using it should be locked to its OS thread.
func CurrentThread() *Thread {
	return &Thread{handle: handle.Pseudo(windows.CurrentThread())}
}

// Handle returns the handle owned by the thread.
func (t *Thread) Handle() *handle.Handle { return t.handle }

// IntoRaw forfeits the ownership of the thread handle and returns its raw value.
func (t *Thread) IntoRaw() windows.Handle { return t.handle.IntoRaw() }

// Close releases the thread handle.
func (t *Thread) Close() error { return t.handle.Close() }

// ID returns the thread identifier.
func (t *Thread) ID() (uint32, error) { return threadID(t.handle.Raw()) }

// ProcessID returns the identifier of the process the thread belongs to.
func (t *Thread) ProcessID() (uint32, error) { return processIDOfThread(t.handle.Raw()) }

// CycleTime returns the number of CPU clock cycles the thread has consumed so far.
func (t *Thread) CycleTime() (uint64, error) { return threadCycleTime(t.handle.Raw()) }

// IdealProcessor returns the number of the preferred processor of the thread within
// its processor group.
func (t *Thread) IdealProcessor() (uint32, error) {
	pn, err := threadIdealProcessor(t.handle.Raw())
	if err != nil {
		return 0, err
	}
	return uint32(pn.Number), nil
}

// SetIdealProcessor sets the preferred processor of the thread and returns the
// previous preferred processor. The scheduler treats it as a hint.
func (t *Thread) SetIdealProcessor(processor uint32) (uint32, error) {
	return setIdealProcessor(t.handle.Raw(), processor)
}

// AffinityMask returns the thread affinity mask. The mask can't be queried
// directly, so it is obtained by temporarily widening the thread affinity to
// the affinity of the owning process, which yields the mask that was in effect,
// and restoring the original mask right after. The restore is attempted twice.
// If both attempts fail, the thread is left with the widened mask and the error
// is returned.
func (t *Thread) AffinityMask() (uintptr, error) {
	current, err := setThreadAffinity(t.handle.Raw(), t.permittedMask())
	if err != nil {
		return 0, err
	}
	if _, err := setThreadAffinity(t.handle.Raw(), current); err != nil {
		log.Debugf("couldn't restore thread affinity to %#x: %v", current, err)
		if _, err := setThreadAffinity(t.handle.Raw(), current); err != nil {
			return 0, err
		}
	}
	return current, nil
}

// SetAffinityMask sets the thread affinity mask and returns the previous mask. The
// mask must be a subset of the owning process affinity mask.
func (t *Thread) SetAffinityMask(mask uintptr) (uintptr, error) {
	return setThreadAffinity(t.handle.Raw(), mask)
}

// SetAffinity pins the thread to a single processor and returns the previous affinity
// mask. Processor numbers that fall outside the mask width leave the affinity untouched
// and the current mask is returned instead.
func (t *Thread) SetAffinity(processor uint8) (uintptr, error) {
	if int(processor) >= bits.UintSize {
		return t.AffinityMask()
	}
	return t.SetAffinityMask(uintptr(1) << processor)
}

// permittedMask returns the widest mask the thread may be assigned. It
// falls back to all processors when the owning process can't be queried.
func (t *Thread) permittedMask() uintptr {
	const all = ^uintptr(0)
	pid, err := t.ProcessID()
	if err != nil {
		return all
	}
	proc := Current()
	if pid != windows.GetCurrentProcessId() {
		proc, err = OpenWithAccess(pid, QueryLimitedInformation)
		if err != nil {
			return all
		}
		defer proc.Close()
	}
	mask, err := proc.AffinityMask()
	if err != nil || mask == 0 {
		return all
	}
	return mask
}
