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

package handle

import (
	"expvar"
	"os"
	"sync/atomic"

	"golang.org/x/sys/windows"
)

var (
	liveHandles   = expvar.NewInt("handle.live")
	closedHandles = expvar.NewInt("handle.closed")
)

// Handle owns a single kernel object handle such as a process, thread, or
// toolhelp snapshot handle. The zero value is not usable.
//
// Ownership is never shared. Code that borrows the raw value through Raw
// must not retain it past the lifetime of the owning Handle. Ownership is
// transferred out of the Handle with IntoRaw.
type Handle struct {
	raw    windows.Handle
	pseudo bool
	closed atomic.Bool
}

// New takes the ownership of an already valid raw handle. The caller is
// responsible for checking the raw value against the null and invalid sentinels
// returned by the function that produced it.
func New(raw windows.Handle) *Handle {
	liveHandles.Add(1)
	return &Handle{raw: raw}
}

// Pseudo wraps a pseudo-handle such as the one returned by windows.CurrentProcess.
// Pseudo-handles refer to the calling process or thread and are never passed to
// CloseHandle.
func Pseudo(raw windows.Handle) *Handle {
	return &Handle{raw: raw, pseudo: true}
}

// Raw lends the raw handle value without transferring the ownership. Once the
// handle is closed or its ownership forfeited, Raw returns the null handle, so
// stale callers get ERROR_INVALID_HANDLE rather than operating on a handle value
// that the kernel may have recycled. windows.InvalidHandle can't serve here as
// it has the same value as the current process pseudo-handle.
func (h *Handle) Raw() windows.Handle {
	if h.closed.Load() {
		return 0
	}
	return h.raw
}

// IntoRaw forfeits the ownership and returns the raw handle value. The handle
// is not released and the receiver behaves as closed afterwards.
func (h *Handle) IntoRaw() windows.Handle {
	if !h.closed.CompareAndSwap(false, true) {
		return 0
	}
	if !h.pseudo {
		liveHandles.Add(-1)
	}
	return h.raw
}

// IsPseudo indicates whether this is a pseudo-handle.
func (h *Handle) IsPseudo() bool { return h.pseudo }

// IsClosed indicates whether the handle was released or its ownership forfeited.
func (h *Handle) IsClosed() bool { return h.closed.Load() }

// Close releases the underlying kernel object handle. It is safe to call Close
// multiple times, but only the first call releases the handle.
func (h *Handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	if h.pseudo {
		return nil
	}
	liveHandles.Add(-1)
	closedHandles.Add(1)
	if err := windows.CloseHandle(h.raw); err != nil {
		return os.NewSyscallError("CloseHandle", err)
	}
	return nil
}

// Live returns the number of real handles currently owned by Handle values.
func Live() int64 { return liveHandles.Value() }
