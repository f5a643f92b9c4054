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
	"unsafe"

	"github.com/rabbitstack/pstool/pkg/errors"
	"github.com/rabbitstack/pstool/pkg/util/utf16"
	"golang.org/x/sys/windows"
)

// Module represents the module loaded into the address space of the process. The
// module doesn't own any resources. The process it was obtained from must remain
// open for the module queries to succeed.
type Module struct {
	handle  windows.Handle
	process *Process
}

// ModuleInfo contains the load address, the size, and the entry point of the module.
type ModuleInfo struct {
	BaseAddress uintptr
	Size        uint32
	EntryPoint  uintptr
}

// Handle returns the module handle. It is equal to the module base address.
func (m *Module) Handle() windows.Handle { return m.handle }

// Process returns the process that owns the module.
func (m *Module) Process() *Process { return m.process }

func (m *Module) processHandle() (windows.Handle, error) {
	if m.process.handle.IsClosed() {
		return 0, errors.ErrProcessClosed
	}
	return m.process.handle.Raw(), nil
}

// Info returns the module load address, size, and entry point.
func (m *Module) Info() (ModuleInfo, error) {
	proc, err := m.processHandle()
	if err != nil {
		return ModuleInfo{}, err
	}
	var mi windows.ModuleInfo
	if err := windows.GetModuleInformation(proc, m.handle, &mi, uint32(unsafe.Sizeof(mi))); err != nil {
		return ModuleInfo{}, os.NewSyscallError("GetModuleInformation", err)
	}
	return ModuleInfo{
		BaseAddress: mi.BaseOfDll,
		Size:        mi.SizeOfImage,
		EntryPoint:  mi.EntryPoint,
	}, nil
}

// Name returns the base name of the module.
func (m *Module) Name() (string, error) {
	proc, err := m.processHandle()
	if err != nil {
		return "", err
	}
	buf := make([]uint16, windows.MAX_PATH)
	if err := windows.GetModuleBaseName(proc, m.handle, &buf[0], uint32(len(buf))); err != nil {
		return "", os.NewSyscallError("GetModuleBaseName", err)
	}
	return utf16.DecodeNul(buf), nil
}

// Path returns the fully qualified path of the module file. The API silently
// truncates the path that doesn't fit, so the buffer is grown as long as the
// result fills it.
func (m *Module) Path() (string, error) {
	proc, err := m.processHandle()
	if err != nil {
		return "", err
	}
	for size := windows.MAX_PATH; ; size *= 2 {
		buf := make([]uint16, size)
		if err := windows.GetModuleFileNameEx(proc, m.handle, &buf[0], uint32(size)); err != nil {
			return "", os.NewSyscallError("GetModuleFileNameEx", err)
		}
		n := 0
		for n < len(buf) && buf[n] != 0 {
			n++
		}
		if n < size-1 || size >= maxPathLength {
			return utf16.Decode(buf[:n]), nil
		}
	}
}

// ModuleEntry describes the module as recorded in the module table snapshot.
type ModuleEntry struct {
	// ID is always set to 1 by the system.
	ID uint32
	// Name is the module base name.
	Name string
	// Path is the module full path.
	Path string
	// Handle is the module handle in the context of the owning process.
	Handle windows.Handle
	// ProcessID is the identifier of the process that loaded the module.
	ProcessID uint32
	// GlobalLoadCount is the system-wide load count of the module.
	GlobalLoadCount uint32
	// ProcessLoadCount is the load count of the module in the owning process.
	ProcessLoadCount uint32
	// BaseAddress is the module load address in the owning process.
	BaseAddress uintptr
	// BaseSize is the size of the module in bytes.
	BaseSize uint32
}

// NewModuleEntry builds the module entry from the raw snapshot record. The
// name and path fields stop at the first NUL character or at the end of the
// fixed buffer, whichever comes first.
func NewModuleEntry(e *windows.ModuleEntry32) ModuleEntry {
	return ModuleEntry{
		ID:               e.ModuleID,
		Name:             utf16.DecodeNul(e.Module[:]),
		Path:             utf16.DecodeNul(e.ExePath[:]),
		Handle:           e.ModuleHandle,
		ProcessID:        e.ProcessID,
		GlobalLoadCount:  e.GlblcntUsage,
		ProcessLoadCount: e.ProccntUsage,
		BaseAddress:      e.ModBaseAddr,
		BaseSize:         e.ModBaseSize,
	}
}
