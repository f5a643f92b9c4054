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
	"iter"
	"os"
	"strings"
	"unsafe"

	"github.com/rabbitstack/pstool/pkg/errors"
	"github.com/rabbitstack/pstool/pkg/handle"
	"github.com/rabbitstack/pstool/pkg/util/utf16"
	"golang.org/x/sys/windows"
	"golang.org/x/text/cases"
)

const (
	// ProcessStatusStillActive represents the exit code of the running process
	ProcessStatusStillActive uint32 = 259
	// maxPathLength is the longest path the image name query can return
	maxPathLength = 32768
	// initialModuleSlots is the number of module handles reserved before the first enumeration attempt
	initialModuleSlots = 256
)

var processOpenFailures = expvar.NewInt("ps.process.open.failures")

// Process represents the handle to the running process.
type Process struct {
	handle *handle.Handle
	access Access
}

// Open opens the process with the given identifier requesting all access rights.
func Open(pid uint32) (*Process, error) {
	return OpenWithAccess(pid, DefaultAccess)
}

// OpenWithAccess opens the process with the given identifier requesting the specified access rights.
// Operations that need rights not included in the access fail with ERROR_ACCESS_DENIED.
func OpenWithAccess(pid uint32, access Access) (*Process, error) {
	h, err := windows.OpenProcess(uint32(access), false, pid)
	if err != nil {
		processOpenFailures.Add(1)
		return nil, os.NewSyscallError("OpenProcess", err)
	}
	return &Process{handle: handle.New(h), access: access}, nil
}

// OpenByName opens the first process whose executable name equals the given name,
// requesting all access rights.
func OpenByName(name string) (*Process, error) {
	return OpenByNameWithAccess(name, DefaultAccess)
}

// OpenByNameWithAccess opens the first process whose executable name is equal to name.
// The comparison is case-sensitive and the name is matched against the file name of
// the process image, never against its full path. If no process matches, ErrNoProcess
// is returned.
func OpenByNameWithAccess(name string, access Access) (*Process, error) {
	procs, err := AllWithAccess(access)
	if err != nil {
		return nil, err
	}
	defer procs.Close()
	for procs.Next() {
		proc := procs.Process()
		n, err := proc.Name()
		if err == nil && n == name {
			return proc, nil
		}
		_ = proc.Close()
	}
	if err := procs.Err(); err != nil {
		return nil, err
	}
	return nil, errors.ErrNoProcess{Name: name}
}

// FromHandle builds the process from the handle. The process takes the ownership of the
// handle. The access should reflect the rights the handle was opened with.
func FromHandle(h *handle.Handle, access Access) *Process {
	return &Process{handle: h, access: access}
}

// Current returns the process that represents the calling process. It is backed by a
// pseudo-handle that grants all access rights and is never released by Close.
func Current() *Process {
	return &Process{handle: handle.Pseudo(windows.CurrentProcess()), access: AllAccess}
}

// All enumerates all running processes requesting all access rights for each of them.
func All() (*ProcessIterator, error) {
	return AllWithAccess(DefaultAccess)
}

// AllWithAccess enumerates all running processes. Each process is opened with the specified
// access rights. Processes that can't be opened are left out of the sequence.
func AllWithAccess(access Access) (*ProcessIterator, error) {
	snap, err := openProcessSnapshot()
	if err != nil {
		return nil, err
	}
	return &ProcessIterator{snap: snap, access: access}, nil
}

// Handle returns the handle owned by the process.
func (p *Process) Handle() *handle.Handle { return p.handle }

// Access returns the access rights the process was opened with.
func (p *Process) Access() Access { return p.access }

// IntoRaw forfeits the ownership of the process handle and returns its raw value.
func (p *Process) IntoRaw() windows.Handle { return p.handle.IntoRaw() }

// Close releases the process handle.
func (p *Process) Close() error { return p.handle.Close() }

// ID returns the process identifier. It is queried from the handle on every call.
func (p *Process) ID() (uint32, error) {
	pid, err := windows.GetProcessId(p.handle.Raw())
	if err != nil {
		return 0, os.NewSyscallError("GetProcessId", err)
	}
	return pid, nil
}

// IsRunning determines whether the process is still running. A process
// whose exit code can't be retrieved is reported as not running.
func (p *Process) IsRunning() bool {
	var exitcode uint32
	if err := windows.GetExitCodeProcess(p.handle.Raw(), &exitcode); err != nil {
		return false
	}
	return exitcode == ProcessStatusStillActive
}

// Path returns the full path of the process executable image. The buffer
// grows until the path fits.
func (p *Process) Path() (string, error) {
	size := uint32(windows.MAX_PATH)
	for {
		buf := make([]uint16, size)
		n := size
		err := windows.QueryFullProcessImageName(p.handle.Raw(), 0, &buf[0], &n)
		if err == nil {
			return utf16.Decode(buf[:n]), nil
		}
		if err != windows.ERROR_INSUFFICIENT_BUFFER || size >= maxPathLength {
			return "", os.NewSyscallError("QueryFullProcessImageName", err)
		}
		size *= 2
	}
}

// Name returns the unqualified name of the process executable.
func (p *Process) Name() (string, error) {
	path, err := p.Path()
	if err != nil {
		return "", err
	}
	name := path[strings.LastIndexAny(path, `\/`)+1:]
	if name == "" {
		return "", os.NewSyscallError("QueryFullProcessImageName", windows.ERROR_INVALID_NAME)
	}
	return name, nil
}

// AffinityMask returns the process affinity mask. Each set bit represents
// a logical processor the process threads are allowed to run on.
func (p *Process) AffinityMask() (uintptr, error) {
	mask, _, err := getAffinityMasks(p.handle.Raw())
	return mask, err
}

// SystemAffinityMask returns the mask of logical processors configured
// into the system. The process affinity mask is always its subset.
func (p *Process) SystemAffinityMask() (uintptr, error) {
	_, mask, err := getAffinityMasks(p.handle.Raw())
	return mask, err
}

// SetAffinityMask sets the process affinity mask and returns the previous mask.
// The mask must be a subset of the system affinity mask. Retrieving the previous
// mask and setting the new one are two API calls, so a concurrent change made by
// another party in between is not reflected in the returned mask.
//
// If the new mask doesn't include the processor currently running the process,
// the process is rescheduled on one of the allowable processors.
func (p *Process) SetAffinityMask(mask uintptr) (uintptr, error) {
	prev, _, err := getAffinityMasks(p.handle.Raw())
	if err != nil {
		return 0, err
	}
	if err := setAffinityMask(p.handle.Raw(), mask); err != nil {
		return 0, err
	}
	return prev, nil
}

// Threads returns the iterator over the threads of the process. Every thread is
// opened with all access rights. Threads that can't be opened are left out.
func (p *Process) Threads() (*ThreadIterator, error) {
	ids, err := p.ThreadIDs()
	if err != nil {
		return nil, err
	}
	return &ThreadIterator{ids: ids}, nil
}

// ThreadIDs returns the iterator over the identifiers of the process threads.
// Unlike Threads, no thread handle is opened.
func (p *Process) ThreadIDs() (*ThreadIDIterator, error) {
	pid, err := p.ID()
	if err != nil {
		return nil, err
	}
	snap, err := openThreadSnapshot()
	if err != nil {
		return nil, err
	}
	return &ThreadIDIterator{snap: snap, pid: pid}, nil
}

// Module returns the loaded module with the specified name or path. For the
// calling process the module is resolved directly by the loader. For other
// processes the module list is consulted and both the module base name and
// its full path are compared case-insensitively, mirroring the loader rules.
func (p *Process) Module(name string) (*Module, error) {
	wname, err := utf16.Encode(name)
	if err != nil {
		return nil, err
	}
	pid, err := p.ID()
	if err != nil {
		return nil, err
	}
	if pid == windows.GetCurrentProcessId() {
		var mod windows.Handle
		err := windows.GetModuleHandleEx(windows.GET_MODULE_HANDLE_EX_FLAG_UNCHANGED_REFCOUNT, &wname[0], &mod)
		if err != nil {
			return nil, os.NewSyscallError("GetModuleHandleEx", err)
		}
		return &Module{handle: mod, process: p}, nil
	}

	mods, err := p.Modules()
	if err != nil {
		return nil, err
	}
	return lookupModule(mods, name)
}

// lookupModule finds the module whose base name or path case-insensitively equals name.
func lookupModule(mods []*Module, name string) (*Module, error) {
	fold := cases.Fold()
	want := fold.String(name)
	for _, mod := range mods {
		if base, err := mod.Name(); err == nil && fold.String(base) == want {
			return mod, nil
		}
		if path, err := mod.Path(); err == nil && fold.String(path) == want {
			return mod, nil
		}
	}
	return nil, os.NewSyscallError("GetModuleHandleEx", windows.ERROR_MOD_NOT_FOUND)
}

// Modules returns the modules loaded into the process address space. The
// module list is measured and filled repeatedly until the reserved buffer
// is large enough, since modules may be loaded between the calls.
func (p *Process) Modules() ([]*Module, error) {
	var (
		needed  uint32
		hsize   = uint32(unsafe.Sizeof(windows.Handle(0)))
		handles = make([]windows.Handle, initialModuleSlots)
	)
	for {
		reserved := uint32(len(handles)) * hsize
		err := windows.EnumProcessModulesEx(p.handle.Raw(), &handles[0], reserved, &needed, windows.LIST_MODULES_ALL)
		if err != nil {
			return nil, os.NewSyscallError("EnumProcessModulesEx", err)
		}
		if needed <= reserved {
			break
		}
		moduleListResizes.Add(1)
		handles = make([]windows.Handle, needed/hsize)
	}
	handles = handles[:needed/hsize]
	mods := make([]*Module, 0, len(handles))
	for _, h := range handles {
		mods = append(mods, &Module{handle: h, process: p})
	}
	return mods, nil
}

// ModuleEntries returns the iterator over the module table snapshot of the
// process. The snapshot covers both 32-bit and 64-bit modules.
func (p *Process) ModuleEntries() (*ModuleEntryIterator, error) {
	pid, err := p.ID()
	if err != nil {
		return nil, err
	}
	snap, err := openModuleSnapshot(pid)
	if err != nil {
		return nil, err
	}
	return &ModuleEntryIterator{snap: snap}, nil
}

// ProcessIterator walks the process table snapshot. The iterator is forward
// only and can't be restarted. The caller owns every yielded process.
type ProcessIterator struct {
	snap   *snapshot[windows.ProcessEntry32]
	access Access
	proc   *Process
}

// Next advances to the next process that could be opened. It returns false
// once the snapshot is exhausted, after which the snapshot is released.
func (it *ProcessIterator) Next() bool {
	var e windows.ProcessEntry32
	for it.snap.advance(&e) {
		proc, err := OpenWithAccess(e.ProcessID, it.access)
		if err != nil {
			skip("process", e.ProcessID, err)
			continue
		}
		it.proc = proc
		return true
	}
	it.proc = nil
	return false
}

// Process returns the process the iterator is positioned on.
func (it *ProcessIterator) Process() *Process { return it.proc }

// Err returns the error that interrupted the walk, if any.
func (it *ProcessIterator) Err() error { return it.snap.err }

// Close releases the snapshot. Processes obtained from the iterator stay open.
func (it *ProcessIterator) Close() error { return it.snap.close() }

// All returns the sequence of processes. The snapshot is released when the
// sequence ends or the loop consuming it breaks.
func (it *ProcessIterator) All() iter.Seq[*Process] {
	return func(yield func(*Process) bool) {
		defer it.Close()
		for it.Next() {
			if !yield(it.Process()) {
				return
			}
		}
	}
}

// Collect drains the iterator into a slice and releases the snapshot.
func (it *ProcessIterator) Collect() ([]*Process, error) {
	var procs []*Process
	for proc := range it.All() {
		procs = append(procs, proc)
	}
	return procs, it.Err()
}

// ThreadIDIterator walks the system-wide thread table snapshot and yields the
// identifiers of the threads owned by a single process.
type ThreadIDIterator struct {
	snap *snapshot[windows.ThreadEntry32]
	pid  uint32
	id   uint32
}

// Next advances to the next thread of the process.
func (it *ThreadIDIterator) Next() bool {
	var e windows.ThreadEntry32
	for it.snap.advance(&e) {
		if e.OwnerProcessID == it.pid {
			it.id = e.ThreadID
			return true
		}
	}
	it.id = 0
	return false
}

// ID returns the thread identifier the iterator is positioned on.
func (it *ThreadIDIterator) ID() uint32 { return it.id }

// Err returns the error that interrupted the walk, if any.
func (it *ThreadIDIterator) Err() error { return it.snap.err }

// Close releases the snapshot.
func (it *ThreadIDIterator) Close() error { return it.snap.close() }

// All returns the sequence of thread identifiers.
func (it *ThreadIDIterator) All() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		defer it.Close()
		for it.Next() {
			if !yield(it.ID()) {
				return
			}
		}
	}
}

// ThreadIterator yields the opened threads of a single process. The caller
// owns every yielded thread.
type ThreadIterator struct {
	ids    *ThreadIDIterator
	thread *Thread
}

// Next advances to the next thread that could be opened.
func (it *ThreadIterator) Next() bool {
	for it.ids.Next() {
		thread, err := OpenThread(it.ids.ID())
		if err != nil {
			skip("thread", it.ids.ID(), err)
			continue
		}
		it.thread = thread
		return true
	}
	it.thread = nil
	return false
}

// Thread returns the thread the iterator is positioned on.
func (it *ThreadIterator) Thread() *Thread { return it.thread }

// Err returns the error that interrupted the walk, if any.
func (it *ThreadIterator) Err() error { return it.ids.Err() }

// Close releases the snapshot. Threads obtained from the iterator stay open.
func (it *ThreadIterator) Close() error { return it.ids.Close() }

// All returns the sequence of threads.
func (it *ThreadIterator) All() iter.Seq[*Thread] {
	return func(yield func(*Thread) bool) {
		defer it.Close()
		for it.Next() {
			if !yield(it.Thread()) {
				return
			}
		}
	}
}

// ModuleEntryIterator walks the module table snapshot of a single process.
type ModuleEntryIterator struct {
	snap  *snapshot[windows.ModuleEntry32]
	entry ModuleEntry
}

// Next advances to the next module entry.
func (it *ModuleEntryIterator) Next() bool {
	var e windows.ModuleEntry32
	if !it.snap.advance(&e) {
		it.entry = ModuleEntry{}
		return false
	}
	it.entry = NewModuleEntry(&e)
	return true
}

// Entry returns the module entry the iterator is positioned on.
func (it *ModuleEntryIterator) Entry() ModuleEntry { return it.entry }

// Err returns the error that interrupted the walk, if any.
func (it *ModuleEntryIterator) Err() error { return it.snap.err }

// Close releases the snapshot.
func (it *ModuleEntryIterator) Close() error { return it.snap.close() }

// All returns the sequence of module entries.
func (it *ModuleEntryIterator) All() iter.Seq[ModuleEntry] {
	return func(yield func(ModuleEntry) bool) {
		defer it.Close()
		for it.Next() {
			if !yield(it.Entry()) {
				return
			}
		}
	}
}
