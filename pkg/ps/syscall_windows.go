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
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// API functions that are not exported by the windows package.
var (
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	getProcessAffinityMask    = kernel32.NewProc("GetProcessAffinityMask")
	setProcessAffinityMask    = kernel32.NewProc("SetProcessAffinityMask")
	getThreadID               = kernel32.NewProc("GetThreadId")
	getProcessIDOfThread      = kernel32.NewProc("GetProcessIdOfThread")
	queryThreadCycleTime      = kernel32.NewProc("QueryThreadCycleTime")
	getThreadIdealProcessorEx = kernel32.NewProc("GetThreadIdealProcessorEx")
	setThreadIdealProcessor   = kernel32.NewProc("SetThreadIdealProcessor")
	setThreadAffinityMask     = kernel32.NewProc("SetThreadAffinityMask")
)

// processorNumber mirrors the PROCESSOR_NUMBER structure.
type processorNumber struct {
	Group    uint16
	Number   uint8
	Reserved uint8
}

// syscallError builds the OS error for the failed API function. A zero
// errno, which some functions leave behind despite failing, is mapped to
// EINVAL so the caller never gets a nil error for a failed call.
func syscallError(fn string, err error) error {
	if errno, ok := err.(syscall.Errno); ok && errno == 0 {
		err = syscall.EINVAL
	}
	return os.NewSyscallError(fn, err)
}

func getAffinityMasks(proc windows.Handle) (uintptr, uintptr, error) {
	var procMask, sysMask uintptr
	ret, _, err := getProcessAffinityMask.Call(uintptr(proc), uintptr(unsafe.Pointer(&procMask)), uintptr(unsafe.Pointer(&sysMask)))
	if ret == 0 {
		return 0, 0, syscallError("GetProcessAffinityMask", err)
	}
	return procMask, sysMask, nil
}

func setAffinityMask(proc windows.Handle, mask uintptr) error {
	ret, _, err := setProcessAffinityMask.Call(uintptr(proc), mask)
	if ret == 0 {
		return syscallError("SetProcessAffinityMask", err)
	}
	return nil
}

func threadID(thread windows.Handle) (uint32, error) {
	id, _, err := getThreadID.Call(uintptr(thread))
	if id == 0 {
		return 0, syscallError("GetThreadId", err)
	}
	return uint32(id), nil
}

func processIDOfThread(thread windows.Handle) (uint32, error) {
	pid, _, err := getProcessIDOfThread.Call(uintptr(thread))
	if pid == 0 {
		return 0, syscallError("GetProcessIdOfThread", err)
	}
	return uint32(pid), nil
}

func threadCycleTime(thread windows.Handle) (uint64, error) {
	var cycles uint64
	ret, _, err := queryThreadCycleTime.Call(uintptr(thread), uintptr(unsafe.Pointer(&cycles)))
	if ret == 0 {
		return 0, syscallError("QueryThreadCycleTime", err)
	}
	return cycles, nil
}

func threadIdealProcessor(thread windows.Handle) (processorNumber, error) {
	var pn processorNumber
	ret, _, err := getThreadIdealProcessorEx.Call(uintptr(thread), uintptr(unsafe.Pointer(&pn)))
	if ret == 0 {
		return pn, syscallError("GetThreadIdealProcessorEx", err)
	}
	return pn, nil
}

func setIdealProcessor(thread windows.Handle, processor uint32) (uint32, error) {
	prev, _, err := setThreadIdealProcessor.Call(uintptr(thread), uintptr(processor))
	if uint32(prev) == ^uint32(0) {
		return 0, syscallError("SetThreadIdealProcessor", err)
	}
	return uint32(prev), nil
}

func setThreadAffinity(thread windows.Handle, mask uintptr) (uintptr, error) {
	prev, _, err := setThreadAffinityMask.Call(uintptr(thread), mask)
	if prev == 0 {
		return 0, syscallError("SetThreadAffinityMask", err)
	}
	return prev, nil
}
