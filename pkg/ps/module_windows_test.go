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
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/windows"
)

func TestNewModuleEntry(t *testing.T) {
	var e windows.ModuleEntry32
	e.ModuleID = 1
	e.ProcessID = 4242
	e.GlblcntUsage = 0xFFFF
	e.ProccntUsage = 2
	e.ModBaseAddr = 0x7ff000000000
	e.ModBaseSize = 0x1000
	e.ModuleHandle = windows.Handle(0x7ff000000000)
	copy(e.Module[:], utf16.Encode([]rune("ntdll.dll")))
	copy(e.ExePath[:], utf16.Encode([]rune(`C:\Windows\System32\ntdll.dll`)))

	entry := NewModuleEntry(&e)
	assert.Equal(t, ModuleEntry{
		ID:               1,
		Name:             "ntdll.dll",
		Path:             `C:\Windows\System32\ntdll.dll`,
		Handle:           windows.Handle(0x7ff000000000),
		ProcessID:        4242,
		GlobalLoadCount:  0xFFFF,
		ProcessLoadCount: 2,
		BaseAddress:      0x7ff000000000,
		BaseSize:         0x1000,
	}, entry)
}

func TestNewModuleEntryUnterminatedBuffers(t *testing.T) {
	var e windows.ModuleEntry32
	for i := range e.Module {
		e.Module[i] = 'a'
	}
	for i := range e.ExePath {
		e.ExePath[i] = 'b'
	}

	entry := NewModuleEntry(&e)
	assert.Equal(t, strings.Repeat("a", len(e.Module)), entry.Name)
	assert.Equal(t, strings.Repeat("b", len(e.ExePath)), entry.Path)
}

func TestNewModuleEntryEmptyNames(t *testing.T) {
	var e windows.ModuleEntry32
	// garbage after the terminator is ignored
	e.Module[1] = 'x'
	e.ExePath[5] = 'y'

	entry := NewModuleEntry(&e)
	assert.Empty(t, entry.Name)
	assert.Empty(t, entry.Path)
}
