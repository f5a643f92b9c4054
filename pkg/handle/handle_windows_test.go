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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/windows"
)

func openSelf(t *testing.T) windows.Handle {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, windows.GetCurrentProcessId())
	require.NoError(t, err)
	return h
}

func TestCloseReleasesOnce(t *testing.T) {
	live := Live()
	h := New(openSelf(t))
	assert.Equal(t, live+1, Live())
	assert.False(t, h.IsClosed())

	require.NoError(t, h.Close())
	assert.True(t, h.IsClosed())
	assert.Equal(t, live, Live())
	assert.Equal(t, windows.Handle(0), h.Raw())

	_, err := windows.GetProcessId(h.Raw())
	require.ErrorIs(t, err, windows.ERROR_INVALID_HANDLE)

	// second close must not touch the kernel object again
	require.NoError(t, h.Close())
	assert.Equal(t, live, Live())
}

func TestRawLendsOwnership(t *testing.T) {
	h := New(openSelf(t))
	defer h.Close()

	pid, err := windows.GetProcessId(h.Raw())
	require.NoError(t, err)
	assert.Equal(t, windows.GetCurrentProcessId(), pid)
	assert.False(t, h.IsClosed())
}

func TestIntoRawForfeitsOwnership(t *testing.T) {
	live := Live()
	h := New(openSelf(t))
	raw := h.IntoRaw()

	assert.True(t, h.IsClosed())
	assert.Equal(t, live, Live())
	require.NoError(t, h.Close())

	// the raw handle is still valid because Close was a no-op
	pid, err := windows.GetProcessId(raw)
	require.NoError(t, err)
	assert.Equal(t, windows.GetCurrentProcessId(), pid)
	require.NoError(t, windows.CloseHandle(raw))

	assert.Equal(t, windows.Handle(0), h.IntoRaw())
}

func TestPseudoHandle(t *testing.T) {
	live := Live()
	h := Pseudo(windows.CurrentProcess())
	assert.True(t, h.IsPseudo())
	assert.Equal(t, live, Live())
	require.NoError(t, h.Close())
	assert.Equal(t, windows.Handle(0), h.Raw())

	// the pseudo-handle stays usable for the rest of the process lifetime
	pid, err := windows.GetProcessId(windows.CurrentProcess())
	require.NoError(t, err)
	assert.Equal(t, windows.GetCurrentProcessId(), pid)
}
