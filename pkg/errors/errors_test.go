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

package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrNoProcess(t *testing.T) {
	err := fmt.Errorf("lookup: %w", ErrNoProcess{Name: "notepad.exe"})
	assert.True(t, IsNoProcess(err))
	assert.False(t, IsNulName(err))
	assert.EqualError(t, err, "lookup: couldn't find a process named notepad.exe")
}

func TestErrNulName(t *testing.T) {
	err := ErrNulName{Pos: 3, Data: []uint16{'k', 'e', 'r', 0, 'l'}}
	assert.True(t, IsNulName(err))
	assert.False(t, IsNoProcess(err))
	assert.Equal(t, "name contains a NUL character at position 3", err.Error())
}

func TestIsProcessClosed(t *testing.T) {
	assert.True(t, IsProcessClosed(fmt.Errorf("module info: %w", ErrProcessClosed)))
	assert.False(t, IsProcessClosed(ErrProcessorOutOfRange(70)))
	assert.EqualError(t, ErrProcessorOutOfRange(70), "processor 70 is out of the affinity mask range")
}
