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
	"errors"
	"fmt"
)

var (
	// ErrProcessClosed is returned when a module is used after the process it was obtained from has been closed
	ErrProcessClosed = errors.New("the process owning the module was closed")

	// ErrProcessorOutOfRange is thrown when a logical processor index doesn't fit in the affinity mask
	ErrProcessorOutOfRange = func(processor uint) error {
		return fmt.Errorf("processor %d is out of the affinity mask range", processor)
	}
)

// ErrNoProcess is returned when there is no running process with the given name.
type ErrNoProcess struct {
	Name string
}

// Error returns the error message.
func (e ErrNoProcess) Error() string {
	return "couldn't find a process named " + e.Name
}

// ErrNulName is returned when the name handed to the OS contains an embedded NUL
// character which can't be represented in a wide string.
type ErrNulName struct {
	// Pos is the position of the NUL character in the UTF-16 encoded name.
	Pos int
	// Data contains the UTF-16 encoded name.
	Data []uint16
}

// Error returns the error message.
func (e ErrNulName) Error() string {
	return fmt.Sprintf("name contains a NUL character at position %d", e.Pos)
}

// IsNoProcess returns true if the error is ErrNoProcess.
func IsNoProcess(err error) bool {
	var e ErrNoProcess
	return errors.As(err, &e)
}

// IsNulName returns true if the error is ErrNulName.
func IsNulName(err error) bool {
	var e ErrNulName
	return errors.As(err, &e)
}

// IsProcessClosed determines if the error being passed is of ErrProcessClosed type.
func IsProcessClosed(err error) bool { return errors.Is(err, ErrProcessClosed) }
