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
	"os"

	"golang.org/x/sys/windows"
)

// Errno extracts the Win32 error code from the error returned by a failed API call.
func Errno(err error) (windows.Errno, bool) {
	var errno windows.Errno
	if errors.As(err, &errno) {
		return errno, true
	}
	return 0, false
}

// IsOSError returns true if the error was produced by a failed API call.
func IsOSError(err error) bool {
	var serr *os.SyscallError
	if errors.As(err, &serr) {
		return true
	}
	_, ok := Errno(err)
	return ok
}

// IsAccessDenied determines if the API call failed due to insufficient access rights.
func IsAccessDenied(err error) bool {
	return errors.Is(err, windows.ERROR_ACCESS_DENIED)
}
