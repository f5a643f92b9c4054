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

// Package spinner renders the progress indicator for long waits.
package spinner

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// Show creates a new spinner writing to w and starts it.
func Show(w io.Writer, prefix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Prefix = "> " + prefix + " "
	s.HideCursor = true
	s.Start()
	return s
}

// Stop stops the spinner and leaves the final message in its place.
func Stop(s *spinner.Spinner, msg string) {
	s.FinalMSG = msg + "\n"
	s.Stop()
}
