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

// Package version holds the build information injected at link time.
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	semver "github.com/hashicorp/go-version"
	"github.com/jedib0t/go-pretty/v6/table"
)

// These are set through -ldflags "-X github.com/rabbitstack/pstool/pkg/util/version.version=..."
var (
	version string
	commit  string
	date    string
)

// Info stores the release information along with the commit that produced the release.
type Info struct {
	// Version is nil for development builds.
	Version *semver.Version
	Commit  string
	Date    string
}

// Set overrides the version string.
func Set(v string) { version = v }

// IsDev determines if this is a dev version.
func IsDev() bool { return version == "" || version == "0.0.0" }

// Get returns the build information. Development builds take the commit from
// the VCS stamp embedded by the Go toolchain.
func Get() (Info, error) {
	info := Info{Commit: commit, Date: date}
	if info.Commit == "" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				switch s.Key {
				case "vcs.revision":
					info.Commit = s.Value
				case "vcs.time":
					if info.Date == "" {
						info.Date = s.Value
					}
				}
			}
		}
	}
	if IsDev() {
		return info, nil
	}
	v, err := semver.NewSemver(version)
	if err != nil {
		return info, fmt.Errorf("invalid release version %q: %v", version, err)
	}
	info.Version = v
	return info, nil
}

// String returns the version string.
func (i Info) String() string {
	if i.Version == nil {
		return "dev"
	}
	return i.Version.String()
}

// Render writes the version information table.
func (i Info) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendRow(table.Row{"Version", i.String()})
	t.AppendRow(table.Row{"Commit", i.Commit})
	t.AppendRow(table.Row{"Build date", i.Date})

	t.AppendSeparator()

	t.AppendRow(table.Row{"Go compiler", runtime.Version()})
	t.AppendRow(table.Row{"Platform", runtime.GOOS + "/" + runtime.GOARCH})

	t.Render()
}
