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

package app

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rabbitstack/pstool/pkg/errors"
	"github.com/rabbitstack/pstool/pkg/ps"
)

// maxSuggestions is the number of similar process names offered when the name lookup fails
const maxSuggestions = 3

// openProcess opens the process given either by its identifier or its image name.
func openProcess(arg string, access ps.Access) (*ps.Process, error) {
	if pid, err := strconv.ParseUint(arg, 10, 32); err == nil {
		return ps.OpenWithAccess(uint32(pid), access)
	}
	proc, err := ps.OpenByNameWithAccess(arg, access)
	if errors.IsNoProcess(err) {
		if s := suggest(arg); len(s) > 0 {
			return nil, fmt.Errorf("%v. Did you mean %s?", err, strings.Join(s, ", "))
		}
	}
	return proc, err
}

// suggest returns the names of running processes that resemble the name.
func suggest(name string) []string {
	procs, err := ps.AllWithAccess(ps.QueryLimitedInformation)
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	for proc := range procs.All() {
		if n, err := proc.Name(); err == nil && !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
		_ = proc.Close()
	}
	ranks := fuzzy.RankFindFold(name, names)
	sort.Sort(ranks)
	var suggestions []string
	for _, r := range ranks {
		if len(suggestions) == maxSuggestions {
			break
		}
		suggestions = append(suggestions, r.Target)
	}
	return suggestions
}

func newTable(w io.Writer, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(header)
	return t
}

func hex(v uintptr) string { return fmt.Sprintf("0x%x", v) }
