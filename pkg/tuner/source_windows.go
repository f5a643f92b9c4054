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

package tuner

import (
	"context"

	"github.com/rabbitstack/pstool/pkg/ps"
)

// ProcessSource discovers processes from the system process table.
type ProcessSource struct {
	// Access are the rights every process is opened with. Pinning requires
	// at least QueryLimitedInformation and SetInformation.
	Access ps.Access
}

// NewProcessSource creates the source that opens processes with the rights
// needed to change their affinity.
func NewProcessSource() *ProcessSource {
	return &ProcessSource{Access: ps.QueryLimitedInformation | ps.SetInformation}
}

// Processes enumerates running processes that can be opened with the source access rights.
func (s *ProcessSource) Processes(ctx context.Context) ([]Target, error) {
	procs, err := ps.AllWithAccess(s.Access)
	if err != nil {
		return nil, err
	}
	defer procs.Close()
	var targets []Target
	for procs.Next() {
		targets = append(targets, procs.Process())
		if err := ctx.Err(); err != nil {
			closeAll(targets)
			return nil, err
		}
	}
	if err := procs.Err(); err != nil {
		closeAll(targets)
		return nil, err
	}
	return targets, nil
}
