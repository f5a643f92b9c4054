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

import "context"

// Target is the process the tuner can inspect and pin to processors.
type Target interface {
	ID() (uint32, error)
	Name() (string, error)
	SystemAffinityMask() (uintptr, error)
	SetAffinityMask(mask uintptr) (uintptr, error)
	Close() error
}

// Source discovers running processes. The caller owns the returned targets.
type Source interface {
	Processes(ctx context.Context) ([]Target, error)
}

func closeAll(targets []Target) {
	for _, t := range targets {
		_ = t.Close()
	}
}
