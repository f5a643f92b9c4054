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

	"github.com/stretchr/testify/mock"
)

// SourceMock is the process source mock used in tests.
type SourceMock struct {
	mock.Mock
}

// Processes method
func (s *SourceMock) Processes(ctx context.Context) ([]Target, error) {
	args := s.Called(ctx)
	targets, _ := args.Get(0).([]Target)
	return targets, args.Error(1)
}

// TargetMock is the process mock used in tests.
type TargetMock struct {
	mock.Mock
}

// ID method
func (t *TargetMock) ID() (uint32, error) {
	args := t.Called()
	return args.Get(0).(uint32), args.Error(1)
}

// Name method
func (t *TargetMock) Name() (string, error) {
	args := t.Called()
	return args.String(0), args.Error(1)
}

// SystemAffinityMask method
func (t *TargetMock) SystemAffinityMask() (uintptr, error) {
	args := t.Called()
	return args.Get(0).(uintptr), args.Error(1)
}

// SetAffinityMask method
func (t *TargetMock) SetAffinityMask(mask uintptr) (uintptr, error) {
	args := t.Called(mask)
	return args.Get(0).(uintptr), args.Error(1)
}

// Close method
func (t *TargetMock) Close() error { return t.Called().Error(0) }
