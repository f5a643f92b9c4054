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
	"errors"
	"testing"
	"time"

	pserrors "github.com/rabbitstack/pstool/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func target(pid uint32, name string) *TargetMock {
	t := new(TargetMock)
	t.On("ID").Return(pid, nil).Maybe()
	t.On("Name").Return(name, nil).Maybe()
	t.On("SystemAffinityMask").Return(uintptr(0xFF), nil).Maybe()
	t.On("Close").Return(nil)
	return t
}

func TestNewValidatesProfiles(t *testing.T) {
	var tests = []struct {
		name    string
		profile Profile
		err     bool
	}{
		{"valid", Profile{Name: "games", Image: "*.exe", CPUs: "0-3"}, false},
		{"no name", Profile{Image: "*.exe", CPUs: "0-3"}, true},
		{"no image", Profile{Name: "games", CPUs: "0-3"}, true},
		{"bad cpus", Profile{Name: "games", Image: "*.exe", CPUs: "3-0"}, true},
		{"cpus out of range", Profile{Name: "games", Image: "*.exe", CPUs: "0,99"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Config{Profiles: []Profile{tt.profile}}, new(SourceMock))
			if tt.err {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestMatchFirstProfileWins(t *testing.T) {
	tuner, err := New(Config{Profiles: []Profile{
		{Name: "browser", Image: "chrome.exe", CPUs: "0-1"},
		{Name: "any", Image: "*.exe", CPUs: "2-3"},
	}}, new(SourceMock))
	require.NoError(t, err)

	p, ok := tuner.Match("CHROME.EXE")
	require.True(t, ok)
	assert.Equal(t, "browser", p.Name)

	p, ok = tuner.Match("notepad.exe")
	require.True(t, ok)
	assert.Equal(t, "any", p.Name)

	_, ok = tuner.Match("System")
	assert.False(t, ok)
}

func TestApply(t *testing.T) {
	chrome := target(1200, "chrome.exe")
	chrome.On("SetAffinityMask", uintptr(0x3)).Return(uintptr(0xFF), nil)
	notepad := target(3400, "notepad.exe")
	svc := target(800, "svchost.exe")
	svc.On("SetAffinityMask", uintptr(0xC)).Return(uintptr(0), errors.New("Access is denied."))
	unnamed := new(TargetMock)
	unnamed.On("Name").Return("", errors.New("The parameter is incorrect."))
	unnamed.On("Close").Return(nil)

	src := new(SourceMock)
	src.On("Processes", mock.Anything).Return([]Target{chrome, notepad, svc, unnamed}, nil)

	tuner, err := New(Config{Profiles: []Profile{
		{Name: "browser", Image: "chrome*.exe", CPUs: "0-1"},
		{Name: "services", Image: "svchost.exe", CPUs: "2,3"},
	}}, src)
	require.NoError(t, err)

	results, err := tuner.Apply(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, Result{Profile: "browser", PID: 1200, Image: "chrome.exe", Previous: 0xFF, Applied: 0x3}, results[0])
	assert.Equal(t, "services", results[1].Profile)
	assert.Equal(t, uint32(800), results[1].PID)
	assert.Error(t, results[1].Err)
	assert.Zero(t, results[1].Applied)

	notepad.AssertNotCalled(t, "SetAffinityMask", mock.Anything)
	for _, m := range []*TargetMock{chrome, notepad, svc, unnamed} {
		m.AssertCalled(t, "Close")
	}
	src.AssertExpectations(t)
}

func TestApplyRestrictsToSystemProcessors(t *testing.T) {
	game := new(TargetMock)
	game.On("ID").Return(uint32(77), nil)
	game.On("Name").Return("game.exe", nil)
	game.On("SystemAffinityMask").Return(uintptr(0x3), nil)
	game.On("SetAffinityMask", uintptr(0x2)).Return(uintptr(0x3), nil)
	game.On("Close").Return(nil)
	tiny := new(TargetMock)
	tiny.On("ID").Return(uint32(78), nil)
	tiny.On("Name").Return("tiny.exe", nil)
	tiny.On("SystemAffinityMask").Return(uintptr(0x1), nil)
	tiny.On("Close").Return(nil)

	src := new(SourceMock)
	src.On("Processes", mock.Anything).Return([]Target{game, tiny}, nil)

	tuner, err := New(Config{Profiles: []Profile{{Name: "upper", Image: "*.exe", CPUs: "1-7"}}}, src)
	require.NoError(t, err)

	results, err := tuner.Apply(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	assert.Equal(t, uintptr(0x2), results[0].Applied)
	assert.Error(t, results[1].Err)
	tiny.AssertNotCalled(t, "SetAffinityMask", mock.Anything)
}

func TestApplySourceError(t *testing.T) {
	src := new(SourceMock)
	src.On("Processes", mock.Anything).Return(nil, errors.New("snapshot failed"))

	tuner, err := New(Config{}, src)
	require.NoError(t, err)
	_, err = tuner.Apply(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot failed")
}

func TestWaitFor(t *testing.T) {
	other := target(10, "explorer.exe")
	game := target(20, "Game.exe")

	src := new(SourceMock)
	src.On("Processes", mock.Anything).Return([]Target{other}, nil).Once()
	src.On("Processes", mock.Anything).Return([]Target{other, game}, nil).Once()

	tuner, err := New(Config{Wait: WaitConfig{InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond, MaxElapsed: time.Second}}, src)
	require.NoError(t, err)

	found, err := tuner.WaitFor(context.Background(), "game.exe")
	require.NoError(t, err)
	pid, err := found.ID()
	require.NoError(t, err)
	assert.Equal(t, uint32(20), pid)

	game.AssertNotCalled(t, "Close")
	other.AssertNumberOfCalls(t, "Close", 2)
	src.AssertExpectations(t)
}

func TestWaitForGivesUp(t *testing.T) {
	src := new(SourceMock)
	src.On("Processes", mock.Anything).Return([]Target{}, nil)

	tuner, err := New(Config{Wait: WaitConfig{InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, MaxElapsed: 20 * time.Millisecond}}, src)
	require.NoError(t, err)

	_, err = tuner.WaitFor(context.Background(), "game.exe")
	require.Error(t, err)
	assert.True(t, pserrors.IsNoProcess(err))
}

func TestWaitForCanceled(t *testing.T) {
	src := new(SourceMock)
	src.On("Processes", mock.Anything).Return([]Target{}, nil)

	tuner, err := New(Config{Wait: WaitConfig{InitialInterval: time.Hour, MaxInterval: time.Hour}}, src)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = tuner.WaitFor(ctx, "game.exe")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
