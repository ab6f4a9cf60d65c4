/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package sysclock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/timepool/poolclock/leapsectz"
	"github.com/timepool/poolclock/source"
)

func writeLeapFile(t *testing.T) string {
	p := filepath.Join(t.TempDir(), "UTC")
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, leapsectz.Write(f, '2', []leapsectz.LeapSecond{
		{Tleap: 1435708825, Nleap: 26},
		{Tleap: 1483228826, Nleap: 27},
	}, ""))
	return p
}

func TestSourceLeapFromFile(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2016, 12, 31, 20, 0, 0, 0, time.UTC))
	s := New(clock, writeLeapFile(t))
	s.kernel = func() (int, error) { return 0, errors.New("unsupported") }

	require.Equal(t, Name, s.Name())
	require.True(t, s.Acquired())
	require.Equal(t, 1, s.PendingLeapSecond())

	sample, err := s.Sample(context.Background(), clock.Now())
	require.NoError(t, err)
	require.Equal(t, clock.Now().UnixMilli(), sample.Time)
	require.Equal(t, 1, sample.PendingLeap)

	clock.Advance(5 * time.Hour)
	require.Equal(t, 0, s.PendingLeapSecond())
}

func TestSourceLeapFromKernel(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2020, 6, 30, 20, 0, 0, 0, time.UTC))
	s := New(clock, filepath.Join(t.TempDir(), "missing"))
	s.kernel = func() (int, error) { return -1, nil }
	require.Equal(t, -1, s.PendingLeapSecond())

	s.kernel = func() (int, error) { return 0, nil }
	latest, ok := s.Latest()
	require.True(t, ok)
	require.Equal(t, 0, latest.PendingLeap)
}

func TestSourceDebugAndClose(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock, filepath.Join(t.TempDir(), "missing"))
	s.kernel = func() (int, error) { return 0, nil }

	s.SetDebugTime(time.Date(2091, 12, 31, 23, 59, 59, 0, time.UTC), 1)
	clock.Advance(1500 * time.Millisecond)
	latest, ok := s.Latest()
	require.True(t, ok)
	require.Equal(t, "2091-12-31T23:59:60.500Z", latest.Text)
	s.ClearDebugTime()

	require.NoError(t, s.Close())
	require.False(t, s.CanPoll())
	_, ok = s.Latest()
	require.False(t, ok)
	_, err := s.Sample(context.Background(), clock.Now())
	require.ErrorIs(t, err, source.ErrClosed)
}
