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

package source

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Fake is a deterministic TimeSource. It reads the given clock shifted by a fixed
// offset, and can be told to fail, to have no sample, or to smear leap seconds.
type Fake struct {
	name   string
	clock  clockwork.Clock
	offset time.Duration

	mu      sync.Mutex
	smear   bool
	pending int
	err     error
	absent  bool
	closed  bool
	debug   *DebugClock
}

// NewFake returns a Fake reading clock + offset
func NewFake(name string, clock clockwork.Clock, offset time.Duration) *Fake {
	return &Fake{
		name:   name,
		clock:  clock,
		offset: offset,
	}
}

// SetSmearing makes simulated leap seconds smeared instead of stepped.
// Applies on the next SetDebugTime.
func (f *Fake) SetSmearing(smear bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.smear = smear
}

// SetPendingLeap sets the leap flag reported outside of debug time
func (f *Fake) SetPendingLeap(leap int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = leap
}

// SetFailure makes Sample fail with err. nil restores normal operation
func (f *Fake) SetFailure(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// SetAbsent makes Latest report no sample
func (f *Fake) SetAbsent(absent bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.absent = absent
}

// Name implements TimeSource
func (f *Fake) Name() string {
	return f.name
}

func (f *Fake) read(at time.Time) *Sample {
	if f.debug != nil {
		t, pending, excess := f.debug.Read(f.offset)
		return NewSample(f.name, t, pending, excess)
	}
	return NewSample(f.name, at.Add(f.offset).UnixMilli(), f.pending, 0)
}

// Sample implements TimeSource
func (f *Fake) Sample(ctx context.Context, requestTime time.Time) (*Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}
	if f.err != nil {
		return nil, f.err
	}
	s := f.read(requestTime)
	s.Offset = f.offset
	return s, nil
}

// Latest implements TimeSource
func (f *Fake) Latest() (*Sample, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.absent || f.closed {
		return nil, false
	}
	return f.read(f.clock.Now()), true
}

// Acquired implements TimeSource
func (f *Fake) Acquired() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.absent && !f.closed
}

// CanPoll implements TimeSource
func (f *Fake) CanPoll() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

// PendingLeapSecond implements TimeSource
func (f *Fake) PendingLeapSecond() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.debug != nil {
		_, pending, _ := f.debug.Read(f.offset)
		return pending
	}
	return f.pending
}

// SetDebugTime implements TimeSource
func (f *Fake) SetDebugTime(base time.Time, leap int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debug = NewDebugClock(f.clock, base, leap, f.smear)
}

// ClearDebugTime implements TimeSource
func (f *Fake) ClearDebugTime() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debug = nil
}

// Close implements TimeSource
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
