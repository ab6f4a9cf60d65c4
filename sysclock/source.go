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

/*
Package sysclock exposes the host system clock as a pool time source.

The pending leap second comes from the kernel first. If the kernel is not armed
or cannot be asked, the leap table of a TZif file such as right/UTC is used.
*/
package sysclock

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/timepool/poolclock/clock"
	"github.com/timepool/poolclock/leapsectz"
	"github.com/timepool/poolclock/source"
)

// Name of the host clock source
const Name = "system"

// Source is a TimeSource reading the local clock
type Source struct {
	clock    clockwork.Clock
	kernel   func() (int, error)
	leaps    []leapsectz.LeapSecond
	leapsErr error

	mu     sync.Mutex
	closed bool
	debug  *source.DebugClock
}

// New returns the host clock source. leapFile may be empty to use the system zoneinfo
func New(clk clockwork.Clock, leapFile string) *Source {
	s := &Source{
		clock:  clk,
		kernel: clock.PendingLeap,
	}
	s.leaps, s.leapsErr = leapsectz.Parse(leapFile)
	if s.leapsErr != nil {
		log.Warningf("no leap second table for the system clock: %v", s.leapsErr)
	} else if l, ok := leapsectz.Last(s.leaps, clk.Now()); ok {
		log.Debugf("leap second table loaded, last leap second at %s", l.Time().UTC())
	}
	return s
}

// Name implements source.TimeSource
func (s *Source) Name() string {
	return Name
}

func (s *Source) pendingLeap(now time.Time) int {
	leap, err := s.kernel()
	if err != nil {
		log.Debugf("kernel leap second state: %v", err)
	}
	if leap != 0 {
		return leap
	}
	if s.leapsErr != nil {
		return 0
	}
	return leapsectz.Pending(s.leaps, now)
}

func (s *Source) read(at time.Time) *source.Sample {
	if s.debug != nil {
		t, pending, excess := s.debug.Read(0)
		return source.NewSample(Name, t, pending, excess)
	}
	return source.NewSample(Name, at.UnixMilli(), s.pendingLeap(at), 0)
}

// Sample implements source.TimeSource. The host clock answers immediately
func (s *Source) Sample(ctx context.Context, requestTime time.Time) (*source.Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, source.ErrClosed
	}
	return s.read(requestTime), nil
}

// Latest implements source.TimeSource
func (s *Source) Latest() (*source.Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	return s.read(s.clock.Now()), true
}

// Acquired implements source.TimeSource
func (s *Source) Acquired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// CanPoll implements source.TimeSource
func (s *Source) CanPoll() bool {
	return s.Acquired()
}

// PendingLeapSecond implements source.TimeSource
func (s *Source) PendingLeapSecond() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debug != nil {
		_, pending, _ := s.debug.Read(0)
		return pending
	}
	return s.pendingLeap(s.clock.Now())
}

// SetDebugTime implements source.TimeSource
func (s *Source) SetDebugTime(base time.Time, leap int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debug = source.NewDebugClock(s.clock, base, leap, false)
}

// ClearDebugTime implements source.TimeSource
func (s *Source) ClearDebugTime() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debug = nil
}

// Close implements source.TimeSource
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
