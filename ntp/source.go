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
Package ntp implements a pool time source backed by one NTP server.

The protocol exchange itself is done by github.com/beevik/ntp. The source keeps
the clock offset and the leap indicator of the last good response so that its
time can be read back at any moment without network wait.
*/
package ntp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	beevik "github.com/beevik/ntp"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/timepool/poolclock/source"
)

// ErrKissOfDeath is returned when the server asked us to stop querying it
var ErrKissOfDeath = errors.New("kiss of death")

// QueryFunc performs one NTP exchange with host
type QueryFunc func(host string, opt beevik.QueryOptions) (*beevik.Response, error)

// Source is a TimeSource reading one NTP server
type Source struct {
	host    string
	timeout time.Duration
	query   QueryFunc
	clock   clockwork.Clock

	mu       sync.Mutex
	offset   time.Duration
	leap     int
	acquired bool
	closed   bool
	kissed   bool
	debug    *source.DebugClock
}

// New returns a Source for host. timeout bounds each query
func New(host string, timeout time.Duration, clock clockwork.Clock) *Source {
	return &Source{
		host:    host,
		timeout: timeout,
		query:   beevik.QueryWithOptions,
		clock:   clock,
	}
}

// Name implements source.TimeSource
func (s *Source) Name() string {
	return s.host
}

// LeapFromIndicator converts the NTP leap indicator into the sign of the pending leap second
func LeapFromIndicator(li beevik.LeapIndicator) int {
	switch li {
	case beevik.LeapAddSecond:
		return 1
	case beevik.LeapDelSecond:
		return -1
	}
	return 0
}

type result struct {
	resp *beevik.Response
	err  error
}

// Sample implements source.TimeSource
func (s *Source) Sample(ctx context.Context, requestTime time.Time) (*source.Sample, error) {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return nil, source.ErrClosed
	case s.kissed:
		s.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", s.host, ErrKissOfDeath)
	case s.debug != nil:
		t, pending, excess := s.debug.Read(s.offset)
		s.mu.Unlock()
		return source.NewSample(s.host, t, pending, excess), nil
	}
	s.mu.Unlock()

	// the client has no context support, so the exchange runs aside and we stop waiting on ctx
	ch := make(chan result, 1)
	go func() {
		resp, err := s.query(s.host, beevik.QueryOptions{Timeout: s.timeout})
		ch <- result{resp: resp, err: err}
	}()
	var r result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", s.host, ctx.Err())
	case r = <-ch:
	}
	if r.err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.host, r.err)
	}
	resp := r.resp
	if resp.IsKissOfDeath() {
		if resp.KissCode == "DENY" || resp.KissCode == "RSTR" {
			s.mu.Lock()
			s.kissed = true
			s.mu.Unlock()
			log.Warningf("%s sent kiss code %s, not polling it anymore", s.host, resp.KissCode)
		}
		return nil, fmt.Errorf("%s: %w %s", s.host, ErrKissOfDeath, resp.KissCode)
	}
	if err := resp.Validate(); err != nil {
		return nil, fmt.Errorf("invalid response from %s: %w", s.host, err)
	}

	leap := LeapFromIndicator(resp.Leap)
	s.mu.Lock()
	s.offset = resp.ClockOffset
	s.leap = leap
	s.acquired = true
	s.mu.Unlock()

	sample := source.NewSample(s.host, requestTime.Add(resp.ClockOffset).UnixMilli(), leap, 0)
	sample.Stratum = resp.Stratum
	sample.ReferenceID = resp.ReferenceID
	sample.Offset = resp.ClockOffset
	sample.RTT = resp.RTT
	log.Debugf("%s: offset %v, rtt %v, stratum %d, leap %d", s.host, resp.ClockOffset, resp.RTT, resp.Stratum, leap)
	return sample, nil
}

// Latest implements source.TimeSource
func (s *Source) Latest() (*source.Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	if s.debug != nil {
		t, pending, excess := s.debug.Read(s.offset)
		return source.NewSample(s.host, t, pending, excess), true
	}
	if !s.acquired {
		return nil, false
	}
	return source.NewSample(s.host, s.clock.Now().Add(s.offset).UnixMilli(), s.leap, 0), true
}

// Acquired implements source.TimeSource
func (s *Source) Acquired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired || s.debug != nil
}

// CanPoll implements source.TimeSource
func (s *Source) CanPoll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && !s.kissed
}

// PendingLeapSecond implements source.TimeSource
func (s *Source) PendingLeapSecond() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debug != nil {
		_, pending, _ := s.debug.Read(s.offset)
		return pending
	}
	return s.leap
}

// SetDebugTime implements source.TimeSource. Simulated sources always step
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
