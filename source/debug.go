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
	"time"

	"github.com/jonboulle/clockwork"
)

// DebugClock simulates the clock of a time source which starts at base and then
// follows the process clock. When a leap second is forced, the simulated source
// either steps through it at the half-year boundary or smears it over the day
// around that boundary.
type DebugClock struct {
	clock    clockwork.Clock
	started  time.Time
	base     int64
	leap     int
	boundary int64
	smear    bool
}

// NewDebugClock starts a simulated clock at base
func NewDebugClock(clock clockwork.Clock, base time.Time, leap int, smear bool) *DebugClock {
	d := &DebugClock{
		clock:   clock,
		started: clock.Now(),
		base:    base.UnixMilli(),
		smear:   smear,
	}
	if leap != 0 {
		if b, err := LeapBoundary(d.base, leap); err == nil {
			d.leap = leap
			d.boundary = b
		}
	}
	return d
}

// Read returns the simulated time shifted by offset, the pending leap flag and
// the leap excess, in the form a real source would report them
func (d *DebugClock) Read(offset time.Duration) (t int64, pendingLeap int, leapExcess int64) {
	r := d.base + d.clock.Since(d.started).Milliseconds() + offset.Milliseconds()
	switch {
	case d.leap == 0:
		return r, 0, 0
	case d.smear:
		return d.smeared(r), 0, 0
	case d.leap > 0:
		if r <= d.boundary {
			return r, 1, 0
		}
		// the repeated second: stuck at the boundary, counting the excess
		if r <= d.boundary+LeapMillis {
			return d.boundary, 1, r - d.boundary
		}
		return r - LeapMillis, 0, 0
	}
	if r <= d.boundary {
		return r, -1, 0
	}
	return r + LeapMillis, 0, 0
}

// smeared spreads the leap second linearly over 24h centered on the boundary
func (d *DebugClock) smeared(r int64) int64 {
	adj := (r - (d.boundary - DayMillis/2)) * LeapMillis / DayMillis
	if adj < 0 {
		adj = 0
	}
	if adj > LeapMillis {
		adj = LeapMillis
	}
	if d.leap > 0 {
		return r - adj
	}
	return r + adj
}
