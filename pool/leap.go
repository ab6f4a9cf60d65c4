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

package pool

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/timepool/poolclock/source"
)

// vicinityWindow is how long leap handling stays on after a sample was last seen near the boundary
const vicinityWindow = 24 * time.Hour

var errMalformedLeap = errors.New("malformed leap second state")

// leapView is what reconciliation decided for one call
type leapView struct {
	event *LeapEvent
	// active means candidates were normalized to the continuous timeline
	active bool
}

// reconcile brings the samples of stepping sources onto one continuous timeline
// around a leap second and drops smearing sources while the leap second is near.
// It returns the instants to aggregate.
func (s *State) reconcile(samples []*source.Sample, now time.Time) ([]int64, leapView, error) {
	raw := make([]int64, 0, len(samples))
	for _, sm := range samples {
		raw = append(raw, sm.Time)
	}

	// the first valid flag decides, others with a bad sign are reported
	var (
		flagged   *source.Sample
		malformed []string
	)
	for _, sm := range samples {
		switch sm.PendingLeap {
		case 0:
		case 1, -1:
			if flagged == nil {
				flagged = sm
			}
		default:
			malformed = append(malformed, fmt.Sprintf("%s (%+d)", sm.Source, sm.PendingLeap))
		}
	}
	var errBadFlags error
	if len(malformed) > 0 {
		errBadFlags = fmt.Errorf("%w: leap flag from %s", errMalformedLeap, strings.Join(malformed, ", "))
	}
	if flagged == nil && s.Leap == nil {
		return raw, leapView{}, errBadFlags
	}

	if flagged != nil {
		boundary, err := source.LeapBoundary(flagged.Time, flagged.PendingLeap)
		if err != nil {
			return raw, leapView{}, fmt.Errorf("%w from %s: %w", errMalformedLeap, flagged.Source, err)
		}
		if s.Leap == nil || s.Leap.Boundary != boundary || s.Leap.Sign != flagged.PendingLeap {
			log.Infof("leap second %+d announced by %s at %s", flagged.PendingLeap, flagged.Source, source.FormatMillis(boundary, 0))
			s.Leap = newLeapEvent(boundary, flagged.PendingLeap)
		}
	}
	ev := s.Leap

	for _, sm := range samples {
		d := sm.Time - ev.Boundary
		if d >= -source.DayMillis && d <= source.DayMillis {
			s.LeapVicinityMarker = now
		}
		// classification needs a flag to compare against, and freezes once
		// the source has passed the boundary
		if flagged != nil && sm.Time <= ev.Boundary {
			smearing := sm.PendingLeap == 0
			if prev, ok := ev.Smearing[sm.Source]; !ok || prev != smearing {
				log.Debugf("%s classified as smearing=%v", sm.Source, smearing)
			}
			ev.Smearing[sm.Source] = smearing
		}
	}

	if !s.inVicinity(now) {
		if flagged != nil {
			return raw, leapView{event: ev}, errBadFlags
		}
		// nobody announces it: forget it once it is behind us, keep the
		// classification if the flag is only missing for a while before it
		if lo.Max(raw) > ev.Boundary {
			log.Infof("leap second at %s is over", source.FormatMillis(ev.Boundary, 0))
			s.Leap = nil
		} else {
			log.Debugf("no source announces the leap second at %s", source.FormatMillis(ev.Boundary, 0))
		}
		return raw, leapView{}, errBadFlags
	}

	times := make([]int64, 0, len(samples))
	for _, sm := range samples {
		if ev.Smearing[sm.Source] {
			continue
		}
		t := sm.Time
		switch {
		case ev.Sign > 0 && t > ev.Boundary:
			t += source.LeapMillis
		case ev.Sign > 0:
			t += sm.LeapExcess
		case t > ev.Boundary:
			t -= source.LeapMillis
		}
		times = append(times, t)
	}
	if len(times) == 0 {
		// nothing steps: the smeared timeline is the only one there is
		return raw, leapView{}, errBadFlags
	}
	return times, leapView{event: ev, active: true}, errBadFlags
}

// publish converts the combined instant r back to what is shown to users
func (v leapView) publish(r int64) (t int64, leapSecond int, leapExcess int64) {
	if v.event == nil {
		return r, 0, 0
	}
	if !v.active {
		return r, v.event.Sign, 0
	}
	b := v.event.Boundary
	if v.event.Sign > 0 {
		switch {
		case r > b+source.LeapMillis:
			return r - source.LeapMillis, 0, 0
		case r > b:
			return b, 1, r - b
		}
		return r, 1, 0
	}
	if r > b {
		return r + source.LeapMillis, 0, 0
	}
	return r, -1, 0
}
