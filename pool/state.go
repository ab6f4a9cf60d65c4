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
	"time"
)

// LeapEvent is a leap second known to the pool, kept across calls so that the
// classification of sources stays stable while the leap second is near
type LeapEvent struct {
	// Boundary is the last millisecond before the leap second (insertion) or
	// the last millisecond before the skipped second (deletion)
	Boundary int64
	// Sign is +1 for insertion, -1 for deletion
	Sign int
	// Smearing maps source name to true for smearing sources and false for stepping ones
	Smearing map[string]bool
}

func newLeapEvent(boundary int64, sign int) *LeapEvent {
	return &LeapEvent{
		Boundary: boundary,
		Sign:     sign,
		Smearing: map[string]bool{},
	}
}

// SmearingSources returns the names of sources classified as smearing
func (e *LeapEvent) SmearingSources() []string {
	res := []string{}
	for name, smearing := range e.Smearing {
		if smearing {
			res = append(res, name)
		}
	}
	return res
}

// State is what the pool remembers between two TimeInfo calls
type State struct {
	LastPublishedTime       int64
	LastPublishedLeapExcess int64
	LastPublishedLeapSecond int
	// LeapVicinityMarker is the process clock reading when a sample was last seen near the leap boundary
	LeapVicinityMarker time.Time
	Leap               *LeapEvent
}

// inVicinity reports whether the vicinity window is open at now
func (s *State) inVicinity(now time.Time) bool {
	return !s.LeapVicinityMarker.IsZero() && now.Sub(s.LeapVicinityMarker) < vicinityWindow
}
