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
	"fmt"
	"time"
)

// Sample is one reading of a time source
type Sample struct {
	// Source is the name of the source which produced the sample
	Source string
	// Time is milliseconds since Unix epoch as reported by the source
	Time int64
	// PendingLeap is +1 for an announced leap second insertion, -1 for deletion
	PendingLeap int
	// LeapExcess is how far into an inserted leap second the source is, in ms
	LeapExcess int64
	// Text is Time rendered for display
	Text string

	// NTP details, only set by network sources on Sample
	Stratum     uint8
	ReferenceID uint32
	Offset      time.Duration
	RTT         time.Duration
}

// String implements fmt.Stringer
func (s *Sample) String() string {
	return fmt.Sprintf("%s: %s (leap %+d, excess %dms)", s.Source, s.Text, s.PendingLeap, s.LeapExcess)
}

// NewSample creates a sample and renders its text
func NewSample(name string, t int64, pendingLeap int, leapExcess int64) *Sample {
	return &Sample{
		Source:      name,
		Time:        t,
		PendingLeap: pendingLeap,
		LeapExcess:  leapExcess,
		Text:        FormatMillis(t, leapExcess),
	}
}
