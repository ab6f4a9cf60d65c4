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
Package source defines what a time source is for the pool: something that can be
asked for the current time over the network, keeps its latest estimate cached, and
tells whether a leap second is pending.

Live implementations live in the ntp and sysclock packages. Fake is a deterministic
implementation for tests and simulations.
*/
package source

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotAcquired is returned when a source has no time estimate yet
	ErrNotAcquired = errors.New("time not acquired")
	// ErrClosed is returned by sources after Close
	ErrClosed = errors.New("source is closed")
)

// TimeSource is one independent time-reading capability
type TimeSource interface {
	// Name identifies the source within a pool, must be unique
	Name() string
	// Sample queries the source for its time at requestTime (local clock). Blocks until the answer or ctx is done
	Sample(ctx context.Context, requestTime time.Time) (*Sample, error)
	// Latest returns the current time estimate derived from the last successful query, without network wait
	Latest() (*Sample, bool)
	// Acquired reports whether at least one query succeeded
	Acquired() bool
	// CanPoll reports whether the source can still be queried
	CanPoll() bool
	// PendingLeapSecond returns +1 for an announced insertion, -1 for deletion, 0 otherwise
	PendingLeapSecond() int
	// SetDebugTime makes the source report simulated time starting at base, with a forced pending leap second
	SetDebugTime(base time.Time, leap int)
	// ClearDebugTime returns the source to real time
	ClearDebugTime()
	// Close releases the resources of the source
	Close() error
}
