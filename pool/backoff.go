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
	"math"
)

// backoff modes
const (
	BackoffNone        = ""
	BackoffFixed       = "fixed"
	BackoffLinear      = "linear"
	BackoffExponential = "exponential"
)

// backoff counts how many refresh rounds a failing source sits out.
// A source which still has a cached estimate is held to a shorter backoff,
// so that a transient failure does not leave its offset unrefreshed for long.
type backoff struct {
	cfg BackoffConfig
	// consecutive failures
	failures int
	// rounds left to skip
	value int
}

func newBackoff(cfg BackoffConfig) *backoff {
	return &backoff{cfg: cfg}
}

func (b *backoff) active() bool {
	return b.value > 0
}

func (b *backoff) reset() {
	b.failures = 0
	b.value = 0
}

// tick consumes one skipped round
func (b *backoff) tick() int {
	if b.value > 0 {
		b.value--
	}
	return b.value
}

// rounds is the backoff after n consecutive failures, before any cap
func (b *backoff) rounds(n int) int {
	switch b.cfg.Mode {
	case BackoffFixed:
		return b.cfg.Step
	case BackoffLinear:
		return b.cfg.Step * n
	case BackoffExponential:
		return int(math.Pow(float64(b.cfg.Step), float64(n)))
	}
	return 0
}

// bump registers one more consecutive failure. acquired tells whether the
// source still serves a cached estimate
func (b *backoff) bump(acquired bool) int {
	if b.cfg.Mode == BackoffNone {
		return 0
	}
	b.failures++
	v := b.rounds(b.failures)
	if b.cfg.MaxValue > 0 {
		v = min(v, b.cfg.MaxValue)
	}
	if acquired && b.cfg.MaxAcquired > 0 {
		v = min(v, b.cfg.MaxAcquired)
	}
	b.value = v
	return v
}
