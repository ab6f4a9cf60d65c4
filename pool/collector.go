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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/timepool/poolclock/source"
)

// ErrAllSourcesFailed is returned when no source could answer
var ErrAllSourcesFailed = errors.New("all time sources failed")

// latestSamples returns the cached samples of all sources which have one, in pool order
func latestSamples(sources []source.TimeSource) []*source.Sample {
	return lo.FilterMap(sources, func(s source.TimeSource, _ int) (*source.Sample, bool) {
		return s.Latest()
	})
}

type raceResult struct {
	index  int
	sample *source.Sample
	err    error
}

// race queries all sources at once and returns the first successful sample.
// Slower queries are cancelled. If all of them fail, the error of the first
// source in pool order is returned.
func race(ctx context.Context, sources []source.TimeSource, requestTime time.Time) (*source.Sample, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no sources", ErrAllSourcesFailed)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan raceResult, len(sources))
	for i, s := range sources {
		go func(i int, s source.TimeSource) {
			sample, err := s.Sample(ctx, requestTime)
			if err == nil && sample == nil {
				err = source.ErrNotAcquired
			}
			results <- raceResult{index: i, sample: sample, err: err}
		}(i, s)
	}

	errs := make([]error, len(sources))
	for range sources {
		r := <-results
		if r.err == nil {
			return r.sample, nil
		}
		errs[r.index] = r.err
	}
	return nil, fmt.Errorf("%w: %w", ErrAllSourcesFailed, errs[0])
}
