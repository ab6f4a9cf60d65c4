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
	"math"

	"github.com/eclesh/welford"
	"github.com/samber/lo"
)

var errNoCandidates = errors.New("no samples to aggregate")

// instants are whole milliseconds, this only absorbs float rounding
const tolerance = 1e-6

// aggregate is the combined instant of a set of samples
type aggregate struct {
	Time      int64
	Used      int
	Discarded int
}

// meanAndStddev returns the mean and the population standard deviation of values
func meanAndStddev(values []float64) (float64, float64) {
	s := welford.New()
	for _, v := range values {
		s.Add(v)
	}
	n := float64(len(values))
	if n < 2 {
		return s.Mean(), 0
	}
	// welford reports the sample variance
	return s.Mean(), math.Sqrt(s.Variance() * (n - 1) / n)
}

// combine averages the instants, dropping those further than one standard
// deviation from the mean, and rounds to the millisecond
func combine(times []int64) (aggregate, error) {
	if len(times) == 0 {
		return aggregate{}, errNoCandidates
	}
	// work on offsets from the first instant to keep float precision
	ref := times[0]
	deltas := lo.Map(times, func(t int64, _ int) float64 { return float64(t - ref) })
	mean, sd := meanAndStddev(deltas)
	kept := lo.Filter(deltas, func(d float64, _ int) bool { return math.Abs(d-mean) <= sd+tolerance })
	if len(kept) == 0 {
		kept = deltas
	}
	if len(kept) != len(deltas) {
		mean, _ = meanAndStddev(kept)
	}
	return aggregate{
		Time:      ref + int64(math.Floor(mean+0.5)),
		Used:      len(kept),
		Discarded: len(deltas) - len(kept),
	}, nil
}
