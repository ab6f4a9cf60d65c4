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

const (
	// LeapMillis is the length of a leap second in ms
	LeapMillis = int64(1000)
	// DayMillis is one day in ms
	DayMillis = int64(24 * time.Hour / time.Millisecond)
)

// LeapBoundary returns the last millisecond (23:59:59.999 UTC) of the half-year
// t falls into, looking 12 hours back so that samples taken just after a
// boundary still resolve to it. For deletions the boundary moves back one second,
// as 23:59:59 is the second that gets skipped.
func LeapBoundary(t int64, sign int) (int64, error) {
	if t <= 0 {
		return 0, fmt.Errorf("invalid sample time %d", t)
	}
	if sign != 1 && sign != -1 {
		return 0, fmt.Errorf("invalid leap second sign %d", sign)
	}
	d := time.UnixMilli(t - DayMillis/2).UTC()
	var end time.Time
	if d.Month() <= time.June {
		end = time.Date(d.Year(), time.July, 1, 0, 0, 0, 0, time.UTC)
	} else {
		end = time.Date(d.Year()+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	boundary := end.UnixMilli() - 1
	if sign < 0 {
		boundary -= LeapMillis
	}
	return boundary, nil
}
