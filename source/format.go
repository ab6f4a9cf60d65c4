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

const layout = "2006-01-02T15:04:05.000Z"

// FormatMillis renders ms since Unix epoch as UTC text.
// A positive leapExcess means we are inside an inserted leap second: t is then the
// last millisecond before it and the seconds field shows 60.
func FormatMillis(t int64, leapExcess int64) string {
	tm := time.UnixMilli(t).UTC()
	if leapExcess <= 0 {
		return tm.Format(layout)
	}
	if leapExcess > LeapMillis {
		leapExcess = LeapMillis
	}
	return fmt.Sprintf("%s60.%03dZ", tm.Format("2006-01-02T15:04:"), leapExcess-1)
}
