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

package clock

import (
	"errors"
)

// ErrUnsupported is returned on platforms without adjtimex(2)
var ErrUnsupported = errors.New("kernel leap second state is not supported on this platform")

// clock states returned by adjtimex, from usr/include/linux/timex.h
const (
	// clock synchronized, no leap second
	TimeOK = 0
	// insert leap second
	TimeIns = 1
	// delete leap second
	TimeDel = 2
	// leap second in progress
	TimeOOP = 3
	// leap second has occurred
	TimeWait = 4
	// clock not synchronized
	TimeError = 5
)

// timex status bits
const (
	// insert leap
	StaIns int32 = 0x0010
	// delete leap
	StaDel int32 = 0x0020
)

// LeapFromState converts the adjtimex return value and status bits into the
// sign of the pending leap second
func LeapFromState(state int, status int32) int {
	switch state {
	case TimeIns, TimeOOP:
		return 1
	case TimeDel:
		return -1
	}
	if status&StaIns != 0 {
		return 1
	}
	if status&StaDel != 0 {
		return -1
	}
	return 0
}
