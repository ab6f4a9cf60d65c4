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

// guard makes sure published values never go back. (time, leapExcess) pairs are
// compared lexicographically with the last published pair: a smaller pair is
// replaced by the last published values, leap second flag included, otherwise
// the new values are stored.
func (s *State) guard(t int64, leapSecond int, leapExcess int64) (int64, int, int64, bool) {
	if t < s.LastPublishedTime || (t == s.LastPublishedTime && leapExcess < s.LastPublishedLeapExcess) {
		return s.LastPublishedTime, s.LastPublishedLeapSecond, s.LastPublishedLeapExcess, true
	}
	s.LastPublishedTime = t
	s.LastPublishedLeapSecond = leapSecond
	s.LastPublishedLeapExcess = leapExcess
	return t, leapSecond, leapExcess, false
}
