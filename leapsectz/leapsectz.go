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

// Package leapsectz reads leap second tables from TZif files such as the
// "right/UTC" zone of the system timezone database. It is the fallback leap
// flag source of the host clock when the kernel is not armed.
package leapsectz

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// announceWindow is how long before the event a leap second counts as pending
const announceWindow = 24 * time.Hour

const magic = "TZif"

// leapFile is the default table
var leapFile = "/usr/share/zoneinfo/right/UTC"

var (
	errBadData            = errors.New("malformed time zone information")
	errUnsupportedVersion = errors.New("unsupported version")
	errNoLeapSeconds      = errors.New("no leap seconds information found")
)

// LeapSecond is one record of the leap second table
type LeapSecond struct {
	// Tleap is when the correction applies, in seconds since epoch counting previous leap seconds
	Tleap uint64
	// Nleap is the total correction after it
	Nleap int32
}

// Time returns when the leap second event occurs
func (l LeapSecond) Time() time.Time {
	return time.Unix(int64(l.Tleap-uint64(l.Nleap)+1), 0)
}

// counts is the TZif header after magic and version, see tzfile(5)
type counts struct {
	IsUtcCnt uint32
	IsStdCnt uint32
	LeapCnt  uint32
	TimeCnt  uint32
	TypeCnt  uint32
	CharCnt  uint32
}

// blockLen is the size of the data block following the header, timeLen is 4 for v1 and 8 for v2+
func (c counts) blockLen(timeLen int) int64 {
	return int64(c.TimeCnt)*int64(timeLen+1) +
		int64(c.TypeCnt)*6 +
		int64(c.CharCnt) +
		int64(c.LeapCnt)*int64(timeLen+4) +
		int64(c.IsStdCnt) +
		int64(c.IsUtcCnt)
}

func readHeader(r io.Reader) (byte, counts, error) {
	var c counts
	// magic, version, 15 bytes reserved
	h := make([]byte, 20)
	if _, err := io.ReadFull(r, h); err != nil || string(h[:4]) != magic {
		return 0, c, errBadData
	}
	version := h[4]
	if version != 0 && version != '2' && version != '3' {
		return 0, c, fmt.Errorf("%w %q", errUnsupportedVersion, version)
	}
	if err := binary.Read(r, binary.BigEndian, &c); err != nil {
		return 0, c, errBadData
	}
	return version, c, nil
}

func skip(r io.Reader, n int64) error {
	if m, _ := io.CopyN(io.Discard, r, n); m != n {
		return errBadData
	}
	return nil
}

// Read returns the leap second records of the TZif data in r. For version 2
// and later files the 64-bit block is used and the legacy block skipped.
func Read(r io.Reader) ([]LeapSecond, error) {
	version, c, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	timeLen := 4
	if version != 0 {
		if err := skip(r, c.blockLen(4)); err != nil {
			return nil, err
		}
		if _, c, err = readHeader(r); err != nil {
			return nil, err
		}
		timeLen = 8
	}
	if err := skip(r, int64(c.TimeCnt)*int64(timeLen+1)+int64(c.TypeCnt)*6+int64(c.CharCnt)); err != nil {
		return nil, err
	}

	res := make([]LeapSecond, 0, c.LeapCnt)
	for i := uint32(0); i < c.LeapCnt; i++ {
		var l LeapSecond
		if timeLen == 4 {
			var rec [2]uint32
			if err := binary.Read(r, binary.BigEndian, &rec); err != nil {
				return nil, errBadData
			}
			l = LeapSecond{Tleap: uint64(rec[0]), Nleap: int32(rec[1])}
		} else if err := binary.Read(r, binary.BigEndian, &l); err != nil {
			return nil, errBadData
		}
		res = append(res, l)
	}
	if len(res) == 0 {
		return nil, errNoLeapSeconds
	}
	return res, nil
}

// Parse returns the leap seconds of the TZif file at path, "" being right/UTC
func Parse(path string) ([]LeapSecond, error) {
	if path == "" {
		path = leapFile
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Last returns the most recent leap second which happened before now
func Last(leaps []LeapSecond, now time.Time) (LeapSecond, bool) {
	var (
		res   LeapSecond
		found bool
	)
	for _, l := range leaps {
		if l.Time().Before(now) && (!found || l.Time().After(res.Time())) {
			res, found = l, true
		}
	}
	return res, found
}

// Pending returns the sign of the leap second happening within a day after now:
// +1 if a second is inserted, -1 if one is deleted, 0 if there is none
func Pending(leaps []LeapSecond, now time.Time) int {
	var prev int32
	for _, l := range leaps {
		at := l.Time()
		if at.After(now) && at.Sub(now) <= announceWindow {
			if l.Nleap > prev {
				return 1
			}
			return -1
		}
		prev = l.Nleap
	}
	return 0
}

func writeBlock(w io.Writer, version byte, timeLen int, leaps []LeapSecond, name string) error {
	c := counts{
		IsUtcCnt: 1,
		IsStdCnt: 1,
		LeapCnt:  uint32(len(leaps)),
		// one mandatory local time type
		TypeCnt: 1,
		CharCnt: uint32(len(name)),
	}
	h := make([]byte, 20)
	copy(h, magic)
	h[4] = version
	if _, err := w.Write(h); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, c); err != nil {
		return err
	}
	// no transitions, one zero type record, the designation
	if _, err := w.Write(make([]byte, 6)); err != nil {
		return err
	}
	if _, err := io.WriteString(w, name); err != nil {
		return err
	}
	for _, l := range leaps {
		var err error
		if timeLen == 4 {
			err = binary.Write(w, binary.BigEndian, [2]uint32{uint32(l.Tleap), uint32(l.Nleap)})
		} else {
			err = binary.Write(w, binary.BigEndian, l)
		}
		if err != nil {
			return err
		}
	}
	// std/wall and UT/local indicators
	_, err := w.Write([]byte{0, 0})
	return err
}

// Write stores leaps as a TZif file of version 0 or '2' with zone designation name ("UTC" if empty)
func Write(w io.Writer, version byte, leaps []LeapSecond, name string) error {
	if version != 0 && version != '2' {
		return errUnsupportedVersion
	}
	if name == "" {
		name = "UTC"
	}
	designation := name + "\x00"
	if err := writeBlock(w, version, 4, leaps, designation); err != nil {
		return err
	}
	if version == 0 {
		return nil
	}
	if err := writeBlock(w, version, 8, leaps, designation); err != nil {
		return err
	}
	// footer with the POSIX TZ string
	_, err := io.WriteString(w, "\n"+name+"\n")
	return err
}
