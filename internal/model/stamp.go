// SPDX-License-Identifier: MIT

package model

import "time"

// StampLayout is the wall-clock timestamp contract used in cached records
// and API responses: YYYY-MM-DD HH:MM:SS±HH:MM, pinned to Europe/Berlin.
const StampLayout = "2006-01-02 15:04:05-07:00"

var berlin *time.Location

func init() {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		// No tzdata available; CET keeps the stamp shape intact.
		loc = time.FixedZone("CET", 3600)
	}
	berlin = loc
}

// Stamp formats t as a Berlin-zone wall-clock string.
func Stamp(t time.Time) string {
	return t.In(berlin).Format(StampLayout)
}

// ParseStamp parses a Berlin-zone stamp back into a time. The zone offset
// is part of the string, so the result is unambiguous across DST changes.
func ParseStamp(s string) (time.Time, error) {
	return time.Parse(StampLayout, s)
}
