package types

import (
	"fmt"
	"strings"
	"time"
)

// DayOfWeek names a pricing and sales bucket. Prices and sold counters are
// tracked per day of the week, keyed by these short lowercase names.
type DayOfWeek string

const (
	Monday    DayOfWeek = "mon"
	Tuesday   DayOfWeek = "tue"
	Wednesday DayOfWeek = "wed"
	Thursday  DayOfWeek = "thu"
	Friday    DayOfWeek = "fri"
	Saturday  DayOfWeek = "sat"
	Sunday    DayOfWeek = "sun"
)

// Days lists every bucket in calendar order, Monday first.
var Days = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// DayOf returns the bucket for t, evaluated in UTC.
func DayOf(t time.Time) DayOfWeek {
	// time.Weekday starts at Sunday; buckets start at Monday.
	return Days[(int(t.UTC().Weekday())+6)%7]
}

// ParseDay parses a bucket name (case-insensitive).
func ParseDay(s string) (DayOfWeek, error) {
	d := DayOfWeek(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("types: unknown day of week %q", s)
	}
	return d, nil
}

// Valid reports whether d is one of the seven buckets.
func (d DayOfWeek) Valid() bool {
	for _, v := range Days {
		if v == d {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (d DayOfWeek) String() string { return string(d) }

// Clock tells the shop which pricing bucket applies right now.
type Clock interface {
	Today() DayOfWeek
}

// ClockFunc is an adapter to use a plain function as a Clock.
type ClockFunc func() DayOfWeek

// Today implements Clock.
func (f ClockFunc) Today() DayOfWeek { return f() }

// SystemClock derives the bucket from the wall clock in UTC.
var SystemClock Clock = ClockFunc(func() DayOfWeek { return DayOf(time.Now()) })

// FixedClock always reports the same bucket.
func FixedClock(d DayOfWeek) Clock {
	return ClockFunc(func() DayOfWeek { return d })
}
