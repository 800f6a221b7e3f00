// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"fmt"
	"time"
)

// Datetime is a calendar value with second precision, always UTC. Contract
// code only ever obtains one from the block timestamp (`now`) or from the
// datetime module's constructors, so wall clocks never leak into execution.
type Datetime struct {
	unix int64
}

// DatetimeFromUnix builds a Datetime from a Unix timestamp in seconds.
func DatetimeFromUnix(sec int64) Datetime {
	return Datetime{unix: sec}
}

// NewDatetime builds a Datetime from calendar components.
func NewDatetime(year, month, day, hour, minute, second int) Datetime {
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	return Datetime{unix: t.Unix()}
}

// Unix returns the timestamp in seconds.
func (d Datetime) Unix() int64 { return d.unix }

// Components returns the calendar components in UTC.
func (d Datetime) Components() (year, month, day, hour, minute, second int) {
	t := time.Unix(d.unix, 0).UTC()
	return t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second()
}

// Add shifts d forward by td (backward if td is negative).
func (d Datetime) Add(td Timedelta) Datetime {
	return Datetime{unix: d.unix + td.seconds}
}

// SubDatetime returns the difference d - o.
func (d Datetime) SubDatetime(o Datetime) Timedelta {
	return Timedelta{seconds: d.unix - o.unix}
}

// Cmp returns -1, 0 or 1 comparing d against o.
func (d Datetime) Cmp(o Datetime) int {
	switch {
	case d.unix < o.unix:
		return -1
	case d.unix > o.unix:
		return 1
	default:
		return 0
	}
}

// Equal reports whether d and o name the same instant.
func (d Datetime) Equal(o Datetime) bool { return d.unix == o.unix }

// String renders the ISO form used for state keys and display.
func (d Datetime) String() string {
	return time.Unix(d.unix, 0).UTC().Format("2006-01-02 15:04:05")
}

// Timedelta is a signed duration with second resolution.
type Timedelta struct {
	seconds int64
}

// NewTimedelta builds a delta from day and second counts.
func NewTimedelta(days, seconds int64) Timedelta {
	return Timedelta{seconds: days*86400 + seconds}
}

// Seconds returns the total length in seconds.
func (t Timedelta) Seconds() int64 { return t.seconds }

// Add returns t + o.
func (t Timedelta) Add(o Timedelta) Timedelta { return Timedelta{seconds: t.seconds + o.seconds} }

// Sub returns t - o.
func (t Timedelta) Sub(o Timedelta) Timedelta { return Timedelta{seconds: t.seconds - o.seconds} }

// MulInt returns t scaled by n.
func (t Timedelta) MulInt(n int64) Timedelta { return Timedelta{seconds: t.seconds * n} }

// Cmp returns -1, 0 or 1 comparing t against o.
func (t Timedelta) Cmp(o Timedelta) int {
	switch {
	case t.seconds < o.seconds:
		return -1
	case t.seconds > o.seconds:
		return 1
	default:
		return 0
	}
}

// String renders the delta as days and remaining seconds.
func (t Timedelta) String() string {
	days := t.seconds / 86400
	rem := t.seconds % 86400
	return fmt.Sprintf("%dd %ds", days, rem)
}
