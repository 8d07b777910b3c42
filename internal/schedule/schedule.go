// Package schedule holds the time arithmetic behind response deadlines and
// token expiry. Both functions are pure and deterministic given start; callers
// sample "now" once (see requestcontext.Now) and pass it in.
package schedule

import "time"

// BusinessDaysFrom advances from start one calendar day at a time, counting a
// day only when it is neither Saturday nor Sunday, until days business days
// have been counted. The time-of-day component is inherited from start.
func BusinessDaysFrom(start time.Time, days int) time.Time {
	t := start
	for counted := 0; counted < days; {
		t = t.AddDate(0, 0, 1)
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			counted++
		}
	}
	return t
}

// FixedOffsetFrom adds a fixed number of minutes to start.
func FixedOffsetFrom(start time.Time, minutes int) time.Time {
	return start.Add(time.Duration(minutes) * time.Minute)
}
