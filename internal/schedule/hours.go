// Package schedule implements the booking validity rules: operating-hours
// checks, interval overlap detection, and the candidate validation entry
// points run before any appointment or shift write.
package schedule

import "time"

// Hours is the salon's operating window in local hour-of-day units.
type Hours struct {
	Open  int
	Close int
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// AllowsAppointment reports whether an appointment may start at t. The upper
// bound is exclusive: a start exactly at closing time cannot be serviced.
func (h Hours) AllowsAppointment(t time.Time) bool {
	m := minuteOfDay(t)
	return m >= h.Open*60 && m < h.Close*60
}

// AllowsShift reports whether a shift boundary may fall at t. Unlike
// appointments the upper bound is inclusive: a shift ending exactly at
// closing time is valid.
func (h Hours) AllowsShift(t time.Time) bool {
	m := minuteOfDay(t)
	return m >= h.Open*60 && m <= h.Close*60
}
