package schedule

import (
	"time"

	"trimline/internal/domain"
)

// DefaultAppointmentMinutes applies when a service declares no duration or a
// non-positive one.
const DefaultAppointmentMinutes = 60

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps is the strict half-open intersection test. Back-to-back intervals
// do not overlap.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// EffectiveInterval derives the range an appointment occupies from its start
// instant and the service's configured duration.
func EffectiveInterval(start time.Time, durationMinutes int) Interval {
	if durationMinutes <= 0 {
		durationMinutes = DefaultAppointmentMinutes
	}
	return Interval{Start: start, End: start.Add(time.Duration(durationMinutes) * time.Minute)}
}

// Booking is an existing appointment or shift as seen by the overlap
// detector, already scoped to a single employee by the caller. Status is
// empty for shifts, which have no terminal state.
type Booking struct {
	ID       string
	Status   string
	Interval Interval
}

// FirstConflict scans existing for the first live booking whose interval
// intersects candidate, skipping excludeID and terminal appointments. It
// returns the blocking booking's id, or "" when nothing intersects.
func FirstConflict(candidate Interval, excludeID string, existing []Booking) string {
	for _, b := range existing {
		if excludeID != "" && b.ID == excludeID {
			continue
		}
		if domain.TerminalAppointmentStatus(b.Status) {
			continue
		}
		if candidate.Overlaps(b.Interval) {
			return b.ID
		}
	}
	return ""
}

func HasConflict(candidate Interval, excludeID string, existing []Booking) bool {
	return FirstConflict(candidate, excludeID, existing) != ""
}
