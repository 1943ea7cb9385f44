package schedule

import (
	"time"

	"trimline/internal/domain"
)

// Reason is a stable rejection kind surfaced to callers for display.
type Reason string

const (
	ReasonMissingFields    Reason = "MissingFields"
	ReasonInPast           Reason = "InPast"
	ReasonOutsideHours     Reason = "OutsideHours"
	ReasonEndBeforeStart   Reason = "EndBeforeStart"
	ReasonAlreadyCompleted Reason = "AlreadyCompleted"
	ReasonEmployeeConflict Reason = "EmployeeConflict"
)

// Result is the outcome of a validation call. When OK is false, Reason holds
// the rejection kind and ConflictID the blocking booking's id for
// ReasonEmployeeConflict.
type Result struct {
	OK         bool
	Reason     Reason
	ConflictID string
}

func ok() Result               { return Result{OK: true} }
func rejected(r Reason) Result { return Result{Reason: r} }

// Assignment models the optional employee on an appointment. The zero value
// is unassigned.
type Assignment struct {
	id string
}

func Unassigned() Assignment                  { return Assignment{} }
func AssignedTo(employeeID string) Assignment { return Assignment{id: employeeID} }

func (a Assignment) Assigned() bool     { return a.id != "" }
func (a Assignment) EmployeeID() string { return a.id }

// AppointmentCandidate is an appointment proposed for create or update,
// built fresh from request fields on every call. Status carries the stored
// record's status when editing.
type AppointmentCandidate struct {
	ID              string
	ServiceID       string
	Employee        Assignment
	ScheduledAt     time.Time
	DurationMinutes int
	Status          string
}

// ShiftCandidate is a work shift proposed for create or update.
type ShiftCandidate struct {
	ID         string
	EmployeeID string
	StartAt    time.Time
	EndAt      time.Time
}

// ValidateAppointment runs the appointment rules in order: structural checks
// first, then semantic time checks, then the overlap scan. existing must be
// the assigned employee's bookings; it is ignored for unassigned candidates.
// The past check applies on create only, so admins can correct history.
func ValidateAppointment(hours Hours, c AppointmentCandidate, existing []Booking, editing bool, now time.Time) Result {
	if c.ServiceID == "" || c.ScheduledAt.IsZero() {
		return rejected(ReasonMissingFields)
	}
	if editing && domain.TerminalAppointmentStatus(c.Status) {
		return rejected(ReasonAlreadyCompleted)
	}
	if !editing && c.ScheduledAt.Before(now) {
		return rejected(ReasonInPast)
	}
	if !hours.AllowsAppointment(c.ScheduledAt) {
		return rejected(ReasonOutsideHours)
	}
	if c.Employee.Assigned() {
		iv := EffectiveInterval(c.ScheduledAt, c.DurationMinutes)
		if id := FirstConflict(iv, c.ID, existing); id != "" {
			return Result{Reason: ReasonEmployeeConflict, ConflictID: id}
		}
	}
	return ok()
}

// ValidateShift runs the shift rules. Both shift boundaries must land within
// operating hours (inclusive close), and on create neither may be in the
// past. Shifts have no terminal state, so every stored shift blocks.
func ValidateShift(hours Hours, c ShiftCandidate, existing []Booking, editing bool, now time.Time) Result {
	if c.EmployeeID == "" || c.StartAt.IsZero() || c.EndAt.IsZero() {
		return rejected(ReasonMissingFields)
	}
	if !c.EndAt.After(c.StartAt) {
		return rejected(ReasonEndBeforeStart)
	}
	if !hours.AllowsShift(c.StartAt) || !hours.AllowsShift(c.EndAt) {
		return rejected(ReasonOutsideHours)
	}
	if !editing && (c.StartAt.Before(now) || c.EndAt.Before(now)) {
		return rejected(ReasonInPast)
	}
	if id := FirstConflict(Interval{Start: c.StartAt, End: c.EndAt}, c.ID, existing); id != "" {
		return Result{Reason: ReasonEmployeeConflict, ConflictID: id}
	}
	return ok()
}
