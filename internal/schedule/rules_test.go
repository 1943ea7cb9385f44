package schedule

import (
	"testing"
	"time"

	"trimline/internal/domain"
)

var testHours = Hours{Open: 7, Close: 21}

func testNow() time.Time {
	return time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)
}

func TestValidateAppointmentMissingFields(t *testing.T) {
	res := ValidateAppointment(testHours, AppointmentCandidate{ScheduledAt: at(10, 0)}, nil, false, testNow())
	if res.OK || res.Reason != ReasonMissingFields {
		t.Errorf("got %+v, want MissingFields", res)
	}
	res = ValidateAppointment(testHours, AppointmentCandidate{ServiceID: "svc"}, nil, false, testNow())
	if res.OK || res.Reason != ReasonMissingFields {
		t.Errorf("got %+v, want MissingFields", res)
	}
}

func TestValidateAppointmentConflict(t *testing.T) {
	// Employee has a live 10:00-11:00 appointment; a 10:30 request for 30
	// minutes lands inside it.
	existing := []Booking{{ID: "a1", Status: domain.AppointmentAssigned, Interval: iv(10, 0, 11, 0)}}
	c := AppointmentCandidate{
		ServiceID:       "svc",
		Employee:        AssignedTo("emp-1"),
		ScheduledAt:     at(10, 30),
		DurationMinutes: 30,
	}
	res := ValidateAppointment(testHours, c, existing, false, testNow())
	if res.OK || res.Reason != ReasonEmployeeConflict {
		t.Errorf("got %+v, want EmployeeConflict", res)
	}
	if res.ConflictID != "a1" {
		t.Errorf("conflict id = %q, want a1", res.ConflictID)
	}
}

func TestValidateAppointmentBackToBack(t *testing.T) {
	existing := []Booking{{ID: "a1", Status: domain.AppointmentAssigned, Interval: iv(10, 0, 11, 0)}}
	c := AppointmentCandidate{
		ServiceID:   "svc",
		Employee:    AssignedTo("emp-1"),
		ScheduledAt: at(11, 0),
	}
	res := ValidateAppointment(testHours, c, existing, false, testNow())
	if !res.OK {
		t.Errorf("back-to-back rejected: %+v", res)
	}
}

func TestValidateAppointmentUnassignedSkipsOverlap(t *testing.T) {
	existing := []Booking{{ID: "a1", Interval: iv(10, 0, 11, 0)}}
	c := AppointmentCandidate{ServiceID: "svc", ScheduledAt: at(10, 30)}
	res := ValidateAppointment(testHours, c, existing, false, testNow())
	if !res.OK {
		t.Errorf("unassigned candidate rejected: %+v", res)
	}
}

func TestValidateAppointmentPastCreateOnly(t *testing.T) {
	past := at(10, 0).AddDate(0, 0, -2)
	c := AppointmentCandidate{ServiceID: "svc", ScheduledAt: past}
	res := ValidateAppointment(testHours, c, nil, false, testNow())
	if res.OK || res.Reason != ReasonInPast {
		t.Errorf("got %+v, want InPast", res)
	}
	c.ID = "a1"
	res = ValidateAppointment(testHours, c, nil, true, testNow())
	if !res.OK {
		t.Errorf("edit of past record rejected: %+v", res)
	}
}

func TestValidateAppointmentOutsideHours(t *testing.T) {
	c := AppointmentCandidate{ServiceID: "svc", ScheduledAt: at(21, 30)}
	res := ValidateAppointment(testHours, c, nil, false, testNow())
	if res.OK || res.Reason != ReasonOutsideHours {
		t.Errorf("got %+v, want OutsideHours", res)
	}
}

func TestValidateAppointmentTerminalEdit(t *testing.T) {
	c := AppointmentCandidate{
		ID:          "a1",
		ServiceID:   "svc",
		ScheduledAt: at(10, 0),
		Status:      domain.AppointmentCompleted,
	}
	res := ValidateAppointment(testHours, c, nil, true, testNow())
	if res.OK || res.Reason != ReasonAlreadyCompleted {
		t.Errorf("got %+v, want AlreadyCompleted", res)
	}
}

func TestValidateAppointmentSelfExclusion(t *testing.T) {
	// Editing a record to its unchanged interval never conflicts with itself.
	existing := []Booking{{ID: "a1", Status: domain.AppointmentScheduled, Interval: iv(10, 0, 11, 0)}}
	c := AppointmentCandidate{
		ID:          "a1",
		ServiceID:   "svc",
		Employee:    AssignedTo("emp-1"),
		ScheduledAt: at(10, 0),
		Status:      domain.AppointmentScheduled,
	}
	res := ValidateAppointment(testHours, c, existing, true, testNow())
	if !res.OK {
		t.Errorf("self-conflict on edit: %+v", res)
	}
}

func TestValidateAppointmentIdempotent(t *testing.T) {
	existing := []Booking{{ID: "a1", Interval: iv(10, 0, 11, 0)}}
	c := AppointmentCandidate{ServiceID: "svc", Employee: AssignedTo("emp-1"), ScheduledAt: at(10, 30)}
	first := ValidateAppointment(testHours, c, existing, false, testNow())
	second := ValidateAppointment(testHours, c, existing, false, testNow())
	if first != second {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}
}

func TestValidateShiftRules(t *testing.T) {
	now := testNow()
	yesterday := func(hour int) time.Time { return at(hour, 0).AddDate(0, 0, -1) }
	tomorrow := func(hour int) time.Time { return at(hour, 0).AddDate(0, 0, 1) }

	cases := []struct {
		name    string
		c       ShiftCandidate
		editing bool
		want    Reason
	}{
		{"missing employee", ShiftCandidate{StartAt: tomorrow(9), EndAt: tomorrow(17)}, false, ReasonMissingFields},
		{"end equals start", ShiftCandidate{EmployeeID: "e", StartAt: tomorrow(9), EndAt: tomorrow(9)}, false, ReasonEndBeforeStart},
		{"end before start", ShiftCandidate{EmployeeID: "e", StartAt: tomorrow(17), EndAt: tomorrow(9)}, false, ReasonEndBeforeStart},
		{"start before open", ShiftCandidate{EmployeeID: "e", StartAt: tomorrow(6), EndAt: tomorrow(12)}, false, ReasonOutsideHours},
		{"end past close", ShiftCandidate{EmployeeID: "e", StartAt: tomorrow(20), EndAt: tomorrow(22)}, false, ReasonOutsideHours},
		{"create in past", ShiftCandidate{EmployeeID: "e", StartAt: yesterday(9), EndAt: yesterday(17)}, false, ReasonInPast},
		{"edit in past ok", ShiftCandidate{ID: "s1", EmployeeID: "e", StartAt: yesterday(9), EndAt: yesterday(17)}, true, ""},
		{"end at close ok", ShiftCandidate{EmployeeID: "e", StartAt: tomorrow(20), EndAt: tomorrow(21)}, false, ""},
	}
	for _, c := range cases {
		res := ValidateShift(testHours, c.c, nil, c.editing, now)
		if c.want == "" && !res.OK {
			t.Errorf("%s: rejected with %s", c.name, res.Reason)
		}
		if c.want != "" && (res.OK || res.Reason != c.want) {
			t.Errorf("%s: got %+v, want %s", c.name, res, c.want)
		}
	}
}

func TestValidateShiftConflict(t *testing.T) {
	tomorrow := func(hour int) time.Time { return at(hour, 0).AddDate(0, 0, 1) }
	existing := []Booking{{ID: "s1", Interval: Interval{Start: tomorrow(9), End: tomorrow(13)}}}

	c := ShiftCandidate{EmployeeID: "e", StartAt: tomorrow(12), EndAt: tomorrow(18)}
	res := ValidateShift(testHours, c, existing, false, testNow())
	if res.OK || res.Reason != ReasonEmployeeConflict || res.ConflictID != "s1" {
		t.Errorf("got %+v, want EmployeeConflict with s1", res)
	}

	c = ShiftCandidate{EmployeeID: "e", StartAt: tomorrow(13), EndAt: tomorrow(18)}
	if res := ValidateShift(testHours, c, existing, false, testNow()); !res.OK {
		t.Errorf("back-to-back shift rejected: %+v", res)
	}

	c = ShiftCandidate{ID: "s1", EmployeeID: "e", StartAt: tomorrow(9), EndAt: tomorrow(13)}
	if res := ValidateShift(testHours, c, existing, true, testNow()); !res.OK {
		t.Errorf("self-conflict on shift edit: %+v", res)
	}
}
