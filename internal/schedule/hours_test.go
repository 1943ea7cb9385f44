package schedule

import (
	"testing"
	"time"
)

func at(hour, min int) time.Time {
	return time.Date(2025, 6, 12, hour, min, 0, 0, time.UTC)
}

func TestHoursAppointment(t *testing.T) {
	h := Hours{Open: 7, Close: 21}

	cases := []struct {
		t    time.Time
		want bool
	}{
		{at(7, 0), true},
		{at(6, 59), false},
		{at(12, 30), true},
		{at(20, 59), true},
		{at(21, 0), false},
		{at(21, 30), false},
		{at(0, 0), false},
	}
	for _, c := range cases {
		if got := h.AllowsAppointment(c.t); got != c.want {
			t.Errorf("AllowsAppointment(%s) = %v, want %v", c.t.Format("15:04"), got, c.want)
		}
	}
}

func TestHoursShift(t *testing.T) {
	h := Hours{Open: 7, Close: 21}

	cases := []struct {
		t    time.Time
		want bool
	}{
		{at(7, 0), true},
		{at(6, 59), false},
		{at(21, 0), true},
		{at(21, 1), false},
		{at(22, 0), false},
	}
	for _, c := range cases {
		if got := h.AllowsShift(c.t); got != c.want {
			t.Errorf("AllowsShift(%s) = %v, want %v", c.t.Format("15:04"), got, c.want)
		}
	}
}

func TestCloseBoundaryAsymmetry(t *testing.T) {
	h := Hours{Open: 7, Close: 21}
	close := at(21, 0)
	if h.AllowsAppointment(close) {
		t.Error("appointment at close hour should be rejected")
	}
	if !h.AllowsShift(close) {
		t.Error("shift boundary at close hour should be allowed")
	}
}
