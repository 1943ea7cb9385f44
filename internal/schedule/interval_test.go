package schedule

import (
	"testing"
	"time"

	"trimline/internal/domain"
)

func iv(sh, sm, eh, em int) Interval {
	return Interval{Start: at(sh, sm), End: at(eh, em)}
}

func TestOverlapsSymmetric(t *testing.T) {
	a := iv(9, 0, 10, 30)
	b := iv(10, 0, 11, 0)
	if !a.Overlaps(b) || !b.Overlaps(a) {
		t.Error("expected symmetric overlap")
	}

	c := iv(11, 0, 12, 0)
	if a.Overlaps(c) || c.Overlaps(a) {
		t.Error("expected symmetric non-overlap")
	}
}

func TestBackToBackDoesNotOverlap(t *testing.T) {
	a := iv(9, 0, 10, 0)
	b := iv(10, 0, 11, 0)
	if a.Overlaps(b) {
		t.Error("back-to-back intervals must not overlap")
	}
}

func TestContainedOverlaps(t *testing.T) {
	outer := iv(9, 0, 12, 0)
	inner := iv(10, 0, 10, 30)
	if !outer.Overlaps(inner) || !inner.Overlaps(outer) {
		t.Error("contained interval must overlap")
	}
}

func TestEffectiveIntervalDefault(t *testing.T) {
	start := at(10, 0)
	for _, minutes := range []int{0, -15} {
		got := EffectiveInterval(start, minutes)
		if !got.End.Equal(start.Add(60 * time.Minute)) {
			t.Errorf("duration %d: end = %s, want 60 minute default", minutes, got.End)
		}
	}
	got := EffectiveInterval(start, 45)
	if !got.End.Equal(start.Add(45 * time.Minute)) {
		t.Errorf("end = %s, want start+45m", got.End)
	}
}

func TestFirstConflictExcludesSelf(t *testing.T) {
	existing := []Booking{{ID: "a1", Interval: iv(10, 0, 11, 0)}}
	if id := FirstConflict(iv(10, 0, 11, 0), "a1", existing); id != "" {
		t.Errorf("record conflicts with itself: %s", id)
	}
	if id := FirstConflict(iv(10, 0, 11, 0), "", existing); id != "a1" {
		t.Errorf("expected conflict with a1, got %q", id)
	}
}

func TestFirstConflictSkipsTerminal(t *testing.T) {
	existing := []Booking{
		{ID: "done", Status: domain.AppointmentCompleted, Interval: iv(10, 0, 11, 0)},
		{ID: "gone", Status: domain.AppointmentCancelled, Interval: iv(10, 0, 11, 0)},
	}
	if id := FirstConflict(iv(10, 15, 10, 45), "", existing); id != "" {
		t.Errorf("terminal booking blocked: %s", id)
	}

	existing = append(existing, Booking{ID: "live", Status: domain.AppointmentScheduled, Interval: iv(10, 0, 11, 0)})
	if id := FirstConflict(iv(10, 15, 10, 45), "", existing); id != "live" {
		t.Errorf("expected conflict with live, got %q", id)
	}
}
