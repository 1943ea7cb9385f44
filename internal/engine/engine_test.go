package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"trimline/internal/config"
	"trimline/internal/db"
	"trimline/internal/domain"
	"trimline/internal/engine"
	"trimline/internal/migrate"
	"trimline/internal/repo"
	"trimline/internal/schedule"
)

type testEnv struct {
	Engine   engine.Engine
	Ctx      context.Context
	Employee domain.Employee
	Customer domain.Customer
	Service  domain.Service
}

// Clock is pinned to a weekday noon so fixture bookings can sit safely in
// the future within operating hours.
var testClock = time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)

func ts(day, hour, min int) string {
	return time.Date(2025, 6, day, hour, min, 0, 0, time.UTC).Format(time.RFC3339)
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default("salon-1")
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return testClock }
	ctx := context.Background()
	if _, err := eng.InitSalon(ctx, "salon-1", "Test Salon", "tester"); err != nil {
		t.Fatalf("init salon: %v", err)
	}

	emp, err := eng.CreateEmployee(ctx, engine.EmployeeOptions{Name: "Dana", Role: "stylist", ActorID: "tester"})
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	cust, err := eng.CreateCustomer(ctx, engine.CustomerOptions{Name: "Alex", ActorID: "tester"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	svc, err := eng.CreateService(ctx, engine.ServiceOptions{Name: "Cut", DurationMinutes: 60, Price: 40, ActorID: "tester"})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx, Employee: emp, Customer: cust, Service: svc}
}

func wantReason(t *testing.T, err error, reason schedule.Reason) {
	t.Helper()
	var verr *engine.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Reason != reason {
		t.Fatalf("reason = %s, want %s", verr.Reason, reason)
	}
}

func TestCreateAppointmentConflict(t *testing.T) {
	env := newTestEnv(t)
	first, err := env.Engine.CreateAppointment(env.Ctx, engine.AppointmentCreateOptions{
		CustomerID:  env.Customer.ID,
		ServiceID:   env.Service.ID,
		EmployeeID:  env.Employee.ID,
		ScheduledAt: ts(12, 10, 0),
		ActorID:     "tester",
	})
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	if first.Status != domain.AppointmentAssigned {
		t.Fatalf("status = %s, want assigned", first.Status)
	}

	// 10:30 lands inside the stored 10:00-11:00 interval.
	_, err = env.Engine.CreateAppointment(env.Ctx, engine.AppointmentCreateOptions{
		CustomerID:  env.Customer.ID,
		ServiceID:   env.Service.ID,
		EmployeeID:  env.Employee.ID,
		ScheduledAt: ts(12, 10, 30),
		ActorID:     "tester",
	})
	wantReason(t, err, schedule.ReasonEmployeeConflict)

	// Back-to-back at 11:00 is fine.
	if _, err := env.Engine.CreateAppointment(env.Ctx, engine.AppointmentCreateOptions{
		CustomerID:  env.Customer.ID,
		ServiceID:   env.Service.ID,
		EmployeeID:  env.Employee.ID,
		ScheduledAt: ts(12, 11, 0),
		ActorID:     "tester",
	}); err != nil {
		t.Fatalf("back-to-back rejected: %v", err)
	}
}

func TestCreateAppointmentUnassigned(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateAppointment(env.Ctx, engine.AppointmentCreateOptions{
		CustomerID:  env.Customer.ID,
		ServiceID:   env.Service.ID,
		EmployeeID:  env.Employee.ID,
		ScheduledAt: ts(12, 10, 0),
		ActorID:     "tester",
	}); err != nil {
		t.Fatal(err)
	}
	// Same slot without an employee: overlap check does not apply.
	a, err := env.Engine.CreateAppointment(env.Ctx, engine.AppointmentCreateOptions{
		CustomerID:  env.Customer.ID,
		ServiceID:   env.Service.ID,
		ScheduledAt: ts(12, 10, 0),
		ActorID:     "tester",
	})
	if err != nil {
		t.Fatalf("unassigned create: %v", err)
	}
	if a.Status != domain.AppointmentScheduled {
		t.Fatalf("status = %s, want scheduled", a.Status)
	}
}

func TestCreateAppointmentRejections(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Engine.CreateAppointment(env.Ctx, engine.AppointmentCreateOptions{
		CustomerID: env.Customer.ID,
		ServiceID:  env.Service.ID,
		ActorID:    "tester",
	})
	wantReason(t, err, schedule.ReasonMissingFields)

	_, err = env.Engine.CreateAppointment(env.Ctx, engine.AppointmentCreateOptions{
		CustomerID:  env.Customer.ID,
		ServiceID:   env.Service.ID,
		ScheduledAt: ts(10, 10, 0),
		ActorID:     "tester",
	})
	wantReason(t, err, schedule.ReasonInPast)

	_, err = env.Engine.CreateAppointment(env.Ctx, engine.AppointmentCreateOptions{
		CustomerID:  env.Customer.ID,
		ServiceID:   env.Service.ID,
		ScheduledAt: ts(12, 21, 30),
		ActorID:     "tester",
	})
	wantReason(t, err, schedule.ReasonOutsideHours)
}

func TestUpdateAppointmentSelfExclusion(t *testing.T) {
	env := newTestEnv(t)
	a, err := env.Engine.CreateAppointment(env.Ctx, engine.AppointmentCreateOptions{
		CustomerID:  env.Customer.ID,
		ServiceID:   env.Service.ID,
		EmployeeID:  env.Employee.ID,
		ScheduledAt: ts(12, 10, 0),
		ActorID:     "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	// Re-saving the unchanged slot must not conflict with itself.
	notes := "bring photos"
	if _, err := env.Engine.UpdateAppointment(env.Ctx, engine.AppointmentUpdateOptions{
		ID:       a.ID,
		SetNotes: &notes,
		ActorID:  "tester",
	}); err != nil {
		t.Fatalf("self-conflict on edit: %v", err)
	}
}

func TestUpdateAppointmentPastEditAllowed(t *testing.T) {
	env := newTestEnv(t)
	a, err := env.Engine.CreateAppointment(env.Ctx, engine.AppointmentCreateOptions{
		CustomerID:  env.Customer.ID,
		ServiceID:   env.Service.ID,
		ScheduledAt: ts(12, 10, 0),
		ActorID:     "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	past := ts(9, 10, 0)
	updated, err := env.Engine.UpdateAppointment(env.Ctx, engine.AppointmentUpdateOptions{
		ID:             a.ID,
		SetScheduledAt: &past,
		ActorID:        "tester",
	})
	if err != nil {
		t.Fatalf("historical correction rejected: %v", err)
	}
	if updated.ScheduledAt != past {
		t.Fatalf("scheduled_at = %s, want %s", updated.ScheduledAt, past)
	}
}

func TestAppointmentStatusMachine(t *testing.T) {
	env := newTestEnv(t)
	a, err := env.Engine.CreateAppointment(env.Ctx, engine.AppointmentCreateOptions{
		CustomerID:  env.Customer.ID,
		ServiceID:   env.Service.ID,
		EmployeeID:  env.Employee.ID,
		ScheduledAt: ts(12, 10, 0),
		ActorID:     "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	a, err = env.Engine.SetAppointmentStatus(env.Ctx, a.ID, domain.AppointmentInProgress, "tester", false)
	if err != nil || a.Status != domain.AppointmentInProgress {
		t.Fatalf("to in_progress: %v", err)
	}
	a, err = env.Engine.SetAppointmentStatus(env.Ctx, a.ID, domain.AppointmentCompleted, "tester", false)
	if err != nil || a.Status != domain.AppointmentCompleted {
		t.Fatalf("to completed: %v", err)
	}
	if a.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}
	if _, err := env.Engine.SetAppointmentStatus(env.Ctx, a.ID, domain.AppointmentScheduled, "tester", false); err == nil {
		t.Fatal("expected transition error from terminal status")
	}

	// Completed appointments are immutable and stop blocking the slot.
	_, err = env.Engine.UpdateAppointment(env.Ctx, engine.AppointmentUpdateOptions{ID: a.ID, SetNotes: &a.Notes, ActorID: "tester"})
	wantReason(t, err, schedule.ReasonAlreadyCompleted)
	if _, err := env.Engine.CreateAppointment(env.Ctx, engine.AppointmentCreateOptions{
		CustomerID:  env.Customer.ID,
		ServiceID:   env.Service.ID,
		EmployeeID:  env.Employee.ID,
		ScheduledAt: ts(12, 10, 0),
		ActorID:     "tester",
	}); err != nil {
		t.Fatalf("terminal appointment still blocks: %v", err)
	}
}

func TestCancelAppointment(t *testing.T) {
	env := newTestEnv(t)
	a, err := env.Engine.CreateAppointment(env.Ctx, engine.AppointmentCreateOptions{
		CustomerID:  env.Customer.ID,
		ServiceID:   env.Service.ID,
		EmployeeID:  env.Employee.ID,
		ScheduledAt: ts(12, 10, 0),
		ActorID:     "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	a, err = env.Engine.CancelAppointment(env.Ctx, a.ID, "tester")
	if err != nil || a.Status != domain.AppointmentCancelled {
		t.Fatalf("cancel: %v", err)
	}
	_, err = env.Engine.CancelAppointment(env.Ctx, a.ID, "tester")
	wantReason(t, err, schedule.ReasonAlreadyCompleted)
}

func TestShiftLifecycle(t *testing.T) {
	env := newTestEnv(t)
	s, err := env.Engine.CreateShift(env.Ctx, engine.ShiftCreateOptions{
		EmployeeID: env.Employee.ID,
		StartAt:    ts(12, 9, 0),
		EndAt:      ts(12, 17, 0),
		ActorID:    "tester",
	})
	if err != nil {
		t.Fatalf("create shift: %v", err)
	}

	_, err = env.Engine.CreateShift(env.Ctx, engine.ShiftCreateOptions{
		EmployeeID: env.Employee.ID,
		StartAt:    ts(12, 16, 0),
		EndAt:      ts(12, 20, 0),
		ActorID:    "tester",
	})
	wantReason(t, err, schedule.ReasonEmployeeConflict)

	if _, err := env.Engine.CreateShift(env.Ctx, engine.ShiftCreateOptions{
		EmployeeID: env.Employee.ID,
		StartAt:    ts(12, 17, 0),
		EndAt:      ts(12, 21, 0),
		ActorID:    "tester",
	}); err != nil {
		t.Fatalf("back-to-back shift ending at close: %v", err)
	}

	_, err = env.Engine.CreateShift(env.Ctx, engine.ShiftCreateOptions{
		EmployeeID: env.Employee.ID,
		StartAt:    ts(10, 9, 0),
		EndAt:      ts(10, 17, 0),
		ActorID:    "tester",
	})
	wantReason(t, err, schedule.ReasonInPast)

	_, err = env.Engine.CreateShift(env.Ctx, engine.ShiftCreateOptions{
		EmployeeID: env.Employee.ID,
		StartAt:    ts(13, 17, 0),
		EndAt:      ts(13, 9, 0),
		ActorID:    "tester",
	})
	wantReason(t, err, schedule.ReasonEndBeforeStart)

	note := "front desk"
	if _, err := env.Engine.UpdateShift(env.Ctx, engine.ShiftUpdateOptions{ID: s.ID, SetNote: &note, ActorID: "tester"}); err != nil {
		t.Fatalf("shift self-conflict on edit: %v", err)
	}
	if err := env.Engine.DeleteShift(env.Ctx, s.ID, "tester"); err != nil {
		t.Fatalf("delete shift: %v", err)
	}
}

func TestCheckAppointmentDryRun(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateAppointment(env.Ctx, engine.AppointmentCreateOptions{
		CustomerID:  env.Customer.ID,
		ServiceID:   env.Service.ID,
		EmployeeID:  env.Employee.ID,
		ScheduledAt: ts(12, 10, 0),
		ActorID:     "tester",
	}); err != nil {
		t.Fatal(err)
	}
	res, err := env.Engine.CheckAppointment(env.Ctx, engine.AppointmentCreateOptions{
		CustomerID:  env.Customer.ID,
		ServiceID:   env.Service.ID,
		EmployeeID:  env.Employee.ID,
		ScheduledAt: ts(12, 10, 30),
	}, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.OK || res.Reason != schedule.ReasonEmployeeConflict {
		t.Fatalf("dry run = %+v, want EmployeeConflict", res)
	}
	// Nothing was written by the dry run.
	appts, err := env.Engine.Repo.ListAppointments(env.Ctx, repo.AppointmentFilters{EmployeeID: env.Employee.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(appts) != 1 {
		t.Fatalf("appointments = %d, want 1", len(appts))
	}
}

func TestTimeClock(t *testing.T) {
	env := newTestEnv(t)
	entry, err := env.Engine.CheckIn(env.Ctx, env.Employee.ID, "tester")
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if entry.CheckedOutAt != nil {
		t.Fatal("fresh entry has checkout")
	}
	if _, err := env.Engine.CheckIn(env.Ctx, env.Employee.ID, "tester"); err == nil {
		t.Fatal("double check-in allowed")
	}
	entry, err = env.Engine.CheckOut(env.Ctx, env.Employee.ID, "tester")
	if err != nil {
		t.Fatalf("check out: %v", err)
	}
	if entry.CheckedOutAt == nil {
		t.Fatal("checkout not recorded")
	}
	if _, err := env.Engine.CheckOut(env.Ctx, env.Employee.ID, "tester"); err == nil {
		t.Fatal("check-out without open entry allowed")
	}
}
