package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trimline/internal/domain"
	"trimline/internal/events"
	"trimline/internal/repo"
	"trimline/internal/schedule"
)

// appointmentBookings loads an employee's live appointments as intervals for
// the overlap scan. When tx is non-nil the read happens inside the write
// transaction, which is what makes the conflict check authoritative.
func (e Engine) appointmentBookings(ctx context.Context, tx *sql.Tx, employeeID string) ([]schedule.Booking, error) {
	var slots []repo.AppointmentSlot
	var err error
	if tx != nil {
		slots, err = e.Repo.EmployeeAppointmentSlotsTx(ctx, tx, employeeID)
	} else {
		slots, err = e.Repo.EmployeeAppointmentSlots(ctx, employeeID)
	}
	if err != nil {
		return nil, err
	}
	bookings := make([]schedule.Booking, 0, len(slots))
	for _, s := range slots {
		start, err := parseRFC3339("scheduled_at", s.ScheduledAt)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, schedule.Booking{
			ID:       s.ID,
			Status:   s.Status,
			Interval: schedule.EffectiveInterval(start, e.effectiveDuration(s.DurationMinutes)),
		})
	}
	return bookings, nil
}

func (e Engine) shiftBookings(ctx context.Context, tx *sql.Tx, employeeID string) ([]schedule.Booking, error) {
	var shifts []domain.Shift
	var err error
	if tx != nil {
		shifts, err = e.Repo.EmployeeShiftsTx(ctx, tx, employeeID)
	} else {
		shifts, err = e.Repo.EmployeeShifts(ctx, employeeID)
	}
	if err != nil {
		return nil, err
	}
	bookings := make([]schedule.Booking, 0, len(shifts))
	for _, s := range shifts {
		start, err := parseRFC3339("start_at", s.StartAt)
		if err != nil {
			return nil, err
		}
		end, err := parseRFC3339("end_at", s.EndAt)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, schedule.Booking{
			ID:       s.ID,
			Interval: schedule.Interval{Start: start, End: end},
		})
	}
	return bookings, nil
}

type AppointmentCreateOptions struct {
	ID          string
	CustomerID  string
	ServiceID   string
	EmployeeID  string
	ScheduledAt string
	Notes       string
	ActorID     string
}

func (e Engine) CreateAppointment(ctx context.Context, opts AppointmentCreateOptions) (domain.Appointment, error) {
	if opts.CustomerID == "" || opts.ServiceID == "" || opts.ScheduledAt == "" {
		return domain.Appointment{}, &ValidationError{Reason: schedule.ReasonMissingFields}
	}
	scheduledAt, err := parseRFC3339("scheduled_at", opts.ScheduledAt)
	if err != nil {
		return domain.Appointment{}, err
	}
	if _, err := e.Repo.GetCustomer(ctx, opts.CustomerID); err != nil {
		return domain.Appointment{}, fmt.Errorf("customer %s: %w", opts.CustomerID, err)
	}
	svc, err := e.Repo.GetService(ctx, opts.ServiceID)
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("service %s: %w", opts.ServiceID, err)
	}
	assignment := schedule.Unassigned()
	if opts.EmployeeID != "" {
		emp, err := e.Repo.GetEmployee(ctx, opts.EmployeeID)
		if err != nil {
			return domain.Appointment{}, fmt.Errorf("employee %s: %w", opts.EmployeeID, err)
		}
		if !emp.Active {
			return domain.Appointment{}, fmt.Errorf("employee %s is inactive", emp.ID)
		}
		assignment = schedule.AssignedTo(emp.ID)
	}

	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	candidate := schedule.AppointmentCandidate{
		ID:              id,
		ServiceID:       opts.ServiceID,
		Employee:        assignment,
		ScheduledAt:     scheduledAt,
		DurationMinutes: e.effectiveDuration(svc.DurationMinutes),
	}

	var existing []schedule.Booking
	if assignment.Assigned() {
		existing, err = e.appointmentBookings(ctx, nil, assignment.EmployeeID())
		if err != nil {
			return domain.Appointment{}, err
		}
	}
	if err := resultError(schedule.ValidateAppointment(e.hours(), candidate, existing, false, e.now())); err != nil {
		return domain.Appointment{}, err
	}

	status := domain.AppointmentScheduled
	if assignment.Assigned() {
		status = domain.AppointmentAssigned
	}
	now := e.now().UTC().Format(time.RFC3339)
	a := domain.Appointment{
		ID:          id,
		SalonID:     e.salonID(),
		CustomerID:  opts.CustomerID,
		ServiceID:   opts.ServiceID,
		EmployeeID:  optionalString(opts.EmployeeID),
		ScheduledAt: scheduledAt.UTC().Format(time.RFC3339),
		Status:      status,
		Notes:       opts.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return a, err
	}
	defer tx.Rollback()
	// Repeat the overlap scan against a fresh in-transaction read so two
	// racing writers cannot both pass a stale pre-check.
	if assignment.Assigned() {
		fresh, err := e.appointmentBookings(ctx, tx, assignment.EmployeeID())
		if err != nil {
			return a, err
		}
		iv := schedule.EffectiveInterval(scheduledAt, candidate.DurationMinutes)
		if blocker := schedule.FirstConflict(iv, id, fresh); blocker != "" {
			return a, &ValidationError{Reason: schedule.ReasonEmployeeConflict, ConflictID: blocker}
		}
	}
	if err := e.Repo.InsertAppointment(ctx, tx, a); err != nil {
		return a, fmt.Errorf("insert appointment: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "appointment.created", a.SalonID, "appointment", a.ID, opts.ActorID, events.EventPayload{
		"customer_id":  a.CustomerID,
		"service_id":   a.ServiceID,
		"employee_id":  opts.EmployeeID,
		"scheduled_at": a.ScheduledAt,
		"status":       a.Status,
	}); err != nil {
		return a, err
	}
	return a, tx.Commit()
}

type AppointmentUpdateOptions struct {
	ID             string
	SetCustomerID  *string
	SetServiceID   *string
	SetEmployee    *string
	SetScheduledAt *string
	SetNotes       *string
	ActorID        string
}

func (e Engine) UpdateAppointment(ctx context.Context, opts AppointmentUpdateOptions) (domain.Appointment, error) {
	a, err := e.Repo.GetAppointment(ctx, opts.ID)
	if err != nil {
		return a, err
	}
	original := a

	if opts.SetCustomerID != nil {
		if *opts.SetCustomerID == "" {
			return a, &ValidationError{Reason: schedule.ReasonMissingFields}
		}
		if _, err := e.Repo.GetCustomer(ctx, *opts.SetCustomerID); err != nil {
			return a, fmt.Errorf("customer %s: %w", *opts.SetCustomerID, err)
		}
		a.CustomerID = *opts.SetCustomerID
	}
	if opts.SetServiceID != nil {
		if *opts.SetServiceID == "" {
			return a, &ValidationError{Reason: schedule.ReasonMissingFields}
		}
		a.ServiceID = *opts.SetServiceID
	}
	svc, err := e.Repo.GetService(ctx, a.ServiceID)
	if err != nil {
		return a, fmt.Errorf("service %s: %w", a.ServiceID, err)
	}
	if opts.SetEmployee != nil {
		if *opts.SetEmployee == "" {
			a.EmployeeID = nil
			if a.Status == domain.AppointmentAssigned {
				a.Status = domain.AppointmentScheduled
			}
		} else {
			emp, err := e.Repo.GetEmployee(ctx, *opts.SetEmployee)
			if err != nil {
				return a, fmt.Errorf("employee %s: %w", *opts.SetEmployee, err)
			}
			if !emp.Active {
				return a, fmt.Errorf("employee %s is inactive", emp.ID)
			}
			a.EmployeeID = opts.SetEmployee
			if a.Status == domain.AppointmentScheduled {
				a.Status = domain.AppointmentAssigned
			}
		}
	}
	if opts.SetScheduledAt != nil {
		if *opts.SetScheduledAt == "" {
			return a, &ValidationError{Reason: schedule.ReasonMissingFields}
		}
		t, err := parseRFC3339("scheduled_at", *opts.SetScheduledAt)
		if err != nil {
			return a, err
		}
		a.ScheduledAt = t.UTC().Format(time.RFC3339)
	}
	if opts.SetNotes != nil {
		a.Notes = *opts.SetNotes
	}

	scheduledAt, err := parseRFC3339("scheduled_at", a.ScheduledAt)
	if err != nil {
		return a, err
	}
	assignment := schedule.Unassigned()
	if a.EmployeeID != nil {
		assignment = schedule.AssignedTo(*a.EmployeeID)
	}
	candidate := schedule.AppointmentCandidate{
		ID:              a.ID,
		ServiceID:       a.ServiceID,
		Employee:        assignment,
		ScheduledAt:     scheduledAt,
		DurationMinutes: e.effectiveDuration(svc.DurationMinutes),
		Status:          original.Status,
	}
	var existing []schedule.Booking
	if assignment.Assigned() {
		existing, err = e.appointmentBookings(ctx, nil, assignment.EmployeeID())
		if err != nil {
			return a, err
		}
	}
	if err := resultError(schedule.ValidateAppointment(e.hours(), candidate, existing, true, e.now())); err != nil {
		return a, err
	}
	a.UpdatedAt = e.now().UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return a, err
	}
	defer tx.Rollback()
	if assignment.Assigned() {
		fresh, err := e.appointmentBookings(ctx, tx, assignment.EmployeeID())
		if err != nil {
			return a, err
		}
		iv := schedule.EffectiveInterval(scheduledAt, candidate.DurationMinutes)
		if blocker := schedule.FirstConflict(iv, a.ID, fresh); blocker != "" {
			return a, &ValidationError{Reason: schedule.ReasonEmployeeConflict, ConflictID: blocker}
		}
	}
	if err := e.Repo.UpdateAppointment(ctx, tx, a); err != nil {
		return a, err
	}
	if err := e.Events.Append(ctx, tx, "appointment.updated", a.SalonID, "appointment", a.ID, opts.ActorID, events.EventPayload{
		"from_status":  original.Status,
		"to_status":    a.Status,
		"scheduled_at": a.ScheduledAt,
	}); err != nil {
		return a, err
	}
	return a, tx.Commit()
}

func ensureAppointmentTransition(oldStatus, newStatus string, force bool) error {
	if force {
		return nil
	}
	switch oldStatus {
	case domain.AppointmentScheduled:
		if newStatus == domain.AppointmentAssigned || newStatus == domain.AppointmentCancelled {
			return nil
		}
	case domain.AppointmentAssigned:
		if newStatus == domain.AppointmentInProgress || newStatus == domain.AppointmentCancelled {
			return nil
		}
	case domain.AppointmentInProgress:
		if newStatus == domain.AppointmentCompleted || newStatus == domain.AppointmentCancelled {
			return nil
		}
	}
	return fmt.Errorf("invalid appointment status transition %s -> %s", oldStatus, newStatus)
}

func (e Engine) SetAppointmentStatus(ctx context.Context, id, status, actorID string, force bool) (domain.Appointment, error) {
	a, err := e.Repo.GetAppointment(ctx, id)
	if err != nil {
		return a, err
	}
	if status == a.Status {
		return a, nil
	}
	if err := ensureAppointmentTransition(a.Status, status, force); err != nil {
		return a, err
	}
	if status == domain.AppointmentAssigned && a.EmployeeID == nil {
		return a, errors.New("cannot mark assigned without an employee")
	}
	original := a.Status
	a.Status = status
	now := e.now().UTC().Format(time.RFC3339)
	a.UpdatedAt = now
	if status == domain.AppointmentCompleted {
		a.CompletedAt = &now
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return a, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateAppointment(ctx, tx, a); err != nil {
		return a, err
	}
	if err := e.Events.Append(ctx, tx, "appointment.status", a.SalonID, "appointment", a.ID, actorID, events.EventPayload{
		"from_status": original,
		"to_status":   status,
	}); err != nil {
		return a, err
	}
	return a, tx.Commit()
}

// CancelAppointment moves any non-terminal appointment to cancelled.
func (e Engine) CancelAppointment(ctx context.Context, id, actorID string) (domain.Appointment, error) {
	a, err := e.Repo.GetAppointment(ctx, id)
	if err != nil {
		return a, err
	}
	if domain.TerminalAppointmentStatus(a.Status) {
		return a, &ValidationError{Reason: schedule.ReasonAlreadyCompleted}
	}
	return e.SetAppointmentStatus(ctx, id, domain.AppointmentCancelled, actorID, false)
}

// CheckAppointment is the dry-run entry point behind the validate endpoints.
// It runs the full rule chain against current data without writing.
func (e Engine) CheckAppointment(ctx context.Context, opts AppointmentCreateOptions, editing bool) (schedule.Result, error) {
	candidate := schedule.AppointmentCandidate{ID: opts.ID, ServiceID: opts.ServiceID}
	if opts.ServiceID == "" || opts.ScheduledAt == "" {
		return schedule.ValidateAppointment(e.hours(), candidate, nil, editing, e.now()), nil
	}
	scheduledAt, err := parseRFC3339("scheduled_at", opts.ScheduledAt)
	if err != nil {
		return schedule.Result{}, err
	}
	svc, err := e.Repo.GetService(ctx, opts.ServiceID)
	if err != nil {
		return schedule.Result{}, fmt.Errorf("service %s: %w", opts.ServiceID, err)
	}
	candidate.ScheduledAt = scheduledAt
	candidate.DurationMinutes = e.effectiveDuration(svc.DurationMinutes)
	if opts.EmployeeID != "" {
		candidate.Employee = schedule.AssignedTo(opts.EmployeeID)
	}
	if editing && opts.ID != "" {
		stored, err := e.Repo.GetAppointment(ctx, opts.ID)
		if err != nil {
			return schedule.Result{}, err
		}
		candidate.Status = stored.Status
	}
	var existing []schedule.Booking
	if candidate.Employee.Assigned() {
		existing, err = e.appointmentBookings(ctx, nil, opts.EmployeeID)
		if err != nil {
			return schedule.Result{}, err
		}
	}
	return schedule.ValidateAppointment(e.hours(), candidate, existing, editing, e.now()), nil
}

type ShiftCreateOptions struct {
	ID         string
	EmployeeID string
	StartAt    string
	EndAt      string
	Note       string
	ActorID    string
}

func (e Engine) CreateShift(ctx context.Context, opts ShiftCreateOptions) (domain.Shift, error) {
	if opts.EmployeeID == "" || opts.StartAt == "" || opts.EndAt == "" {
		return domain.Shift{}, &ValidationError{Reason: schedule.ReasonMissingFields}
	}
	startAt, err := parseRFC3339("start_at", opts.StartAt)
	if err != nil {
		return domain.Shift{}, err
	}
	endAt, err := parseRFC3339("end_at", opts.EndAt)
	if err != nil {
		return domain.Shift{}, err
	}
	emp, err := e.Repo.GetEmployee(ctx, opts.EmployeeID)
	if err != nil {
		return domain.Shift{}, fmt.Errorf("employee %s: %w", opts.EmployeeID, err)
	}
	if !emp.Active {
		return domain.Shift{}, fmt.Errorf("employee %s is inactive", emp.ID)
	}

	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	candidate := schedule.ShiftCandidate{ID: id, EmployeeID: opts.EmployeeID, StartAt: startAt, EndAt: endAt}
	existing, err := e.shiftBookings(ctx, nil, opts.EmployeeID)
	if err != nil {
		return domain.Shift{}, err
	}
	if err := resultError(schedule.ValidateShift(e.hours(), candidate, existing, false, e.now())); err != nil {
		return domain.Shift{}, err
	}

	now := e.now().UTC().Format(time.RFC3339)
	s := domain.Shift{
		ID:         id,
		SalonID:    e.salonID(),
		EmployeeID: opts.EmployeeID,
		StartAt:    startAt.UTC().Format(time.RFC3339),
		EndAt:      endAt.UTC().Format(time.RFC3339),
		Note:       opts.Note,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, err
	}
	defer tx.Rollback()
	fresh, err := e.shiftBookings(ctx, tx, opts.EmployeeID)
	if err != nil {
		return s, err
	}
	if blocker := schedule.FirstConflict(schedule.Interval{Start: startAt, End: endAt}, id, fresh); blocker != "" {
		return s, &ValidationError{Reason: schedule.ReasonEmployeeConflict, ConflictID: blocker}
	}
	if err := e.Repo.InsertShift(ctx, tx, s); err != nil {
		return s, fmt.Errorf("insert shift: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "shift.created", s.SalonID, "shift", s.ID, opts.ActorID, events.EventPayload{
		"employee_id": s.EmployeeID,
		"start_at":    s.StartAt,
		"end_at":      s.EndAt,
	}); err != nil {
		return s, err
	}
	return s, tx.Commit()
}

type ShiftUpdateOptions struct {
	ID          string
	SetEmployee *string
	SetStartAt  *string
	SetEndAt    *string
	SetNote     *string
	ActorID     string
}

func (e Engine) UpdateShift(ctx context.Context, opts ShiftUpdateOptions) (domain.Shift, error) {
	s, err := e.Repo.GetShift(ctx, opts.ID)
	if err != nil {
		return s, err
	}
	if opts.SetEmployee != nil {
		if *opts.SetEmployee == "" {
			return s, &ValidationError{Reason: schedule.ReasonMissingFields}
		}
		emp, err := e.Repo.GetEmployee(ctx, *opts.SetEmployee)
		if err != nil {
			return s, fmt.Errorf("employee %s: %w", *opts.SetEmployee, err)
		}
		if !emp.Active {
			return s, fmt.Errorf("employee %s is inactive", emp.ID)
		}
		s.EmployeeID = *opts.SetEmployee
	}
	if opts.SetStartAt != nil {
		t, err := parseRFC3339("start_at", *opts.SetStartAt)
		if err != nil {
			return s, err
		}
		s.StartAt = t.UTC().Format(time.RFC3339)
	}
	if opts.SetEndAt != nil {
		t, err := parseRFC3339("end_at", *opts.SetEndAt)
		if err != nil {
			return s, err
		}
		s.EndAt = t.UTC().Format(time.RFC3339)
	}
	if opts.SetNote != nil {
		s.Note = *opts.SetNote
	}
	startAt, err := parseRFC3339("start_at", s.StartAt)
	if err != nil {
		return s, err
	}
	endAt, err := parseRFC3339("end_at", s.EndAt)
	if err != nil {
		return s, err
	}
	candidate := schedule.ShiftCandidate{ID: s.ID, EmployeeID: s.EmployeeID, StartAt: startAt, EndAt: endAt}
	existing, err := e.shiftBookings(ctx, nil, s.EmployeeID)
	if err != nil {
		return s, err
	}
	if err := resultError(schedule.ValidateShift(e.hours(), candidate, existing, true, e.now())); err != nil {
		return s, err
	}
	s.UpdatedAt = e.now().UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, err
	}
	defer tx.Rollback()
	fresh, err := e.shiftBookings(ctx, tx, s.EmployeeID)
	if err != nil {
		return s, err
	}
	if blocker := schedule.FirstConflict(schedule.Interval{Start: startAt, End: endAt}, s.ID, fresh); blocker != "" {
		return s, &ValidationError{Reason: schedule.ReasonEmployeeConflict, ConflictID: blocker}
	}
	if err := e.Repo.UpdateShift(ctx, tx, s); err != nil {
		return s, err
	}
	if err := e.Events.Append(ctx, tx, "shift.updated", s.SalonID, "shift", s.ID, opts.ActorID, events.EventPayload{
		"start_at": s.StartAt,
		"end_at":   s.EndAt,
	}); err != nil {
		return s, err
	}
	return s, tx.Commit()
}

func (e Engine) DeleteShift(ctx context.Context, id, actorID string) error {
	s, err := e.Repo.GetShift(ctx, id)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteShift(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "shift.deleted", s.SalonID, "shift", s.ID, actorID, events.EventPayload{
		"employee_id": s.EmployeeID,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// CheckShift is the dry-run counterpart of CreateShift/UpdateShift.
func (e Engine) CheckShift(ctx context.Context, opts ShiftCreateOptions, editing bool) (schedule.Result, error) {
	candidate := schedule.ShiftCandidate{ID: opts.ID, EmployeeID: opts.EmployeeID}
	if opts.EmployeeID == "" || opts.StartAt == "" || opts.EndAt == "" {
		return schedule.ValidateShift(e.hours(), candidate, nil, editing, e.now()), nil
	}
	startAt, err := parseRFC3339("start_at", opts.StartAt)
	if err != nil {
		return schedule.Result{}, err
	}
	endAt, err := parseRFC3339("end_at", opts.EndAt)
	if err != nil {
		return schedule.Result{}, err
	}
	candidate.StartAt = startAt
	candidate.EndAt = endAt
	existing, err := e.shiftBookings(ctx, nil, opts.EmployeeID)
	if err != nil {
		return schedule.Result{}, err
	}
	return schedule.ValidateShift(e.hours(), candidate, existing, editing, e.now()), nil
}
