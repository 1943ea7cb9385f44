package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trimline/internal/domain"
	"trimline/internal/events"
	"trimline/internal/repo"
)

// CheckIn opens a time entry for the employee. At most one entry may be open
// per employee; the check happens inside the write transaction.
func (e Engine) CheckIn(ctx context.Context, employeeID, actorID string) (domain.TimeEntry, error) {
	emp, err := e.Repo.GetEmployee(ctx, employeeID)
	if err != nil {
		return domain.TimeEntry{}, fmt.Errorf("employee %s: %w", employeeID, err)
	}
	if !emp.Active {
		return domain.TimeEntry{}, fmt.Errorf("employee %s is inactive", emp.ID)
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	defer tx.Rollback()

	if open, err := e.Repo.OpenTimeEntryTx(ctx, tx, employeeID); err == nil {
		return open, fmt.Errorf("employee %s already checked in at %s", employeeID, open.CheckedInAt)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.TimeEntry{}, err
	}

	entry := domain.TimeEntry{
		ID:          uuid.NewString(),
		EmployeeID:  employeeID,
		CheckedInAt: e.now().UTC().Format(time.RFC3339),
	}
	if err := e.Repo.InsertTimeEntry(ctx, tx, entry); err != nil {
		return entry, fmt.Errorf("insert time entry: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "timeclock.in", e.salonID(), "time_entry", entry.ID, actorID, events.EventPayload{
		"employee_id": employeeID,
	}); err != nil {
		return entry, err
	}
	return entry, tx.Commit()
}

// CheckOut closes the employee's open time entry.
func (e Engine) CheckOut(ctx context.Context, employeeID, actorID string) (domain.TimeEntry, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	defer tx.Rollback()

	entry, err := e.Repo.OpenTimeEntryTx(ctx, tx, employeeID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.TimeEntry{}, fmt.Errorf("employee %s is not checked in", employeeID)
	}
	if err != nil {
		return domain.TimeEntry{}, err
	}
	out := e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.CloseTimeEntry(ctx, tx, entry.ID, out); err != nil {
		return entry, err
	}
	entry.CheckedOutAt = &out
	if err := e.Events.Append(ctx, tx, "timeclock.out", e.salonID(), "time_entry", entry.ID, actorID, events.EventPayload{
		"employee_id": employeeID,
	}); err != nil {
		return entry, err
	}
	return entry, tx.Commit()
}

// RecordCommission stores a commission row whose amount was computed
// upstream. No percentage math happens here.
type CommissionOptions struct {
	ID            string
	EmployeeID    string
	AppointmentID string
	ServiceID     string
	Amount        float64
	EarnedAt      string
	ActorID       string
}

func (e Engine) RecordCommission(ctx context.Context, opts CommissionOptions) (domain.CommissionEntry, error) {
	if opts.EmployeeID == "" || opts.AppointmentID == "" || opts.ServiceID == "" {
		return domain.CommissionEntry{}, errors.New("employee, appointment and service are required")
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	earnedAt := opts.EarnedAt
	if earnedAt == "" {
		earnedAt = e.now().UTC().Format(time.RFC3339)
	} else if _, err := parseRFC3339("earned_at", earnedAt); err != nil {
		return domain.CommissionEntry{}, err
	}
	c := domain.CommissionEntry{
		ID:            id,
		EmployeeID:    opts.EmployeeID,
		AppointmentID: opts.AppointmentID,
		ServiceID:     opts.ServiceID,
		Amount:        opts.Amount,
		EarnedAt:      earnedAt,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertCommissionEntry(ctx, tx, c); err != nil {
		return c, fmt.Errorf("insert commission: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "commission.recorded", e.salonID(), "commission", c.ID, opts.ActorID, events.EventPayload{
		"employee_id": c.EmployeeID,
		"amount":      c.Amount,
	}); err != nil {
		return c, err
	}
	return c, tx.Commit()
}

// StorePayrollSummary upserts a precomputed payroll row for a period.
type PayrollOptions struct {
	ID              string
	EmployeeID      string
	PeriodStart     string
	PeriodEnd       string
	HoursWorked     float64
	BasePay         float64
	CommissionTotal float64
	TotalPay        float64
	ActorID         string
}

func (e Engine) StorePayrollSummary(ctx context.Context, opts PayrollOptions) (domain.PayrollSummary, error) {
	if opts.EmployeeID == "" || opts.PeriodStart == "" || opts.PeriodEnd == "" {
		return domain.PayrollSummary{}, errors.New("employee and period are required")
	}
	start, err := parseRFC3339("period_start", opts.PeriodStart)
	if err != nil {
		return domain.PayrollSummary{}, err
	}
	end, err := parseRFC3339("period_end", opts.PeriodEnd)
	if err != nil {
		return domain.PayrollSummary{}, err
	}
	if !end.After(start) {
		return domain.PayrollSummary{}, errors.New("period_end must be after period_start")
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	p := domain.PayrollSummary{
		ID:              id,
		EmployeeID:      opts.EmployeeID,
		PeriodStart:     start.UTC().Format(time.RFC3339),
		PeriodEnd:       end.UTC().Format(time.RFC3339),
		HoursWorked:     opts.HoursWorked,
		BasePay:         opts.BasePay,
		CommissionTotal: opts.CommissionTotal,
		TotalPay:        opts.TotalPay,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return p, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpsertPayrollSummary(ctx, tx, p); err != nil {
		return p, fmt.Errorf("upsert payroll: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "payroll.stored", e.salonID(), "payroll", p.ID, opts.ActorID, events.EventPayload{
		"employee_id": p.EmployeeID,
	}); err != nil {
		return p, err
	}
	return p, tx.Commit()
}
