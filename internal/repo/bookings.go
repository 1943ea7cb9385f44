package repo

import (
	"context"
	"database/sql"
	"strings"

	"trimline/internal/domain"
)

// querier lets the booking reads run either on the pool or inside the write
// transaction, where the engine repeats its conflict check.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r Repo) InsertAppointment(ctx context.Context, tx *sql.Tx, a domain.Appointment) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO appointments(id,salon_id,customer_id,service_id,employee_id,scheduled_at,status,notes,created_at,updated_at,completed_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.SalonID, a.CustomerID, a.ServiceID, nullableStringPtr(a.EmployeeID), a.ScheduledAt, a.Status,
		nullable(a.Notes), a.CreatedAt, a.UpdatedAt, nullableStringPtr(a.CompletedAt))
	return err
}

func (r Repo) UpdateAppointment(ctx context.Context, tx *sql.Tx, a domain.Appointment) error {
	res, err := tx.ExecContext(ctx, `UPDATE appointments SET customer_id=?, service_id=?, employee_id=?, scheduled_at=?, status=?, notes=?, updated_at=?, completed_at=? WHERE id=?`,
		a.CustomerID, a.ServiceID, nullableStringPtr(a.EmployeeID), a.ScheduledAt, a.Status,
		nullable(a.Notes), a.UpdatedAt, nullableStringPtr(a.CompletedAt), a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const appointmentCols = `id,salon_id,customer_id,service_id,employee_id,scheduled_at,status,notes,created_at,updated_at,completed_at`

func scanAppointment(scan func(dest ...any) error) (domain.Appointment, error) {
	var a domain.Appointment
	var employeeID, notes, completedAt sql.NullString
	err := scan(&a.ID, &a.SalonID, &a.CustomerID, &a.ServiceID, &employeeID, &a.ScheduledAt, &a.Status, &notes, &a.CreatedAt, &a.UpdatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if employeeID.Valid {
		a.EmployeeID = &employeeID.String
	}
	if notes.Valid {
		a.Notes = notes.String
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.String
	}
	return a, nil
}

func (r Repo) GetAppointment(ctx context.Context, id string) (domain.Appointment, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+appointmentCols+` FROM appointments WHERE id=?`, id)
	return scanAppointment(row.Scan)
}

func (r Repo) GetAppointmentTx(ctx context.Context, tx *sql.Tx, id string) (domain.Appointment, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+appointmentCols+` FROM appointments WHERE id=?`, id)
	return scanAppointment(row.Scan)
}

type AppointmentFilters struct {
	EmployeeID      string
	CustomerID      string
	Status          string
	From            string
	To              string
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func (r Repo) ListAppointments(ctx context.Context, f AppointmentFilters) ([]domain.Appointment, error) {
	var clauses []string
	var args []any
	if f.EmployeeID != "" {
		clauses = append(clauses, "employee_id=?")
		args = append(args, f.EmployeeID)
	}
	if f.CustomerID != "" {
		clauses = append(clauses, "customer_id=?")
		args = append(args, f.CustomerID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.From != "" {
		clauses = append(clauses, "scheduled_at>=?")
		args = append(args, f.From)
	}
	if f.To != "" {
		clauses = append(clauses, "scheduled_at<?")
		args = append(args, f.To)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + appointmentCols + ` FROM appointments ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) CountAppointmentsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, count(*) FROM appointments GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		res[status] = count
	}
	return res, nil
}

// AppointmentSlot is an employee's stored appointment with the service
// duration joined in, enough to derive its effective interval.
type AppointmentSlot struct {
	ID              string
	ScheduledAt     string
	DurationMinutes int
	Status          string
}

func (r Repo) EmployeeAppointmentSlots(ctx context.Context, employeeID string) ([]AppointmentSlot, error) {
	return employeeAppointmentSlots(ctx, r.DB, employeeID)
}

func (r Repo) EmployeeAppointmentSlotsTx(ctx context.Context, tx *sql.Tx, employeeID string) ([]AppointmentSlot, error) {
	return employeeAppointmentSlots(ctx, tx, employeeID)
}

func employeeAppointmentSlots(ctx context.Context, q querier, employeeID string) ([]AppointmentSlot, error) {
	rows, err := q.QueryContext(ctx, `SELECT a.id, a.scheduled_at, s.duration_minutes, a.status
FROM appointments a JOIN services s ON s.id = a.service_id
WHERE a.employee_id=? AND a.status NOT IN ('completed','cancelled')
ORDER BY a.scheduled_at ASC`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []AppointmentSlot
	for rows.Next() {
		var s AppointmentSlot
		if err := rows.Scan(&s.ID, &s.ScheduledAt, &s.DurationMinutes, &s.Status); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r Repo) InsertShift(ctx context.Context, tx *sql.Tx, s domain.Shift) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO shifts(id,salon_id,employee_id,start_at,end_at,note,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		s.ID, s.SalonID, s.EmployeeID, s.StartAt, s.EndAt, nullable(s.Note), s.CreatedAt, s.UpdatedAt)
	return err
}

func (r Repo) UpdateShift(ctx context.Context, tx *sql.Tx, s domain.Shift) error {
	res, err := tx.ExecContext(ctx, `UPDATE shifts SET employee_id=?, start_at=?, end_at=?, note=?, updated_at=? WHERE id=?`,
		s.EmployeeID, s.StartAt, s.EndAt, nullable(s.Note), s.UpdatedAt, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanShift(scan func(dest ...any) error) (domain.Shift, error) {
	var s domain.Shift
	var note sql.NullString
	err := scan(&s.ID, &s.SalonID, &s.EmployeeID, &s.StartAt, &s.EndAt, &note, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	if note.Valid {
		s.Note = note.String
	}
	return s, nil
}

const shiftCols = `id,salon_id,employee_id,start_at,end_at,note,created_at,updated_at`

func (r Repo) GetShift(ctx context.Context, id string) (domain.Shift, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+shiftCols+` FROM shifts WHERE id=?`, id)
	return scanShift(row.Scan)
}

type ShiftFilters struct {
	EmployeeID string
	From       string
	To         string
	Limit      int
}

func (r Repo) ListShifts(ctx context.Context, f ShiftFilters) ([]domain.Shift, error) {
	var clauses []string
	var args []any
	if f.EmployeeID != "" {
		clauses = append(clauses, "employee_id=?")
		args = append(args, f.EmployeeID)
	}
	if f.From != "" {
		clauses = append(clauses, "end_at>?")
		args = append(args, f.From)
	}
	if f.To != "" {
		clauses = append(clauses, "start_at<?")
		args = append(args, f.To)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + shiftCols + ` FROM shifts ` + where + ` ORDER BY start_at ASC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Shift
	for rows.Next() {
		s, err := scanShift(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r Repo) EmployeeShifts(ctx context.Context, employeeID string) ([]domain.Shift, error) {
	return employeeShifts(ctx, r.DB, employeeID)
}

func (r Repo) EmployeeShiftsTx(ctx context.Context, tx *sql.Tx, employeeID string) ([]domain.Shift, error) {
	return employeeShifts(ctx, tx, employeeID)
}

func employeeShifts(ctx context.Context, q querier, employeeID string) ([]domain.Shift, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+shiftCols+` FROM shifts WHERE employee_id=? ORDER BY start_at ASC`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Shift
	for rows.Next() {
		s, err := scanShift(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r Repo) DeleteShift(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM shifts WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
