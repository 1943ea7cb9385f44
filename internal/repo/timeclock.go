package repo

import (
	"context"
	"database/sql"
	"strings"

	"trimline/internal/domain"
)

func (r Repo) InsertTimeEntry(ctx context.Context, tx *sql.Tx, e domain.TimeEntry) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO time_entries(id,employee_id,checked_in_at,checked_out_at) VALUES (?,?,?,?)`,
		e.ID, e.EmployeeID, e.CheckedInAt, nullableStringPtr(e.CheckedOutAt))
	return err
}

// OpenTimeEntryTx returns the employee's entry without a check-out, if any.
func (r Repo) OpenTimeEntryTx(ctx context.Context, tx *sql.Tx, employeeID string) (domain.TimeEntry, error) {
	row := tx.QueryRowContext(ctx, `SELECT id,employee_id,checked_in_at,checked_out_at FROM time_entries
WHERE employee_id=? AND checked_out_at IS NULL ORDER BY checked_in_at DESC LIMIT 1`, employeeID)
	return scanTimeEntry(row.Scan)
}

func (r Repo) CloseTimeEntry(ctx context.Context, tx *sql.Tx, id, checkedOutAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE time_entries SET checked_out_at=? WHERE id=? AND checked_out_at IS NULL`, checkedOutAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTimeEntry(scan func(dest ...any) error) (domain.TimeEntry, error) {
	var e domain.TimeEntry
	var out sql.NullString
	err := scan(&e.ID, &e.EmployeeID, &e.CheckedInAt, &out)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}
	if out.Valid {
		e.CheckedOutAt = &out.String
	}
	return e, nil
}

func (r Repo) ListTimeEntries(ctx context.Context, employeeID, from, to string, limit int) ([]domain.TimeEntry, error) {
	var clauses []string
	var args []any
	if employeeID != "" {
		clauses = append(clauses, "employee_id=?")
		args = append(args, employeeID)
	}
	if from != "" {
		clauses = append(clauses, "checked_in_at>=?")
		args = append(args, from)
	}
	if to != "" {
		clauses = append(clauses, "checked_in_at<?")
		args = append(args, to)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT id,employee_id,checked_in_at,checked_out_at FROM time_entries ` + where + ` ORDER BY checked_in_at DESC, id DESC`
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TimeEntry
	for rows.Next() {
		e, err := scanTimeEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) InsertCommissionEntry(ctx context.Context, tx *sql.Tx, c domain.CommissionEntry) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO commission_entries(id,employee_id,appointment_id,service_id,amount,earned_at) VALUES (?,?,?,?,?,?)`,
		c.ID, c.EmployeeID, c.AppointmentID, c.ServiceID, c.Amount, c.EarnedAt)
	return err
}

func (r Repo) ListCommissionEntries(ctx context.Context, employeeID, from, to string, limit int) ([]domain.CommissionEntry, error) {
	var clauses []string
	var args []any
	if employeeID != "" {
		clauses = append(clauses, "employee_id=?")
		args = append(args, employeeID)
	}
	if from != "" {
		clauses = append(clauses, "earned_at>=?")
		args = append(args, from)
	}
	if to != "" {
		clauses = append(clauses, "earned_at<?")
		args = append(args, to)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT id,employee_id,appointment_id,service_id,amount,earned_at FROM commission_entries ` + where + ` ORDER BY earned_at DESC, id DESC`
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.CommissionEntry
	for rows.Next() {
		var c domain.CommissionEntry
		if err := rows.Scan(&c.ID, &c.EmployeeID, &c.AppointmentID, &c.ServiceID, &c.Amount, &c.EarnedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) UpsertPayrollSummary(ctx context.Context, tx *sql.Tx, p domain.PayrollSummary) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO payroll_summaries(id,employee_id,period_start,period_end,hours_worked,base_pay,commission_total,total_pay)
VALUES (?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET hours_worked=excluded.hours_worked, base_pay=excluded.base_pay, commission_total=excluded.commission_total, total_pay=excluded.total_pay`,
		p.ID, p.EmployeeID, p.PeriodStart, p.PeriodEnd, p.HoursWorked, p.BasePay, p.CommissionTotal, p.TotalPay)
	return err
}

func (r Repo) ListPayrollSummaries(ctx context.Context, employeeID string, limit int) ([]domain.PayrollSummary, error) {
	query := `SELECT id,employee_id,period_start,period_end,hours_worked,base_pay,commission_total,total_pay FROM payroll_summaries`
	var args []any
	if employeeID != "" {
		query += ` WHERE employee_id=?`
		args = append(args, employeeID)
	}
	query += ` ORDER BY period_start DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.PayrollSummary
	for rows.Next() {
		var p domain.PayrollSummary
		if err := rows.Scan(&p.ID, &p.EmployeeID, &p.PeriodStart, &p.PeriodEnd, &p.HoursWorked, &p.BasePay, &p.CommissionTotal, &p.TotalPay); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
