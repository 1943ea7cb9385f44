package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"trimline/internal/config"
	"trimline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func (r Repo) InsertSalon(ctx context.Context, s domain.Salon) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO salons(id,name,created_at) VALUES (?,?,?)`,
		s.ID, s.Name, s.CreatedAt)
	return err
}

func (r Repo) GetSalon(ctx context.Context, id string) (domain.Salon, error) {
	var s domain.Salon
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,created_at FROM salons WHERE id=?`, id).
		Scan(&s.ID, &s.Name, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

func (r Repo) SingleSalon(ctx context.Context) (domain.Salon, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,created_at FROM salons`)
	if err != nil {
		return domain.Salon{}, err
	}
	defer rows.Close()
	var salons []domain.Salon
	for rows.Next() {
		var s domain.Salon
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt); err != nil {
			return domain.Salon{}, err
		}
		salons = append(salons, s)
	}
	if len(salons) == 0 {
		return domain.Salon{}, ErrNotFound
	}
	if len(salons) > 1 {
		return domain.Salon{}, fmt.Errorf("multiple salons exist; specify --salon")
	}
	return salons[0], nil
}

func (r Repo) UpsertSalonConfig(ctx context.Context, salonID string, cfg *config.Config) error {
	return upsertSalonConfig(ctx, r.DB, nil, salonID, cfg)
}

func (r Repo) UpsertSalonConfigTx(ctx context.Context, tx *sql.Tx, salonID string, cfg *config.Config) error {
	return upsertSalonConfig(ctx, nil, tx, salonID, cfg)
}

func upsertSalonConfig(ctx context.Context, db *sql.DB, tx *sql.Tx, salonID string, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config nil")
	}
	cfg.Salon.ID = salonID
	if err := cfg.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	exec := func(query string, args ...any) (sql.Result, error) {
		if tx != nil {
			return tx.ExecContext(ctx, query, args...)
		}
		return db.ExecContext(ctx, query, args...)
	}
	_, err = exec(`INSERT INTO salon_configs(salon_id,config_json,created_at,updated_at) VALUES (?,?,?,?)
ON CONFLICT(salon_id) DO UPDATE SET config_json=excluded.config_json, updated_at=excluded.updated_at`, salonID, string(payload), now, now)
	return err
}

func (r Repo) GetSalonConfig(ctx context.Context, salonID string) (*config.Config, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT config_json FROM salon_configs WHERE salon_id=?`, salonID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var cfg config.Config
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return nil, err
	}
	if cfg.Salon.ID == "" {
		cfg.Salon.ID = salonID
	}
	return &cfg, cfg.Validate()
}

func (r Repo) InsertEmployee(ctx context.Context, tx *sql.Tx, e domain.Employee) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO employees(id,name,email,phone,role,active,hired_at,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		e.ID, e.Name, nullable(e.Email), nullable(e.Phone), e.Role, boolInt(e.Active), nullableStringPtr(e.HiredAt), e.CreatedAt, e.UpdatedAt)
	return err
}

func (r Repo) UpdateEmployee(ctx context.Context, tx *sql.Tx, e domain.Employee) error {
	res, err := tx.ExecContext(ctx, `UPDATE employees SET name=?, email=?, phone=?, role=?, active=?, hired_at=?, updated_at=? WHERE id=?`,
		e.Name, nullable(e.Email), nullable(e.Phone), e.Role, boolInt(e.Active), nullableStringPtr(e.HiredAt), e.UpdatedAt, e.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEmployee(scan func(dest ...any) error) (domain.Employee, error) {
	var e domain.Employee
	var email, phone, hiredAt sql.NullString
	var active int
	err := scan(&e.ID, &e.Name, &email, &phone, &e.Role, &active, &hiredAt, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}
	e.Active = active != 0
	if email.Valid {
		e.Email = email.String
	}
	if phone.Valid {
		e.Phone = phone.String
	}
	if hiredAt.Valid {
		e.HiredAt = &hiredAt.String
	}
	return e, nil
}

const employeeCols = `id,name,email,phone,role,active,hired_at,created_at,updated_at`

func (r Repo) GetEmployee(ctx context.Context, id string) (domain.Employee, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+employeeCols+` FROM employees WHERE id=?`, id)
	return scanEmployee(row.Scan)
}

type EmployeeFilters struct {
	Role            string
	ActiveOnly      bool
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func (r Repo) ListEmployees(ctx context.Context, f EmployeeFilters) ([]domain.Employee, error) {
	var clauses []string
	var args []any
	if f.Role != "" {
		clauses = append(clauses, "role=?")
		args = append(args, f.Role)
	}
	if f.ActiveOnly {
		clauses = append(clauses, "active=1")
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + employeeCols + ` FROM employees ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Employee
	for rows.Next() {
		e, err := scanEmployee(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) DeleteEmployee(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM employees WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertCustomer(ctx context.Context, tx *sql.Tx, c domain.Customer) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO customers(id,name,email,phone,notes,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		c.ID, c.Name, nullable(c.Email), nullable(c.Phone), nullable(c.Notes), c.CreatedAt, c.UpdatedAt)
	return err
}

func (r Repo) UpdateCustomer(ctx context.Context, tx *sql.Tx, c domain.Customer) error {
	res, err := tx.ExecContext(ctx, `UPDATE customers SET name=?, email=?, phone=?, notes=?, updated_at=? WHERE id=?`,
		c.Name, nullable(c.Email), nullable(c.Phone), nullable(c.Notes), c.UpdatedAt, c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCustomer(scan func(dest ...any) error) (domain.Customer, error) {
	var c domain.Customer
	var email, phone, notes sql.NullString
	err := scan(&c.ID, &c.Name, &email, &phone, &notes, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if email.Valid {
		c.Email = email.String
	}
	if phone.Valid {
		c.Phone = phone.String
	}
	if notes.Valid {
		c.Notes = notes.String
	}
	return c, nil
}

func (r Repo) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id,name,email,phone,notes,created_at,updated_at FROM customers WHERE id=?`, id)
	return scanCustomer(row.Scan)
}

func (r Repo) ListCustomers(ctx context.Context, limit int, cursorCreatedAt, cursorID string) ([]domain.Customer, error) {
	var clauses []string
	var args []any
	if cursorCreatedAt != "" && cursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, cursorCreatedAt, cursorCreatedAt, cursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT id,name,email,phone,notes,created_at,updated_at FROM customers ` + where + ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) DeleteCustomer(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM customers WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertService(ctx context.Context, tx *sql.Tx, s domain.Service) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO services(id,name,description,duration_minutes,price,commission_rate,active,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		s.ID, s.Name, nullable(s.Description), s.DurationMinutes, s.Price, s.CommissionRate, boolInt(s.Active), s.CreatedAt, s.UpdatedAt)
	return err
}

func (r Repo) UpdateService(ctx context.Context, tx *sql.Tx, s domain.Service) error {
	res, err := tx.ExecContext(ctx, `UPDATE services SET name=?, description=?, duration_minutes=?, price=?, commission_rate=?, active=?, updated_at=? WHERE id=?`,
		s.Name, nullable(s.Description), s.DurationMinutes, s.Price, s.CommissionRate, boolInt(s.Active), s.UpdatedAt, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanService(scan func(dest ...any) error) (domain.Service, error) {
	var s domain.Service
	var desc sql.NullString
	var active int
	err := scan(&s.ID, &s.Name, &desc, &s.DurationMinutes, &s.Price, &s.CommissionRate, &active, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	s.Active = active != 0
	if desc.Valid {
		s.Description = desc.String
	}
	return s, nil
}

const serviceCols = `id,name,description,duration_minutes,price,commission_rate,active,created_at,updated_at`

func (r Repo) GetService(ctx context.Context, id string) (domain.Service, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+serviceCols+` FROM services WHERE id=?`, id)
	return scanService(row.Scan)
}

func (r Repo) ListServices(ctx context.Context, activeOnly bool, limit int) ([]domain.Service, error) {
	query := `SELECT ` + serviceCols + ` FROM services`
	var args []any
	if activeOnly {
		query += ` WHERE active=1`
	}
	query += ` ORDER BY name ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Service
	for rows.Next() {
		s, err := scanService(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r Repo) DeleteService(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM services WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) LatestEvents(ctx context.Context, limit int, salonID, evtType, entityKind, entityID string) ([]domain.Event, error) {
	return r.LatestEventsFrom(ctx, limit, 0, salonID, evtType, entityKind, entityID)
}

func (r Repo) LatestEventsFrom(ctx context.Context, limit int, cursor int64, salonID, evtType, entityKind, entityID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if salonID != "" {
		clauses = append(clauses, "salon_id=?")
		args = append(args, salonID)
	}
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,COALESCE(salon_id,''),entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.SalonID, &e.EntityKind, &e.EntityID, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// EventsAfter returns events with IDs greater than the cursor in ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64, salonID string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	clauses := []string{"1=1"}
	var args []any
	if salonID != "" {
		clauses = append(clauses, "salon_id=?")
		args = append(args, salonID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id>?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,COALESCE(salon_id,''),entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events %s ORDER BY id ASC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.SalonID, &e.EntityKind, &e.EntityID, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// LatestEventID returns the most recent event ID for a salon.
func (r Repo) LatestEventID(ctx context.Context, salonID string) (int64, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events WHERE salon_id=?`, salonID)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
