package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trimline/internal/config"
	"trimline/internal/domain"
	"trimline/internal/events"
	"trimline/internal/repo"
	"trimline/internal/schedule"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) hours() schedule.Hours {
	if e.Config == nil {
		return schedule.Hours{Open: 7, Close: 21}
	}
	return e.Config.OperatingHours()
}

// effectiveDuration resolves a service's configured length against the
// salon-wide fallback.
func (e Engine) effectiveDuration(serviceMinutes int) int {
	if serviceMinutes > 0 {
		return serviceMinutes
	}
	if e.Config != nil {
		return e.Config.DefaultDuration()
	}
	return schedule.DefaultAppointmentMinutes
}

// ValidationError carries a booking rule rejection to the API and CLI, which
// translate the reason into a stable error code.
type ValidationError struct {
	Reason     schedule.Reason
	ConflictID string
}

func (v *ValidationError) Error() string {
	if v.ConflictID != "" {
		return fmt.Sprintf("booking rejected: %s (conflicts with %s)", v.Reason, v.ConflictID)
	}
	return fmt.Sprintf("booking rejected: %s", v.Reason)
}

func resultError(res schedule.Result) error {
	if res.OK {
		return nil
	}
	return &ValidationError{Reason: res.Reason, ConflictID: res.ConflictID}
}

// InitSalon initializes a new salon with migrations already run.
func (e Engine) InitSalon(ctx context.Context, salonID, name, actorID string) (domain.Salon, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Salon{}, err
	}
	defer tx.Rollback()

	s := domain.Salon{
		ID:        salonID,
		Name:      name,
		CreatedAt: e.now().UTC().Format(time.RFC3339),
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO salons(id,name,created_at) VALUES (?,?,?)`,
		s.ID, s.Name, s.CreatedAt); err != nil {
		return domain.Salon{}, fmt.Errorf("insert salon: %w", err)
	}
	if err := e.Repo.UpsertSalonConfigTx(ctx, tx, s.ID, config.Default(s.ID)); err != nil {
		return domain.Salon{}, fmt.Errorf("insert salon config: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "salon.init", s.ID, "salon", s.ID, actorID, events.EventPayload{"name": s.Name}); err != nil {
		return domain.Salon{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Salon{}, err
	}
	return s, nil
}

type EmployeeOptions struct {
	ID      string
	Name    string
	Email   string
	Phone   string
	Role    string
	HiredAt string
	ActorID string
}

var employeeRoles = map[string]bool{
	"stylist":      true,
	"colorist":     true,
	"assistant":    true,
	"receptionist": true,
	"manager":      true,
}

func (e Engine) CreateEmployee(ctx context.Context, opts EmployeeOptions) (domain.Employee, error) {
	if opts.Name == "" {
		return domain.Employee{}, errors.New("name is required")
	}
	if opts.Role == "" {
		opts.Role = "stylist"
	}
	if !employeeRoles[opts.Role] {
		return domain.Employee{}, fmt.Errorf("unknown role %s", opts.Role)
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := e.now().UTC().Format(time.RFC3339)
	emp := domain.Employee{
		ID:        id,
		Name:      opts.Name,
		Email:     opts.Email,
		Phone:     opts.Phone,
		Role:      opts.Role,
		Active:    true,
		HiredAt:   optionalString(opts.HiredAt),
		CreatedAt: now,
		UpdatedAt: now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return emp, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertEmployee(ctx, tx, emp); err != nil {
		return emp, fmt.Errorf("insert employee: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "employee.created", e.salonID(), "employee", emp.ID, opts.ActorID, events.EventPayload{
		"name": emp.Name,
		"role": emp.Role,
	}); err != nil {
		return emp, err
	}
	return emp, tx.Commit()
}

type EmployeeUpdateOptions struct {
	ID        string
	SetName   *string
	SetEmail  *string
	SetPhone  *string
	SetRole   *string
	SetActive *bool
	ActorID   string
}

func (e Engine) UpdateEmployee(ctx context.Context, opts EmployeeUpdateOptions) (domain.Employee, error) {
	emp, err := e.Repo.GetEmployee(ctx, opts.ID)
	if err != nil {
		return emp, err
	}
	if opts.SetName != nil {
		if *opts.SetName == "" {
			return emp, errors.New("name cannot be empty")
		}
		emp.Name = *opts.SetName
	}
	if opts.SetEmail != nil {
		emp.Email = *opts.SetEmail
	}
	if opts.SetPhone != nil {
		emp.Phone = *opts.SetPhone
	}
	if opts.SetRole != nil {
		if !employeeRoles[*opts.SetRole] {
			return emp, fmt.Errorf("unknown role %s", *opts.SetRole)
		}
		emp.Role = *opts.SetRole
	}
	if opts.SetActive != nil {
		emp.Active = *opts.SetActive
	}
	emp.UpdatedAt = e.now().UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return emp, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateEmployee(ctx, tx, emp); err != nil {
		return emp, err
	}
	if err := e.Events.Append(ctx, tx, "employee.updated", e.salonID(), "employee", emp.ID, opts.ActorID, events.EventPayload{
		"active": emp.Active,
	}); err != nil {
		return emp, err
	}
	return emp, tx.Commit()
}

type CustomerOptions struct {
	ID      string
	Name    string
	Email   string
	Phone   string
	Notes   string
	ActorID string
}

func (e Engine) CreateCustomer(ctx context.Context, opts CustomerOptions) (domain.Customer, error) {
	if opts.Name == "" {
		return domain.Customer{}, errors.New("name is required")
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := e.now().UTC().Format(time.RFC3339)
	c := domain.Customer{
		ID:        id,
		Name:      opts.Name,
		Email:     opts.Email,
		Phone:     opts.Phone,
		Notes:     opts.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertCustomer(ctx, tx, c); err != nil {
		return c, fmt.Errorf("insert customer: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "customer.created", e.salonID(), "customer", c.ID, opts.ActorID, events.EventPayload{
		"name": c.Name,
	}); err != nil {
		return c, err
	}
	return c, tx.Commit()
}

type CustomerUpdateOptions struct {
	ID       string
	SetName  *string
	SetEmail *string
	SetPhone *string
	SetNotes *string
	ActorID  string
}

func (e Engine) UpdateCustomer(ctx context.Context, opts CustomerUpdateOptions) (domain.Customer, error) {
	c, err := e.Repo.GetCustomer(ctx, opts.ID)
	if err != nil {
		return c, err
	}
	if opts.SetName != nil {
		if *opts.SetName == "" {
			return c, errors.New("name cannot be empty")
		}
		c.Name = *opts.SetName
	}
	if opts.SetEmail != nil {
		c.Email = *opts.SetEmail
	}
	if opts.SetPhone != nil {
		c.Phone = *opts.SetPhone
	}
	if opts.SetNotes != nil {
		c.Notes = *opts.SetNotes
	}
	c.UpdatedAt = e.now().UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateCustomer(ctx, tx, c); err != nil {
		return c, err
	}
	if err := e.Events.Append(ctx, tx, "customer.updated", e.salonID(), "customer", c.ID, opts.ActorID, nil); err != nil {
		return c, err
	}
	return c, tx.Commit()
}

type ServiceOptions struct {
	ID              string
	Name            string
	Description     string
	DurationMinutes int
	Price           float64
	CommissionRate  float64
	ActorID         string
}

func (e Engine) CreateService(ctx context.Context, opts ServiceOptions) (domain.Service, error) {
	if opts.Name == "" {
		return domain.Service{}, errors.New("name is required")
	}
	if opts.DurationMinutes < 0 {
		return domain.Service{}, errors.New("duration cannot be negative")
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := e.now().UTC().Format(time.RFC3339)
	s := domain.Service{
		ID:              id,
		Name:            opts.Name,
		Description:     opts.Description,
		DurationMinutes: opts.DurationMinutes,
		Price:           opts.Price,
		CommissionRate:  opts.CommissionRate,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertService(ctx, tx, s); err != nil {
		return s, fmt.Errorf("insert service: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "service.created", e.salonID(), "service", s.ID, opts.ActorID, events.EventPayload{
		"name":             s.Name,
		"duration_minutes": s.DurationMinutes,
	}); err != nil {
		return s, err
	}
	return s, tx.Commit()
}

type ServiceUpdateOptions struct {
	ID             string
	SetName        *string
	SetDescription *string
	SetDuration    *int
	SetPrice       *float64
	SetCommission  *float64
	SetActive      *bool
	ActorID        string
}

func (e Engine) UpdateService(ctx context.Context, opts ServiceUpdateOptions) (domain.Service, error) {
	s, err := e.Repo.GetService(ctx, opts.ID)
	if err != nil {
		return s, err
	}
	if opts.SetName != nil {
		if *opts.SetName == "" {
			return s, errors.New("name cannot be empty")
		}
		s.Name = *opts.SetName
	}
	if opts.SetDescription != nil {
		s.Description = *opts.SetDescription
	}
	if opts.SetDuration != nil {
		if *opts.SetDuration < 0 {
			return s, errors.New("duration cannot be negative")
		}
		s.DurationMinutes = *opts.SetDuration
	}
	if opts.SetPrice != nil {
		s.Price = *opts.SetPrice
	}
	if opts.SetCommission != nil {
		s.CommissionRate = *opts.SetCommission
	}
	if opts.SetActive != nil {
		s.Active = *opts.SetActive
	}
	s.UpdatedAt = e.now().UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateService(ctx, tx, s); err != nil {
		return s, err
	}
	if err := e.Events.Append(ctx, tx, "service.updated", e.salonID(), "service", s.ID, opts.ActorID, nil); err != nil {
		return s, err
	}
	return s, tx.Commit()
}

// CreateAPIKey mints a new API key and stores only its hash. The raw key is
// returned once and never persisted.
func (e Engine) CreateAPIKey(ctx context.Context, actorID, name string) (domain.APIKey, string, error) {
	if actorID == "" {
		return domain.APIKey{}, "", errors.New("actor is required")
	}
	raw := uuid.NewString() + uuid.NewString()
	key := domain.APIKey{
		ID:        uuid.NewString(),
		ActorID:   actorID,
		Name:      name,
		KeyHash:   repo.HashAPIKey(raw),
		CreatedAt: e.now().UTC().Format(time.RFC3339),
	}
	if err := e.Repo.InsertAPIKey(ctx, nil, key); err != nil {
		return domain.APIKey{}, "", err
	}
	return key, raw, nil
}

func (e Engine) salonID() string {
	if e.Config == nil {
		return ""
	}
	return e.Config.Salon.ID
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseRFC3339(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: invalid RFC3339 timestamp %q", field, value)
	}
	return t, nil
}
