package domain

// Appointment statuses. Completed and cancelled are terminal: a terminal
// appointment neither blocks nor is blocked by overlap checks.
const (
	AppointmentScheduled  = "scheduled"
	AppointmentAssigned   = "assigned"
	AppointmentInProgress = "in_progress"
	AppointmentCompleted  = "completed"
	AppointmentCancelled  = "cancelled"
)

func TerminalAppointmentStatus(status string) bool {
	return status == AppointmentCompleted || status == AppointmentCancelled
}

type Salon struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Employee struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email,omitempty"`
	Phone     string  `json:"phone,omitempty"`
	Role      string  `json:"role" enum:"stylist,colorist,assistant,receptionist,manager"`
	Active    bool    `json:"active"`
	HiredAt   *string `json:"hired_at,omitempty" format:"date-time"`
	CreatedAt string  `json:"created_at" format:"date-time"`
	UpdatedAt string  `json:"updated_at" format:"date-time"`
}

type Customer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type Service struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description,omitempty"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price"`
	CommissionRate  float64 `json:"commission_rate"`
	Active          bool    `json:"active"`
	CreatedAt       string  `json:"created_at" format:"date-time"`
	UpdatedAt       string  `json:"updated_at" format:"date-time"`
}

type Appointment struct {
	ID          string  `json:"id"`
	SalonID     string  `json:"salon_id"`
	CustomerID  string  `json:"customer_id"`
	ServiceID   string  `json:"service_id"`
	EmployeeID  *string `json:"employee_id,omitempty"`
	ScheduledAt string  `json:"scheduled_at" format:"date-time"`
	Status      string  `json:"status" enum:"scheduled,assigned,in_progress,completed,cancelled"`
	Notes       string  `json:"notes,omitempty"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
	UpdatedAt   string  `json:"updated_at" format:"date-time"`
	CompletedAt *string `json:"completed_at,omitempty" format:"date-time"`
}

type Shift struct {
	ID         string `json:"id"`
	SalonID    string `json:"salon_id"`
	EmployeeID string `json:"employee_id"`
	StartAt    string `json:"start_at" format:"date-time"`
	EndAt      string `json:"end_at" format:"date-time"`
	Note       string `json:"note,omitempty"`
	CreatedAt  string `json:"created_at" format:"date-time"`
	UpdatedAt  string `json:"updated_at" format:"date-time"`
}

// TimeEntry is one check-in/check-out pair. CheckedOutAt is nil while the
// employee is still clocked in.
type TimeEntry struct {
	ID           string  `json:"id"`
	EmployeeID   string  `json:"employee_id"`
	CheckedInAt  string  `json:"checked_in_at" format:"date-time"`
	CheckedOutAt *string `json:"checked_out_at,omitempty" format:"date-time"`
}

// CommissionEntry holds precomputed commission amounts for display. Amounts
// arrive computed from the upstream payroll system; this process only stores
// and serves them.
type CommissionEntry struct {
	ID            string  `json:"id"`
	EmployeeID    string  `json:"employee_id"`
	AppointmentID string  `json:"appointment_id"`
	ServiceID     string  `json:"service_id"`
	Amount        float64 `json:"amount"`
	EarnedAt      string  `json:"earned_at" format:"date-time"`
}

// PayrollSummary is a precomputed per-period payroll row for display.
type PayrollSummary struct {
	ID              string  `json:"id"`
	EmployeeID      string  `json:"employee_id"`
	PeriodStart     string  `json:"period_start" format:"date-time"`
	PeriodEnd       string  `json:"period_end" format:"date-time"`
	HoursWorked     float64 `json:"hours_worked"`
	BasePay         float64 `json:"base_pay"`
	CommissionTotal float64 `json:"commission_total"`
	TotalPay        float64 `json:"total_pay"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	SalonID    string `json:"salon_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
