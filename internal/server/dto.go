package server

import (
	"encoding/json"

	"trimline/internal/config"
	"trimline/internal/domain"
	"trimline/internal/schedule"
)

// Request payloads

type CreateEmployeeRequest struct {
	ID      *string `json:"id,omitempty"`
	Name    string  `json:"name"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Role    string  `json:"role,omitempty" enum:"stylist,colorist,assistant,receptionist,manager"`
	HiredAt *string `json:"hired_at,omitempty" format:"date-time"`
}

type UpdateEmployeeRequest struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Phone  *string `json:"phone,omitempty"`
	Role   *string `json:"role,omitempty" enum:"stylist,colorist,assistant,receptionist,manager"`
	Active *bool   `json:"active,omitempty"`
}

type CreateCustomerRequest struct {
	ID    *string `json:"id,omitempty"`
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Notes *string `json:"notes,omitempty"`
}

type UpdateCustomerRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Notes *string `json:"notes,omitempty"`
}

type CreateServiceRequest struct {
	ID              *string `json:"id,omitempty"`
	Name            string  `json:"name"`
	Description     *string `json:"description,omitempty"`
	DurationMinutes int     `json:"duration_minutes,omitempty"`
	Price           float64 `json:"price,omitempty"`
	CommissionRate  float64 `json:"commission_rate,omitempty"`
}

type UpdateServiceRequest struct {
	Name            *string  `json:"name,omitempty"`
	Description     *string  `json:"description,omitempty"`
	DurationMinutes *int     `json:"duration_minutes,omitempty"`
	Price           *float64 `json:"price,omitempty"`
	CommissionRate  *float64 `json:"commission_rate,omitempty"`
	Active          *bool    `json:"active,omitempty"`
}

type CreateAppointmentRequest struct {
	ID          *string `json:"id,omitempty"`
	CustomerID  string  `json:"customer_id"`
	ServiceID   string  `json:"service_id"`
	EmployeeID  *string `json:"employee_id,omitempty"`
	ScheduledAt string  `json:"scheduled_at" format:"date-time"`
	Notes       *string `json:"notes,omitempty"`
}

type UpdateAppointmentRequest struct {
	CustomerID  *string `json:"customer_id,omitempty"`
	ServiceID   *string `json:"service_id,omitempty"`
	EmployeeID  *string `json:"employee_id,omitempty"`
	ScheduledAt *string `json:"scheduled_at,omitempty" format:"date-time"`
	Notes       *string `json:"notes,omitempty"`
}

type SetAppointmentStatusRequest struct {
	Status string `json:"status" enum:"scheduled,assigned,in_progress,completed,cancelled"`
	Force  bool   `json:"force,omitempty"`
}

type ValidateAppointmentRequest struct {
	ID          *string `json:"id,omitempty"`
	CustomerID  *string `json:"customer_id,omitempty"`
	ServiceID   string  `json:"service_id,omitempty"`
	EmployeeID  *string `json:"employee_id,omitempty"`
	ScheduledAt string  `json:"scheduled_at,omitempty" format:"date-time"`
	Editing     bool    `json:"editing,omitempty"`
}

type CreateShiftRequest struct {
	ID         *string `json:"id,omitempty"`
	EmployeeID string  `json:"employee_id"`
	StartAt    string  `json:"start_at" format:"date-time"`
	EndAt      string  `json:"end_at" format:"date-time"`
	Note       *string `json:"note,omitempty"`
}

type UpdateShiftRequest struct {
	EmployeeID *string `json:"employee_id,omitempty"`
	StartAt    *string `json:"start_at,omitempty" format:"date-time"`
	EndAt      *string `json:"end_at,omitempty" format:"date-time"`
	Note       *string `json:"note,omitempty"`
}

type ValidateShiftRequest struct {
	ID         *string `json:"id,omitempty"`
	EmployeeID string  `json:"employee_id,omitempty"`
	StartAt    string  `json:"start_at,omitempty" format:"date-time"`
	EndAt      string  `json:"end_at,omitempty" format:"date-time"`
	Editing    bool    `json:"editing,omitempty"`
}

type TimeClockRequest struct {
	EmployeeID string `json:"employee_id"`
}

type RecordCommissionRequest struct {
	ID            *string `json:"id,omitempty"`
	EmployeeID    string  `json:"employee_id"`
	AppointmentID string  `json:"appointment_id"`
	ServiceID     string  `json:"service_id"`
	Amount        float64 `json:"amount"`
	EarnedAt      *string `json:"earned_at,omitempty" format:"date-time"`
}

type StorePayrollRequest struct {
	ID              *string `json:"id,omitempty"`
	EmployeeID      string  `json:"employee_id"`
	PeriodStart     string  `json:"period_start" format:"date-time"`
	PeriodEnd       string  `json:"period_end" format:"date-time"`
	HoursWorked     float64 `json:"hours_worked,omitempty"`
	BasePay         float64 `json:"base_pay,omitempty"`
	CommissionTotal float64 `json:"commission_total,omitempty"`
	TotalPay        float64 `json:"total_pay,omitempty"`
}

type CreateAPIKeyRequest struct {
	Name string `json:"name,omitempty"`
}

type DevLoginRequest struct {
	ActorID string `json:"actor_id"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

// Response payloads

type ValidationResultResponse struct {
	OK         bool   `json:"ok"`
	Reason     string `json:"reason,omitempty" enum:"MissingFields,InPast,OutsideHours,EndBeforeStart,AlreadyCompleted,EmployeeConflict"`
	ConflictID string `json:"conflict_id,omitempty"`
}

// APIKeyResponse carries the raw key only on create; it is never stored
// or returned again.
type APIKeyResponse struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
	Key       string `json:"key,omitempty"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	SalonID    string         `json:"salon_id,omitempty"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type SalonConfigResponse struct {
	Salon struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"salon"`
	Hours struct {
		Open  int `json:"open"`
		Close int `json:"close"`
	} `json:"hours"`
	Booking struct {
		DefaultDurationMinutes int `json:"default_duration_minutes"`
	} `json:"booking"`
}

type paginatedEmployees struct {
	Items      []domain.Employee `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

type paginatedCustomers struct {
	Items      []domain.Customer `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

type paginatedAppointments struct {
	Items      []domain.Appointment `json:"items"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// Conversion helpers

func validationResponse(res schedule.Result) ValidationResultResponse {
	out := ValidationResultResponse{OK: res.OK}
	if !res.OK {
		out.Reason = string(res.Reason)
		out.ConflictID = res.ConflictID
	}
	return out
}

func apiKeyResponse(k domain.APIKey, raw string) APIKeyResponse {
	return APIKeyResponse{
		ID:        k.ID,
		ActorID:   k.ActorID,
		Name:      k.Name,
		CreatedAt: k.CreatedAt,
		Key:       raw,
	}
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		SalonID:    e.SalonID,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    decodeJSONMap(strPtr(e.Payload)),
	}
}

func configResponse(cfg *config.Config) SalonConfigResponse {
	var res SalonConfigResponse
	res.Salon.ID = cfg.Salon.ID
	res.Salon.Name = cfg.Salon.Name
	res.Hours.Open = cfg.Hours.Open
	res.Hours.Close = cfg.Hours.Close
	res.Booking.DefaultDurationMinutes = cfg.Booking.DefaultDurationMinutes
	return res
}

// JSON helpers

func decodeJSONMap(raw *string) map[string]any {
	if raw == nil || *raw == "" {
		return nil
	}
	var tmp any
	if err := json.Unmarshal([]byte(*raw), &tmp); err != nil {
		return nil
	}
	if obj, ok := tmp.(map[string]any); ok {
		return obj
	}
	return nil
}

func strPtr(in string) *string {
	return &in
}

func stringOrEmpty(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
