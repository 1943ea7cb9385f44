// Package trimline is a small typed client for the Trimline HTTP API.
package trimline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to a Trimline server. Set either Token (JWT bearer) or
// APIKey; BaseURL includes the version prefix, e.g. http://127.0.0.1:8080/v0.
type Client struct {
	BaseURL string
	Token   string
	APIKey  string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is the server's error envelope.
type APIError struct {
	Status  int
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("trimline: %s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("trimline: %s (status %d)", e.Message, e.Status)
}

type Employee struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email,omitempty"`
	Phone     string  `json:"phone,omitempty"`
	Role      string  `json:"role"`
	Active    bool    `json:"active"`
	HiredAt   *string `json:"hired_at,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type Customer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type Service struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description,omitempty"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price"`
	CommissionRate  float64 `json:"commission_rate"`
	Active          bool    `json:"active"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

type Appointment struct {
	ID          string  `json:"id"`
	SalonID     string  `json:"salon_id"`
	CustomerID  string  `json:"customer_id"`
	ServiceID   string  `json:"service_id"`
	EmployeeID  *string `json:"employee_id,omitempty"`
	ScheduledAt string  `json:"scheduled_at"`
	Status      string  `json:"status"`
	Notes       string  `json:"notes,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

type Shift struct {
	ID         string `json:"id"`
	SalonID    string `json:"salon_id"`
	EmployeeID string `json:"employee_id"`
	StartAt    string `json:"start_at"`
	EndAt      string `json:"end_at"`
	Note       string `json:"note,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	SalonID    string `json:"salon_id"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json,omitempty"`
}

// ValidationResult is the dry-run verdict from the validate endpoints.
type ValidationResult struct {
	OK         bool   `json:"ok"`
	Reason     string `json:"reason,omitempty"`
	ConflictID string `json:"conflict_id,omitempty"`
}

type CreateAppointmentRequest struct {
	ID          *string `json:"id,omitempty"`
	CustomerID  string  `json:"customer_id"`
	ServiceID   string  `json:"service_id"`
	EmployeeID  *string `json:"employee_id,omitempty"`
	ScheduledAt string  `json:"scheduled_at"`
	Notes       *string `json:"notes,omitempty"`
}

type CreateShiftRequest struct {
	ID         *string `json:"id,omitempty"`
	EmployeeID string  `json:"employee_id"`
	StartAt    string  `json:"start_at"`
	EndAt      string  `json:"end_at"`
	Note       *string `json:"note,omitempty"`
}

type ValidateAppointmentRequest struct {
	ID          *string `json:"id,omitempty"`
	CustomerID  string  `json:"customer_id"`
	ServiceID   string  `json:"service_id"`
	EmployeeID  *string `json:"employee_id,omitempty"`
	ScheduledAt string  `json:"scheduled_at"`
	Editing     bool    `json:"editing,omitempty"`
}

type ValidateShiftRequest struct {
	ID         *string `json:"id,omitempty"`
	EmployeeID string  `json:"employee_id"`
	StartAt    string  `json:"start_at"`
	EndAt      string  `json:"end_at"`
	Editing    bool    `json:"editing,omitempty"`
}

type AppointmentPage struct {
	Items      []Appointment `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type EventPage struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

type ShiftList struct {
	Items []Shift `json:"items"`
}

func (c *Client) CreateAppointment(ctx context.Context, req CreateAppointmentRequest) (Appointment, error) {
	var out Appointment
	err := c.do(ctx, http.MethodPost, "/appointments", req, &out)
	return out, err
}

func (c *Client) GetAppointment(ctx context.Context, id string) (Appointment, error) {
	var out Appointment
	err := c.do(ctx, http.MethodGet, "/appointments/"+url.PathEscape(id), nil, &out)
	return out, err
}

// ListAppointmentsParams filters ListAppointments; zero values are omitted.
type ListAppointmentsParams struct {
	EmployeeID string
	CustomerID string
	Status     string
	From       string
	To         string
	Limit      int
	Cursor     string
}

func (c *Client) ListAppointments(ctx context.Context, p ListAppointmentsParams) (AppointmentPage, error) {
	q := url.Values{}
	setIf(q, "employee_id", p.EmployeeID)
	setIf(q, "customer_id", p.CustomerID)
	setIf(q, "status", p.Status)
	setIf(q, "from", p.From)
	setIf(q, "to", p.To)
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	setIf(q, "cursor", p.Cursor)
	var out AppointmentPage
	err := c.do(ctx, http.MethodGet, withQuery("/appointments", q), nil, &out)
	return out, err
}

func (c *Client) CancelAppointment(ctx context.Context, id string) (Appointment, error) {
	var out Appointment
	err := c.do(ctx, http.MethodPost, "/appointments/"+url.PathEscape(id)+"/cancel", struct{}{}, &out)
	return out, err
}

func (c *Client) SetAppointmentStatus(ctx context.Context, id, status string, force bool) (Appointment, error) {
	var out Appointment
	body := map[string]any{"status": status, "force": force}
	err := c.do(ctx, http.MethodPost, "/appointments/"+url.PathEscape(id)+"/status", body, &out)
	return out, err
}

func (c *Client) ValidateAppointment(ctx context.Context, req ValidateAppointmentRequest) (ValidationResult, error) {
	var out ValidationResult
	err := c.do(ctx, http.MethodPost, "/appointments/validate", req, &out)
	return out, err
}

func (c *Client) CreateShift(ctx context.Context, req CreateShiftRequest) (Shift, error) {
	var out Shift
	err := c.do(ctx, http.MethodPost, "/shifts", req, &out)
	return out, err
}

func (c *Client) DeleteShift(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/shifts/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ValidateShift(ctx context.Context, req ValidateShiftRequest) (ValidationResult, error) {
	var out ValidationResult
	err := c.do(ctx, http.MethodPost, "/shifts/validate", req, &out)
	return out, err
}

// Events pages through the event log; cursor is the highest id already seen
// (0 starts from the newest entries).
func (c *Client) Events(ctx context.Context, limit int, cursor string) (EventPage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	setIf(q, "cursor", cursor)
	var out EventPage
	err := c.do(ctx, http.MethodGet, withQuery("/events", q), nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	} else if c.APIKey != "" {
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

func decodeError(status int, data []byte) error {
	var envelope struct {
		Error APIError `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Message != "" {
		e := envelope.Error
		e.Status = status
		return &e
	}
	return &APIError{Status: status, Message: strings.TrimSpace(string(data))}
}

func setIf(q url.Values, key, val string) {
	if val != "" {
		q.Set(key, val)
	}
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
