package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"trimline/internal/config"
	"trimline/internal/db"
	"trimline/internal/domain"
	"trimline/internal/engine"
	"trimline/internal/migrate"
)

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	cfg := config.Default("salon-1")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, cfg)
	if _, err := e.InitSalon(context.Background(), cfg.Salon.ID, "Test Salon", "tester"); err != nil {
		t.Fatalf("init salon: %v", err)
	}
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v0",
		Auth:     AuthConfig{AllowLegacyActorHeader: true},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-Id", "tester")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func seedSalonData(t *testing.T, srv *testServer) (employee, customer, service string) {
	t.Helper()
	client := srv.Client()
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/employees", map[string]any{
		"name": "Dana West",
		"role": "stylist",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create employee status %d: %s", res.StatusCode, string(data))
	}
	var emp domain.Employee
	if err := json.Unmarshal(data, &emp); err != nil {
		t.Fatalf("unmarshal employee: %v", err)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/customers", map[string]any{
		"name": "Alex Reed",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create customer status %d: %s", res.StatusCode, string(data))
	}
	var cust domain.Customer
	if err := json.Unmarshal(data, &cust); err != nil {
		t.Fatalf("unmarshal customer: %v", err)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/services", map[string]any{
		"name":             "Cut",
		"duration_minutes": 60,
		"price":            45.0,
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create service status %d: %s", res.StatusCode, string(data))
	}
	var svc domain.Service
	if err := json.Unmarshal(data, &svc); err != nil {
		t.Fatalf("unmarshal service: %v", err)
	}
	return emp.ID, cust.ID, svc.ID
}

func TestBookAppointmentAndConflict(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	empID, custID, svcID := seedSalonData(t, srv)

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/appointments", map[string]any{
		"customer_id":  custID,
		"service_id":   svcID,
		"employee_id":  empID,
		"scheduled_at": "2030-06-12T10:00:00Z",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("book status %d: %s", res.StatusCode, string(data))
	}
	var booked domain.Appointment
	if err := json.Unmarshal(data, &booked); err != nil {
		t.Fatalf("unmarshal appointment: %v", err)
	}
	if booked.Status != "assigned" {
		t.Fatalf("expected assigned, got %s", booked.Status)
	}

	// Same stylist half an hour in: rejected with the conflict envelope.
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/appointments", map[string]any{
		"customer_id":  custID,
		"service_id":   svcID,
		"employee_id":  empID,
		"scheduled_at": "2030-06-12T10:30:00Z",
	}, nil)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "validation_failed" {
		t.Fatalf("expected validation_failed, got %s", envelope.Error.Code)
	}
	if envelope.Error.Details["reason"] != "EmployeeConflict" {
		t.Fatalf("expected EmployeeConflict, got %v", envelope.Error.Details["reason"])
	}
	if envelope.Error.Details["conflict_id"] != booked.ID {
		t.Fatalf("expected conflict_id %s, got %v", booked.ID, envelope.Error.Details["conflict_id"])
	}

	// Back to back is fine.
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/appointments", map[string]any{
		"customer_id":  custID,
		"service_id":   svcID,
		"employee_id":  empID,
		"scheduled_at": "2030-06-12T11:00:00Z",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("back-to-back status %d: %s", res.StatusCode, string(data))
	}
}

func TestValidateAppointmentDryRun(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	empID, custID, svcID := seedSalonData(t, srv)

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/appointments", map[string]any{
		"customer_id":  custID,
		"service_id":   svcID,
		"employee_id":  empID,
		"scheduled_at": "2030-06-12T10:00:00Z",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("book status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/appointments/validate", map[string]any{
		"service_id":   svcID,
		"employee_id":  empID,
		"scheduled_at": "2030-06-12T10:30:00Z",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("validate status %d: %s", res.StatusCode, string(data))
	}
	var check ValidationResultResponse
	if err := json.Unmarshal(data, &check); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if check.OK {
		t.Fatalf("expected conflict, got ok")
	}
	if check.Reason != "EmployeeConflict" {
		t.Fatalf("expected EmployeeConflict, got %s", check.Reason)
	}

	// Dry run must not have written anything.
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/appointments", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, string(data))
	}
	var page paginatedAppointments
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("unmarshal page: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 stored appointment, got %d", len(page.Items))
	}
}

func TestUnassignAppointmentWithNull(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	empID, custID, svcID := seedSalonData(t, srv)

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/appointments", map[string]any{
		"customer_id":  custID,
		"service_id":   svcID,
		"employee_id":  empID,
		"scheduled_at": "2030-06-12T10:00:00Z",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("book status %d: %s", res.StatusCode, string(data))
	}
	var booked domain.Appointment
	if err := json.Unmarshal(data, &booked); err != nil {
		t.Fatalf("unmarshal appointment: %v", err)
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/appointments/"+booked.ID, map[string]any{
		"employee_id": nil,
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unassign status %d: %s", res.StatusCode, string(data))
	}
	var updated domain.Appointment
	if err := json.Unmarshal(data, &updated); err != nil {
		t.Fatalf("unmarshal updated: %v", err)
	}
	if updated.EmployeeID != nil {
		t.Fatalf("expected no employee, got %v", *updated.EmployeeID)
	}
	if updated.Status != "scheduled" {
		t.Fatalf("expected scheduled after unassign, got %s", updated.Status)
	}
}

func TestShiftEndpoints(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	empID, _, _ := seedSalonData(t, srv)

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/shifts", map[string]any{
		"employee_id": empID,
		"start_at":    "2030-06-12T09:00:00Z",
		"end_at":      "2030-06-12T17:00:00Z",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create shift status %d: %s", res.StatusCode, string(data))
	}
	var shift domain.Shift
	if err := json.Unmarshal(data, &shift); err != nil {
		t.Fatalf("unmarshal shift: %v", err)
	}

	// Overlapping shift for the same employee is rejected.
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/shifts", map[string]any{
		"employee_id": empID,
		"start_at":    "2030-06-12T16:00:00Z",
		"end_at":      "2030-06-12T20:00:00Z",
	}, nil)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", res.StatusCode, string(data))
	}

	// Validate dry run agrees without writing.
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/shifts/validate", map[string]any{
		"employee_id": empID,
		"start_at":    "2030-06-12T16:00:00Z",
		"end_at":      "2030-06-12T20:00:00Z",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("validate status %d: %s", res.StatusCode, string(data))
	}
	var check ValidationResultResponse
	if err := json.Unmarshal(data, &check); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if check.OK || check.Reason != "EmployeeConflict" {
		t.Fatalf("expected EmployeeConflict, got %+v", check)
	}

	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/shifts/"+shift.ID, nil, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete shift status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/shifts/"+shift.ID, nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d: %s", res.StatusCode, string(data))
	}
}

func TestAuthRequired(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v0/employees", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", res.StatusCode)
	}

	// Health stays open.
	res2, err := srv.Client().Get(srv.URL + "/v0/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer res2.Body.Close()
	if res2.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 health, got %d", res2.StatusCode)
	}
}

func TestTimeClockEndpoints(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	empID, _, _ := seedSalonData(t, srv)

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/timeclock/check-in", map[string]any{
		"employee_id": empID,
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("check-in status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/timeclock/check-in", map[string]any{
		"employee_id": empID,
	}, nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on double check-in, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/timeclock/check-out", map[string]any{
		"employee_id": empID,
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("check-out status %d: %s", res.StatusCode, string(data))
	}
	var entry domain.TimeEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("unmarshal entry: %v", err)
	}
	if entry.CheckedOutAt == nil {
		t.Fatalf("expected checked_out_at to be set")
	}
}
