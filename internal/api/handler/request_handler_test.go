package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aurora-advisory/advisory-api/internal/api/middleware"
	"github.com/aurora-advisory/advisory-api/internal/core/domain"
	"github.com/aurora-advisory/advisory-api/internal/core/ports"
)

// stubRequestService records the arguments it was called with and returns
// canned results. Unset hooks fail the test.
type stubRequestService struct {
	t         *testing.T
	createFn  func(caller domain.Caller, in ports.CreateRequestInput) (*ports.CreateRequestResult, error)
	listAllFn func(caller domain.Caller, in ports.ListRequestsInput) (*ports.ListRequestsResult, error)
	updateFn  func(caller domain.Caller, id, status string) (*domain.AdvisoryRequest, error)
	historyFn func(caller domain.Caller, id string) ([]domain.StatusHistoryEntry, error)
}

func (s *stubRequestService) CreateRequest(_ context.Context, caller domain.Caller, in ports.CreateRequestInput) (*ports.CreateRequestResult, error) {
	return s.createFn(caller, in)
}

func (s *stubRequestService) ListMyRequests(context.Context, domain.Caller) ([]*domain.AdvisoryRequest, error) {
	s.t.Fatalf("ListMyRequests not expected")
	return nil, nil
}

func (s *stubRequestService) GetMyRequest(context.Context, domain.Caller, string) (*domain.AdvisoryRequest, error) {
	s.t.Fatalf("GetMyRequest not expected")
	return nil, nil
}

func (s *stubRequestService) ListAllRequests(_ context.Context, caller domain.Caller, in ports.ListRequestsInput) (*ports.ListRequestsResult, error) {
	return s.listAllFn(caller, in)
}

func (s *stubRequestService) UpdateStatus(_ context.Context, caller domain.Caller, id, status string) (*domain.AdvisoryRequest, error) {
	return s.updateFn(caller, id, status)
}

func (s *stubRequestService) GetHistory(_ context.Context, caller domain.Caller, id string) ([]domain.StatusHistoryEntry, error) {
	return s.historyFn(caller, id)
}

func (s *stubRequestService) Stats(context.Context, domain.Caller) (*ports.RequestStats, error) {
	s.t.Fatalf("Stats not expected")
	return nil, nil
}

func sampleRequest(status domain.RequestStatus) *domain.AdvisoryRequest {
	now := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	return &domain.AdvisoryRequest{
		ID:               "r1",
		UserID:           "u1",
		Goal:             "Retirement",
		Amount:           10000,
		TimeHorizonYears: 10,
		RiskProfile:      domain.RiskMedium,
		Status:           status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func newAuthedContext(e *echo.Echo, method, target, body string, caller domain.Caller) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	middleware.SetCaller(c, caller)
	return c, rec
}

func TestRequestHandler_Create(t *testing.T) {
	e := newTestEcho()
	client := domain.Caller{UserID: "u1", Role: domain.RoleClient}
	stub := &stubRequestService{t: t, createFn: func(caller domain.Caller, in ports.CreateRequestInput) (*ports.CreateRequestResult, error) {
		if caller != client {
			t.Fatalf("caller not forwarded: %+v", caller)
		}
		if in.IdempotencyKey != "k-1" || in.Amount != 10000 || in.RiskProfile != "medium" {
			t.Fatalf("unexpected input: %+v", in)
		}
		return &ports.CreateRequestResult{Request: sampleRequest(domain.StatusPending)}, nil
	}}
	h := NewRequestHandler(stub)

	c, rec := newAuthedContext(e, http.MethodPost, "/requests",
		`{"goal":"Retirement","amount":10000,"time_horizon_years":10,"risk_profile":"medium"}`, client)
	c.Request().Header.Set("Idempotency-Key", "k-1")

	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp requestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.ID != "r1" || resp.Status != "pending" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestRequestHandler_Create_Replay(t *testing.T) {
	e := newTestEcho()
	stub := &stubRequestService{t: t, createFn: func(domain.Caller, ports.CreateRequestInput) (*ports.CreateRequestResult, error) {
		return &ports.CreateRequestResult{Request: sampleRequest(domain.StatusPending), AlreadyExisted: true}, nil
	}}
	h := NewRequestHandler(stub)

	c, rec := newAuthedContext(e, http.MethodPost, "/requests",
		`{"goal":"Retirement","amount":10000,"time_horizon_years":10,"risk_profile":"medium"}`,
		domain.Caller{UserID: "u1", Role: domain.RoleClient})

	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d", rec.Code)
	}
	if rec.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay header")
	}
}

func TestRequestHandler_Create_Validation(t *testing.T) {
	e := newTestEcho()
	stub := &stubRequestService{t: t, createFn: func(domain.Caller, ports.CreateRequestInput) (*ports.CreateRequestResult, error) {
		t.Fatalf("service should not be called")
		return nil, nil
	}}
	h := NewRequestHandler(stub)

	c, _ := newAuthedContext(e, http.MethodPost, "/requests",
		`{"goal":"Retirement","amount":0,"time_horizon_years":10,"risk_profile":"reckless"}`,
		domain.Caller{UserID: "u1", Role: domain.RoleClient})

	err := h.Create(c)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "amount") || !strings.Contains(err.Error(), "risk_profile") {
		t.Fatalf("expected field names in message, got %q", err.Error())
	}
}

func TestRequestHandler_WithoutCaller(t *testing.T) {
	e := newTestEcho()
	h := NewRequestHandler(&stubRequestService{t: t})

	req := httptest.NewRequest(http.MethodGet, "/requests/r1/history", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	if err := h.History(c); err != domain.ErrMissingToken {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestRequestHandler_List_QueryParams(t *testing.T) {
	e := newTestEcho()
	stub := &stubRequestService{t: t, listAllFn: func(_ domain.Caller, in ports.ListRequestsInput) (*ports.ListRequestsResult, error) {
		if in.Status != "pending" || in.Query != "ana" || in.Skip != 5 || in.Limit != 10 {
			t.Fatalf("unexpected filter: %+v", in)
		}
		return &ports.ListRequestsResult{
			Items: []ports.RequestWithOwner{{
				Request: sampleRequest(domain.StatusPending),
				Owner:   domain.RequestOwner{Email: "ana@example.com", Role: domain.RoleClient},
			}},
			Total: 6, Skip: 5, Limit: 10,
		}, nil
	}}
	h := NewRequestHandler(stub)

	c, rec := newAuthedContext(e, http.MethodGet, "/requests?status=pending&q=ana&skip=5&limit=10", "",
		domain.Caller{UserID: "adv", Role: domain.RoleAdvisor})

	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	items, _ := resp["items"].([]any)
	if len(items) != 1 || resp["total"] != float64(6) {
		t.Fatalf("unexpected page: %+v", resp)
	}
	item := items[0].(map[string]any)
	if item["owner_email"] != "ana@example.com" || item["id"] != "r1" {
		t.Fatalf("expected flattened owner annotation, got %+v", item)
	}
}

func TestRequestHandler_List_BadPaging(t *testing.T) {
	e := newTestEcho()
	h := NewRequestHandler(&stubRequestService{t: t})

	c, _ := newAuthedContext(e, http.MethodGet, "/requests?limit=ten", "",
		domain.Caller{UserID: "adv", Role: domain.RoleAdvisor})

	if err := h.List(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRequestHandler_CancelMine_OnlyCancelled(t *testing.T) {
	e := newTestEcho()
	calls := 0
	stub := &stubRequestService{t: t, updateFn: func(_ domain.Caller, id, status string) (*domain.AdvisoryRequest, error) {
		calls++
		if id != "r1" || status != "cancelled" {
			t.Fatalf("unexpected update: %s %s", id, status)
		}
		return sampleRequest(domain.StatusCancelled), nil
	}}
	h := NewRequestHandler(stub)
	client := domain.Caller{UserID: "u1", Role: domain.RoleClient}

	c, _ := newAuthedContext(e, http.MethodPatch, "/requests/me/r1", `{"status":"completed"}`, client)
	c.SetParamNames("id")
	c.SetParamValues("r1")
	if err := h.CancelMine(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	c, rec := newAuthedContext(e, http.MethodPatch, "/requests/me/r1", `{"status":"cancelled"}`, client)
	c.SetParamNames("id")
	c.SetParamValues("r1")
	if err := h.CancelMine(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || calls != 1 {
		t.Fatalf("expected one successful update, got code=%d calls=%d", rec.Code, calls)
	}
}

func TestRequestHandler_UpdateStatus_PropagatesConflict(t *testing.T) {
	e := newTestEcho()
	stub := &stubRequestService{t: t, updateFn: func(domain.Caller, string, string) (*domain.AdvisoryRequest, error) {
		return nil, domain.ErrTerminalStatus
	}}
	h := NewRequestHandler(stub)

	c, _ := newAuthedContext(e, http.MethodPatch, "/requests/r1", `{"status":"in_review"}`,
		domain.Caller{UserID: "adv", Role: domain.RoleAdvisor})
	c.SetParamNames("id")
	c.SetParamValues("r1")

	if err := h.UpdateStatus(c); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRequestHandler_History(t *testing.T) {
	e := newTestEcho()
	pending := domain.StatusPending
	at := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	stub := &stubRequestService{t: t, historyFn: func(_ domain.Caller, id string) ([]domain.StatusHistoryEntry, error) {
		return []domain.StatusHistoryEntry{
			{RequestID: id, NewStatus: domain.StatusPending, ChangedBy: "u1", ChangedAt: at},
			{RequestID: id, OldStatus: &pending, NewStatus: domain.StatusInReview, ChangedBy: "adv", ChangedAt: at.Add(time.Hour)},
		}, nil
	}}
	h := NewRequestHandler(stub)

	c, rec := newAuthedContext(e, http.MethodGet, "/requests/r1/history", "",
		domain.Caller{UserID: "u1", Role: domain.RoleClient})
	c.SetParamNames("id")
	c.SetParamValues("r1")

	if err := h.History(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp []historyEntryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp) != 2 || resp[0].OldStatus != nil || resp[1].OldStatus == nil || *resp[1].OldStatus != "pending" {
		t.Fatalf("unexpected history: %+v", resp)
	}
	if resp[1].ChangedByUserID != "adv" {
		t.Fatalf("expected changed_by_user_id adv, got %s", resp[1].ChangedByUserID)
	}
}
