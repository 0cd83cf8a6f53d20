package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"alphawatch/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubThresholdService scripts per-method behavior for handler tests.
type stubThresholdService struct {
	createFn func(domain.AlertThreshold) (domain.AlertThreshold, error)
	getFn    func(string) (domain.AlertThreshold, error)
	listFn   func(string, domain.ListOpts) ([]domain.AlertThreshold, error)
	deleteFn func(string) error
}

func (s *stubThresholdService) Create(_ context.Context, t domain.AlertThreshold) (domain.AlertThreshold, error) {
	return s.createFn(t)
}

func (s *stubThresholdService) Update(_ context.Context, t domain.AlertThreshold) (domain.AlertThreshold, error) {
	return t, nil
}

func (s *stubThresholdService) Delete(_ context.Context, id string) error { return s.deleteFn(id) }

func (s *stubThresholdService) Get(_ context.Context, id string) (domain.AlertThreshold, error) {
	return s.getFn(id)
}

func (s *stubThresholdService) ListByUser(_ context.Context, userID string, opts domain.ListOpts) ([]domain.AlertThreshold, error) {
	return s.listFn(userID, opts)
}

func thresholdMux(svc ThresholdService) *http.ServeMux {
	h := NewThresholdHandler(svc, testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/thresholds", h.ListThresholds)
	mux.HandleFunc("POST /api/thresholds", h.CreateThreshold)
	mux.HandleFunc("GET /api/thresholds/{id}", h.GetThreshold)
	mux.HandleFunc("DELETE /api/thresholds/{id}", h.DeleteThreshold)
	return mux
}

func TestListThresholdsRequiresUserID(t *testing.T) {
	mux := thresholdMux(&stubThresholdService{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/thresholds", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestListThresholdsPagination(t *testing.T) {
	var gotOpts domain.ListOpts
	svc := &stubThresholdService{
		listFn: func(userID string, opts domain.ListOpts) ([]domain.AlertThreshold, error) {
			gotOpts = opts
			return nil, nil
		},
	}
	mux := thresholdMux(svc)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/thresholds?user_id=u1&limit=9999&offset=10", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
	}
	if gotOpts.Limit != 500 {
		t.Errorf("limit must be capped at 500, got %d", gotOpts.Limit)
	}
	if gotOpts.Offset != 10 {
		t.Errorf("offset: got %d", gotOpts.Offset)
	}

	// nil result renders as an empty array, not null.
	var resp struct {
		Thresholds []domain.AlertThreshold `json:"thresholds"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body: %v", err)
	}
	if resp.Thresholds == nil {
		t.Error("thresholds must be an empty array")
	}
}

func TestCreateThresholdValidationMapsTo400(t *testing.T) {
	svc := &stubThresholdService{
		createFn: func(th domain.AlertThreshold) (domain.AlertThreshold, error) {
			return domain.AlertThreshold{}, domain.ErrInvalidConditions
		},
	}
	mux := thresholdMux(svc)
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"user_id":"u1","type":"price"}`)
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/thresholds", body))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestCreateThresholdMalformedBody(t *testing.T) {
	mux := thresholdMux(&stubThresholdService{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/thresholds", strings.NewReader("{not json")))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestGetThresholdNotFound(t *testing.T) {
	svc := &stubThresholdService{
		getFn: func(id string) (domain.AlertThreshold, error) {
			return domain.AlertThreshold{}, domain.ErrNotFound
		},
	}
	mux := thresholdMux(svc)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/thresholds/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}

func TestDeleteThreshold(t *testing.T) {
	var deleted string
	svc := &stubThresholdService{
		deleteFn: func(id string) error {
			deleted = id
			return nil
		},
	}
	mux := thresholdMux(svc)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/thresholds/t-1", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
	if deleted != "t-1" {
		t.Errorf("deleted id: got %q", deleted)
	}
}
