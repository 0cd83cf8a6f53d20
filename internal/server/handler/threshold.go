package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"alphawatch/internal/domain"
)

// ThresholdService defines the methods that the threshold handler requires
// from the service layer. It is declared locally so the handler package does
// not depend on the concrete service implementation.
type ThresholdService interface {
	Create(ctx context.Context, t domain.AlertThreshold) (domain.AlertThreshold, error)
	Update(ctx context.Context, t domain.AlertThreshold) (domain.AlertThreshold, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (domain.AlertThreshold, error)
	ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.AlertThreshold, error)
}

// ThresholdHandler serves the alert threshold CRUD endpoints.
type ThresholdHandler struct {
	thresholds ThresholdService
	logger     *slog.Logger
}

// NewThresholdHandler creates a ThresholdHandler with the given service and logger.
func NewThresholdHandler(thresholds ThresholdService, logger *slog.Logger) *ThresholdHandler {
	return &ThresholdHandler{
		thresholds: thresholds,
		logger:     logger,
	}
}

// listThresholdsResponse wraps the list endpoint output with metadata.
type listThresholdsResponse struct {
	Thresholds []domain.AlertThreshold `json:"thresholds"`
	Limit      int                     `json:"limit"`
	Offset     int                     `json:"offset"`
}

// ListThresholds returns a user's thresholds with pagination.
// GET /api/thresholds?user_id=...&limit=50&offset=0
func (h *ThresholdHandler) ListThresholds(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id query parameter required")
		return
	}
	opts := parseListOpts(r)

	thresholds, err := h.thresholds.ListByUser(r.Context(), userID, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list thresholds failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list thresholds")
		return
	}
	if thresholds == nil {
		thresholds = []domain.AlertThreshold{}
	}

	writeJSON(w, http.StatusOK, listThresholdsResponse{
		Thresholds: thresholds,
		Limit:      opts.Limit,
		Offset:     opts.Offset,
	})
}

// GetThreshold returns a single threshold by its ID.
// GET /api/thresholds/{id}
func (h *ThresholdHandler) GetThreshold(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing threshold id")
		return
	}

	t, err := h.thresholds.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "threshold not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get threshold failed",
			slog.String("threshold_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get threshold")
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// CreateThreshold creates a new threshold from a JSON body.
// POST /api/thresholds
func (h *ThresholdHandler) CreateThreshold(w http.ResponseWriter, r *http.Request) {
	var t domain.AlertThreshold
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	created, err := h.thresholds.Create(r.Context(), t)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidConditions) || errors.Is(err, domain.ErrUnknownType) ||
			errors.Is(err, domain.ErrInvalidChannel) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: create threshold failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create threshold")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// UpdateThreshold replaces a threshold's user-owned fields from a JSON body.
// PUT /api/thresholds/{id}
func (h *ThresholdHandler) UpdateThreshold(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing threshold id")
		return
	}

	var t domain.AlertThreshold
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	t.ID = id

	updated, err := h.thresholds.Update(r.Context(), t)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "threshold not found")
			return
		}
		if errors.Is(err, domain.ErrInvalidConditions) || errors.Is(err, domain.ErrUnknownType) ||
			errors.Is(err, domain.ErrInvalidChannel) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: update threshold failed",
			slog.String("threshold_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to update threshold")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// DeleteThreshold deletes a threshold by its ID.
// DELETE /api/thresholds/{id}
func (h *ThresholdHandler) DeleteThreshold(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing threshold id")
		return
	}

	if err := h.thresholds.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "threshold not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: delete threshold failed",
			slog.String("threshold_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete threshold")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":       "deleted",
		"threshold_id": id,
	})
}
