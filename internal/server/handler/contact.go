package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// ContactStore defines the write surface the contact handler needs.
type ContactStore interface {
	Upsert(ctx context.Context, userID, email, phone string, deviceTokens []string) error
}

// ContactHandler serves the per-user delivery endpoint registration.
type ContactHandler struct {
	contacts ContactStore
	logger   *slog.Logger
}

// NewContactHandler creates a ContactHandler with the given store and logger.
func NewContactHandler(contacts ContactStore, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{
		contacts: contacts,
		logger:   logger,
	}
}

// contactRequest is the JSON body for contact registration.
type contactRequest struct {
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	DeviceTokens []string `json:"device_tokens"`
}

// UpsertContacts registers or replaces a user's delivery endpoints.
// PUT /api/users/{id}/contacts
func (h *ContactHandler) UpsertContacts(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.contacts.Upsert(r.Context(), userID, req.Email, req.Phone, req.DeviceTokens); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: upsert contacts failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to save contacts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "saved",
		"user_id": userID,
	})
}
