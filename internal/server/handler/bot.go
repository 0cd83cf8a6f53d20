package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"alphawatch/internal/domain"
)

// BotService defines the methods that the bot handler requires from the
// service layer.
type BotService interface {
	Create(ctx context.Context, b domain.BotInstance) (domain.BotInstance, error)
	Get(ctx context.Context, id string) (domain.BotInstance, error)
	ListByUser(ctx context.Context, userID string) ([]domain.BotInstance, error)
	Start(ctx context.Context, id string) (domain.BotInstance, error)
	Pause(ctx context.Context, id string) (domain.BotInstance, error)
	Stop(ctx context.Context, id string) (domain.BotInstance, error)
	Delete(ctx context.Context, id string) error
	Heartbeat(ctx context.Context, id string) error
}

// BotHandler serves the bot instance lifecycle endpoints.
type BotHandler struct {
	bots   BotService
	logger *slog.Logger
}

// NewBotHandler creates a BotHandler with the given service and logger.
func NewBotHandler(bots BotService, logger *slog.Logger) *BotHandler {
	return &BotHandler{
		bots:   bots,
		logger: logger,
	}
}

// listBotsResponse wraps the list endpoint output.
type listBotsResponse struct {
	Bots []domain.BotInstance `json:"bots"`
}

// ListBots returns a user's bot instances.
// GET /api/bots?user_id=...
func (h *BotHandler) ListBots(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id query parameter required")
		return
	}

	bots, err := h.bots.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list bots failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list bots")
		return
	}
	if bots == nil {
		bots = []domain.BotInstance{}
	}

	writeJSON(w, http.StatusOK, listBotsResponse{Bots: bots})
}

// GetBot returns a single bot instance by its ID.
// GET /api/bots/{id}
func (h *BotHandler) GetBot(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing bot id")
		return
	}

	b, err := h.bots.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "bot not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get bot failed",
			slog.String("bot_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get bot")
		return
	}

	writeJSON(w, http.StatusOK, b)
}

// CreateBot creates a new idle bot instance from a JSON body.
// POST /api/bots
func (h *BotHandler) CreateBot(w http.ResponseWriter, r *http.Request) {
	var b domain.BotInstance
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	created, err := h.bots.Create(r.Context(), b)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidConditions) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: create bot failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create bot")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// transition invokes one lifecycle transition and maps its sentinel errors
// onto HTTP statuses. Illegal transitions surface as 409s.
func (h *BotHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	action string,
	fn func(ctx context.Context, id string) (domain.BotInstance, error),
) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing bot id")
		return
	}

	b, err := fn(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "bot not found")
		case errors.Is(err, domain.ErrBotAlreadyRunning),
			errors.Is(err, domain.ErrBotNotRunning),
			errors.Is(err, domain.ErrBotAlreadyIdle):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domain.ErrLockHeld):
			writeError(w, http.StatusConflict, "bot is busy, retry shortly")
		default:
			h.logger.ErrorContext(r.Context(), "handler: bot transition failed",
				slog.String("bot_id", id),
				slog.String("action", action),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to "+action+" bot")
		}
		return
	}

	writeJSON(w, http.StatusOK, b)
}

// StartBot transitions a bot to running.
// POST /api/bots/{id}/start
func (h *BotHandler) StartBot(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "start", h.bots.Start)
}

// PauseBot transitions a running bot to paused.
// POST /api/bots/{id}/pause
func (h *BotHandler) PauseBot(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "pause", h.bots.Pause)
}

// StopBot transitions a running or paused bot back to idle.
// POST /api/bots/{id}/stop
func (h *BotHandler) StopBot(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "stop", h.bots.Stop)
}

// DeleteBot deletes an idle bot instance.
// DELETE /api/bots/{id}
func (h *BotHandler) DeleteBot(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing bot id")
		return
	}

	if err := h.bots.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "bot not found")
		case errors.Is(err, domain.ErrBotNotIdle):
			writeError(w, http.StatusConflict, "bot must be stopped before deletion")
		case errors.Is(err, domain.ErrLockHeld):
			writeError(w, http.StatusConflict, "bot is busy, retry shortly")
		default:
			h.logger.ErrorContext(r.Context(), "handler: delete bot failed",
				slog.String("bot_id", id),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to delete bot")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
		"bot_id": id,
	})
}

// Heartbeat records liveness for a running bot.
// POST /api/bots/{id}/heartbeat
func (h *BotHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing bot id")
		return
	}

	if err := h.bots.Heartbeat(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "bot not found")
		case errors.Is(err, domain.ErrBotNotRunning):
			writeError(w, http.StatusConflict, err.Error())
		default:
			h.logger.ErrorContext(r.Context(), "handler: heartbeat failed",
				slog.String("bot_id", id),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to record heartbeat")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"bot_id": id,
	})
}
