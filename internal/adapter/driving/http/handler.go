// Package httphandler is the HTTP driving adapter serving the local REST API.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cnecrea/hidropanel/internal/application"
	"github.com/cnecrea/hidropanel/internal/domain/model"
	"github.com/cnecrea/hidropanel/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	board      *application.SnapshotBoard
	refreshSvc *application.RefreshService
	seeds      *application.SeedProvider
	sessions   *application.SessionManager
	credStore  driven.CredentialStore
	logger     *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	board *application.SnapshotBoard,
	refreshSvc *application.RefreshService,
	seeds *application.SeedProvider,
	sessions *application.SessionManager,
	credStore driven.CredentialStore,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		board:      board,
		refreshSvc: refreshSvc,
		seeds:      seeds,
		sessions:   sessions,
		credStore:  credStore,
		logger:     logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/snapshot", h.GetSnapshot)
	mux.HandleFunc("GET /api/v1/accounts", h.ListAccounts)
	mux.HandleFunc("GET /api/v1/status", h.GetStatus)
	mux.HandleFunc("POST /api/v1/refresh", h.TriggerRefresh)
	mux.HandleFunc("PUT /api/v1/credentials", h.UpdateCredentials)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// GetSnapshot returns the latest published refresh result. Until the first
// cycle succeeds there is nothing to serve and the endpoint answers 503.
func (h *Handler) GetSnapshot(w http.ResponseWriter, _ *http.Request) {
	result := h.board.Latest()
	if result == nil {
		writeError(w, http.StatusServiceUnavailable, "no snapshot available yet")
		return
	}

	writeJSON(w, http.StatusOK, toResultResponse(result))
}

// ListAccounts returns the account handles from the latest refresh result.
func (h *Handler) ListAccounts(w http.ResponseWriter, _ *http.Request) {
	result := h.board.Latest()
	if result == nil {
		writeError(w, http.StatusServiceUnavailable, "no snapshot available yet")
		return
	}

	resp := make([]AccountResponse, 0, len(result.Accounts))
	for _, account := range result.Accounts {
		resp = append(resp, toAccountResponse(account))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetStatus returns the refresh cycle status.
func (h *Handler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toStatusResponse(h.board.Status(), h.board.Latest() != nil))
}

// TriggerRefresh runs a refresh cycle immediately and reports its outcome.
func (h *Handler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.refreshSvc.TriggerNow(r.Context()); err != nil {
		h.logger.Error("manual refresh failed", "error", err)
		writeError(w, http.StatusBadGateway, "refresh failed: "+string(driven.FailureKindOf(err)))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

// UpdateCredentials replaces the credential seed: the pair is persisted (when
// an encryption key is configured), the live seed swapped, the session
// dropped, and a refresh started in the background.
func (h *Handler) UpdateCredentials(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if err := h.storeCredentials(r.Context(), req); err != nil {
		h.logger.Error("failed to store credentials", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.seeds.Replace(model.Seed{Username: req.Username, Password: req.Password})
	h.sessions.Reset()

	// Fire-and-forget refresh with background context since the HTTP request
	// context will be cancelled after the response is sent.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := h.refreshSvc.TriggerNow(ctx); err != nil {
			h.logger.Error("refresh after credential update failed", "error", err)
		}
	}()

	w.WriteHeader(http.StatusNoContent)
}

// storeCredentials persists the pair. A missing encryption key downgrades
// persistence to a warning: the seed still works in memory until restart.
func (h *Handler) storeCredentials(ctx context.Context, req CredentialsRequest) error {
	if err := h.credStore.Set(ctx, "username", req.Username); err != nil {
		if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			h.logger.Warn("credentials not persisted, encryption key not configured")
			return nil
		}
		return err
	}
	return h.credStore.Set(ctx, "password", req.Password)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
