// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/clearballot/archive"
	"github.com/danielhkuo/clearballot/auth"
	"github.com/danielhkuo/clearballot/cliparse"
	"github.com/danielhkuo/clearballot/ledger"
	"github.com/danielhkuo/clearballot/middleware"
	"github.com/danielhkuo/clearballot/models"
	"github.com/danielhkuo/clearballot/window"
)

type ElectionHandler struct {
	db       *sql.DB
	cfg      cliparse.Config
	ledger   *ledger.Ledger
	archiver *archive.Manager
}

func NewElectionHandler(db *sql.DB, cfg cliparse.Config, led *ledger.Ledger, archiver *archive.Manager) *ElectionHandler {
	return &ElectionHandler{db: db, cfg: cfg, ledger: led, archiver: archiver}
}

func (h *ElectionHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	token := r.Header.Get("X-Admin-Token")
	if err := auth.ValidateAdminToken(token, h.cfg.AdminToken); err != nil {
		middleware.ErrorCodeResponse(w, http.StatusUnauthorized,
			models.CodeUnauthorized, "Invalid admin token")
		return false
	}
	return true
}

// SetWindow handles POST /election
// Full replace: every field of the window is taken from the request
// and a new generation (epoch) is written.
func (h *ElectionHandler) SetWindow(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req models.SetWindowRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.StartAt.IsZero() || req.EndAt.IsZero() {
		middleware.ErrorResponse(w, http.StatusBadRequest, "start_at and end_at are required")
		return
	}
	if !req.EndAt.After(req.StartAt) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "end_at must be after start_at")
		return
	}

	h.insertGeneration(r.Context(), w, req.Title, req.StartAt, req.EndAt, req.Enabled)
}

// PatchWindow handles PATCH /election
// Partial update: absent fields carry forward from the current
// generation. Still writes a new epoch; generations are immutable.
func (h *ElectionHandler) PatchWindow(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req models.PatchWindowRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	current, err := h.ledger.CurrentWindow(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	title := current.Title
	startAt := current.StartAt
	endAt := current.EndAt
	enabled := current.Enabled
	if req.Title != nil {
		title = *req.Title
	}
	if req.StartAt != nil {
		startAt = *req.StartAt
	}
	if req.EndAt != nil {
		endAt = *req.EndAt
	}
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	if title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title cannot be empty")
		return
	}
	if !endAt.After(startAt) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "end_at must be after start_at")
		return
	}

	h.insertGeneration(r.Context(), w, title, startAt, endAt, enabled)
}

// StartNow handles POST /election/start
// "Start voting now": a wholesale configuration replace opening the
// window immediately for the configured default duration.
func (h *ElectionHandler) StartNow(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	title := "General Election"
	if current, err := h.ledger.CurrentWindow(r.Context()); err == nil {
		title = current.Title
	}

	now := time.Now()
	h.insertGeneration(r.Context(), w, title, now, now.Add(h.cfg.DefaultDuration), true)
}

// insertGeneration appends a new window generation and responds with
// its evaluated status. The epoch is allocated in the INSERT itself so
// two racing admin writes cannot both claim the same generation (the
// loser hits the primary key).
func (h *ElectionHandler) insertGeneration(ctx context.Context, w http.ResponseWriter, title string, startAt, endAt time.Time, enabled bool) {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO election_window (epoch, title, start_at, end_at, enabled, tolerance_seconds, archived, created_at)
		SELECT COALESCE(MAX(epoch), 0) + 1, $1, $2, $3, $4, $5, FALSE, $6
		FROM election_window
	`, title, startAt, endAt, enabled, int(h.cfg.Tolerance.Seconds()), time.Now())
	if err != nil {
		slog.Error("failed to insert window generation", "error", err)
		middleware.ErrorCodeResponse(w, http.StatusInternalServerError,
			models.CodeStorage, "Failed to update election window")
		return
	}

	win, err := h.ledger.CurrentWindow(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	slog.Info("window generation written",
		"epoch", win.Epoch,
		"title", win.Title,
		"start_at", win.StartAt,
		"end_at", win.EndAt,
		"enabled", win.Enabled,
	)

	middleware.JSONResponse(w, http.StatusOK, windowStatus(win))
}

// Finalize handles POST /election/finalize
// Archives the ended election and resets the ledger. ?force=true
// overrides the Ended requirement.
func (h *ElectionHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	force := r.URL.Query().Get("force") == "true"

	record, err := h.archiver.ArchiveAndReset(r.Context(), force)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.FinalizeResponse{Record: record})
}

// Tally handles GET /election/tally
// Live per-candidate counts; admin only while the election runs.
func (h *ElectionHandler) Tally(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	tally, err := h.ledger.Tally(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, tally)
}

func windowStatus(win window.Window) models.WindowStatusResponse {
	return models.WindowStatusResponse{
		State:   string(window.Evaluate(time.Now(), win)),
		Title:   win.Title,
		StartAt: win.StartAt,
		EndAt:   win.EndAt,
		Enabled: win.Enabled,
		Epoch:   win.Epoch,
	}
}
