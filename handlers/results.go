// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/clearballot/archive"
	"github.com/danielhkuo/clearballot/cliparse"
	"github.com/danielhkuo/clearballot/ledger"
	"github.com/danielhkuo/clearballot/middleware"
	"github.com/danielhkuo/clearballot/models"
)

type ResultsHandler struct {
	db       *sql.DB
	cfg      cliparse.Config
	ledger   *ledger.Ledger
	archiver *archive.Manager
}

func NewResultsHandler(db *sql.DB, cfg cliparse.Config, led *ledger.Ledger, archiver *archive.Manager) *ResultsHandler {
	return &ResultsHandler{db: db, cfg: cfg, ledger: led, archiver: archiver}
}

// GetStatus handles GET /election
// The phase is recomputed from the window row and the clock on every
// call; nothing is cached.
func (h *ResultsHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	win, err := h.ledger.CurrentWindow(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, windowStatus(win))
}

// GetCandidates handles GET /candidates
// Ballot listing for the voter UI. Counts are withheld; live tallies
// are an admin read.
func (h *ResultsHandler) GetCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.ledger.Candidates(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, candidates)
}

// GetVoterStatus handles GET /voters/{id}
// Lets the voter UI short-circuit the ballot form for spent voters.
func (h *ResultsHandler) GetVoterStatus(w http.ResponseWriter, r *http.Request) {
	voterID := r.PathValue("id")
	if voterID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "voter id is required")
		return
	}

	status, err := h.ledger.VoterStatus(r.Context(), voterID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, status)
}

// ListHistory handles GET /history
// Archived elections, newest first. Records are immutable; a reset
// never touches them.
func (h *ResultsHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.archiver.ListHistory(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ListHistoryResponse{Records: records})
}
