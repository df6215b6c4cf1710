// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/clearballot/auth"
	"github.com/danielhkuo/clearballot/cliparse"
	"github.com/danielhkuo/clearballot/ledger"
	"github.com/danielhkuo/clearballot/middleware"
	"github.com/danielhkuo/clearballot/models"
	"github.com/danielhkuo/clearballot/notify"
	"github.com/danielhkuo/clearballot/otp"
	"github.com/danielhkuo/clearballot/window"
)

type VotingHandler struct {
	db     *sql.DB
	cfg    cliparse.Config
	ledger *ledger.Ledger
	issuer *otp.Issuer
	sender notify.Sender
}

func NewVotingHandler(db *sql.DB, cfg cliparse.Config, led *ledger.Ledger, issuer *otp.Issuer, sender notify.Sender) *VotingHandler {
	return &VotingHandler{db: db, cfg: cfg, ledger: led, issuer: issuer, sender: sender}
}

// RequestCode handles POST /voters/{id}/code
// Mints a one-time code for the voter and hands it to the
// notification sender for out-of-band delivery. Only allowed while
// the window is active.
func (h *VotingHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	voterID := r.PathValue("id")
	if voterID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "voter id is required")
		return
	}

	win, err := h.ledger.CurrentWindow(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	switch window.Evaluate(time.Now(), win) {
	case window.StateDisabled:
		writeDomainError(w, models.ErrWindowDisabled)
		return
	case window.StateUpcoming:
		writeDomainError(w, models.ErrWindowUpcoming)
		return
	case window.StateEnded:
		writeDomainError(w, models.ErrWindowClosed)
		return
	}

	meta := otp.IssueMeta{
		IPHash:    auth.HashIP(middleware.GetClientIP(r), h.cfg.CodeSalt),
		UserAgent: r.UserAgent(),
	}

	issued, err := h.issuer.Issue(r.Context(), voterID, meta)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	message := fmt.Sprintf("Your voting code is %s. It expires in %d minutes.",
		issued.Plaintext, int(h.cfg.CodeTTL.Minutes()))

	sent := true
	if err := h.sender.Send(r.Context(), issued.Address, message); err != nil {
		// Issuance stands; the voter can retry which mints a fresh code.
		slog.Warn("code delivery failed", "voter_id", voterID, "error", err)
		sent = false
	}

	slog.Info("code issued", "voter_id", voterID, "expires_at", issued.ExpiresAt, "sent", sent)

	middleware.JSONResponse(w, http.StatusOK, models.RequestCodeResponse{
		Sent:      sent,
		ExpiresAt: issued.ExpiresAt,
	})
}

// SubmitVote handles POST /votes
// Verifies the one-time code and casts the vote in one atomic ledger
// operation. The returned vote_id is the only proof the vote landed.
func (h *VotingHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.VoterID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "voter_id is required")
		return
	}
	if req.CandidateID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "candidate_id is required")
		return
	}
	if len(req.Code) != 6 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "code must be 6 digits")
		return
	}

	receipt, err := h.ledger.CastVote(r.Context(), req.VoterID, req.CandidateID, req.Code)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	slog.Info("vote cast", "vote_id", receipt.VoteID)

	middleware.JSONResponse(w, http.StatusCreated, models.SubmitVoteResponse{
		VoteID: receipt.VoteID,
	})
}
