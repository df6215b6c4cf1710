// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/clearballot/middleware"
	"github.com/danielhkuo/clearballot/models"
)

// writeDomainError maps a domain sentinel to an HTTP status and a
// stable error code. Anything unmapped is a storage or server fault.
func writeDomainError(w http.ResponseWriter, err error) {
	var mismatch *models.CodeMismatchError
	if errors.As(err, &mismatch) {
		middleware.CredentialErrorResponse(w, http.StatusUnauthorized,
			models.CodeMismatch, mismatch.Error(), mismatch.Remaining)
		return
	}

	switch {
	case errors.Is(err, models.ErrNotConfigured):
		middleware.ErrorCodeResponse(w, http.StatusInternalServerError,
			models.CodeNotConfigured, "No election window is configured")

	case errors.Is(err, models.ErrWindowDisabled):
		middleware.ErrorCodeResponse(w, http.StatusConflict,
			models.CodeWindowDisabled, "Voting is disabled")
	case errors.Is(err, models.ErrWindowUpcoming):
		middleware.ErrorCodeResponse(w, http.StatusConflict,
			models.CodeWindowUpcoming, "Voting has not started yet")
	case errors.Is(err, models.ErrWindowClosed):
		middleware.ErrorCodeResponse(w, http.StatusConflict,
			models.CodeWindowClosed, "Voting has ended")
	case errors.Is(err, models.ErrWindowActive):
		middleware.ErrorCodeResponse(w, http.StatusConflict,
			models.CodeWindowActive, "Voting window has not ended; pass force=true to override")

	case errors.Is(err, models.ErrUnknownVoter):
		middleware.ErrorCodeResponse(w, http.StatusNotFound,
			models.CodeUnknownVoter, "Voter not found")
	case errors.Is(err, models.ErrUnknownCandidate):
		middleware.ErrorCodeResponse(w, http.StatusNotFound,
			models.CodeUnknownCandidate, "Candidate not found")

	case errors.Is(err, models.ErrAlreadyVoted):
		middleware.ErrorCodeResponse(w, http.StatusConflict,
			models.CodeAlreadyVoted, "This voter has already cast a vote")
	case errors.Is(err, models.ErrAlreadyConsumed):
		middleware.ErrorCodeResponse(w, http.StatusConflict,
			models.CodeAlreadyConsumed, "This code was already used")
	case errors.Is(err, models.ErrAlreadyArchived):
		middleware.ErrorCodeResponse(w, http.StatusConflict,
			models.CodeAlreadyArchived, "This election generation is already archived")

	case errors.Is(err, models.ErrNoLiveCode):
		middleware.ErrorCodeResponse(w, http.StatusUnauthorized,
			models.CodeNoLiveCode, "No live verification code; request a new one")
	case errors.Is(err, models.ErrCodeExpired):
		middleware.ErrorCodeResponse(w, http.StatusUnauthorized,
			models.CodeExpired, "Verification code expired; request a new one")
	case errors.Is(err, models.ErrAttemptsExceeded):
		middleware.ErrorCodeResponse(w, http.StatusUnauthorized,
			models.CodeAttemptsExceeded, "Too many failed attempts; request a new code")

	default:
		slog.Error("storage error", "error", err)
		middleware.ErrorCodeResponse(w, http.StatusInternalServerError,
			models.CodeStorage, "Database error")
	}
}
