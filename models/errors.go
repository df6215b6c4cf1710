// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"errors"
	"fmt"
)

// Domain sentinels shared by the otp, ledger, and archive packages.
// Handlers map each to an HTTP status and a stable error code.
var (
	// Fatal/configuration
	ErrNotConfigured = errors.New("no election window configured")

	// Temporal
	ErrWindowDisabled = errors.New("voting is disabled")
	ErrWindowUpcoming = errors.New("voting has not started")
	ErrWindowClosed   = errors.New("voting has ended")
	ErrWindowActive   = errors.New("voting window is still active")

	// Validation / lookup
	ErrUnknownVoter     = errors.New("voter not found")
	ErrUnknownCandidate = errors.New("candidate not found")

	// Conflict (terminal idempotency signals, not retryable failures)
	ErrAlreadyVoted    = errors.New("voter has already cast a vote")
	ErrAlreadyConsumed = errors.New("verification code already consumed")
	ErrAlreadyArchived = errors.New("election generation already archived")

	// Credential
	ErrNoLiveCode       = errors.New("no live verification code")
	ErrCodeExpired      = errors.New("verification code expired")
	ErrCodeMismatch     = errors.New("verification code mismatch")
	ErrAttemptsExceeded = errors.New("verification attempts exceeded")
)

// CodeMismatchError wraps ErrCodeMismatch with the number of attempts
// remaining before the code invalidates. errors.Is(err,
// ErrCodeMismatch) matches it.
type CodeMismatchError struct {
	Remaining int
}

func (e *CodeMismatchError) Error() string {
	return fmt.Sprintf("verification code mismatch (%d attempts remaining)", e.Remaining)
}

func (e *CodeMismatchError) Is(target error) bool {
	return target == ErrCodeMismatch
}
