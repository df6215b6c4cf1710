// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Stable error codes returned in every error response.
const (
	CodeValidation       = "VALIDATION"
	CodeNotConfigured    = "NOT_CONFIGURED"
	CodeWindowDisabled   = "WINDOW_DISABLED"
	CodeWindowUpcoming   = "WINDOW_UPCOMING"
	CodeWindowClosed     = "WINDOW_CLOSED"
	CodeWindowActive     = "WINDOW_ACTIVE"
	CodeNoLiveCode       = "NO_LIVE_CODE"
	CodeExpired          = "CODE_EXPIRED"
	CodeMismatch         = "CODE_MISMATCH"
	CodeAttemptsExceeded = "ATTEMPTS_EXCEEDED"
	CodeAlreadyConsumed  = "ALREADY_CONSUMED"
	CodeAlreadyVoted     = "ALREADY_VOTED"
	CodeUnknownVoter     = "UNKNOWN_VOTER"
	CodeUnknownCandidate = "UNKNOWN_CANDIDATE"
	CodeAlreadyArchived  = "ALREADY_ARCHIVED"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeStorage          = "STORAGE"
)

// Request types

type SetWindowRequest struct {
	Title   string    `json:"title"`
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
	Enabled bool      `json:"enabled"`
}

// PatchWindowRequest carries only the fields to change; nil fields are
// carried forward from the previous window generation.
type PatchWindowRequest struct {
	Title   *string    `json:"title,omitempty"`
	StartAt *time.Time `json:"start_at,omitempty"`
	EndAt   *time.Time `json:"end_at,omitempty"`
	Enabled *bool      `json:"enabled,omitempty"`
}

type SubmitVoteRequest struct {
	VoterID     string `json:"voter_id"`
	CandidateID string `json:"candidate_id"`
	Code        string `json:"code"`
}

// Response types

type WindowStatusResponse struct {
	State   string    `json:"state"`
	Title   string    `json:"title"`
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
	Enabled bool      `json:"enabled"`
	Epoch   int64     `json:"epoch"`
}

type RequestCodeResponse struct {
	Sent      bool      `json:"sent"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SubmitVoteResponse struct {
	VoteID string `json:"vote_id"`
}

type VoterStatusResponse struct {
	VoterID  string     `json:"voter_id"`
	HasVoted bool       `json:"has_voted"`
	VotedAt  *time.Time `json:"voted_at,omitempty"`
}

type TallyEntry struct {
	CandidateID string `json:"candidate_id"`
	Name        string `json:"name"`
	Party       string `json:"party"`
	VoteCount   int    `json:"vote_count"`
}

type TallyResponse struct {
	Epoch      int64        `json:"epoch"`
	TotalVotes int          `json:"total_votes"`
	Candidates []TallyEntry `json:"candidates"`
}

type FinalizeResponse struct {
	Record HistoryRecord `json:"record"`
}

// Domain types

type Candidate struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Party            string    `json:"party"`
	VoteCount        int       `json:"vote_count"`
	AssignedPosition *string   `json:"assigned_position,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// CandidateListing is the public ballot view: no counts while the
// window is open.
type CandidateListing struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Party string `json:"party"`
}

// HistoryResult is one ranked line of an archived election.
type HistoryResult struct {
	CandidateName string `json:"candidate_name"`
	Party         string `json:"party"`
	Position      string `json:"position"`
	Votes         int    `json:"votes"`
}

type HistoryRecord struct {
	ID         string          `json:"id"`
	Epoch      int64           `json:"epoch"`
	Title      string          `json:"title"`
	StartAt    time.Time       `json:"start_at"`
	EndAt      time.Time       `json:"end_at"`
	ArchivedAt time.Time       `json:"archived_at"`
	TotalVotes int             `json:"total_votes"`
	Results    []HistoryResult `json:"results"`
}

type ListHistoryResponse struct {
	Records []HistoryRecord `json:"records"`
}

// Error response

type ErrorResponse struct {
	Error             string `json:"error"`
	Code              string `json:"code,omitempty"`
	Message           string `json:"message,omitempty"`
	RemainingAttempts *int   `json:"remaining_attempts,omitempty"`
}
