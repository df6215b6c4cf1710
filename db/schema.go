// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Election window generations. The active window is the highest epoch;
-- earlier rows stay behind as configuration history. The archived flag
-- on an epoch is the double-archive guard for finalization retries.
CREATE TABLE IF NOT EXISTS election_window (
    epoch BIGINT PRIMARY KEY,
    title TEXT NOT NULL,
    start_at TIMESTAMP NOT NULL,
    end_at TIMESTAMP NOT NULL,
    enabled BOOLEAN NOT NULL DEFAULT FALSE,
    tolerance_seconds INTEGER NOT NULL DEFAULT 30,
    archived BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL
);

-- Voter roster. Identities are owned by the registration subsystem;
-- this engine only flips has_voted/voted_at.
CREATE TABLE IF NOT EXISTS voter (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    has_voted BOOLEAN NOT NULL DEFAULT FALSE,
    voted_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS candidate (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    party TEXT NOT NULL,
    vote_count INTEGER NOT NULL DEFAULT 0 CHECK (vote_count >= 0),
    assigned_position TEXT,
    created_at TIMESTAMP NOT NULL
);

-- One-time verification codes. Only the salted hash is stored. A code
-- is live when consumed = FALSE, invalidated = FALSE and expires_at is
-- in the future; at most one live code exists per voter.
CREATE TABLE IF NOT EXISTS one_time_code (
    id TEXT PRIMARY KEY,
    voter_id TEXT NOT NULL REFERENCES voter(id) ON DELETE CASCADE,
    code_hash TEXT NOT NULL,
    issued_at TIMESTAMP NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    consumed BOOLEAN NOT NULL DEFAULT FALSE,
    invalidated BOOLEAN NOT NULL DEFAULT FALSE,
    attempts INTEGER NOT NULL DEFAULT 0,
    ip_hash TEXT,
    user_agent TEXT
);

CREATE INDEX IF NOT EXISTS idx_one_time_code_voter ON one_time_code(voter_id);

-- The at-most-one-live-code invariant is enforced here, not just in
-- application code: two racing issuances cannot both commit a live row.
CREATE UNIQUE INDEX IF NOT EXISTS idx_one_time_code_live
    ON one_time_code(voter_id)
    WHERE consumed = FALSE AND invalidated = FALSE;

-- Append-only audit trail. Carries no voter linkage: ballot secrecy.
CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    candidate_id TEXT NOT NULL REFERENCES candidate(id),
    epoch BIGINT NOT NULL,
    cast_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_vote_candidate ON vote(candidate_id);
CREATE INDEX IF NOT EXISTS idx_vote_epoch ON vote(epoch);

-- Immutable archive, one row per finalized election.
CREATE TABLE IF NOT EXISTS election_history (
    id TEXT PRIMARY KEY,
    epoch BIGINT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    start_at TIMESTAMP NOT NULL,
    end_at TIMESTAMP NOT NULL,
    archived_at TIMESTAMP NOT NULL,
    total_votes INTEGER NOT NULL,
    results TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_election_history_archived_at ON election_history(archived_at);
`
