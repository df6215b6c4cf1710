// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package otp

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/clearballot/auth"
	"github.com/danielhkuo/clearballot/models"
)

// MaxAttempts is the number of failed verifications before a code is
// invalidated and the voter must request a new one.
const MaxAttempts = 5

// Issuer mints and stores one-time verification codes. Only a salted
// hash ever reaches the database; the plaintext is returned once for
// out-of-band delivery.
type Issuer struct {
	db   *sql.DB
	salt string
	ttl  time.Duration
	now  func() time.Time
}

func NewIssuer(db *sql.DB, salt string, ttl time.Duration) *Issuer {
	return &Issuer{db: db, salt: salt, ttl: ttl, now: time.Now}
}

// IssueMeta records where an issuance came from, for abuse review.
type IssueMeta struct {
	IPHash    string
	UserAgent string
}

// Issued describes a freshly minted code and where to deliver it.
type Issued struct {
	Plaintext string
	Address   string
	ExpiresAt time.Time
}

// issueAttempts bounds the retry of an issuance that lost the
// live-code index race to a concurrent issuance for the same voter.
const issueAttempts = 3

// Issue invalidates any prior live code for the voter and stores a new
// hashed 6-digit code. Refuses voters who have already cast a vote:
// no credential is ever minted for a spent ballot.
//
// The at-most-one-live-code invariant is held by the partial unique
// index on the code table. When two issuances for one voter race,
// neither transaction sees the other's uncommitted row, so the
// invalidating update cannot arbitrate; the index rejects the losing
// insert instead, and the retry then supersedes the winner's row.
func (i *Issuer) Issue(ctx context.Context, voterID string, meta IssueMeta) (Issued, error) {
	var lastErr error
	for attempt := 0; attempt < issueAttempts; attempt++ {
		issued, err := i.issueOnce(ctx, voterID, meta)
		if err == nil {
			return issued, nil
		}
		if !isLiveCodeConflict(err) {
			return Issued{}, err
		}
		lastErr = err
	}
	return Issued{}, lastErr
}

func isLiveCodeConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

func (i *Issuer) issueOnce(ctx context.Context, voterID string, meta IssueMeta) (Issued, error) {
	now := i.now()

	code, err := auth.GenerateCode()
	if err != nil {
		return Issued{}, fmt.Errorf("generate code: %w", err)
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return Issued{}, fmt.Errorf("begin issue tx: %w", err)
	}
	defer tx.Rollback()

	var hasVoted bool
	var address string
	err = tx.QueryRowContext(ctx, `
		SELECT has_voted, email FROM voter WHERE id = $1
	`, voterID).Scan(&hasVoted, &address)
	if err == sql.ErrNoRows {
		return Issued{}, models.ErrUnknownVoter
	}
	if err != nil {
		return Issued{}, fmt.Errorf("lookup voter: %w", err)
	}
	if hasVoted {
		return Issued{}, models.ErrAlreadyVoted
	}

	// At most one live code per voter: supersede anything still live.
	_, err = tx.ExecContext(ctx, `
		UPDATE one_time_code
		SET invalidated = TRUE
		WHERE voter_id = $1 AND consumed = FALSE AND invalidated = FALSE
	`, voterID)
	if err != nil {
		return Issued{}, fmt.Errorf("invalidate prior codes: %w", err)
	}

	expiresAt := now.Add(i.ttl)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO one_time_code
			(id, voter_id, code_hash, issued_at, expires_at, consumed, invalidated, attempts, ip_hash, user_agent)
		VALUES ($1, $2, $3, $4, $5, FALSE, FALSE, 0, $6, $7)
	`, uuid.NewString(), voterID, auth.HashCode(voterID, code, i.salt), now, expiresAt, meta.IPHash, meta.UserAgent)
	if err != nil {
		return Issued{}, fmt.Errorf("insert code: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Issued{}, fmt.Errorf("commit issue tx: %w", err)
	}

	return Issued{Plaintext: code, Address: address, ExpiresAt: expiresAt}, nil
}

// VerifyAndConsume checks the submitted code for the voter inside the
// caller's transaction and, on match, marks it consumed via a
// conditional update. Exactly one caller can win that update: a
// concurrent retry of the same code observes zero rows affected and
// gets ErrAlreadyConsumed. This is the linchpin that stops double
// votes from retried requests.
//
// On mismatch the returned codeID is non-empty so the caller can
// record the failed attempt outside its (rolled back) transaction.
func VerifyAndConsume(ctx context.Context, tx *sql.Tx, voterID, code, salt string, now time.Time) (codeID string, err error) {
	var (
		id          string
		codeHash    string
		expiresAt   time.Time
		consumed    bool
		invalidated bool
		attempts    int
	)
	// Prefer the live (non-invalidated) row; among those the newest.
	err = tx.QueryRowContext(ctx, `
		SELECT id, code_hash, expires_at, consumed, invalidated, attempts
		FROM one_time_code
		WHERE voter_id = $1
		ORDER BY invalidated ASC, issued_at DESC
		LIMIT 1
	`, voterID).Scan(&id, &codeHash, &expiresAt, &consumed, &invalidated, &attempts)
	if err == sql.ErrNoRows {
		return "", models.ErrNoLiveCode
	}
	if err != nil {
		return "", fmt.Errorf("lookup code: %w", err)
	}

	if consumed {
		return "", models.ErrAlreadyConsumed
	}
	if invalidated || attempts >= MaxAttempts {
		if attempts >= MaxAttempts {
			return "", models.ErrAttemptsExceeded
		}
		return "", models.ErrNoLiveCode
	}
	if now.After(expiresAt) {
		return "", models.ErrCodeExpired
	}

	if !auth.VerifyCode(voterID, code, salt, codeHash) {
		// A code from a superseded issuance is not a strike against
		// the live one: it reads as no live code, pointing the voter
		// at re-issuance instead of burning the fresh code's attempts.
		stale, staleErr := matchesStaleCode(ctx, tx, voterID, code, salt)
		if staleErr != nil {
			return "", staleErr
		}
		switch stale {
		case staleConsumed:
			return "", models.ErrAlreadyConsumed
		case staleSuperseded:
			return "", models.ErrNoLiveCode
		}
		return id, &models.CodeMismatchError{Remaining: MaxAttempts - attempts - 1}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE one_time_code
		SET consumed = TRUE
		WHERE id = $1 AND consumed = FALSE AND invalidated = FALSE
	`, id)
	if err != nil {
		return "", fmt.Errorf("consume code: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("consume code rows: %w", err)
	}
	if n == 0 {
		return "", models.ErrAlreadyConsumed
	}

	return id, nil
}

type staleMatch int

const (
	staleNone staleMatch = iota
	staleSuperseded
	staleConsumed
)

// matchesStaleCode reports whether the submitted code belongs to one
// of the voter's dead rows: superseded by a reissue, or already
// consumed by a cast vote.
func matchesStaleCode(ctx context.Context, tx *sql.Tx, voterID, code, salt string) (staleMatch, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT code_hash, consumed
		FROM one_time_code
		WHERE voter_id = $1 AND (invalidated = TRUE OR consumed = TRUE)
	`, voterID)
	if err != nil {
		return staleNone, fmt.Errorf("lookup stale codes: %w", err)
	}
	defer rows.Close()

	match := staleNone
	for rows.Next() {
		var hash string
		var consumed bool
		if err := rows.Scan(&hash, &consumed); err != nil {
			return staleNone, fmt.Errorf("scan stale code: %w", err)
		}
		if !auth.VerifyCode(voterID, code, salt, hash) {
			continue
		}
		if consumed {
			return staleConsumed, nil
		}
		match = staleSuperseded
	}
	return match, rows.Err()
}

// RecordFailedAttempt increments the attempt counter for a code and
// invalidates it once the cap is reached. Runs on the DB handle, not
// the cast transaction, so a rolled-back cast cannot erase the strike.
func RecordFailedAttempt(ctx context.Context, db *sql.DB, codeID string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE one_time_code
		SET attempts = attempts + 1,
		    invalidated = CASE WHEN attempts + 1 >= $1 THEN TRUE ELSE invalidated END
		WHERE id = $2
	`, MaxAttempts, codeID)
	if err != nil {
		return fmt.Errorf("record failed attempt: %w", err)
	}
	return nil
}
