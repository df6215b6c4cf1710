// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/clearballot/models"
	"github.com/danielhkuo/clearballot/otp"
	"github.com/danielhkuo/clearballot/window"
)

// Ledger is the authoritative store of per-voter vote status and
// per-candidate tallies. CastVote is the only code path that mutates
// voter.has_voted, candidate.vote_count, or the vote table outside an
// archive reset.
type Ledger struct {
	db       *sql.DB
	codeSalt string
	now      func() time.Time
}

func New(db *sql.DB, codeSalt string) *Ledger {
	return &Ledger{db: db, codeSalt: codeSalt, now: time.Now}
}

// DB exposes the underlying handle for collaborators (archive manager,
// issuer) that share the same store.
func (l *Ledger) DB() *sql.DB { return l.db }

// Receipt is the only proof a vote was accepted.
type Receipt struct {
	VoteID string
	CastAt time.Time
}

// CastVote verifies the one-time code and records one vote for one
// candidate as a single all-or-nothing transaction:
//
//  1. read the current window generation and evaluate its state
//  2. conditionally consume the voter's live code
//  3. conditionally flip voter.has_voted (FALSE -> TRUE)
//  4. increment candidate.vote_count
//  5. append the anonymous vote record
//
// All five share one transaction, so no interleaving of concurrent
// submissions can consume a code without a vote landing, or accept two
// votes for one voter. Transient storage errors before the commit are
// retried a bounded number of times; a failed commit is surfaced
// as-is because the transaction may have taken effect.
func (l *Ledger) CastVote(ctx context.Context, voterID, candidateID, code string) (Receipt, error) {
	var receipt Receipt
	var lastErr error

	for attempt := 0; attempt <= defaultRetryConfig.maxRetries; attempt++ {
		var retryable bool
		receipt, retryable, lastErr = l.castOnce(ctx, voterID, candidateID, code)
		if lastErr == nil {
			return receipt, nil
		}
		if !retryable || !isTransientStorageErr(lastErr) {
			return Receipt{}, lastErr
		}
		if attempt < defaultRetryConfig.maxRetries {
			select {
			case <-time.After(backoffDelay(defaultRetryConfig, attempt)):
			case <-ctx.Done():
				return Receipt{}, ctx.Err()
			}
		}
	}
	return Receipt{}, lastErr
}

func (l *Ledger) castOnce(ctx context.Context, voterID, candidateID, code string) (receipt Receipt, retryable bool, err error) {
	now := l.now()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return Receipt{}, true, fmt.Errorf("begin cast tx: %w", err)
	}
	defer tx.Rollback()

	// Window state is checked inside the transaction boundary, not as
	// an earlier separate call, to close the check-then-act race.
	w, err := currentWindowTx(ctx, tx)
	if err != nil {
		return Receipt{}, true, err
	}
	switch window.Evaluate(now, w) {
	case window.StateDisabled:
		return Receipt{}, false, models.ErrWindowDisabled
	case window.StateUpcoming:
		return Receipt{}, false, models.ErrWindowUpcoming
	case window.StateEnded:
		return Receipt{}, false, models.ErrWindowClosed
	}

	codeID, err := otp.VerifyAndConsume(ctx, tx, voterID, code, l.codeSalt, now)
	if err != nil {
		_ = tx.Rollback()
		if codeID != "" {
			// The strike must outlive this rolled-back transaction.
			if recErr := otp.RecordFailedAttempt(ctx, l.db, codeID); recErr != nil {
				return Receipt{}, false, recErr
			}
		}
		return Receipt{}, false, err
	}

	// Conditional update is the at-most-once guarantee: of two
	// concurrent casts for the same voter, exactly one affects a row.
	res, err := tx.ExecContext(ctx, `
		UPDATE voter
		SET has_voted = TRUE, voted_at = $1
		WHERE id = $2 AND has_voted = FALSE
	`, now, voterID)
	if err != nil {
		return Receipt{}, true, fmt.Errorf("mark voter: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Receipt{}, true, fmt.Errorf("mark voter rows: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM voter WHERE id = $1)
		`, voterID).Scan(&exists); err != nil {
			return Receipt{}, true, fmt.Errorf("check voter: %w", err)
		}
		if !exists {
			return Receipt{}, false, models.ErrUnknownVoter
		}
		return Receipt{}, false, models.ErrAlreadyVoted
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE candidate
		SET vote_count = vote_count + 1
		WHERE id = $1
	`, candidateID)
	if err != nil {
		return Receipt{}, true, fmt.Errorf("increment tally: %w", err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return Receipt{}, true, fmt.Errorf("increment tally rows: %w", err)
	}
	if n == 0 {
		return Receipt{}, false, models.ErrUnknownCandidate
	}

	voteID := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO vote (id, candidate_id, epoch, cast_at)
		VALUES ($1, $2, $3, $4)
	`, voteID, candidateID, w.Epoch, now)
	if err != nil {
		return Receipt{}, true, fmt.Errorf("append vote: %w", err)
	}

	if err := tx.Commit(); err != nil {
		// Not retryable: the commit may have landed.
		return Receipt{}, false, fmt.Errorf("commit cast tx: %w", err)
	}

	return Receipt{VoteID: voteID, CastAt: now}, false, nil
}

// CurrentWindow returns the highest-epoch window generation.
func (l *Ledger) CurrentWindow(ctx context.Context) (window.Window, error) {
	return scanWindow(l.db.QueryRowContext(ctx, selectCurrentWindow))
}

func currentWindowTx(ctx context.Context, tx *sql.Tx) (window.Window, error) {
	return scanWindow(tx.QueryRowContext(ctx, selectCurrentWindow))
}

const selectCurrentWindow = `
	SELECT epoch, title, start_at, end_at, enabled, tolerance_seconds, archived, created_at
	FROM election_window
	ORDER BY epoch DESC
	LIMIT 1
`

func scanWindow(row *sql.Row) (window.Window, error) {
	var w window.Window
	var tolSeconds int
	err := row.Scan(&w.Epoch, &w.Title, &w.StartAt, &w.EndAt, &w.Enabled, &tolSeconds, &w.Archived, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return window.Window{}, models.ErrNotConfigured
	}
	if err != nil {
		return window.Window{}, fmt.Errorf("load window: %w", err)
	}
	w.Tolerance = time.Duration(tolSeconds) * time.Second
	return w, nil
}

// VoterStatus reports whether a voter has cast a vote this cycle.
func (l *Ledger) VoterStatus(ctx context.Context, voterID string) (models.VoterStatusResponse, error) {
	var status models.VoterStatusResponse
	var votedAt sql.NullTime
	err := l.db.QueryRowContext(ctx, `
		SELECT id, has_voted, voted_at FROM voter WHERE id = $1
	`, voterID).Scan(&status.VoterID, &status.HasVoted, &votedAt)
	if err == sql.ErrNoRows {
		return models.VoterStatusResponse{}, models.ErrUnknownVoter
	}
	if err != nil {
		return models.VoterStatusResponse{}, fmt.Errorf("lookup voter: %w", err)
	}
	if votedAt.Valid {
		status.VotedAt = &votedAt.Time
	}
	return status, nil
}

// Candidates returns the public ballot listing, creation order, no
// counts.
func (l *Ledger) Candidates(ctx context.Context) ([]models.CandidateListing, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, name, party FROM candidate ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	listing := []models.CandidateListing{}
	for rows.Next() {
		var c models.CandidateListing
		if err := rows.Scan(&c.ID, &c.Name, &c.Party); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		listing = append(listing, c)
	}
	return listing, rows.Err()
}

// LoadCandidates returns the full candidate rows in creation order,
// the resolver's tie-break order.
func (l *Ledger) LoadCandidates(ctx context.Context) ([]models.Candidate, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, name, party, vote_count, assigned_position, created_at
		FROM candidate
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	defer rows.Close()

	candidates := []models.Candidate{}
	for rows.Next() {
		var c models.Candidate
		var pos sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.Party, &c.VoteCount, &pos, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if pos.Valid {
			c.AssignedPosition = &pos.String
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// Tally returns the live per-candidate counts and the total number of
// vote records. The two are read in one transaction so the
// sum-equals-count invariant holds in what callers observe.
func (l *Ledger) Tally(ctx context.Context) (models.TallyResponse, error) {
	tx, err := l.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return models.TallyResponse{}, fmt.Errorf("begin tally tx: %w", err)
	}
	defer tx.Rollback()

	w, err := currentWindowTx(ctx, tx)
	if err != nil {
		return models.TallyResponse{}, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, party, vote_count
		FROM candidate
		ORDER BY vote_count DESC, created_at, id
	`)
	if err != nil {
		return models.TallyResponse{}, fmt.Errorf("query tally: %w", err)
	}
	defer rows.Close()

	resp := models.TallyResponse{Epoch: w.Epoch, Candidates: []models.TallyEntry{}}
	for rows.Next() {
		var e models.TallyEntry
		if err := rows.Scan(&e.CandidateID, &e.Name, &e.Party, &e.VoteCount); err != nil {
			return models.TallyResponse{}, fmt.Errorf("scan tally: %w", err)
		}
		resp.Candidates = append(resp.Candidates, e)
	}
	if err := rows.Err(); err != nil {
		return models.TallyResponse{}, err
	}

	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM vote`).Scan(&resp.TotalVotes); err != nil {
		return models.TallyResponse{}, fmt.Errorf("count votes: %w", err)
	}

	return resp, tx.Commit()
}

// Clear wipes the mutable election state after an archive has been
// durably committed: votes deleted, tallies zeroed, positions
// unassigned, voters unmarked, live codes invalidated. The voter and
// candidate rosters themselves stay.
func (l *Ledger) Clear(ctx context.Context) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vote`); err != nil {
		return fmt.Errorf("clear votes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM one_time_code`); err != nil {
		return fmt.Errorf("clear codes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE candidate SET vote_count = 0, assigned_position = NULL
	`); err != nil {
		return fmt.Errorf("reset candidates: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE voter SET has_voted = FALSE, voted_at = NULL
	`); err != nil {
		return fmt.Errorf("reset voters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear tx: %w", err)
	}
	return nil
}
