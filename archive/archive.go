// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/clearballot/ledger"
	"github.com/danielhkuo/clearballot/models"
	"github.com/danielhkuo/clearballot/positions"
	"github.com/danielhkuo/clearballot/window"
)

// Manager finalizes an election: it snapshots the outcome into the
// immutable history table, then clears the mutable ledger state for
// the next cycle.
type Manager struct {
	db     *sql.DB
	ledger *ledger.Ledger
	titles []string
	now    func() time.Time
}

func NewManager(db *sql.DB, led *ledger.Ledger, titles []string) *Manager {
	return &Manager{db: db, ledger: led, titles: titles, now: time.Now}
}

// ArchiveAndReset archives the current election generation and resets
// the ledger. Requires the window to have Ended unless force is set.
//
// The archive commit and the clear are two separate transactions, in
// that order: the history row is durable before anything destructive
// runs. If the clear fails, calling ArchiveAndReset again is safe:
// the archived flag on the epoch stops a second history row, the
// existing record is returned, and the clear is re-run. A finalize of
// an epoch that is archived and already cleared returns
// ErrAlreadyArchived.
func (m *Manager) ArchiveAndReset(ctx context.Context, force bool) (models.HistoryRecord, error) {
	record, pendingClear, err := m.archive(ctx, force)
	if err != nil {
		return models.HistoryRecord{}, err
	}
	if !pendingClear {
		return models.HistoryRecord{}, models.ErrAlreadyArchived
	}

	if err := m.ledger.Clear(ctx); err != nil {
		// The archive is committed; the caller retries to finish the
		// clear without a second history row appearing.
		return models.HistoryRecord{}, fmt.Errorf("archive committed but clear failed, retry finalize: %w", err)
	}

	slog.Info("election archived and reset",
		"epoch", record.Epoch,
		"total_votes", record.TotalVotes,
		"results", len(record.Results),
	)
	return record, nil
}

// archive runs transaction A. pendingClear reports whether mutable
// state still needs wiping: true for a fresh archive and for a retry
// after a failed clear, false when the epoch was archived and cleared
// before.
func (m *Manager) archive(ctx context.Context, force bool) (record models.HistoryRecord, pendingClear bool, err error) {
	now := m.now()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return models.HistoryRecord{}, false, fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback()

	w, err := currentWindowTx(ctx, tx)
	if err != nil {
		return models.HistoryRecord{}, false, err
	}

	if w.Archived {
		// Retry path: the history row exists. Clear is pending iff any
		// mutable ledger state survived the failed clear. Votes alone
		// are not the signal: a zero-vote election still leaves codes,
		// positions, and voter marks behind.
		record, err := historyByEpochTx(ctx, tx, w.Epoch)
		if err != nil {
			return models.HistoryRecord{}, false, err
		}
		var remaining bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM vote)
				OR EXISTS(SELECT 1 FROM one_time_code)
				OR EXISTS(SELECT 1 FROM candidate WHERE vote_count > 0 OR assigned_position IS NOT NULL)
				OR EXISTS(SELECT 1 FROM voter WHERE has_voted = TRUE)
		`).Scan(&remaining); err != nil {
			return models.HistoryRecord{}, false, fmt.Errorf("check remaining state: %w", err)
		}
		return record, remaining, tx.Commit()
	}

	if state := window.Evaluate(now, w); state != window.StateEnded && !force {
		return models.HistoryRecord{}, false, models.ErrWindowActive
	}

	// Conditional flip of the epoch marker arbitrates concurrent
	// finalize calls before any snapshot work: the loser blocks on the
	// row, sees zero rows affected once the winner commits, and backs
	// off instead of dying on the history table's epoch constraint.
	res, err := tx.ExecContext(ctx, `
		UPDATE election_window SET archived = TRUE WHERE epoch = $1 AND archived = FALSE
	`, w.Epoch)
	if err != nil {
		return models.HistoryRecord{}, false, fmt.Errorf("mark epoch archived: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.HistoryRecord{}, false, fmt.Errorf("mark epoch archived rows: %w", err)
	}
	if n == 0 {
		return models.HistoryRecord{}, false, models.ErrAlreadyArchived
	}

	candidates, err := loadCandidatesTx(ctx, tx)
	if err != nil {
		return models.HistoryRecord{}, false, err
	}

	assignments := positions.Assign(candidates, m.titles)

	// Positions are assigned exactly once per election; they commit
	// atomically with the archived flag and the history row below.
	byID := make(map[string]models.Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}
	for _, a := range assignments {
		if _, err := tx.ExecContext(ctx, `
			UPDATE candidate SET assigned_position = $1 WHERE id = $2
		`, a.Position, a.CandidateID); err != nil {
			return models.HistoryRecord{}, false, fmt.Errorf("assign position: %w", err)
		}
	}

	var totalVotes int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM vote`).Scan(&totalVotes); err != nil {
		return models.HistoryRecord{}, false, fmt.Errorf("count votes: %w", err)
	}

	results := make([]models.HistoryResult, 0, len(assignments))
	for _, a := range assignments {
		c := byID[a.CandidateID]
		results = append(results, models.HistoryResult{
			CandidateName: c.Name,
			Party:         c.Party,
			Position:      a.Position,
			Votes:         c.VoteCount,
		})
	}

	payload, err := json.Marshal(results)
	if err != nil {
		return models.HistoryRecord{}, false, fmt.Errorf("marshal results: %w", err)
	}

	record = models.HistoryRecord{
		ID:         uuid.NewString(),
		Epoch:      w.Epoch,
		Title:      w.Title,
		StartAt:    w.StartAt,
		EndAt:      w.EndAt,
		ArchivedAt: now,
		TotalVotes: totalVotes,
		Results:    results,
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO election_history (id, epoch, title, start_at, end_at, archived_at, total_votes, results)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, record.ID, record.Epoch, record.Title, record.StartAt, record.EndAt, record.ArchivedAt, record.TotalVotes, string(payload)); err != nil {
		return models.HistoryRecord{}, false, fmt.Errorf("insert history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.HistoryRecord{}, false, fmt.Errorf("commit archive tx: %w", err)
	}
	return record, true, nil
}

// ListHistory returns all archived elections, newest first.
func (m *Manager) ListHistory(ctx context.Context) ([]models.HistoryRecord, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, epoch, title, start_at, end_at, archived_at, total_votes, results
		FROM election_history
		ORDER BY archived_at DESC, epoch DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	records := []models.HistoryRecord{}
	for rows.Next() {
		record, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistory(row rowScanner) (models.HistoryRecord, error) {
	var record models.HistoryRecord
	var payload string
	if err := row.Scan(&record.ID, &record.Epoch, &record.Title, &record.StartAt,
		&record.EndAt, &record.ArchivedAt, &record.TotalVotes, &payload); err != nil {
		return models.HistoryRecord{}, fmt.Errorf("scan history: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &record.Results); err != nil {
		return models.HistoryRecord{}, fmt.Errorf("unmarshal history results: %w", err)
	}
	return record, nil
}

func historyByEpochTx(ctx context.Context, tx *sql.Tx, epoch int64) (models.HistoryRecord, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, epoch, title, start_at, end_at, archived_at, total_votes, results
		FROM election_history
		WHERE epoch = $1
	`, epoch)
	record, err := scanHistory(row)
	if err != nil {
		return models.HistoryRecord{}, fmt.Errorf("history for epoch %d: %w", epoch, err)
	}
	return record, nil
}

func currentWindowTx(ctx context.Context, tx *sql.Tx) (window.Window, error) {
	var w window.Window
	var tolSeconds int
	err := tx.QueryRowContext(ctx, `
		SELECT epoch, title, start_at, end_at, enabled, tolerance_seconds, archived, created_at
		FROM election_window
		ORDER BY epoch DESC
		LIMIT 1
	`).Scan(&w.Epoch, &w.Title, &w.StartAt, &w.EndAt, &w.Enabled, &tolSeconds, &w.Archived, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return window.Window{}, models.ErrNotConfigured
	}
	if err != nil {
		return window.Window{}, fmt.Errorf("load window: %w", err)
	}
	w.Tolerance = time.Duration(tolSeconds) * time.Second
	return w, nil
}

func loadCandidatesTx(ctx context.Context, tx *sql.Tx) ([]models.Candidate, error) {
	rows, err := tx.QueryContext(ctx, `
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
