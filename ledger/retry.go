// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"math/rand"
	"strings"
	"time"
)

// retryConfig bounds the automatic retry of transient storage errors
// at the ledger boundary. Domain errors are never retried, and neither
// is a failed commit: once the consume step may have committed, a
// retry risks double-consumption ambiguity.
type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

var defaultRetryConfig = retryConfig{
	maxRetries: 3,
	baseDelay:  50 * time.Millisecond,
	maxDelay:   500 * time.Millisecond,
}

// isTransientStorageErr reports whether the error is a transient
// driver-level failure worth retrying. Covers WAL-mode SQLite lock
// contention and the usual Postgres connection and serialization
// failures. Error-string matching is the only portable option across
// the two drivers.
func isTransientStorageErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, pattern := range []string{
		// modernc.org/sqlite
		"SQLITE_BUSY",
		"SQLITE_LOCKED",
		"database is locked",
		"database table is locked",
		// lib/pq
		"serialization failure",
		"deadlock detected",
		"connection reset",
		"connection refused",
		"driver: bad connection",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// backoffDelay computes exponential backoff with jitter:
// baseDelay * 2^attempt, capped, plus random([0, baseDelay)).
func backoffDelay(cfg retryConfig, attempt int) time.Duration {
	delay := cfg.baseDelay << uint(attempt)
	if delay > cfg.maxDelay {
		delay = cfg.maxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(cfg.baseDelay)))
	return delay + jitter
}
