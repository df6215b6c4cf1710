// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package window

import "time"

// State is the derived phase of the voting window.
type State string

const (
	StateDisabled State = "disabled"
	StateUpcoming State = "upcoming"
	StateActive   State = "active"
	StateEnded    State = "ended"
)

// DefaultTolerance absorbs clock skew between the caller and this
// server around the start boundary.
const DefaultTolerance = 30 * time.Second

// Window is one configuration generation of the election window.
type Window struct {
	Epoch     int64
	Title     string
	StartAt   time.Time
	EndAt     time.Time
	Enabled   bool
	Tolerance time.Duration
	Archived  bool
	CreatedAt time.Time
}

// Evaluate maps the current instant to a window state. Pure and
// side-effect free; callers poll it freely and never persist the
// result, so a missed transition cannot leave stale state behind.
//
// The tolerance widens the start boundary only. A vote arriving
// slightly before StartAt because of clock skew is accepted; EndAt is
// strict so late votes are never accepted.
func Evaluate(now time.Time, w Window) State {
	if !w.Enabled {
		return StateDisabled
	}
	tol := w.Tolerance
	if tol < 0 {
		tol = 0
	}
	if now.After(w.EndAt) {
		return StateEnded
	}
	if now.Before(w.StartAt.Add(-tol)) {
		return StateUpcoming
	}
	return StateActive
}
