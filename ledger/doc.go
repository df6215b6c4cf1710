// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ledger owns all mutations of vote state.

CastVote is the safety-critical operation. Its preconditions (window
active, code live and matching, voter not yet voted, candidate exists)
and its effects (code consumed, voter marked, tally incremented, vote
appended) all live inside one database transaction. The voter flip and
the code consumption are conditional updates whose rows-affected count
arbitrates concurrent submissions; there is no separate check step to
race against.

Serialization comes from the store, not from process-local locks:
PostgreSQL row locking or SQLite's single-writer, so correctness holds
across processes too.

Transient storage errors (lock contention, dropped connections) are
retried with bounded exponential backoff. A failed Commit is never
retried: the transaction may have landed, and retrying would risk
consuming a second code or reporting a false failure for a recorded
vote. Callers surface that as a storage error and the voter's status
endpoint tells the truth.

The read side (CurrentWindow, Tally, VoterStatus, Candidates) performs
no mutations and recomputes window state from timestamps on every
call.
*/
package ledger
