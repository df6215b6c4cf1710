// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package positions converts final tallies into ranked position
assignments.

This is a one-shot finalization step, not a live leaderboard: the
archive manager calls Assign exactly once per election, after the
window has ended, and persists the result. Assign itself is a pure
function so a finalization retry recomputes the identical outcome.

Tie-break order is vote count descending, then candidate creation
time, then candidate ID. Insertion order of equal-count candidates
therefore decides their relative rank deterministically.
*/
package positions
