// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package archive finalizes elections into immutable history and resets
the ledger for the next cycle.

# Ordering guarantee

ArchiveAndReset commits the history snapshot before any destructive
clear begins. A crash between the two leaves a fully archived election
with stale mutable state, which the next finalize call detects via the
archived flag on the window epoch: it returns the existing record and
re-runs only the clear. The flag is flipped with a conditional update,
so two racing finalize calls produce exactly one history row.

# What a reset touches

Votes and one-time codes are deleted, candidate tallies and assigned
positions are cleared, and voters are unmarked. The voter roster and
candidate list themselves survive into the next election.

Position assignment happens here, once, after the window has ended;
never against live tallies. The resolver is deterministic, so a
finalize retry reproduces identical positions.
*/
package archive
