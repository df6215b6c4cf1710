// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database schema creation.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

The schema includes:

  - election_window: epoch-versioned window configuration generations
  - voter: eligible-voter roster with the has_voted flag
  - candidate: candidates with running tallies and final positions
  - one_time_code: salted hashes of single-use verification codes
  - vote: append-only anonymous audit trail
  - election_history: immutable archived election snapshots

# Invariants the schema backs

  - vote_count >= 0 enforced via CHECK
  - one election_history row per epoch (UNIQUE)
  - the active window is always the row with the highest epoch

The tally invariant sum(candidate.vote_count) == count(vote rows) is
not expressible as a constraint; it holds because both mutations happen
inside the same ledger transaction.

The DDL sticks to types both PostgreSQL and SQLite accept, so either
driver can run against the same schema string.
*/
package db
