// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the clearballot API server.

clearballot runs a single-election online voting process: it opens and
closes a voting window, issues one-time verification codes, accepts
exactly one vote per eligible voter, tallies in real time, and, once
the window closes, assigns ranked positions and archives the result.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=file:clearballot.db ADMIN_TOKEN=... CODE_SALT=... go run main.go

Or with flags:

	go run main.go -p 3319 -d "postgres://..." -t postgres

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - ADMIN_TOKEN (--admin-token): shared secret for admin endpoints
  - CODE_SALT (--code-salt): salt for one-time code hashes

Optional settings:

  - PORT (-p): server port (default: 3319)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - CODE_TTL_MINUTES, DEFAULT_DURATION_HOURS, TOLERANCE_SECONDS
  - POSITION_TITLES: comma-separated position ladder

# Architecture

The server uses a handler-based architecture with dependency injection:

  - window: pure evaluation of the voting window phase
  - otp: one-time verification code issuance and consumption
  - ledger: atomic vote casting and tally reads
  - positions: deterministic post-election position assignment
  - archive: archive-then-clear finalization keyed to window epochs
  - notify: outbound code-delivery contract
  - handlers: HTTP request handlers (election, voting, results)
  - router: route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - models: request/response types and error codes
  - auth: code hashing and admin token validation
  - db: schema creation
  - cliparse: configuration parsing

See package documentation for each component.
*/
package main
