// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers implements the HTTP façade of the election engine:
the session controller external callers talk to.

Handlers are thin: window evaluation lives in package window, vote
atomicity in package ledger, code handling in package otp, and
finalization in package archive. A handler's job is request parsing,
admin-token checks, calling one domain operation, and mapping domain
sentinels to HTTP statuses with stable error codes (errors.go).

# Handlers

  - ElectionHandler: admin window lifecycle (replace, patch, start
    now), finalize, live tally
  - VotingHandler: one-time code issuance and vote submission
  - ResultsHandler: window status, ballot listing, voter status,
    election history

There is no stored election phase anywhere in this package; every
request derives it fresh from the window generation and the clock.
*/
package handlers
