// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package otp implements the one-time verification code lifecycle.

A code proves voter intent at cast time. Issue mints a random 6-digit
code, stores only its salted hash, and returns the plaintext exactly
once for delivery by the external notification sender. Issuing a new
code invalidates any prior live code, so at most one live code exists
per voter.

Verification is split in two because consumption must share the vote
transaction:

  - VerifyAndConsume runs inside the ledger's cast transaction. On a
    hash match it flips consumed via a conditional UPDATE; a concurrent
    duplicate observes zero rows affected and fails with
    ErrAlreadyConsumed.
  - RecordFailedAttempt runs on the plain DB handle so the strike
    survives the rollback of a failed cast. The 5th strike invalidates
    the code and forces re-issuance.

Codes expire 10 minutes after issuance (configurable). Expired and
exhausted codes are invalidated in place, never deleted, so the
issuance trail survives until the next archive reset.
*/
package otp
