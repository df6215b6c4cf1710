// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides the cryptographic primitives for identifiers,
one-time codes, and admin authentication.

# One-Time Codes

GenerateCode produces a uniform random 6-digit code from crypto/rand.
Codes are never stored in plaintext: HashCode computes a salted
HMAC-SHA256 over (voterID, code), and VerifyCode compares via
hmac.Equal so timing does not leak match prefixes.

# Admin Token

ValidateAdminToken is a constant-time comparison against the token
from configuration. Admin identity management (who holds the token) is
handled outside this service.

# IDs

GenerateID returns random hex identifiers for rows that need
non-guessable keys.
*/
package auth
