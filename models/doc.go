// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the request, response, and domain types shared
across the API surface.

# Error Codes

Every error response carries a stable machine-readable code alongside
the HTTP status text:

	{"error": "Conflict", "code": "ALREADY_VOTED", "message": "..."}

Codes are terminal idempotency signals (ALREADY_VOTED,
ALREADY_CONSUMED), temporal rejections (WINDOW_UPCOMING,
WINDOW_CLOSED, WINDOW_DISABLED), credential failures (NO_LIVE_CODE,
CODE_EXPIRED, CODE_MISMATCH, ATTEMPTS_EXCEEDED), or configuration and
storage faults. Clients must branch on the code, never on the message.

# Window Patching

SetWindowRequest replaces the whole window configuration;
PatchWindowRequest uses pointer fields so that absent fields carry
forward from the previous generation. Both produce a new epoch.
*/
package models
