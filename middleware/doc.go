// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP cross-cutting helpers: request
logging, CORS, JSON body parsing, and the JSON response writers.

Error writers come in three flavors:

  - ErrorResponse: plain validation rejection (code VALIDATION)
  - ErrorCodeResponse: rejection with a stable domain code
  - CredentialErrorResponse: code rejection plus remaining attempts

All responses are models.ErrorResponse JSON; the HTTP status text is
never the field clients should branch on.
*/
package middleware
