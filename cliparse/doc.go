// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles configuration from CLI flags and environment
variables.

A .env file in the working directory is loaded first (via godotenv),
then flags are parsed, then unset values fall back to the environment.

Required settings:

  - DATABASE_URL (-d): connection string
  - ADMIN_TOKEN (--admin-token): shared secret for admin endpoints
  - CODE_SALT (--code-salt): salt for one-time code hashes

Optional settings:

  - PORT (-p): server port (default 3319)
  - DATABASE_TYPE (-t): sqlite or postgres (default sqlite)
  - CODE_TTL_MINUTES: one-time code lifetime (default 10)
  - DEFAULT_DURATION_HOURS: window length for "start voting now" (default 8)
  - TOLERANCE_SECONDS: start-boundary clock-skew tolerance (default 30)
  - POSITION_TITLES: comma-separated position ladder
    (default President, Vice President, Secretary, ...)
*/
package cliparse
