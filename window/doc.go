// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package window derives the election phase from the configured window
and the current time.

There is no stored "current phase" anywhere in the system. Every
caller, on every request, recomputes the phase with Evaluate from the
window row and time.Now(). That makes the phase impossible to get
stale: there is no transition event to miss.

# Boundary rules

	disabled               enabled == false, regardless of time
	upcoming               now < start_at - tolerance
	active                 start_at - tolerance <= now <= end_at
	ended                  now > end_at

The tolerance is asymmetric on purpose. It exists to absorb clock skew
and request latency near the start, so a voter whose clock runs a few
seconds ahead is not rejected at the opening bell. The end boundary is
strict: extending it would accept late votes.
*/
package window
