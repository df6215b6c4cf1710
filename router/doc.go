// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines the HTTP route table and wires the domain
components (ledger, issuer, archive manager) into the handlers.

Routes use Go 1.22+ method-and-pattern routing on the standard
ServeMux. Admin routes expect the X-Admin-Token header; public routes
are open, with the one-time code as the gate on the vote itself.
*/
package router
