// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package notify defines the outbound delivery contract for one-time
codes.

The engine only consumes "send this message to this address"; SMTP,
SMS gateways, and templating belong to the deployment. LogSender is
the in-process default and deliberately does not log the message body,
since it contains the plaintext code.
*/
package notify
