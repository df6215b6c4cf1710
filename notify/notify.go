// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package notify

import (
	"context"
	"log/slog"
)

// Sender delivers a one-time code message to a voter's address. The
// delivery mechanism (email, SMS) lives outside this service; a
// failure here is logged by callers and never rolls back issuance;
// the voter simply requests a new code.
type Sender interface {
	Send(ctx context.Context, address, message string) error
}

// LogSender is the default Sender: it records the delivery intent
// without the secret itself. Deployments wire a real sender in main.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, address, message string) error {
	slog.Info("notification dispatched", "address", address, "bytes", len(message))
	return nil
}
