// Package channels defines the Channel port (C12) every messaging
// platform adapter (telegram, whatsapp, cli) implements, plus the
// narrower Sender half of it that C8's pipeline and C9's scheduler
// need to deliver outbound text without depending on a concrete
// adapter.
package channels

import (
	"context"

	"github.com/omegacore/omega/pkg/models"
)

// Sender is the outbound half of a channel adapter.
type Sender interface {
	// Send delivers text to replyTarget on this channel.
	Send(ctx context.Context, replyTarget, text string) error

	// SendTyping emits one "typing" presence update, if the channel
	// supports it; adapters that don't may no-op.
	SendTyping(ctx context.Context, replyTarget string) error
}

// Senders resolves a Sender by channel name ("telegram", "whatsapp",
// "cli"). The gateway populates one entry per configured channel.
type Senders map[string]Sender

func (s Senders) For(channel string) Sender {
	return s[channel]
}

// Listener is the inbound half: a channel adapter that can be started
// and stopped by the gateway's run loop.
type Listener interface {
	Sender

	// Start begins receiving messages, pushing each onto inbox, until
	// ctx is canceled or Stop is called.
	Start(ctx context.Context, inbox chan<- models.IncomingMessage) error

	// Stop gracefully ends the listener's receive loop.
	Stop(ctx context.Context) error

	// Name identifies the channel ("telegram", "whatsapp", "cli").
	Name() string
}

// Pairer is implemented by adapters whose session can be re-paired on
// demand (currently only whatsapp, via a fresh QR code). The WHATSAPP_QR
// marker handler sets Outcome.StartPairing; the pipeline type-asserts
// the active sender against this interface before acting on it, so
// channels that don't support re-pairing are unaffected.
type Pairer interface {
	RequestPairing(ctx context.Context) error
}
