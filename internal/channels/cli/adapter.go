// Package cli implements the channels.Listener port (C12) as a local
// stdin/stdout loop, used by `omega ask` and by operators who want to
// talk to their own agent without a messaging platform in between.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/omegacore/omega/pkg/models"
)

// replyTarget is constant: there is exactly one local operator and one
// stdout to write replies to.
const replyTarget = "local"

// Adapter reads lines from In and writes replies to Out.
type Adapter struct {
	In       io.Reader
	Out      io.Writer
	SenderID string
}

// New builds an Adapter reading stdin-shaped input and writing to
// stdout-shaped output, tagging every message as coming from senderID
// (the config's [channel.cli] allowed_users entry).
func New(in io.Reader, out io.Writer, senderID string) *Adapter {
	return &Adapter{In: in, Out: out, SenderID: senderID}
}

func (a *Adapter) Name() string { return "cli" }

// Start scans lines from In until ctx is canceled or In is exhausted.
func (a *Adapter) Start(ctx context.Context, inbox chan<- models.IncomingMessage) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(a.In)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			in := models.IncomingMessage{
				Channel:     models.ChannelCLI,
				SenderID:    a.SenderID,
				ReplyTarget: replyTarget,
				Text:        text,
				ReceivedAt:  time.Now(),
			}
			select {
			case inbox <- in:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// Stop is a no-op: Start already returns on ctx cancellation.
func (a *Adapter) Stop(ctx context.Context) error { return nil }

// Send writes text to Out, ignoring replyTarget since there is only one
// local operator to answer.
func (a *Adapter) Send(ctx context.Context, replyTarget, text string) error {
	_, err := fmt.Fprintln(a.Out, text)
	return err
}

// SendTyping is a no-op: a terminal has no typing indicator.
func (a *Adapter) SendTyping(ctx context.Context, replyTarget string) error { return nil }
