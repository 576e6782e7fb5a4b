package pipeline

import (
	"context"
	"time"
)

const typingInterval = 5 * time.Second

// startTyping runs step 8's typing heartbeat until ctx is canceled. The
// caller cancels ctx as soon as the provider call returns.
func startTyping(ctx context.Context, sender Sender, replyTarget string) {
	if sender == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(typingInterval)
		defer ticker.Stop()
		_ = sender.SendTyping(ctx, replyTarget)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = sender.SendTyping(ctx, replyTarget)
			}
		}
	}()
}

const (
	firstStatusPing = 15 * time.Second
	statusPingEvery = 120 * time.Second
)

// startStatusPings implements step 13's delayed-status pings: one at
// 15s ("taking a moment"), then every 120s ("still working") until the
// provider call returns and ctx is canceled.
func startStatusPings(ctx context.Context, sender Sender, replyTarget string) {
	if sender == nil {
		return
	}
	go func() {
		timer := time.NewTimer(firstStatusPing)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			_ = sender.Send(ctx, replyTarget, "Taking a moment, still working on it…")
		}

		ticker := time.NewTicker(statusPingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = sender.Send(ctx, replyTarget, "Still working on it…")
			}
		}
	}()
}
