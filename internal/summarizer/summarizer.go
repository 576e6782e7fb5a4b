// Package summarizer implements spec §4.10's idle-conversation sweep
// (C10): every poll, close out conversations that have gone quiet,
// writing a short summary and extracting any durable facts the
// exchange revealed.
package summarizer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/omegacore/omega/internal/memory"
	"github.com/omegacore/omega/internal/provider"
	"github.com/omegacore/omega/pkg/models"
)

const pollInterval = 60 * time.Second

const summarizePrompt = "Summarize this conversation in 1-2 sentences, factual only. No opinions or filler."

const extractFactsPrompt = "Extract any durable personal facts the user revealed in this conversation. " +
	"Output one \"key: value\" pair per line, lowercase snake_case keys, no commentary. " +
	"If nothing durable was revealed, output exactly: none"

// Summarizer periodically closes idle conversations.
type Summarizer struct {
	Memory      *memory.Store
	Provider    provider.Provider
	Selection   provider.Selection
	IdleTimeout time.Duration
	Logger      *slog.Logger
	Now         func() time.Time
}

// New returns a Summarizer ready to Run.
func New(s Summarizer) *Summarizer {
	if s.IdleTimeout <= 0 {
		s.IdleTimeout = 2 * time.Hour
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return &s
}

// Run sweeps every pollInterval until ctx is canceled, then performs
// one final drain of every still-active conversation before returning
// (spec §4.10's graceful-shutdown requirement).
func (s *Summarizer) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Drain(context.Background())
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Summarizer) sweepOnce(ctx context.Context) {
	idle, err := s.Memory.FindIdle(ctx, s.IdleTimeout)
	if err != nil {
		s.Logger.Error("find idle conversations failed", "error", err)
		return
	}
	for _, conv := range idle {
		if err := s.summarizeAndClose(ctx, conv); err != nil {
			s.Logger.Error("failed to summarize conversation", "conversation", conv.ID, "error", err)
		}
	}
}

// Drain closes every currently active conversation regardless of idle
// time, for graceful shutdown.
func (s *Summarizer) Drain(ctx context.Context) {
	active, err := s.Memory.FindAllActive(ctx)
	if err != nil {
		s.Logger.Error("find active conversations failed", "error", err)
		return
	}
	for _, conv := range active {
		if err := s.summarizeAndClose(ctx, conv); err != nil {
			s.Logger.Error("failed to drain conversation", "conversation", conv.ID, "error", err)
		}
	}
}

func (s *Summarizer) summarizeAndClose(ctx context.Context, conv *models.Conversation) error {
	history, err := s.Memory.History(ctx, conv.ID, 200)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return s.Memory.Close(ctx, conv.ID, "")
	}

	summary, err := s.summarize(ctx, history)
	if err != nil {
		return err
	}

	if err := s.extractFacts(ctx, conv.SenderID, history); err != nil {
		s.Logger.Warn("fact extraction failed", "conversation", conv.ID, "error", err)
	}

	return s.Memory.Close(ctx, conv.ID, summary)
}

func (s *Summarizer) summarize(ctx context.Context, history []*models.Message) (string, error) {
	result, err := s.Provider.Complete(ctx, provider.Context{
		SystemPrompt:   summarizePrompt,
		History:        toProviderHistory(history),
		CurrentMessage: "Summarize the conversation above.",
		Model:          s.Selection.ModelFor(true),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Text), nil
}

// extractFacts implements spec §4.10 step 2: a second provider call
// whose "key: value" output lines are each validated and upserted,
// with a literal "none" meaning zero facts.
func (s *Summarizer) extractFacts(ctx context.Context, sender string, history []*models.Message) error {
	result, err := s.Provider.Complete(ctx, provider.Context{
		SystemPrompt:   extractFactsPrompt,
		History:        toProviderHistory(history),
		CurrentMessage: "Extract facts from the conversation above.",
		Model:          s.Selection.ModelFor(true),
	})
	if err != nil {
		return err
	}

	text := strings.TrimSpace(result.Text)
	if strings.EqualFold(text, "none") || text == "" {
		return nil
	}

	for _, line := range strings.Split(text, "\n") {
		key, value, ok := parseFactLine(line)
		if !ok {
			continue
		}
		if !memory.IsValidFact(key, value) {
			continue
		}
		if err := s.Memory.Set(ctx, sender, key, value); err != nil {
			s.Logger.Warn("failed to upsert extracted fact", "key", key, "error", err)
		}
	}
	return nil
}

func parseFactLine(line string) (key, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(strings.ToLower(line[:idx]))
	value = strings.TrimSpace(line[idx+1:])
	if key == "" || value == "" {
		return "", "", false
	}
	return key, value, true
}

func toProviderHistory(messages []*models.Message) []provider.Message {
	out := make([]provider.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, provider.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}
