package pipeline

import (
	"context"
	"strings"

	"github.com/omegacore/omega/internal/provider"
	"github.com/omegacore/omega/pkg/models"
)

const forgetSummaryPrompt = "Summarize this conversation in 1-2 sentences, factual only. No opinions or filler."

// summarizeConversation produces the same style of summary C10's
// background loop writes on idle timeout, but synchronously for the
// /forget command so the conversation's history isn't lost the moment
// it's closed.
func (p *Pipeline) summarizeConversation(ctx context.Context, conv *models.Conversation) (string, error) {
	history, err := p.Memory.History(ctx, conv.ID, 200)
	if err != nil {
		return "", err
	}
	if len(history) == 0 {
		return "", nil
	}

	result, err := p.Provider.Complete(ctx, provider.Context{
		SystemPrompt:   forgetSummaryPrompt,
		History:        toProviderHistory(history),
		CurrentMessage: "Summarize the conversation above.",
		Model:          p.Selection.ModelFor(true),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Text), nil
}
