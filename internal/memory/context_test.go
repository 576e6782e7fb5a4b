package memory

import (
	"strings"
	"testing"
	"time"

	"github.com/omegacore/omega/pkg/models"
)

func TestBuildContextIncludesOnlyRequestedNeeds(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	if err := s.Set(ctx, "alice", "favorite_color", "blue"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := s.Create(ctx, newTask("alice", "water the plants", time.Now().UTC().Add(-time.Minute))); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	conv, err := s.GetOrCreateActive(ctx, models.ChannelCLI, "alice", "")
	if err != nil {
		t.Fatalf("GetOrCreateActive() error = %v", err)
	}
	if _, err := s.Append(ctx, conv.ID, "alice", models.RoleUser, "hello there", nil); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got, err := s.BuildContext(ctx, BuildRequest{
		Sender:         "alice",
		Channel:        models.ChannelCLI,
		ConversationID: conv.ID,
		Needs:          Needs{NeedTasks: true},
	})
	if err != nil {
		t.Fatalf("BuildContext() error = %v", err)
	}

	if !strings.Contains(got.SystemPrompt, "favorite_color") {
		t.Fatalf("BuildContext() prompt missing always-on profile section: %q", got.SystemPrompt)
	}
	if !strings.Contains(got.SystemPrompt, "water the plants") {
		t.Fatalf("BuildContext() prompt missing requested tasks section: %q", got.SystemPrompt)
	}
	if strings.Contains(got.SystemPrompt, "Recent outcomes") {
		t.Fatalf("BuildContext() included outcomes section without NeedOutcomes: %q", got.SystemPrompt)
	}
	if len(got.History) != 1 || got.History[0].Content != "hello there" {
		t.Fatalf("BuildContext() history = %+v, want the one appended message", got.History)
	}
}

func TestBuildContextOmitsEmptySections(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	conv, err := s.GetOrCreateActive(ctx, models.ChannelCLI, "bob", "")
	if err != nil {
		t.Fatalf("GetOrCreateActive() error = %v", err)
	}

	got, err := s.BuildContext(ctx, BuildRequest{
		Sender:         "bob",
		Channel:        models.ChannelCLI,
		ConversationID: conv.ID,
		Needs:          Needs{NeedSummaries: true, NeedOutcomes: true},
	})
	if err != nil {
		t.Fatalf("BuildContext() error = %v", err)
	}
	if got.SystemPrompt != "" {
		t.Fatalf("BuildContext() prompt = %q, want empty when nothing is known yet", got.SystemPrompt)
	}
}
