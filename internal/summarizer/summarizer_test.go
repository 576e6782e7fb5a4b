package summarizer

import (
	"context"
	"testing"
	"time"

	"github.com/omegacore/omega/internal/memory"
	"github.com/omegacore/omega/internal/provider"
	"github.com/omegacore/omega/pkg/models"
)

type scriptedProvider struct {
	calls   int
	replies []string
}

func (p *scriptedProvider) Complete(ctx context.Context, pctx provider.Context) (*provider.Result, error) {
	reply := ""
	if p.calls < len(p.replies) {
		reply = p.replies[p.calls]
	}
	p.calls++
	return &provider.Result{Text: reply}, nil
}
func (p *scriptedProvider) Name() string         { return "fake" }
func (p *scriptedProvider) RequiresAPIKey() bool { return false }
func (p *scriptedProvider) IsAvailable() bool    { return true }

func newTestStore(t *testing.T) *memory.Store {
	t.Helper()
	store, err := memory.OpenInMemory(nil)
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSweepSummarizesAndExtractsFacts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.GetOrCreateActive(ctx, models.ChannelCLI, "alice", "")
	if err != nil {
		t.Fatalf("GetOrCreateActive() error = %v", err)
	}
	if _, err := store.Append(ctx, conv.ID, "alice", models.RoleUser, "I live in Denver and work as a vet.", nil); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	prov := &scriptedProvider{replies: []string{
		"Alice mentioned she lives in Denver and works as a veterinarian.",
		"location: Denver\noccupation: veterinarian",
	}}
	s := New(Summarizer{Memory: store, Provider: prov, IdleTimeout: time.Millisecond})

	// Conversation was just created so it isn't idle yet at a normal
	// threshold; force it idle by using a near-zero timeout.
	time.Sleep(2 * time.Millisecond)
	s.sweepOnce(ctx)

	facts, err := store.GetAll(ctx, "alice")
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	var location, occupation string
	for _, f := range facts {
		if f.Key == "location" {
			location = f.Value
		}
		if f.Key == "occupation" {
			occupation = f.Value
		}
	}
	if location != "Denver" || occupation != "veterinarian" {
		t.Fatalf("facts = %+v, want location=Denver occupation=veterinarian", facts)
	}
}

func TestSweepSkipsFactsOutputNone(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.GetOrCreateActive(ctx, models.ChannelCLI, "bob", "")
	if err != nil {
		t.Fatalf("GetOrCreateActive() error = %v", err)
	}
	if _, err := store.Append(ctx, conv.ID, "bob", models.RoleUser, "just saying hi", nil); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	prov := &scriptedProvider{replies: []string{"Bob said hello.", "none"}}
	s := New(Summarizer{Memory: store, Provider: prov, IdleTimeout: time.Millisecond})
	time.Sleep(2 * time.Millisecond)
	s.sweepOnce(ctx)

	facts, err := store.GetAll(ctx, "bob")
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(facts) != 0 {
		t.Fatalf("facts = %+v, want none extracted", facts)
	}
}

func TestDrainClosesAllActiveConversations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.GetOrCreateActive(ctx, models.ChannelCLI, "carol", "")
	if err != nil {
		t.Fatalf("GetOrCreateActive() error = %v", err)
	}
	if _, err := store.Append(ctx, conv.ID, "carol", models.RoleUser, "hello", nil); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	prov := &scriptedProvider{replies: []string{"Carol said hello.", "none"}}
	s := New(Summarizer{Memory: store, Provider: prov})
	s.Drain(ctx)

	active, err := store.FindAllActive(ctx)
	if err != nil {
		t.Fatalf("FindAllActive() error = %v", err)
	}
	for _, a := range active {
		if a.ID == conv.ID {
			t.Fatalf("conversation %d still active after Drain", conv.ID)
		}
	}
}

func TestRejectsInvalidExtractedFact(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.GetOrCreateActive(ctx, models.ChannelCLI, "dana", "")
	if err != nil {
		t.Fatalf("GetOrCreateActive() error = %v", err)
	}
	if _, err := store.Append(ctx, conv.ID, "dana", models.RoleUser, "text", nil); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	// active_project is a system key; extracted facts must never set it.
	prov := &scriptedProvider{replies: []string{"summary", "active_project: sneaky"}}
	s := New(Summarizer{Memory: store, Provider: prov, IdleTimeout: time.Millisecond})
	time.Sleep(2 * time.Millisecond)
	s.sweepOnce(ctx)

	fact, err := store.GetOne(ctx, "dana", "active_project")
	if err != nil {
		t.Fatalf("GetOne() error = %v", err)
	}
	if fact != nil {
		t.Fatalf("active_project = %+v, want untouched by fact extraction", fact)
	}
}
