package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/omegacore/omega/internal/channels"
	"github.com/omegacore/omega/internal/config"
	"github.com/omegacore/omega/internal/memory"
	"github.com/omegacore/omega/internal/provider"
	"github.com/omegacore/omega/pkg/models"
)

type fakeProvider struct {
	reply string
}

func (f *fakeProvider) Complete(ctx context.Context, pctx provider.Context) (*provider.Result, error) {
	return &provider.Result{Text: f.reply}, nil
}
func (f *fakeProvider) Name() string         { return "fake" }
func (f *fakeProvider) RequiresAPIKey() bool { return false }
func (f *fakeProvider) IsAvailable() bool    { return true }

type fakeSender struct {
	mu  sync.Mutex
	out []string
}

func (s *fakeSender) Send(ctx context.Context, replyTarget, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = append(s.out, text)
	return nil
}
func (s *fakeSender) SendTyping(ctx context.Context, replyTarget string) error { return nil }

func newTestScheduler(t *testing.T, reply string) (*Scheduler, *fakeSender, *memory.Store) {
	t.Helper()
	store, err := memory.OpenInMemory(nil)
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	sender := &fakeSender{}
	s := New(Scheduler{
		Memory:   store,
		Config:   &config.Config{Scheduler: config.SchedulerConfig{PollIntervalSecs: 60}},
		Provider: &fakeProvider{reply: reply},
		Senders:  channels.Senders{"cli": sender},
	})
	return s, sender, store
}

func TestReminderTaskDeliversAndCompletes(t *testing.T) {
	s, sender, store := newTestScheduler(t, "")
	task, err := store.Create(context.Background(), &models.Task{
		Channel:     models.ChannelCLI,
		SenderID:    "alice",
		ReplyTarget: "alice",
		Description: "call mom",
		DueAt:       time.Now().UTC().Add(-time.Minute),
		Type:        models.TaskReminder,
		Repeat:      models.RepeatOnce,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := s.pollOnce(context.Background()); err != nil {
		t.Fatalf("pollOnce() error = %v", err)
	}

	sender.mu.Lock()
	out := sender.out
	sender.mu.Unlock()
	if len(out) != 1 || out[0] != "Reminder: call mom" {
		t.Fatalf("sent = %v, want one reminder", out)
	}

	due, err := store.GetDue(context.Background(), time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("GetDue() error = %v", err)
	}
	for _, d := range due {
		if d.ID == task.ID {
			t.Fatalf("task %d still due after completion", task.ID)
		}
	}
}

func TestActionTaskPassCompletesTask(t *testing.T) {
	s, sender, store := newTestScheduler(t, "Done.\nACTION_OUTCOME: PASS\n")
	task, err := store.Create(context.Background(), &models.Task{
		Channel:     models.ChannelCLI,
		SenderID:    "bob",
		ReplyTarget: "bob",
		Description: "deploy the thing",
		DueAt:       time.Now().UTC().Add(-time.Minute),
		Type:        models.TaskAction,
		Repeat:      models.RepeatOnce,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := s.pollOnce(context.Background()); err != nil {
		t.Fatalf("pollOnce() error = %v", err)
	}

	sender.mu.Lock()
	out := sender.out
	sender.mu.Unlock()
	if len(out) != 1 || out[0] != "Done." {
		t.Fatalf("sent = %v, want cleaned reply without the marker", out)
	}

	due, _ := store.GetDue(context.Background(), time.Now().UTC().Add(time.Hour))
	for _, d := range due {
		if d.ID == task.ID {
			t.Fatalf("task %d still pending after PASS", task.ID)
		}
	}
}

func TestActionTaskFailIncrementsRetry(t *testing.T) {
	s, _, store := newTestScheduler(t, "ACTION_OUTCOME: FAIL: could not connect\n")
	task, err := store.Create(context.Background(), &models.Task{
		Channel:     models.ChannelCLI,
		SenderID:    "carol",
		ReplyTarget: "carol",
		Description: "deploy the thing",
		DueAt:       time.Now().UTC().Add(-time.Minute),
		Type:        models.TaskAction,
		Repeat:      models.RepeatOnce,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := s.pollOnce(context.Background()); err != nil {
		t.Fatalf("pollOnce() error = %v", err)
	}

	due, err := store.GetDue(context.Background(), time.Now().UTC().Add(3*time.Minute))
	if err != nil {
		t.Fatalf("GetDue() error = %v", err)
	}
	found := false
	for _, d := range due {
		if d.ID == task.ID {
			found = true
			if d.RetryCount != 1 {
				t.Fatalf("RetryCount = %d, want 1", d.RetryCount)
			}
		}
	}
	if !found {
		t.Fatalf("task %d not found pending retry", task.ID)
	}
}

func TestDeferIfQuietHoursPushesDueAt(t *testing.T) {
	s, _, store := newTestScheduler(t, "")
	s.Config.Heartbeat.ActiveStart = "09:00"
	s.Config.Heartbeat.ActiveEnd = "17:00"
	s.Now = func() time.Time {
		return time.Date(2026, 7, 30, 2, 0, 0, 0, time.UTC) // 2am, outside window
	}

	task, err := store.Create(context.Background(), &models.Task{
		Channel:     models.ChannelCLI,
		SenderID:    "dana",
		ReplyTarget: "dana",
		Description: "reminder",
		DueAt:       time.Date(2026, 7, 30, 1, 0, 0, 0, time.UTC),
		Type:        models.TaskReminder,
		Repeat:      models.RepeatOnce,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := s.pollOnce(context.Background()); err != nil {
		t.Fatalf("pollOnce() error = %v", err)
	}

	due, err := store.GetDue(context.Background(), time.Date(2026, 7, 30, 3, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetDue() error = %v", err)
	}
	for _, d := range due {
		if d.ID == task.ID {
			t.Fatalf("task %d should have been deferred past quiet hours", task.ID)
		}
	}
}
