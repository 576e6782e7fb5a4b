package heartbeat

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/omegacore/omega/internal/channels"
	"github.com/omegacore/omega/internal/config"
	"github.com/omegacore/omega/internal/markers"
	"github.com/omegacore/omega/internal/memory"
	"github.com/omegacore/omega/internal/provider"
)

type fakeProvider struct {
	reply   string
	prompts []string
}

func (f *fakeProvider) Complete(ctx context.Context, pctx provider.Context) (*provider.Result, error) {
	f.prompts = append(f.prompts, pctx.SystemPrompt)
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

func newTestHeartbeat(t *testing.T, reply string) (*Heartbeat, *fakeSender, string) {
	t.Helper()
	store, err := memory.OpenInMemory(nil)
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	dataDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dataDir, "prompts"), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	sender := &fakeSender{}
	h := New(Heartbeat{
		Memory:   store,
		DataDir:  dataDir,
		Config:   &config.Config{Channel: map[string]config.ChannelConfig{"cli": {AllowedUsers: []string{"alice"}}}},
		Provider: &fakeProvider{reply: reply},
		Senders:  channels.Senders{"cli": sender},
	})
	return h, sender, dataDir
}

func TestNextAlignedRoundsUpToBoundary(t *testing.T) {
	now := time.Date(2026, 7, 30, 14, 12, 0, 0, time.UTC)
	got := nextAligned(now, 30)
	want := time.Date(2026, 7, 30, 14, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("nextAligned() = %v, want %v", got, want)
	}
}

func TestGlobalHeartbeatSkippedWhenChecklistEmpty(t *testing.T) {
	h, sender, _ := newTestHeartbeat(t, "")
	h.runGlobal(context.Background())
	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.out) != 0 {
		t.Fatalf("sent = %v, want nothing for a missing checklist", sender.out)
	}
}

func TestGlobalHeartbeatStripsActiveProjectSection(t *testing.T) {
	h, sender, dataDir := newTestHeartbeat(t, "HEARTBEAT_OK\n")
	checklist := "## Inbox\n- check unread mail\n\n## Alpha\n- check alpha deploys\n"
	if err := os.WriteFile(markers.GlobalChecklistPath(dataDir), []byte(checklist), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := os.MkdirAll(markers.ProjectDir(dataDir, "alpha"), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(markers.ProjectRolePath(dataDir, "alpha"), []byte("alpha role"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	h.runGlobal(context.Background())

	prompts := h.Provider.(*fakeProvider).prompts
	if len(prompts) != 1 || strings.Contains(prompts[0], "check alpha deploys") || !strings.Contains(prompts[0], "check unread mail") {
		t.Fatalf("provider prompts = %q, want one call carrying only the Inbox section", prompts)
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.out) != 0 {
		t.Fatalf("sent = %v, want HEARTBEAT_OK suppressed", sender.out)
	}
}

func TestGlobalHeartbeatDeliversNonOkReport(t *testing.T) {
	h, sender, dataDir := newTestHeartbeat(t, "Mail is piling up, you have 40 unread.")
	if err := os.WriteFile(markers.GlobalChecklistPath(dataDir), []byte("- check unread mail\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	h.runGlobal(context.Background())

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.out) != 1 || sender.out[0] != "Mail is piling up, you have 40 unread." {
		t.Fatalf("sent = %v, want the single non-OK report delivered", sender.out)
	}
}

func TestProjectHeartbeatRunsForActiveProjectWithChecklist(t *testing.T) {
	h, sender, dataDir := newTestHeartbeat(t, "Build is red on main.")
	if err := os.MkdirAll(markers.ProjectDir(dataDir, "rocket"), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(markers.ProjectRolePath(dataDir, "rocket"), []byte("rocket role"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := os.WriteFile(markers.ProjectHeartbeatPath(dataDir, "rocket"), []byte("- check CI status\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	h.runProjects(context.Background())

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.out) != 1 || sender.out[0] != "Build is red on main." {
		t.Fatalf("sent = %v, want the project's report delivered", sender.out)
	}
}

func TestProjectHeartbeatSkippedWhenDisabled(t *testing.T) {
	h, sender, dataDir := newTestHeartbeat(t, "should not run")
	if err := os.MkdirAll(markers.ProjectDir(dataDir, "rocket"), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(markers.ProjectRolePath(dataDir, "rocket"), []byte("rocket role"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := os.WriteFile(markers.ProjectHeartbeatPath(dataDir, "rocket"), []byte("- check CI status\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := os.WriteFile(markers.ProjectDisabledPath(dataDir, "rocket"), []byte(""), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	h.runProjects(context.Background())

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.out) != 0 {
		t.Fatalf("sent = %v, want nothing for a disabled project", sender.out)
	}
}

func TestDeferIfOutsideActiveHoursSkipsCycle(t *testing.T) {
	h, sender, dataDir := newTestHeartbeat(t, "report")
	if err := os.WriteFile(markers.GlobalChecklistPath(dataDir), []byte("- check unread mail\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	h.Config.Heartbeat.ActiveStart = "09:00"
	h.Config.Heartbeat.ActiveEnd = "17:00"
	h.Now = func() time.Time { return time.Date(2026, 7, 30, 2, 0, 0, 0, time.UTC) }

	if h.withinActiveHours(h.now()) {
		t.Fatalf("withinActiveHours() = true at 2am, want false")
	}
	next := h.nextActiveWindowStart(h.now())
	want := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("nextActiveWindowStart() = %v, want %v", next, want)
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.out) != 0 {
		t.Fatalf("sent = %v, want nothing before the cycle runs", sender.out)
	}
}
