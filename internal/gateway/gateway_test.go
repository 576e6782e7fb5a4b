package gateway

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/omegacore/omega/internal/channels"
	"github.com/omegacore/omega/internal/config"
	"github.com/omegacore/omega/internal/memory"
	"github.com/omegacore/omega/internal/provider"
	"github.com/omegacore/omega/internal/sandbox"
	"github.com/omegacore/omega/pkg/models"
)

type fakeProvider struct{}

func (fakeProvider) Complete(ctx context.Context, pctx provider.Context) (*provider.Result, error) {
	return &provider.Result{Text: "ok"}, nil
}
func (fakeProvider) Name() string         { return "fake" }
func (fakeProvider) RequiresAPIKey() bool { return false }
func (fakeProvider) IsAvailable() bool    { return true }

type fakeListener struct {
	name    string
	started chan struct{}
}

func (f *fakeListener) Send(ctx context.Context, replyTarget, text string) error { return nil }
func (f *fakeListener) SendTyping(ctx context.Context, replyTarget string) error { return nil }
func (f *fakeListener) Start(ctx context.Context, inbox chan<- models.IncomingMessage) error {
	close(f.started)
	<-ctx.Done()
	return nil
}
func (f *fakeListener) Stop(ctx context.Context) error { return nil }
func (f *fakeListener) Name() string                   { return f.name }

func newTestGateway(t *testing.T) (*Gateway, *fakeListener) {
	t.Helper()
	store, err := memory.OpenInMemory(nil)
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	dataDir := t.TempDir()
	for _, sub := range []string{"skills", "prompts", "attachments"} {
		if err := os.MkdirAll(filepath.Join(dataDir, sub), 0o755); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}
	}

	cfg := &config.Config{
		Omega:     config.OmegaConfig{Name: "test", DataDir: dataDir},
		Channel:   map[string]config.ChannelConfig{"cli": {Enabled: true, AllowedUsers: []string{"alice"}}},
		Heartbeat: config.HeartbeatConfig{IntervalMinutes: 30},
	}
	guard := sandbox.NewGuard(sandbox.Config{DataDir: dataDir, Mode: config.SandboxModeSandbox})
	listener := &fakeListener{name: "cli", started: make(chan struct{})}

	g := New(cfg, filepath.Join(dataDir, "config.toml"), store, fakeProvider{}, provider.Selection{Fast: "fast", Complex: "complex"}, guard, []channels.Listener{listener}, nil)
	return g, listener
}

func TestNewWiresEveryComponent(t *testing.T) {
	g, _ := newTestGateway(t)
	if g.Pipeline == nil || g.Scheduler == nil || g.Summarizer == nil || g.Heartbeat == nil {
		t.Fatalf("New() left a background component nil")
	}
	if g.Senders["cli"] == nil {
		t.Fatalf("New() did not register the cli sender")
	}
}

func TestRunStartsListenersAndStopsOnCancel(t *testing.T) {
	g, listener := newTestGateway(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()

	select {
	case <-listener.started:
	case <-time.After(time.Second):
		t.Fatalf("listener was never started")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run() did not return after cancel")
	}
}

func TestAcquireLockRejectsSecondHolder(t *testing.T) {
	dir := t.TempDir()
	opts := LockOptions{StateDir: dir, ConfigPath: "a.toml", Timeout: 50 * time.Millisecond, Poll: 10 * time.Millisecond}

	first, err := AcquireLock(opts)
	if err != nil {
		t.Fatalf("first AcquireLock() error = %v", err)
	}
	defer first.Release()

	if _, err := AcquireLock(opts); err == nil {
		t.Fatalf("second AcquireLock() succeeded, want contention error")
	}
}

func TestAcquireLockReclaimsAfterRelease(t *testing.T) {
	dir := t.TempDir()
	opts := LockOptions{StateDir: dir, ConfigPath: "b.toml", Timeout: 50 * time.Millisecond, Poll: 10 * time.Millisecond}

	first, err := AcquireLock(opts)
	if err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	second, err := AcquireLock(opts)
	if err != nil {
		t.Fatalf("AcquireLock() after release error = %v", err)
	}
	defer second.Release()
}
