// Package gateway wires C1-C11 into a single running process (C12):
// it owns the channel listeners, the shared provider and memory store,
// and the three background loops (scheduler, summarizer, heartbeat),
// and runs them until told to stop.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/omegacore/omega/internal/channels"
	"github.com/omegacore/omega/internal/config"
	"github.com/omegacore/omega/internal/heartbeat"
	"github.com/omegacore/omega/internal/memory"
	"github.com/omegacore/omega/internal/pipeline"
	"github.com/omegacore/omega/internal/projects"
	"github.com/omegacore/omega/internal/prompt"
	"github.com/omegacore/omega/internal/provider"
	"github.com/omegacore/omega/internal/sandbox"
	"github.com/omegacore/omega/internal/scheduler"
	"github.com/omegacore/omega/internal/skills"
	"github.com/omegacore/omega/internal/summarizer"
	"github.com/omegacore/omega/pkg/models"
)

// Gateway owns every long-lived dependency and background loop the
// running agent needs. One Gateway serves the whole process.
type Gateway struct {
	Config     *config.Config
	ConfigPath string
	Logger     *slog.Logger

	Memory   *memory.Store
	Provider provider.Provider
	Guard    *sandbox.Guard

	Pipeline   *pipeline.Pipeline
	Scheduler  *scheduler.Scheduler
	Summarizer *summarizer.Summarizer
	Heartbeat  *heartbeat.Heartbeat

	Listeners []channels.Listener
	Senders   channels.Senders

	heartbeatInterval *atomic.Int64
	inbox             chan models.IncomingMessage
	wg                sync.WaitGroup
}

// New assembles a Gateway from a loaded config, an already-opened
// memory store and the provider factory's output. Channel adapters are
// supplied by the caller (cmd/omega) so the gateway stays decoupled
// from any one platform SDK.
func New(cfg *config.Config, configPath string, store *memory.Store, prov provider.Provider, sel provider.Selection, guard *sandbox.Guard, listeners []channels.Listener, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}

	senders := make(channels.Senders, len(listeners))
	for _, l := range listeners {
		senders[l.Name()] = l
	}

	dataDir := cfg.Omega.DataDir
	interval := &atomic.Int64{}
	interval.Store(int64(cfg.Heartbeat.IntervalMinutes))

	skillsMgr := skills.NewManager(dataDir+"/skills", logger)

	tmpl, err := prompt.LoadTemplate(dataDir + "/prompts/SYSTEM_PROMPT.md")
	if err != nil {
		logger.Warn("loading system prompt template failed, using built-in defaults", "error", err)
	}

	g := &Gateway{
		Config:            cfg,
		ConfigPath:        configPath,
		Logger:            logger,
		Memory:            store,
		Provider:          prov,
		Guard:             guard,
		Listeners:         listeners,
		Senders:           senders,
		heartbeatInterval: interval,
		inbox:             make(chan models.IncomingMessage, 64),
	}

	g.Pipeline = pipeline.New(pipeline.Pipeline{
		Memory:            store,
		Skills:            skillsMgr,
		DataDir:           dataDir,
		Config:            cfg,
		ConfigPath:        configPath,
		Provider:          prov,
		Selection:         sel,
		Senders:           senders,
		Template:          tmpl,
		WelcomePath:       dataDir + "/prompts/WELCOME.toml",
		HeartbeatInterval: interval,
		NotifyHeartbeat:   g.notifyHeartbeat,
		Logger:            logger,
		AttachmentInbox:   dataDir + "/attachments",
	})

	g.Scheduler = scheduler.New(scheduler.Scheduler{
		Memory:            store,
		Config:            cfg,
		ConfigPath:        configPath,
		DataDir:           dataDir,
		Provider:          prov,
		Selection:         sel,
		Senders:           senders,
		HeartbeatInterval: interval,
		NotifyHeartbeat:   g.notifyHeartbeat,
		Logger:            logger,
	})

	g.Summarizer = summarizer.New(summarizer.Summarizer{
		Memory:      store,
		Provider:    prov,
		Selection:   sel,
		IdleTimeout: time.Duration(cfg.Memory.IdleTimeoutMinutes) * time.Minute,
		Logger:      logger,
	})

	g.Heartbeat = heartbeat.New(heartbeat.Heartbeat{
		Memory:            store,
		Config:            cfg,
		ConfigPath:        configPath,
		DataDir:           dataDir,
		Provider:          prov,
		Selection:         sel,
		Senders:           senders,
		HeartbeatInterval: interval,
		NotifyHeartbeat:   g.notifyHeartbeat,
		Logger:            logger,
	})

	return g
}

func (g *Gateway) notifyHeartbeat() {
	g.Scheduler.Notify()
	g.Heartbeat.Notify()
}

// Run starts every channel listener and background loop and blocks
// until ctx is canceled, then drains in-flight work before returning.
func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, l := range g.Listeners {
		l := l
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			if err := l.Start(ctx, g.inbox); err != nil && ctx.Err() == nil {
				g.Logger.Error("channel listener stopped", "channel", l.Name(), "error", err)
			}
		}()
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.Scheduler.Run(ctx)
	}()

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.Summarizer.Run(ctx)
	}()

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.Heartbeat.Run(ctx)
	}()

	for {
		select {
		case in := <-g.inbox:
			go g.Pipeline.Handle(ctx, in)
		case <-ctx.Done():
			return g.shutdown()
		}
	}
}

// shutdown stops every listener, gives the summarizer a chance to close
// out any conversation still open, and waits for every background
// goroutine to return. Order matters: listeners stop taking new work
// before the summarizer's final drain runs, so nothing is summarized
// out from under an in-flight reply.
func (g *Gateway) shutdown() error {
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, l := range g.Listeners {
		if err := l.Stop(stopCtx); err != nil {
			g.Logger.Warn("channel listener stop failed", "channel", l.Name(), "error", err)
		}
	}

	g.Summarizer.Drain(stopCtx)
	g.wg.Wait()
	return g.Memory.Close()
}

// ActiveProjects reports the projects currently enabled under DataDir,
// for the status surface.
func (g *Gateway) ActiveProjects(ctx context.Context) ([]*models.Project, error) {
	return projects.ListActive(g.Config.Omega.DataDir)
}

// String identifies this gateway instance for logs.
func (g *Gateway) String() string {
	return fmt.Sprintf("omega[%s]", g.Config.Omega.Name)
}
