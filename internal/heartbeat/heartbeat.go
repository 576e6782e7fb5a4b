// Package heartbeat implements spec §4.11's periodic self-check (C11):
// a clock-aligned loop with a global phase (the shared checklist, minus
// sections owned by active projects or explicitly suppressed) and a
// project phase (one call per active, non-disabled project that
// declares its own HEARTBEAT.md).
package heartbeat

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/omegacore/omega/internal/channels"
	"github.com/omegacore/omega/internal/config"
	"github.com/omegacore/omega/internal/markers"
	"github.com/omegacore/omega/internal/memory"
	"github.com/omegacore/omega/internal/projects"
	"github.com/omegacore/omega/internal/provider"
	"github.com/omegacore/omega/pkg/models"
)

const okMarker = "HEARTBEAT_OK"

const outcomeWindow = 24 * time.Hour

// Heartbeat runs the global and per-project self-check cycle.
type Heartbeat struct {
	Memory            *memory.Store
	Config            *config.Config
	ConfigPath        string
	DataDir           string
	Provider          provider.Provider
	Selection         provider.Selection
	Senders           channels.Senders
	HeartbeatInterval *atomic.Int64
	NotifyHeartbeat   func()
	Logger            *slog.Logger
	Now               func() time.Time

	// wake lets HEARTBEAT_INTERVAL changes or shutdown interrupt a sleep
	// early, mirroring internal/scheduler's notifier pattern.
	wake chan struct{}
}

// New returns a Heartbeat ready to Run.
func New(h Heartbeat) *Heartbeat {
	if h.Now == nil {
		h.Now = time.Now
	}
	if h.Logger == nil {
		h.Logger = slog.Default()
	}
	h.wake = make(chan struct{}, 1)
	return &h
}

// Notify interrupts a sleeping loop so an interval change takes effect
// on the very next aligned boundary instead of the previous one.
func (h *Heartbeat) Notify() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *Heartbeat) now() time.Time { return h.Now().UTC() }

func (h *Heartbeat) intervalMinutes() int {
	if h.HeartbeatInterval != nil {
		if v := h.HeartbeatInterval.Load(); v > 0 {
			return int(v)
		}
	}
	if h.Config != nil && h.Config.Heartbeat.IntervalMinutes > 0 {
		return h.Config.Heartbeat.IntervalMinutes
	}
	return 60
}

// Run sleeps until each clock-aligned boundary (or the next active-hours
// window if currently outside it), running one cycle per wake, until ctx
// is canceled.
func (h *Heartbeat) Run(ctx context.Context) {
	for {
		target := h.nextWake()
		timer := time.NewTimer(time.Until(target))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-h.wake:
			timer.Stop()
			continue // interval may have changed; recompute the boundary
		case <-timer.C:
		}

		if !h.withinActiveHours(h.now()) {
			continue
		}
		h.RunCycle(ctx)
	}
}

// nextWake returns the next clock-aligned interval boundary, pushed out
// to the next active-hours window if that boundary would otherwise fall
// outside it.
func (h *Heartbeat) nextWake() time.Time {
	now := h.now()
	aligned := nextAligned(now, h.intervalMinutes())
	if h.withinActiveHours(aligned) {
		return aligned
	}
	return h.nextActiveWindowStart(now)
}

// nextAligned returns the next instant that is a multiple of interval
// minutes past midnight UTC (e.g. a 30-minute interval aligns to :00
// and :30), per spec §4.11's clock-alignment requirement.
func nextAligned(now time.Time, intervalMinutes int) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	step := time.Duration(intervalMinutes) * time.Minute
	elapsed := now.Sub(midnight)
	next := (elapsed/step + 1) * step
	return midnight.Add(next)
}

func (h *Heartbeat) withinActiveHours(t time.Time) bool {
	start := h.Config.Heartbeat.ActiveStart
	end := h.Config.Heartbeat.ActiveEnd
	if start == "" || end == "" {
		return true
	}
	startOfDay, err1 := config.ParseClock(start)
	endOfDay, err2 := config.ParseClock(end)
	if err1 != nil || err2 != nil {
		return true
	}
	return withinWindow(t, startOfDay, endOfDay)
}

func (h *Heartbeat) nextActiveWindowStart(now time.Time) time.Time {
	start, err := config.ParseClock(h.Config.Heartbeat.ActiveStart)
	if err != nil {
		return now.Add(time.Minute)
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	candidate := midnight.Add(start)
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

func withinWindow(now time.Time, start, end time.Duration) bool {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	sinceMidnight := now.Sub(midnight)
	if start <= end {
		return sinceMidnight >= start && sinceMidnight < end
	}
	return sinceMidnight >= start || sinceMidnight < end
}

// RunCycle executes both heartbeat phases once.
func (h *Heartbeat) RunCycle(ctx context.Context) {
	h.runGlobal(ctx)
	h.runProjects(ctx)
}

// runGlobal implements spec §4.11 step 1.
func (h *Heartbeat) runGlobal(ctx context.Context) {
	checklist, err := readChecklist(markers.GlobalChecklistPath(h.DataDir))
	if err != nil {
		h.Logger.Error("failed to read global heartbeat checklist", "error", err)
		return
	}
	if checklist == "" {
		return
	}

	active, err := projects.ListActive(h.DataDir)
	if err != nil {
		h.Logger.Error("failed to list active projects", "error", err)
		return
	}
	ownedByProject := make(map[string]bool, len(active))
	for _, p := range active {
		ownedByProject[strings.ToLower(p.Name)] = true
	}

	suppressed, err := projects.SuppressedSections(h.DataDir, "")
	if err != nil {
		h.Logger.Error("failed to read global suppress file", "error", err)
		return
	}

	sections := stripSections(splitSections(checklist), ownedByProject, suppressed)
	if len(sections) == 0 {
		return
	}

	groups := h.classifyGroups(ctx, sections)
	for name, items := range groups {
		h.runGroup(ctx, name, items)
	}
}

func (h *Heartbeat) runGroup(ctx context.Context, group, items string) {
	prompt := fmt.Sprintf(
		"You are performing an autonomous heartbeat self-check, domain group %q. "+
			"Current time (UTC): %s. Checklist items for this group:\n\n%s\n\n"+
			"Carry out whatever each item asks, then report. If nothing needs the user's "+
			"attention, respond with exactly %s and nothing else.",
		group, h.now().Format(time.RFC3339), items, okMarker,
	)
	result, err := h.Provider.Complete(ctx, provider.Context{
		SystemPrompt:   prompt,
		CurrentMessage: "Run the heartbeat check.",
		Model:          h.Selection.ModelFor(true),
	})
	if err != nil {
		h.Logger.Error("heartbeat group failed", "group", group, "error", err)
		return
	}
	h.deliver(ctx, "", result.Text)
}

// runProjects implements spec §4.11 step 2.
func (h *Heartbeat) runProjects(ctx context.Context) {
	active, err := projects.ListActive(h.DataDir)
	if err != nil {
		h.Logger.Error("failed to list active projects", "error", err)
		return
	}
	for _, p := range active {
		if strings.TrimSpace(p.HeartbeatChecklist) == "" {
			continue
		}
		h.runProject(ctx, p)
	}
}

func (h *Heartbeat) runProject(ctx context.Context, p *models.Project) {
	outcomes, err := h.Memory.RecentOutcomes(ctx, p.Name, outcomeWindow)
	if err != nil {
		h.Logger.Warn("failed to load recent outcomes", "project", p.Name, "error", err)
	}
	lessons, err := h.Memory.Lessons(ctx, p.Name)
	if err != nil {
		h.Logger.Warn("failed to load lessons", "project", p.Name, "error", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are performing project %q's heartbeat self-check. Current time (UTC): %s.\n\n", p.Name, h.now().Format(time.RFC3339))
	b.WriteString("Role:\n")
	b.WriteString(p.RoleInstructions)
	b.WriteString("\n\nChecklist:\n")
	b.WriteString(p.HeartbeatChecklist)
	if len(outcomes) > 0 {
		b.WriteString("\n\nRecent outcomes (last 24h):\n")
		for _, o := range outcomes {
			fmt.Fprintf(&b, "- score=%d domain=%s: %s\n", o.Score, o.Domain, o.Lesson)
		}
	}
	if len(lessons) > 0 {
		b.WriteString("\nLessons learned:\n")
		for _, l := range lessons {
			fmt.Fprintf(&b, "- [%s] %s (seen %dx)\n", l.Domain, l.Rule, l.Occurrences)
		}
	}
	fmt.Fprintf(&b, "\nIf nothing needs the user's attention, respond with exactly %s and nothing else.", okMarker)

	result, err := h.Provider.Complete(ctx, provider.Context{
		SystemPrompt:   b.String(),
		CurrentMessage: "Run the heartbeat check.",
		Model:          h.Selection.ModelFor(true),
	})
	if err != nil {
		h.Logger.Error("project heartbeat failed", "project", p.Name, "error", err)
		return
	}

	owner, ok := h.owner()
	env := &markers.Env{
		Ctx:               ctx,
		Memory:            h.Memory,
		Project:           p.Name,
		DataDir:           h.DataDir,
		Config:            h.Config,
		ConfigPath:        h.ConfigPath,
		HeartbeatInterval: h.HeartbeatInterval,
		NotifyHeartbeat:   h.NotifyHeartbeat,
		Logger:            h.Logger,
		Now:               h.Now,
	}
	if ok {
		env.Sender = owner.sender
		env.Channel = owner.channel
		env.ReplyTarget = owner.sender
	}
	cleaned, _, errs := markers.Dispatch(env, result.Text)
	for _, e := range errs {
		h.Logger.Warn("project heartbeat marker dispatch error", "project", p.Name, "error", e)
	}
	h.send(ctx, cleaned)
}

// deliver processes markers (project-untagged, per spec §4.11 step 1)
// then sends the cleaned text unless it was just HEARTBEAT_OK.
func (h *Heartbeat) deliver(ctx context.Context, project, text string) {
	owner, ok := h.owner()
	env := &markers.Env{
		Ctx:               ctx,
		Memory:            h.Memory,
		Project:           project,
		DataDir:           h.DataDir,
		Config:            h.Config,
		ConfigPath:        h.ConfigPath,
		HeartbeatInterval: h.HeartbeatInterval,
		NotifyHeartbeat:   h.NotifyHeartbeat,
		Logger:            h.Logger,
		Now:               h.Now,
	}
	if ok {
		env.Sender = owner.sender
		env.Channel = owner.channel
		env.ReplyTarget = owner.sender
	}
	cleaned, _, errs := markers.Dispatch(env, text)
	for _, e := range errs {
		h.Logger.Warn("heartbeat marker dispatch error", "error", e)
	}
	h.send(ctx, cleaned)
}

// identity is the single owner a personal-agent heartbeat report is
// delivered to: there is no inbound message to reply to, so markers and
// delivery target the first allowed user of the lowest-named configured
// channel (deterministic, and in practice there is normally just one).
type identity struct {
	channel models.ChannelType
	sender  string
}

func (h *Heartbeat) owner() (identity, bool) {
	if h.Config == nil {
		return identity{}, false
	}
	var names []string
	for name, cc := range h.Config.Channel {
		if len(cc.AllowedUsers) > 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return identity{}, false
	}
	sort.Strings(names)
	name := names[0]
	return identity{channel: models.ChannelType(name), sender: h.Config.Channel[name].AllowedUsers[0]}, true
}

// send delivers non-HEARTBEAT_OK text to the owner's channel, showing a
// typing indicator first if that channel's visibility mode calls for it.
func (h *Heartbeat) send(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, okMarker) {
		return
	}
	owner, ok := h.owner()
	if !ok {
		return
	}
	sender := h.Senders.For(string(owner.channel))
	if sender == nil {
		return
	}
	if ShouldSendTyping(ResolveVisibilityMode("", string(owner.channel))) {
		_ = sender.SendTyping(ctx, owner.sender)
	}
	if err := sender.Send(ctx, owner.sender, text); err != nil {
		h.Logger.Error("failed to deliver heartbeat report", "channel", owner.channel, "error", err)
	}
}
