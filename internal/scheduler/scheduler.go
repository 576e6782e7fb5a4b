// Package scheduler implements spec §4.9's due-task poller (C9): every
// poll_interval_secs, deliver reminders and run autonomous actions for
// tasks whose due_at has arrived, deferring anything that lands inside
// a configured quiet-hours window.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/omegacore/omega/internal/channels"
	"github.com/omegacore/omega/internal/config"
	"github.com/omegacore/omega/internal/markers"
	"github.com/omegacore/omega/internal/memory"
	"github.com/omegacore/omega/internal/provider"
	"github.com/omegacore/omega/pkg/models"
)

const deferBuffer = time.Minute

// Scheduler polls for due tasks and executes them.
type Scheduler struct {
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

	// wake lets HEARTBEAT_INTERVAL or shutdown interrupt a poll sleep
	// early, per spec §4.9's "reacts to a shared notifier" requirement.
	wake chan struct{}
}

// New returns a Scheduler ready to Run.
func New(s Scheduler) *Scheduler {
	if s.Now == nil {
		s.Now = time.Now
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	s.wake = make(chan struct{}, 1)
	return &s
}

// Notify wakes a sleeping poll loop early.
func (s *Scheduler) Notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) pollInterval() time.Duration {
	secs := s.Config.Scheduler.PollIntervalSecs
	if secs <= 0 {
		secs = 60
	}
	return time.Duration(secs) * time.Second
}

// Run polls until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		if err := s.pollOnce(ctx); err != nil {
			s.Logger.Error("scheduler poll failed", "error", err)
		}

		timer := time.NewTimer(s.pollInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (s *Scheduler) pollOnce(ctx context.Context) error {
	due, err := s.Memory.GetDue(ctx, s.now())
	if err != nil {
		return err
	}
	for _, task := range due {
		if s.deferIfQuietHours(ctx, task) {
			continue
		}
		if task.Type == models.TaskAction {
			s.runAction(ctx, task)
		} else {
			s.runReminder(ctx, task)
		}
	}
	return nil
}

func (s *Scheduler) now() time.Time { return s.Now().UTC() }

// deferIfQuietHours implements spec §4.9 step 2: if the configured
// active_start..active_end UTC window excludes now, push due_at to one
// minute (deferBuffer) past the next active_start and leave the task
// pending for a later poll.
func (s *Scheduler) deferIfQuietHours(ctx context.Context, task *models.Task) bool {
	start := s.Config.Heartbeat.ActiveStart
	end := s.Config.Heartbeat.ActiveEnd
	if start == "" || end == "" {
		return false
	}
	startOfDay, err1 := config.ParseClock(start)
	endOfDay, err2 := config.ParseClock(end)
	if err1 != nil || err2 != nil {
		return false
	}

	now := s.now()
	if withinWindow(now, startOfDay, endOfDay) {
		return false
	}

	next := nextWindowStart(now, startOfDay)
	if err := s.Memory.Defer(ctx, task.ID, next); err != nil {
		s.Logger.Error("failed to defer task for quiet hours", "task", task.ID, "error", err)
	}
	return true
}

func withinWindow(now time.Time, start, end time.Duration) bool {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	sinceMidnight := now.Sub(midnight)
	if start <= end {
		return sinceMidnight >= start && sinceMidnight < end
	}
	// Window wraps past midnight (e.g. 22:00..06:00).
	return sinceMidnight >= start || sinceMidnight < end
}

func nextWindowStart(now time.Time, start time.Duration) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	candidate := midnight.Add(start)
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate.Add(deferBuffer)
}

// runReminder implements spec §4.9 step 3.
func (s *Scheduler) runReminder(ctx context.Context, task *models.Task) {
	sender := s.Senders.For(string(task.Channel))
	if sender != nil {
		if err := sender.Send(ctx, task.ReplyTarget, fmt.Sprintf("Reminder: %s", task.Description)); err != nil {
			s.Logger.Error("failed to deliver reminder", "task", task.ID, "error", err)
			return
		}
	}
	if err := s.Memory.Complete(ctx, task.ID); err != nil {
		s.Logger.Error("failed to complete reminder task", "task", task.ID, "error", err)
	}
}

const actionDeliveryInstructions = "This is an autonomous action task you committed to performing, not a conversational reply. " +
	"Carry it out, then verify the result actually happened before reporting success. " +
	"End your response with a line ACTION_OUTCOME: PASS if verified, or ACTION_OUTCOME: FAIL: <reason> if it could not be completed."

// runAction implements spec §4.9 step 4: a model_complex call with a
// verification directive, ACTION_OUTCOME parsed from the reply to
// decide retry vs completion, and every other marker in the response
// processed inheriting the task's project tag.
func (s *Scheduler) runAction(ctx context.Context, task *models.Task) {
	result, err := s.Provider.Complete(ctx, provider.Context{
		SystemPrompt:   actionDeliveryInstructions,
		CurrentMessage: task.Description,
		Model:          s.Selection.ModelFor(false),
	})
	if err != nil {
		s.failTask(ctx, task, err.Error())
		return
	}

	outcome, reason := parseActionOutcome(result.Text)

	env := &markers.Env{
		Ctx:               ctx,
		Memory:            s.Memory,
		Sender:            task.SenderID,
		Channel:           task.Channel,
		Project:           task.Project,
		ReplyTarget:       task.ReplyTarget,
		DataDir:           s.DataDir,
		Config:            s.Config,
		ConfigPath:        s.ConfigPath,
		HeartbeatInterval: s.HeartbeatInterval,
		NotifyHeartbeat:   s.NotifyHeartbeat,
		Logger:            s.Logger,
		Now:               s.Now,
	}
	cleaned, _, errs := markers.Dispatch(env, result.Text)
	for _, e := range errs {
		s.Logger.Warn("action marker dispatch error", "task", task.ID, "error", e)
	}

	switch outcome {
	case actionPass:
		if err := s.Memory.Complete(ctx, task.ID); err != nil {
			s.Logger.Error("failed to complete action task", "task", task.ID, "error", err)
		}
		if sender := s.Senders.For(string(task.Channel)); sender != nil && strings.TrimSpace(cleaned) != "" {
			_ = sender.Send(ctx, task.ReplyTarget, cleaned)
		}
	case actionFail:
		s.failTask(ctx, task, reason)
	default:
		// No ACTION_OUTCOME line: treat as a failure to verify rather
		// than silently marking it done.
		s.failTask(ctx, task, "no ACTION_OUTCOME reported")
	}
}

func (s *Scheduler) failTask(ctx context.Context, task *models.Task, reason string) {
	if err := s.Memory.Fail(ctx, task.ID); err != nil {
		s.Logger.Error("failed to record task failure", "task", task.ID, "error", err)
	}
	s.Logger.Warn("action task failed", "task", task.ID, "reason", reason)
}

type actionResult int

const (
	actionUnknown actionResult = iota
	actionPass
	actionFail
)

// parseActionOutcome scans response text for an ACTION_OUTCOME marker
// directly via markers.Extract rather than full Dispatch, since this
// one marker decides control flow (retry vs complete) before the rest
// of the response's markers are processed.
func parseActionOutcome(text string) (actionResult, string) {
	for _, m := range markers.Extract(text) {
		if m.Name != "ACTION_OUTCOME" {
			continue
		}
		if strings.EqualFold(m.Payload, "PASS") {
			return actionPass, ""
		}
		if len(m.Payload) >= 4 && strings.EqualFold(m.Payload[:4], "FAIL") {
			reason := strings.TrimSpace(strings.TrimPrefix(m.Payload[4:], ":"))
			return actionFail, reason
		}
	}
	return actionUnknown, ""
}
