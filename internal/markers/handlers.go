package markers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/omegacore/omega/internal/config"
	"github.com/omegacore/omega/internal/errs"
	"github.com/omegacore/omega/internal/memory"
	"github.com/omegacore/omega/pkg/models"
)

func field(m Marker, i int) string {
	if i < len(m.Fields) {
		return m.Fields[i]
	}
	return ""
}

// parseDueAt interprets an ISO-8601 timestamp per spec §4.5: if it
// carries a zone offset, that offset is authoritative; otherwise it is
// read against the sender's stored timezone fact, falling back to UTC.
func parseDueAt(env *Env, raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	loc := time.UTC
	if env.Memory != nil {
		if fact, err := env.Memory.GetOne(env.Ctx, env.Sender, "timezone"); err == nil {
			if resolved, err := time.LoadLocation(fact.Value); err == nil {
				loc = resolved
			}
		}
	}
	const naiveLayout = "2006-01-02T15:04:05"
	t, err := time.ParseInLocation(naiveLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	return t.UTC(), nil
}

func parseRepeat(raw string) models.RepeatPattern {
	switch models.RepeatPattern(raw) {
	case models.RepeatDaily, models.RepeatWeekly, models.RepeatMonthly, models.RepeatWeekdays:
		return models.RepeatPattern(raw)
	default:
		return models.RepeatOnce
	}
}

func scheduleTask(env *Env, m Marker, taskType models.TaskType) error {
	if len(m.Fields) < 2 {
		return errs.MarkerInvalid(m.Name, "expected desc|timestamp[|repeat]")
	}
	desc := field(m, 0)
	dueAt, err := parseDueAt(env, field(m, 1))
	if err != nil {
		return errs.MarkerInvalid(m.Name, err.Error())
	}
	task := &models.Task{
		Channel:     env.Channel,
		SenderID:    env.Sender,
		ReplyTarget: env.ReplyTarget,
		Description: desc,
		DueAt:       dueAt,
		Type:        taskType,
		Repeat:      parseRepeat(field(m, 2)),
		Project:     env.Project,
	}
	_, err = env.Memory.Create(env.Ctx, task)
	if err != nil && !errors.Is(err, memory.ErrConflict) {
		return err
	}
	return nil
}

func handleSchedule(env *Env, m Marker) error {
	return scheduleTask(env, m, models.TaskReminder)
}

func handleScheduleAction(env *Env, m Marker) error {
	return scheduleTask(env, m, models.TaskAction)
}

func handleCancelTask(env *Env, m Marker) error {
	if m.Payload == "" {
		return errs.MarkerInvalid(m.Name, "expected an id prefix")
	}
	err := env.Memory.Cancel(env.Ctx, m.Payload)
	if errors.Is(err, memory.ErrNotFound) {
		return nil
	}
	return err
}

func handleUpdateTask(env *Env, m Marker) error {
	if len(m.Fields) < 1 || field(m, 0) == "" {
		return errs.MarkerInvalid(m.Name, "expected id-prefix|desc?|due?|repeat?")
	}
	fields := map[string]any{}
	if desc := field(m, 1); desc != "" {
		fields["description"] = desc
	}
	if due := field(m, 2); due != "" {
		dueAt, err := parseDueAt(env, due)
		if err != nil {
			return errs.MarkerInvalid(m.Name, err.Error())
		}
		fields["due_at"] = dueAt
	}
	if repeat := field(m, 3); repeat != "" {
		fields["repeat"] = parseRepeat(repeat)
	}
	err := env.Memory.Update(env.Ctx, field(m, 0), fields)
	if errors.Is(err, memory.ErrNotFound) {
		return nil
	}
	return err
}

// appendLine adds line to path, creating any missing parent directory.
// A trailing newline is always left in place.
func appendLine(path, line string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}

// appendLineUnlessPresent is appendLine with dedup: a line that already
// exists (trimmed, case-insensitive) is left alone.
func appendLineUnlessPresent(path, line string) error {
	lines, err := readLines(path)
	if err != nil {
		return err
	}
	for _, existing := range lines {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(line)) {
			return nil
		}
	}
	return appendLine(path, line)
}

// removeMatchingLine drops every line that case-insensitively equals
// needle once both are trimmed.
func removeMatchingLine(path, needle string) error {
	lines, err := readLines(path)
	if err != nil {
		return err
	}
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.EqualFold(strings.TrimSpace(line), strings.TrimSpace(needle)) {
			continue
		}
		kept = append(kept, line)
	}
	return os.WriteFile(path, []byte(strings.Join(kept, "\n")+"\n"), 0o644)
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimRight(string(data), "\n")
	if trimmed == "" {
		return nil, nil
	}
	return strings.Split(trimmed, "\n"), nil
}

func handleHeartbeatAdd(env *Env, m Marker) error {
	if m.Payload == "" {
		return errs.MarkerInvalid(m.Name, "expected item text")
	}
	return appendLineUnlessPresent(checklistPath(env), "- "+m.Payload)
}

func handleHeartbeatRemove(env *Env, m Marker) error {
	if m.Payload == "" {
		return errs.MarkerInvalid(m.Name, "expected item text")
	}
	return removeMatchingLine(checklistPath(env), "- "+m.Payload)
}

func handleHeartbeatInterval(env *Env, m Marker) error {
	minutes, err := strconv.Atoi(m.Payload)
	if err != nil || minutes < 1 || minutes > 1440 {
		return errs.MarkerInvalid(m.Name, "expected minutes between 1 and 1440")
	}
	if env.Config != nil {
		env.Config.Heartbeat.IntervalMinutes = minutes
		if env.ConfigPath != "" {
			if err := config.Save(env.ConfigPath, env.Config); err != nil {
				return fmt.Errorf("persist heartbeat interval: %w", err)
			}
		}
	}
	if env.HeartbeatInterval != nil {
		env.HeartbeatInterval.Store(int64(minutes))
	}
	if env.NotifyHeartbeat != nil {
		env.NotifyHeartbeat()
	}
	return nil
}

func handleHeartbeatSuppressSection(env *Env, m Marker) error {
	if m.Payload == "" {
		return errs.MarkerInvalid(m.Name, "expected a section name")
	}
	return appendLineUnlessPresent(suppressPath(env), m.Payload)
}

func handleHeartbeatUnsuppressSection(env *Env, m Marker) error {
	if m.Payload == "" {
		return errs.MarkerInvalid(m.Name, "expected a section name")
	}
	return removeMatchingLine(suppressPath(env), m.Payload)
}

func handleLangSwitch(env *Env, m Marker) error {
	if m.Payload == "" {
		return errs.MarkerInvalid(m.Name, "expected a language name")
	}
	return env.Memory.SetSystemFact(env.Ctx, env.Sender, "preferred_language", m.Payload)
}

func handlePersonality(env *Env, m Marker) error {
	if strings.EqualFold(m.Payload, "reset") {
		return env.Memory.DeleteSystemFact(env.Ctx, env.Sender, "personality")
	}
	if m.Payload == "" {
		return errs.MarkerInvalid(m.Name, "expected a description or \"reset\"")
	}
	return env.Memory.SetSystemFact(env.Ctx, env.Sender, "personality", m.Payload)
}

func handleForgetConversation(env *Env, m Marker) error {
	if env.ConversationID != 0 {
		if err := env.Memory.Close(env.Ctx, env.ConversationID, "(cleared by FORGET_CONVERSATION)"); err != nil {
			return err
		}
	}
	return env.Memory.UpsertSession(env.Ctx, &models.ProviderSession{
		Channel: env.Channel, SenderID: env.Sender, Project: env.Project, SessionID: "",
	})
}

func handlePurgeFacts(env *Env, m Marker) error {
	return env.Memory.PurgeNonSystem(env.Ctx, env.Sender)
}

func handleProjectActivate(env *Env, m Marker) error {
	if m.Payload == "" {
		return errs.MarkerInvalid(m.Name, "expected a project name")
	}
	if err := env.Memory.SetSystemFact(env.Ctx, env.Sender, "active_project", m.Payload); err != nil {
		return err
	}
	err := os.Remove(ProjectDisabledPath(env.DataDir, m.Payload))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func handleProjectDeactivate(env *Env, m Marker) error {
	active, err := env.Memory.GetOne(env.Ctx, env.Sender, "active_project")
	if err != nil && !errors.Is(err, memory.ErrNotFound) {
		return err
	}
	if err := env.Memory.DeleteSystemFact(env.Ctx, env.Sender, "active_project"); err != nil {
		return err
	}
	if active == nil || active.Value == "" {
		return nil
	}
	dir := ProjectDir(env.DataDir, active.Value)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(ProjectDisabledPath(env.DataDir, active.Value), nil, 0o644)
}

// appendUnderHeading appends text as a bullet under heading in path,
// creating the heading at the end of the file if it isn't present yet.
func appendUnderHeading(path, heading, text string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		data = nil
	} else if err != nil {
		return err
	}
	content := string(data)
	if !strings.Contains(content, heading) {
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		content += "\n" + heading + "\n"
	}
	content = strings.TrimRight(content, "\n") + "\n- " + text + "\n"
	return os.WriteFile(path, []byte(content), 0o644)
}

func handleSkillImprove(env *Env, m Marker) error {
	if len(m.Fields) < 2 || field(m, 0) == "" {
		return errs.MarkerInvalid(m.Name, "expected skill-name|lesson")
	}
	return appendUnderHeading(SkillPath(env.DataDir, field(m, 0)), "## Lessons Learned", field(m, 1))
}

func handleBugReport(env *Env, m Marker) error {
	if m.Payload == "" {
		return errs.MarkerInvalid(m.Name, "expected bug text")
	}
	stamp := env.now().UTC().Format(time.RFC3339)
	return appendLine(BugReportPath(env.DataDir), fmt.Sprintf("- [%s] %s", stamp, m.Payload))
}

func handleReward(env *Env, m Marker) error {
	if len(m.Fields) < 3 {
		return errs.MarkerInvalid(m.Name, "expected score|domain|lesson")
	}
	score, err := strconv.Atoi(field(m, 0))
	if err != nil || score < -1 || score > 1 {
		return errs.MarkerInvalid(m.Name, "score must be -1, 0, or 1")
	}
	return env.Memory.AppendOutcome(env.Ctx, &models.Outcome{
		SenderID: env.Sender,
		Project:  env.Project,
		Score:    score,
		Domain:   field(m, 1),
		Lesson:   field(m, 2),
	})
}

func handleLesson(env *Env, m Marker) error {
	if len(m.Fields) < 2 {
		return errs.MarkerInvalid(m.Name, "expected domain|rule")
	}
	return env.Memory.UpsertLesson(env.Ctx, &models.Lesson{
		SenderID: env.Sender,
		Project:  env.Project,
		Domain:   field(m, 0),
		Rule:     field(m, 1),
	})
}

func handleBuildProposal(env *Env, m Marker) error {
	if m.Payload == "" {
		return errs.MarkerInvalid(m.Name, "expected a description")
	}
	return env.Memory.SetSystemFact(env.Ctx, env.Sender, "pending_build_request", m.Payload)
}

// handleActionOutcome is a no-op in generic dispatch: the scheduler's
// action-task flow inspects ACTION_OUTCOME directly via Extract before
// handing the rest of the response to Dispatch, since deciding
// retry-vs-complete needs the task id Env doesn't carry.
func handleActionOutcome(env *Env, m Marker) error { return nil }

// handleSilent and handleWhatsAppQR are no-ops: Dispatch derives their
// Outcome flags from the marker name itself once the handler succeeds.
func handleSilent(env *Env, m Marker) error     { return nil }
func handleWhatsAppQR(env *Env, m Marker) error { return nil }
