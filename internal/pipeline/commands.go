package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/omegacore/omega/internal/projects"
	"github.com/omegacore/omega/pkg/models"
)

// command is one of the 17 built-in "/"-prefixed handlers spec §4.8
// step 6 dispatches to. It returns the reply text to send; an empty
// string sends nothing.
type command func(ctx context.Context, p *Pipeline, in models.IncomingMessage, args string) (string, error)

var commandTable = map[string]command{
	"help":        cmdHelp,
	"status":      cmdStatus,
	"whoami":      cmdWhoAmI,
	"ping":        cmdPing,
	"forget":      cmdForget,
	"purge":       cmdPurge,
	"project":     cmdProjectActivate,
	"project_off": cmdProjectDeactivate,
	"projects":    cmdProjectsList,
	"tasks":       cmdTasks,
	"cancel":      cmdCancelTask,
	"skills":      cmdSkills,
	"lang":        cmdLang,
	"personality": cmdPersonality,
	"summary":     cmdSummary,
	"outcomes":    cmdOutcomes,
	"lessons":     cmdLessons,
}

// parseCommand splits "/name rest of args" into its lowercased name
// and trimmed argument string. ok is false for text that doesn't start
// with "/".
func parseCommand(text string) (name, args string, ok bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return "", "", false
	}
	trimmed = trimmed[1:]
	if sp := strings.IndexAny(trimmed, " \t\n"); sp >= 0 {
		return strings.ToLower(trimmed[:sp]), strings.TrimSpace(trimmed[sp+1:]), true
	}
	return strings.ToLower(trimmed), "", true
}

func cmdHelp(ctx context.Context, p *Pipeline, in models.IncomingMessage, args string) (string, error) {
	names := make([]string, 0, len(commandTable))
	for name := range commandTable {
		names = append(names, "/"+name)
	}
	return "Available commands: " + strings.Join(names, ", "), nil
}

func cmdStatus(ctx context.Context, p *Pipeline, in models.IncomingMessage, args string) (string, error) {
	project, err := p.activeProject(ctx, in.SenderID)
	if err != nil {
		return "", err
	}
	if project == "" {
		project = "(none)"
	}
	return fmt.Sprintf("provider: %s\nactive project: %s\nuptime: %s",
		p.Provider.Name(), project, time.Since(p.startedAt).Round(time.Second)), nil
}

func cmdWhoAmI(ctx context.Context, p *Pipeline, in models.IncomingMessage, args string) (string, error) {
	return fmt.Sprintf("channel: %s\nsender_id: %s\nname: %s", in.Channel, in.SenderID, in.SenderName), nil
}

func cmdPing(ctx context.Context, p *Pipeline, in models.IncomingMessage, args string) (string, error) {
	return "pong", nil
}

func cmdForget(ctx context.Context, p *Pipeline, in models.IncomingMessage, args string) (string, error) {
	project, err := p.activeProject(ctx, in.SenderID)
	if err != nil {
		return "", err
	}
	conv, err := p.Memory.GetOrCreateActive(ctx, in.Channel, in.SenderID, project)
	if err != nil {
		return "", err
	}
	summary, err := p.summarizeConversation(ctx, conv)
	if err != nil {
		return "", err
	}
	if err := p.Memory.Close(ctx, conv.ID, summary); err != nil {
		return "", err
	}
	return "Conversation forgotten. Starting fresh.", nil
}

func cmdPurge(ctx context.Context, p *Pipeline, in models.IncomingMessage, args string) (string, error) {
	if err := p.Memory.PurgeNonSystem(ctx, in.SenderID); err != nil {
		return "", err
	}
	return "All learned facts purged.", nil
}

func cmdProjectActivate(ctx context.Context, p *Pipeline, in models.IncomingMessage, args string) (string, error) {
	name := strings.TrimSpace(args)
	if name == "" {
		return "Usage: /project <name>", nil
	}
	proj, err := projects.Load(p.DataDir, name)
	if err != nil {
		return "", err
	}
	if proj == nil {
		return fmt.Sprintf("No such project: %s", name), nil
	}
	if err := p.Memory.SetSystemFact(ctx, in.SenderID, "active_project", name); err != nil {
		return "", err
	}
	return fmt.Sprintf("Switched to project %s.", name), nil
}

func cmdProjectDeactivate(ctx context.Context, p *Pipeline, in models.IncomingMessage, args string) (string, error) {
	if err := p.Memory.DeleteSystemFact(ctx, in.SenderID, "active_project"); err != nil {
		return "", err
	}
	return "Back to general conversation.", nil
}

func cmdProjectsList(ctx context.Context, p *Pipeline, in models.IncomingMessage, args string) (string, error) {
	all, err := projects.ListActive(p.DataDir)
	if err != nil {
		return "", err
	}
	if len(all) == 0 {
		return "No active projects.", nil
	}
	names := make([]string, len(all))
	for i, proj := range all {
		names[i] = proj.Name
	}
	return "Active projects: " + strings.Join(names, ", "), nil
}

func cmdTasks(ctx context.Context, p *Pipeline, in models.IncomingMessage, args string) (string, error) {
	due, err := p.Memory.GetDue(ctx, time.Now().UTC().Add(90*24*time.Hour))
	if err != nil {
		return "", err
	}
	var lines []string
	for _, t := range due {
		if t.SenderID != in.SenderID {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%d] %s (due %s)", t.ID, t.Description, t.DueAt.Format(time.RFC3339)))
	}
	if len(lines) == 0 {
		return "No pending tasks.", nil
	}
	return strings.Join(lines, "\n"), nil
}

func cmdCancelTask(ctx context.Context, p *Pipeline, in models.IncomingMessage, args string) (string, error) {
	idPrefix := strings.TrimSpace(args)
	if idPrefix == "" {
		return "Usage: /cancel <task-id>", nil
	}
	if err := p.Memory.Cancel(ctx, idPrefix); err != nil {
		return "", err
	}
	return "Task canceled.", nil
}

func cmdSkills(ctx context.Context, p *Pipeline, in models.IncomingMessage, args string) (string, error) {
	all, err := p.Skills.Skills()
	if err != nil {
		return "", err
	}
	if len(all) == 0 {
		return "No skills installed.", nil
	}
	var lines []string
	for _, s := range all {
		lines = append(lines, fmt.Sprintf("%s — %s", s.Name, s.Description))
	}
	return strings.Join(lines, "\n"), nil
}

func cmdLang(ctx context.Context, p *Pipeline, in models.IncomingMessage, args string) (string, error) {
	lang := strings.ToLower(strings.TrimSpace(args))
	if lang == "" {
		return "Usage: /lang <language>", nil
	}
	if err := p.Memory.SetSystemFact(ctx, in.SenderID, "preferred_language", lang); err != nil {
		return "", err
	}
	return fmt.Sprintf("Language set to %s.", lang), nil
}

func cmdPersonality(ctx context.Context, p *Pipeline, in models.IncomingMessage, args string) (string, error) {
	text := strings.TrimSpace(args)
	if text == "" {
		return "Usage: /personality <description>", nil
	}
	if err := p.Memory.SetSystemFact(ctx, in.SenderID, "personality", text); err != nil {
		return "", err
	}
	return "Personality updated.", nil
}

func cmdSummary(ctx context.Context, p *Pipeline, in models.IncomingMessage, args string) (string, error) {
	project, err := p.activeProject(ctx, in.SenderID)
	if err != nil {
		return "", err
	}
	summaries, err := p.Memory.RecentSummaries(ctx, in.SenderID, project, 1)
	if err != nil {
		return "", err
	}
	if len(summaries) == 0 {
		return "No summary yet.", nil
	}
	return summaries[0], nil
}

func cmdOutcomes(ctx context.Context, p *Pipeline, in models.IncomingMessage, args string) (string, error) {
	project, err := p.activeProject(ctx, in.SenderID)
	if err != nil {
		return "", err
	}
	outcomes, err := p.Memory.RecentOutcomes(ctx, project, 24*time.Hour)
	if err != nil {
		return "", err
	}
	if len(outcomes) == 0 {
		return "No recent outcomes.", nil
	}
	var lines []string
	for _, o := range outcomes {
		lines = append(lines, fmt.Sprintf("%+d %s: %s", o.Score, o.Domain, o.Lesson))
	}
	return strings.Join(lines, "\n"), nil
}

func cmdLessons(ctx context.Context, p *Pipeline, in models.IncomingMessage, args string) (string, error) {
	project, err := p.activeProject(ctx, in.SenderID)
	if err != nil {
		return "", err
	}
	lessons, err := p.Memory.Lessons(ctx, project)
	if err != nil {
		return "", err
	}
	if len(lessons) == 0 {
		return "No lessons learned yet.", nil
	}
	var lines []string
	for _, l := range lessons {
		lines = append(lines, fmt.Sprintf("(%s, seen %dx) %s", l.Domain, l.Occurrences, l.Rule))
	}
	return strings.Join(lines, "\n"), nil
}
