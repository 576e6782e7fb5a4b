package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/omegacore/omega/pkg/models"
)

// Need is one capability a caller of BuildContext asks the store to
// include, per spec §4.2's need set.
type Need string

const (
	NeedScheduling Need = "scheduling"
	NeedRecall     Need = "recall"
	NeedTasks      Need = "tasks"
	NeedProjects   Need = "projects"
	NeedBuilds     Need = "builds"
	NeedMeta       Need = "meta"
	NeedProfile    Need = "profile"
	NeedSummaries  Need = "summaries"
	NeedOutcomes   Need = "outcomes"
	NeedHeartbeat  Need = "heartbeat"
)

// Needs is the capability set BuildContext consults to decide what to
// assemble; a zero value includes nothing beyond the always-present
// user profile.
type Needs map[Need]bool

// Has reports whether a capability was requested.
func (n Needs) Has(need Need) bool { return n[need] }

const (
	recentSummaryCount = 3
	recallLimit        = 5
	outcomesWindow     = 24 * time.Hour
	historyLimit       = 50
)

// BuildRequest carries the inputs BuildContext needs beyond what the
// store already knows: the active project's ROLE.md text (owned by the
// project loader, not this package) and, when NeedRecall is set, the
// free-text query to search past messages for.
type BuildRequest struct {
	Sender         string
	Channel        models.ChannelType
	ActiveProject  string
	ConversationID int64
	Needs          Needs
	RecallQuery    string
	ProjectRole    string
	OnboardingHint string
}

// Context is the assembled result: a system prompt built from every
// section the request's Needs asked for, plus the active conversation's
// recent history.
type Context struct {
	SystemPrompt string
	History      []*models.Message
}

// BuildContext assembles the system prompt and conversation history for
// one pipeline pass, per spec §4.2. The user profile is always
// included; every other section is included only when its
// corresponding Need is set. Summaries, outcomes and lessons are scoped
// to req.ActiveProject; recall searches all of the sender's messages and
// the task section lists the sender's tasks from every project.
func (s *Store) BuildContext(ctx context.Context, req BuildRequest) (*Context, error) {
	var sections []string

	facts, err := s.GetAll(ctx, req.Sender)
	if err != nil {
		return nil, err
	}
	if profile := renderProfile(facts); profile != "" {
		sections = append(sections, profile)
	}

	if req.Needs.Has(NeedSummaries) {
		summaries, err := s.RecentSummaries(ctx, req.Sender, req.ActiveProject, recentSummaryCount)
		if err != nil {
			return nil, err
		}
		if section := renderSummaries(summaries); section != "" {
			sections = append(sections, section)
		}
	}

	if req.Needs.Has(NeedRecall) && strings.TrimSpace(req.RecallQuery) != "" {
		recalled, err := s.SearchFTS(ctx, req.Sender, req.RecallQuery, recallLimit)
		if err != nil {
			return nil, err
		}
		if section := renderRecall(recalled); section != "" {
			sections = append(sections, section)
		}
	}

	if req.Needs.Has(NeedTasks) || req.Needs.Has(NeedScheduling) {
		due, err := s.GetDue(ctx, time.Now().UTC().Add(7*24*time.Hour))
		if err != nil {
			return nil, err
		}
		if section := renderTasks(due, req.Sender); section != "" {
			sections = append(sections, section)
		}
	}

	if req.Needs.Has(NeedOutcomes) {
		outcomes, err := s.RecentOutcomes(ctx, req.ActiveProject, outcomesWindow)
		if err != nil {
			return nil, err
		}
		if section := renderOutcomes(outcomes); section != "" {
			sections = append(sections, section)
		}

		lessons, err := s.Lessons(ctx, req.ActiveProject)
		if err != nil {
			return nil, err
		}
		if section := renderLessons(lessons); section != "" {
			sections = append(sections, section)
		}
	}

	if req.Needs.Has(NeedProjects) && strings.TrimSpace(req.ProjectRole) != "" {
		sections = append(sections, "## Active project\n"+req.ProjectRole)
	}

	if req.OnboardingHint != "" {
		sections = append(sections, req.OnboardingHint)
	}

	history, err := s.History(ctx, req.ConversationID, historyLimit)
	if err != nil {
		return nil, err
	}

	return &Context{
		SystemPrompt: strings.Join(sections, "\n\n"),
		History:      history,
	}, nil
}

func renderProfile(facts []*models.Fact) string {
	if len(facts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## What you know about this person\n")
	for _, f := range facts {
		fmt.Fprintf(&b, "- %s: %s\n", f.Key, f.Value)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderSummaries(summaries []string) string {
	if len(summaries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Recent conversation summaries\n")
	for _, summary := range summaries {
		fmt.Fprintf(&b, "- %s\n", summary)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderRecall(messages []*models.Message) string {
	if len(messages) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Related past messages\n")
	for _, m := range messages {
		fmt.Fprintf(&b, "- [%s] %s\n", m.Timestamp.Format(time.RFC3339), m.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderTasks(tasks []*models.Task, sender string) string {
	var mine []*models.Task
	for _, t := range tasks {
		if t.SenderID == sender {
			mine = append(mine, t)
		}
	}
	if len(mine) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Pending tasks\n")
	for _, t := range mine {
		fmt.Fprintf(&b, "- [%d] %s (due %s)\n", t.ID, t.Description, t.DueAt.Format(time.RFC3339))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderOutcomes(outcomes []*models.Outcome) string {
	if len(outcomes) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Recent outcomes\n")
	for _, o := range outcomes {
		fmt.Fprintf(&b, "- [%s] %+d %s: %s\n", o.Domain, o.Score, o.Timestamp.Format(time.RFC3339), o.Lesson)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderLessons(lessons []*models.Lesson) string {
	if len(lessons) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Lessons learned\n")
	for _, l := range lessons {
		fmt.Fprintf(&b, "- (%s, seen %dx) %s\n", l.Domain, l.Occurrences, l.Rule)
	}
	return strings.TrimRight(b.String(), "\n")
}
