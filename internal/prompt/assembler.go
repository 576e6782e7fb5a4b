package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/omegacore/omega/pkg/models"
)

// Options carries every per-turn input the assembler needs. Grounded
// on the teacher's SystemPromptOptions/buildSystemPrompt split in
// internal/gateway/system_prompt.go: a plain data struct assembled by
// the pipeline, and a pure function building the final string from it.
type Options struct {
	Now               time.Time
	Template          Template
	UserText          string
	Facts             []models.Fact
	ActiveProjectRole string
	PreviousStage     int
	WelcomePath       string
	PreferredLanguage string
}

// Build assembles the full system prompt for one turn: the
// identity/soul/system core, followed by keyword-gated capability
// sections, followed by the always-injected blocks (current time,
// active project role, profile, sandbox notice, and a one-shot
// onboarding hint on stage transition).
func Build(opts Options) string {
	var lines []string

	lines = append(lines, opts.Template.Identity, opts.Template.Soul, opts.Template.System)

	needs := DetectNeeds(opts.UserText)
	lines = append(lines, sectionsFor(needs)...)

	lines = append(lines, fmt.Sprintf("Current UTC time: %s.", opts.Now.UTC().Format(time.RFC3339)))

	if role := strings.TrimSpace(opts.ActiveProjectRole); role != "" {
		lines = append(lines, fmt.Sprintf("Active project instructions:\n%s", role))
	}

	if profile := BuildProfileBlock(opts.Facts); profile != "" {
		lines = append(lines, fmt.Sprintf("User profile:\n%s", profile))
	}

	lines = append(lines, sandboxNotice)

	language := ResolveLanguage(opts.PreferredLanguage, opts.UserText)
	stage := Stage(nonSystemFactCount(opts.Facts))
	if stage != opts.PreviousStage && opts.WelcomePath != "" {
		if hint, err := StageHint(opts.WelcomePath, language, stage); err == nil && hint != "" {
			lines = append(lines, hint)
		}
	}

	return strings.TrimSpace(strings.Join(nonEmpty(lines), "\n\n"))
}

func nonSystemFactCount(facts []models.Fact) int {
	n := 0
	for _, f := range facts {
		if !models.IsSystemFactKey(f.Key) {
			n++
		}
	}
	return n
}

func nonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}
