// Package prompt assembles the system prompt handed to the provider on
// each turn: a template-driven identity/soul/system core, keyword-gated
// capability sections, and always-injected context blocks, per spec
// §4.7.
package prompt

import (
	"os"
	"strings"
)

// Template holds the three composable sections read from
// prompts/SYSTEM_PROMPT.md.
type Template struct {
	Identity string
	Soul     string
	System   string
}

const (
	headingIdentity = "## Identity"
	headingSoul     = "## Soul"
	headingSystem   = "## System"
)

// defaultTemplate is used for any section missing from the template
// file, or when the template file doesn't exist at all.
var defaultTemplate = Template{
	Identity: "You are Omega, a personal AI agent running continuously on behalf of one person.",
	Soul:     "Be direct, warm, and economical with words. Prefer action over asking permission for reversible things; confirm before anything destructive or hard to undo.",
	System:   "You have memory, scheduled tasks, and a set of optional projects and skills. Use the marker protocol documented in your tool instructions to schedule reminders, manage projects, and record lessons.",
}

// LoadTemplate reads path (typically SystemPromptTemplatePath(dataDir))
// and overlays any sections it defines onto defaultTemplate. A missing
// file is not an error — it just means every section falls back.
func LoadTemplate(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return defaultTemplate, nil
	}
	if err != nil {
		return Template{}, err
	}
	return parseTemplate(string(data)), nil
}

func parseTemplate(text string) Template {
	sections := splitHeadingSections(text)
	tpl := defaultTemplate
	if v, ok := sections[headingIdentity]; ok && v != "" {
		tpl.Identity = v
	}
	if v, ok := sections[headingSoul]; ok && v != "" {
		tpl.Soul = v
	}
	if v, ok := sections[headingSystem]; ok && v != "" {
		tpl.System = v
	}
	return tpl
}

// splitHeadingSections maps each "## Heading" line to the trimmed text
// that follows it up to the next "## " heading.
func splitHeadingSections(text string) map[string]string {
	sections := make(map[string]string)
	lines := strings.Split(text, "\n")

	var current string
	var buf []string
	flush := func() {
		if current != "" {
			sections[current] = strings.TrimSpace(strings.Join(buf, "\n"))
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") {
			flush()
			current = trimmed
			buf = nil
			continue
		}
		buf = append(buf, line)
	}
	flush()

	return sections
}
