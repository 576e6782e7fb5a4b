package heartbeat

import (
	"context"
	"os"
	"strings"

	"github.com/omegacore/omega/internal/provider"
)

// readChecklist returns the trimmed contents of a checklist file, or
// "" if it does not exist.
func readChecklist(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// section is one "## Heading" block of a checklist file, or the
// preamble before the first heading (name == "").
type section struct {
	name string
	body string
}

// splitSections breaks a checklist file into its "## " blocks, per
// spec §4.11's "strip sections whose names match..." wording — a
// section is everything from one "## " line up to (not including) the
// next.
func splitSections(text string) []section {
	lines := strings.Split(text, "\n")
	var sections []section
	var cur *section
	flush := func() {
		if cur != nil {
			cur.body = strings.TrimSpace(cur.body)
			if cur.body != "" {
				sections = append(sections, *cur)
			}
		}
	}
	for _, line := range lines {
		if name, ok := strings.CutPrefix(strings.TrimSpace(line), "## "); ok {
			flush()
			cur = &section{name: strings.TrimSpace(name), body: line + "\n"}
			continue
		}
		if cur == nil {
			cur = &section{body: ""}
		}
		cur.body += line + "\n"
	}
	flush()
	return sections
}

// stripSections drops any section whose name matches (case-insensitive)
// an entry in any of the given name sets.
func stripSections(sections []section, sets ...map[string]bool) []section {
	var kept []section
	for _, sec := range sections {
		if sec.name == "" {
			kept = append(kept, sec)
			continue
		}
		drop := false
		lower := strings.ToLower(sec.name)
		for _, set := range sets {
			if set[lower] {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, sec)
		}
	}
	return kept
}

func joinSections(sections []section) string {
	parts := make([]string, 0, len(sections))
	for _, sec := range sections {
		parts = append(parts, sec.body)
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

const routingPrompt = "You are sorting a self-check checklist into a small number of domain groups so each can be " +
	"executed independently (e.g. \"inbox\", \"finance\", \"health\"). Output one line per section in the form " +
	"\"<group>: <section name>\", lowercase group names, no commentary."

// classifyGroups implements spec §4.11 step 1's "classify checklist
// items into domain groups (via a short routing LLM call or DIRECT for
// small/single-domain lists)": a single remaining section runs direct,
// multiple sections are routed by a fast-tier provider call keyed by
// section name, falling back to one combined group if routing produces
// nothing usable.
func (h *Heartbeat) classifyGroups(ctx context.Context, sections []section) map[string]string {
	if len(sections) <= 1 {
		return map[string]string{"heartbeat": joinSections(sections)}
	}

	names := make([]string, 0, len(sections))
	byName := make(map[string]section, len(sections))
	for _, sec := range sections {
		if sec.name == "" {
			continue
		}
		names = append(names, sec.name)
		byName[strings.ToLower(sec.name)] = sec
	}
	if len(names) == 0 {
		return map[string]string{"heartbeat": joinSections(sections)}
	}

	result, err := h.Provider.Complete(ctx, provider.Context{
		SystemPrompt:   routingPrompt,
		CurrentMessage: "Sections:\n" + strings.Join(names, "\n"),
		Model:          h.Selection.ModelFor(true),
	})
	if err != nil {
		return map[string]string{"heartbeat": joinSections(sections)}
	}

	groups := make(map[string][]section)
	assigned := make(map[string]bool)
	for _, line := range strings.Split(result.Text, "\n") {
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		group := strings.ToLower(strings.TrimSpace(line[:idx]))
		secName := strings.ToLower(strings.TrimSpace(line[idx+1:]))
		sec, ok := byName[secName]
		if group == "" || !ok {
			continue
		}
		groups[group] = append(groups[group], sec)
		assigned[secName] = true
	}

	// Anything the router skipped still has to run; fold it into a
	// catch-all group rather than silently dropping a checklist item.
	var leftover []section
	for lower, sec := range byName {
		if !assigned[lower] {
			leftover = append(leftover, sec)
		}
	}
	if len(leftover) > 0 {
		groups["general"] = append(groups["general"], leftover...)
	}

	if len(groups) == 0 {
		return map[string]string{"heartbeat": joinSections(sections)}
	}

	out := make(map[string]string, len(groups))
	for name, secs := range groups {
		out[name] = joinSections(secs)
	}
	return out
}
