package markers

import (
	"regexp"
	"sort"
	"strings"
)

// spec describes one catalog entry: its name, whether it carries a
// payload, and the handler that implements its effect.
type spec struct {
	name    string
	bareTag bool
	handler Handler
}

var catalog = map[string]spec{}

func register(name string, bareTag bool, h Handler) {
	catalog[name] = spec{name: name, bareTag: bareTag, handler: h}
}

func init() {
	register("SCHEDULE", false, handleSchedule)
	register("SCHEDULE_ACTION", false, handleScheduleAction)
	register("CANCEL_TASK", false, handleCancelTask)
	register("UPDATE_TASK", false, handleUpdateTask)
	register("HEARTBEAT_ADD", false, handleHeartbeatAdd)
	register("HEARTBEAT_REMOVE", false, handleHeartbeatRemove)
	register("HEARTBEAT_INTERVAL", false, handleHeartbeatInterval)
	register("HEARTBEAT_SUPPRESS_SECTION", false, handleHeartbeatSuppressSection)
	register("HEARTBEAT_UNSUPPRESS_SECTION", false, handleHeartbeatUnsuppressSection)
	register("LANG_SWITCH", false, handleLangSwitch)
	register("PERSONALITY", false, handlePersonality)
	register("FORGET_CONVERSATION", true, handleForgetConversation)
	register("PURGE_FACTS", true, handlePurgeFacts)
	register("PROJECT_ACTIVATE", false, handleProjectActivate)
	register("PROJECT_DEACTIVATE", true, handleProjectDeactivate)
	register("SKILL_IMPROVE", false, handleSkillImprove)
	register("BUG_REPORT", false, handleBugReport)
	register("REWARD", false, handleReward)
	register("LESSON", false, handleLesson)
	register("BUILD_PROPOSAL", false, handleBuildProposal)
	register("ACTION_OUTCOME", false, handleActionOutcome)
	register("SILENT", true, handleSilent)
	register("WHATSAPP_QR", true, handleWhatsAppQR)
}

// extractPattern matches any known marker name at the start of a line,
// optionally followed by ": payload". Names are ordered longest-first
// before being joined so that, e.g., SCHEDULE_ACTION is tried before
// the SCHEDULE prefix it contains — Go's regexp alternation is
// leftmost-first, not longest-match, so order matters here.
var extractPattern = buildExtractPattern()

func buildExtractPattern() *regexp.Regexp {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	return regexp.MustCompile(`(?m)^[ \t]*(` + strings.Join(names, "|") + `)(?::[ \t]*(.*))?[ \t]*$`)
}

// Extract finds every known marker occurrence in text, in order.
func Extract(text string) []Marker {
	matches := extractPattern.FindAllStringSubmatch(text, -1)
	markers := make([]Marker, 0, len(matches))
	for _, m := range matches {
		payload := strings.TrimSpace(m[2])
		markers = append(markers, Marker{
			Name:    m[1],
			Payload: payload,
			Fields:  splitFields(payload),
			Raw:     m[0],
		})
	}
	return markers
}

// splitFields splits a marker payload on "|", trimming whitespace
// around each field. An empty payload yields no fields.
func splitFields(payload string) []string {
	if payload == "" {
		return nil
	}
	parts := strings.Split(payload, "|")
	fields := make([]string, len(parts))
	for i, p := range parts {
		fields[i] = strings.TrimSpace(p)
	}
	return fields
}

// Strip removes every marker Extract would find from text, plus a
// safety-net pass that strips any line merely starting with a known
// marker name even if its payload didn't parse — spec §4.5's
// requirement that malformed markers never leak to the user.
func Strip(text string) string {
	stripped := extractPattern.ReplaceAllString(text, "")
	lines := strings.Split(stripped, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		leaked := false
		for name := range catalog {
			if strings.HasPrefix(trimmed, name) {
				leaked = true
				break
			}
		}
		if !leaked {
			kept = append(kept, line)
		}
	}
	return collapseBlankLines(strings.Join(kept, "\n"))
}

func collapseBlankLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// Dispatch extracts every marker in text, runs each against its
// handler in order, and returns the combined Outcome plus text with
// every recognized marker stripped. A handler error is logged and
// dispatch continues with the remaining markers — one bad marker must
// not stop the rest of the response from being processed.
func Dispatch(env *Env, text string) (string, Outcome, []error) {
	markers := Extract(text)
	var outcome Outcome
	var errsOut []error

	for _, m := range markers {
		s, ok := catalog[m.Name]
		if !ok {
			continue
		}
		if err := s.handler(env, m); err != nil {
			errsOut = append(errsOut, err)
			if env.Logger != nil {
				env.Logger.Warn("marker handler failed", "marker", m.Name, "error", err)
			}
			continue
		}
		switch m.Name {
		case "SILENT":
			outcome.Silent = true
		case "WHATSAPP_QR":
			outcome.StartPairing = true
		}
	}

	return Strip(text), outcome, errsOut
}
