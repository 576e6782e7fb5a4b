package prompt

// capabilitySections holds the static instructional text injected when
// DetectNeeds flags the matching capability. Each one documents the
// marker(s) from internal/markers/catalog.go that capability uses, so
// the keyword gate and the marker protocol stay in lockstep.
var capabilitySections = map[string]string{
	"scheduling": "To schedule a reminder or recurring action, emit a line:\n" +
		"SCHEDULE: <description>|<RFC3339 or naive timestamp>|<once|daily|weekly|monthly|weekdays>\n" +
		"For an autonomous action instead of a reminder, use SCHEDULE_ACTION with the same fields. " +
		"Use CANCEL_TASK: <id prefix> or UPDATE_TASK: <id prefix>|<field>=<value> to manage existing tasks.",
	"recall": "You have access to past conversation summaries and full-text search over prior messages; " +
		"use them before asking the user to repeat themselves.",
	"tasks": "The user's pending tasks are listed below when present. Reference them by description, not internal id, " +
		"unless the user is managing a specific one.",
	"projects": "To switch the active project, emit PROJECT_ACTIVATE: <name>. To return to the general context, " +
		"emit PROJECT_DEACTIVATE.",
	"builds": "If the user is requesting a code change or new capability rather than a conversational answer, " +
		"emit BUILD_PROPOSAL: <one-line summary of the change> instead of writing code inline.",
	"meta": "To change how you behave: LANG_SWITCH: <language> changes reply language; PERSONALITY: <trait|reset> " +
		"adjusts tone; FORGET_CONVERSATION closes and summarizes the current conversation; PURGE_FACTS clears " +
		"learned facts (never system ones).",
	"profile": "The user's known profile is listed below. Do not ask for information already present there.",
	"summarize": "If asked to recap, summarize only what's in the visible conversation history; don't invent prior " +
		"context that isn't shown.",
	"heartbeat": "HEARTBEAT_ADD: <item> and HEARTBEAT_REMOVE: <item> manage the periodic self-check checklist. " +
		"HEARTBEAT_INTERVAL: <minutes> changes how often it runs. HEARTBEAT_SUPPRESS_SECTION / " +
		"HEARTBEAT_UNSUPPRESS_SECTION mute or restore one checklist section.",
	"outcomes": "REWARD: <score>|<domain>|<note> records feedback on how a past action went. " +
		"LESSON: <domain>|<rule> records a durable behavioral rule to apply in this domain going forward.",
}

// sandboxNotice is always injected: a constant reminder of the
// provider's execution boundary, independent of any keyword gate.
const sandboxNotice = "Tool execution runs inside a sandboxed workspace directory; it cannot read or write the " +
	"memory database, config file, or installation directory directly."

func sectionsFor(needs CapabilitySet) []string {
	var order []string
	if needs.Scheduling {
		order = append(order, "scheduling")
	}
	if needs.Recall {
		order = append(order, "recall")
	}
	if needs.Tasks {
		order = append(order, "tasks")
	}
	if needs.Projects {
		order = append(order, "projects")
	}
	if needs.Builds {
		order = append(order, "builds")
	}
	if needs.Meta {
		order = append(order, "meta")
	}
	if needs.Profile {
		order = append(order, "profile")
	}
	if needs.Summarize {
		order = append(order, "summarize")
	}
	if needs.Heartbeat {
		order = append(order, "heartbeat")
	}
	if needs.Outcomes {
		order = append(order, "outcomes")
	}

	sections := make([]string, 0, len(order))
	for _, key := range order {
		sections = append(sections, capabilitySections[key])
	}
	return sections
}
