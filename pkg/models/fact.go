package models

import "time"

// Fact is a single key/value datum the runtime knows about a sender.
type Fact struct {
	SenderID  string    `json:"sender_id"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SystemFactKeys are reserved for runtime control. They can never be written
// by the LLM fact-extraction path (summarizer) or by a user-facing marker
// that doesn't explicitly own that key (PROJECT_ACTIVATE/PROJECT_DEACTIVATE
// own active_project; LANG_SWITCH owns preferred_language; PERSONALITY owns
// personality; BUILD_PROPOSAL owns pending_build_request).
var SystemFactKeys = map[string]bool{
	"welcomed":              true,
	"preferred_language":    true,
	"active_project":        true,
	"personality":           true,
	"onboarding_stage":      true,
	"pending_build_request": true,
	"pending_discovery":     true,
}

// IsSystemFactKey reports whether key is one of the seven reserved keys.
func IsSystemFactKey(key string) bool {
	return SystemFactKeys[key]
}
