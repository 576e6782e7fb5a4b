package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/omegacore/omega/pkg/models"
)

// identityFactKeys and contextFactKeys define the profile block's
// ordering: identity facts first (who the person is), context facts
// second (where/how they work), then everything else alphabetically.
// Not a spec-named list — spec only says "identity keys first, context
// keys second, rest last" — so this grouping is an implementation
// decision (see DESIGN.md) rather than a literal catalog.
var (
	identityFactKeys = []string{"name", "pronouns", "timezone"}
	contextFactKeys  = []string{"occupation", "role", "location", "company"}
)

// BuildProfileBlock renders a sender's non-system facts as a
// "key: value" list in identity-first, context-second, rest-last
// order. System facts (welcomed, active_project, etc.) are never part
// of the user-facing profile.
func BuildProfileBlock(facts []models.Fact) string {
	byKey := make(map[string]string, len(facts))
	for _, f := range facts {
		if models.IsSystemFactKey(f.Key) {
			continue
		}
		byKey[f.Key] = f.Value
	}
	if len(byKey) == 0 {
		return ""
	}

	var ordered []string
	seen := make(map[string]bool)
	appendKnown := func(keys []string) {
		for _, k := range keys {
			if v, ok := byKey[k]; ok && !seen[k] {
				ordered = append(ordered, fmt.Sprintf("%s: %s", k, v))
				seen[k] = true
			}
		}
	}
	appendKnown(identityFactKeys)
	appendKnown(contextFactKeys)

	var rest []string
	for k := range byKey {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		ordered = append(ordered, fmt.Sprintf("%s: %s", k, byKey[k]))
	}

	return strings.Join(ordered, "\n")
}
