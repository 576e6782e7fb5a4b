package skills

import (
	"regexp"
	"strings"
	"sync"

	"github.com/omegacore/omega/pkg/models"
)

// matcherCache compiles each skill's trigger at most once. A trigger
// is tried as a case-insensitive regex first; if it fails to compile
// it is treated as a literal "|"-separated alternation instead, so
// authors can write either `deploy|release|ship` or a real regex like
// `deploy(ed|ing)?` without declaring which one they meant.
type matcherCache struct {
	mu    sync.Mutex
	byKey map[string]*regexp.Regexp
}

var triggerCache = &matcherCache{byKey: make(map[string]*regexp.Regexp)}

func (c *matcherCache) compile(trigger string) *regexp.Regexp {
	c.mu.Lock()
	defer c.mu.Unlock()
	if re, ok := c.byKey[trigger]; ok {
		return re
	}
	re, err := regexp.Compile("(?i)" + trigger)
	if err != nil {
		parts := strings.Split(trigger, "|")
		for i, p := range parts {
			parts[i] = regexp.QuoteMeta(strings.TrimSpace(p))
		}
		re = regexp.MustCompile("(?i)" + strings.Join(parts, "|"))
	}
	c.byKey[trigger] = re
	return re
}

// MatchTriggers returns the subset of skills whose trigger matches
// text, case-insensitively, in catalog order.
func MatchTriggers(skills []*models.Skill, text string) []*models.Skill {
	var matched []*models.Skill
	for _, s := range skills {
		if s == nil || s.Disabled || s.Trigger == "" {
			continue
		}
		if triggerCache.compile(s.Trigger).MatchString(text) {
			matched = append(matched, s)
		}
	}
	return matched
}
