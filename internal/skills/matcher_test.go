package skills

import (
	"testing"

	"github.com/omegacore/omega/pkg/models"
)

func TestMatchTriggersAlternationIsCaseInsensitive(t *testing.T) {
	skills := []*models.Skill{
		{Name: "deploy-helper", Trigger: "deploy|ship it"},
		{Name: "weather", Trigger: "weather|forecast"},
	}
	got := MatchTriggers(skills, "Can you SHIP IT to prod today?")
	if len(got) != 1 || got[0].Name != "deploy-helper" {
		t.Fatalf("MatchTriggers() = %+v", got)
	}
}

func TestMatchTriggersSkipsDisabled(t *testing.T) {
	skills := []*models.Skill{{Name: "deploy-helper", Trigger: "deploy", Disabled: true}}
	if got := MatchTriggers(skills, "please deploy this"); len(got) != 0 {
		t.Fatalf("MatchTriggers() = %+v, want none (disabled)", got)
	}
}

func TestMatchTriggersSupportsRegex(t *testing.T) {
	skills := []*models.Skill{{Name: "deploy-helper", Trigger: `deploy(ed|ing)?`}}
	if got := MatchTriggers(skills, "deploying now"); len(got) != 1 {
		t.Fatalf("MatchTriggers() = %+v, want a match", got)
	}
	if got := MatchTriggers(skills, "nothing relevant here"); len(got) != 0 {
		t.Fatalf("MatchTriggers() = %+v, want no match", got)
	}
}
