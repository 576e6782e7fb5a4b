package prompt

import (
	"testing"

	"github.com/omegacore/omega/pkg/models"
)

func TestBuildProfileBlockOrdersIdentityThenContextThenRest(t *testing.T) {
	facts := []models.Fact{
		{Key: "hobby", Value: "climbing"},
		{Key: "name", Value: "Alice"},
		{Key: "occupation", Value: "engineer"},
		{Key: "active_project", Value: "rocket"}, // system key, must be excluded
		{Key: "timezone", Value: "America/New_York"},
	}

	got := BuildProfileBlock(facts)
	want := "name: Alice\ntimezone: America/New_York\noccupation: engineer\nhobby: climbing"
	if got != want {
		t.Fatalf("BuildProfileBlock() = %q, want %q", got, want)
	}
}

func TestBuildProfileBlockEmptyWhenOnlySystemFacts(t *testing.T) {
	facts := []models.Fact{{Key: "welcomed", Value: "true"}}
	if got := BuildProfileBlock(facts); got != "" {
		t.Fatalf("BuildProfileBlock() = %q, want empty", got)
	}
}
