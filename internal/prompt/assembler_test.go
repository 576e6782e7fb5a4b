package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/omegacore/omega/pkg/models"
)

func TestBuildIncludesCoreSectionsAndSandboxNotice(t *testing.T) {
	out := Build(Options{
		Now:      time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC),
		Template: defaultTemplate,
		UserText: "hello there",
	})
	if !strings.Contains(out, defaultTemplate.Identity) {
		t.Fatalf("Build() missing identity section: %q", out)
	}
	if !strings.Contains(out, sandboxNotice) {
		t.Fatalf("Build() missing sandbox notice: %q", out)
	}
	if !strings.Contains(out, "2026-07-30T12:00:00Z") {
		t.Fatalf("Build() missing current time: %q", out)
	}
}

func TestBuildInjectsSchedulingSectionWhenKeywordPresent(t *testing.T) {
	out := Build(Options{
		Now:      time.Now().UTC(),
		Template: defaultTemplate,
		UserText: "remind me to call mom tomorrow",
	})
	if !strings.Contains(out, "SCHEDULE:") {
		t.Fatalf("Build() = %q, want scheduling section injected", out)
	}
	if strings.Contains(out, "BUILD_PROPOSAL") {
		t.Fatalf("Build() = %q, want no builds section for an unrelated message", out)
	}
}

func TestBuildIncludesActiveProjectRoleAndProfile(t *testing.T) {
	out := Build(Options{
		Now:               time.Now().UTC(),
		Template:          defaultTemplate,
		UserText:          "status update",
		ActiveProjectRole: "You are helping launch the rocket project.",
		Facts:             []models.Fact{{Key: "name", Value: "Alice"}},
	})
	if !strings.Contains(out, "launch the rocket project") {
		t.Fatalf("Build() missing active project role: %q", out)
	}
	if !strings.Contains(out, "name: Alice") {
		t.Fatalf("Build() missing profile block: %q", out)
	}
}

func TestBuildAppendsOnboardingHintOnStageTransition(t *testing.T) {
	path := tempWelcomeFile(t)
	out := Build(Options{
		Now:           time.Now().UTC(),
		Template:      defaultTemplate,
		UserText:      "hi",
		PreviousStage: -1,
		WelcomePath:   path,
	})
	if !strings.Contains(out, "Welcome!") {
		t.Fatalf("Build() = %q, want onboarding hint on stage transition", out)
	}
}

func TestBuildOmitsOnboardingHintWhenStageUnchanged(t *testing.T) {
	path := tempWelcomeFile(t)
	out := Build(Options{
		Now:           time.Now().UTC(),
		Template:      defaultTemplate,
		UserText:      "hi",
		PreviousStage: 0,
		WelcomePath:   path,
	})
	if strings.Contains(out, "Welcome!") {
		t.Fatalf("Build() = %q, want no hint since stage didn't change", out)
	}
}

func tempWelcomeFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "WELCOME.toml")
	content := "[english]\n\"0\" = \"Welcome! Tell me your name to get started.\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}
