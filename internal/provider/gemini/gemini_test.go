package gemini

import (
	"testing"

	genai "google.golang.org/genai"

	"github.com/omegacore/omega/internal/provider"
)

func TestConvertHistoryMapsAssistantRoleToModel(t *testing.T) {
	history := []provider.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}
	contents := convertHistory(history)
	if len(contents) != 2 {
		t.Fatalf("convertHistory() returned %d contents, want 2", len(contents))
	}
	if contents[0].Role != string(genai.RoleUser) || contents[1].Role != string(genai.RoleModel) {
		t.Fatalf("convertHistory() roles = %q, %q, want user, model", contents[0].Role, contents[1].Role)
	}
}

func TestToolDeclsCoverAllFourTools(t *testing.T) {
	names := map[string]bool{}
	for _, d := range toolDecls {
		names[d.Name] = true
	}
	for _, want := range []string{"bash", "read", "write", "edit"} {
		if !names[want] {
			t.Fatalf("toolDecls missing %q", want)
		}
	}
}
