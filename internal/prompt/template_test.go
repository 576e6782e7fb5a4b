package prompt

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTemplateMissingFileReturnsDefaults(t *testing.T) {
	tpl, err := LoadTemplate(filepath.Join(t.TempDir(), "missing.md"))
	if err != nil {
		t.Fatalf("LoadTemplate() error = %v", err)
	}
	if tpl != defaultTemplate {
		t.Fatalf("LoadTemplate() = %+v, want defaults", tpl)
	}
}

func TestLoadTemplateOverlaysPresentSectionsOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SYSTEM_PROMPT.md")
	content := "## Identity\nYou are Orbit, a mission-ops assistant.\n\n## System\nUse metric units.\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	tpl, err := LoadTemplate(path)
	if err != nil {
		t.Fatalf("LoadTemplate() error = %v", err)
	}
	if tpl.Identity != "You are Orbit, a mission-ops assistant." {
		t.Fatalf("Identity = %q", tpl.Identity)
	}
	if tpl.System != "Use metric units." {
		t.Fatalf("System = %q", tpl.System)
	}
	if tpl.Soul != defaultTemplate.Soul {
		t.Fatalf("Soul = %q, want default fallback since file omitted it", tpl.Soul)
	}
}
