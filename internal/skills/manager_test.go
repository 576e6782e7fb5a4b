package skills

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSkill(t *testing.T, dir, name, content string) {
	t.Helper()
	skillDir := filepath.Join(dir, name)
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(skillDir, Filename), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestManagerReloadLoadsSkillsSortedByName(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "zeta", "---\nname: zeta\ntrigger: zeta\n---\nbody\n")
	writeSkill(t, dir, "alpha", "---\nname: alpha\ntrigger: alpha\n---\nbody\n")

	m := NewManager(dir, nil)
	skills, err := m.Skills()
	if err != nil {
		t.Fatalf("Skills() error = %v", err)
	}
	if len(skills) != 2 || skills[0].Name != "alpha" || skills[1].Name != "zeta" {
		t.Fatalf("Skills() = %+v", skills)
	}
}

func TestManagerSkipsInvalidSkillDirectory(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "good", "---\nname: good\ntrigger: good\n---\nbody\n")
	writeSkill(t, dir, "broken", "not frontmatter at all\n")

	m := NewManager(dir, nil)
	skills, err := m.Skills()
	if err != nil {
		t.Fatalf("Skills() error = %v", err)
	}
	if len(skills) != 1 || skills[0].Name != "good" {
		t.Fatalf("Skills() = %+v, want only the valid skill", skills)
	}
}

func TestManagerMatchFiltersUnavailableBinary(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "needs-bin", "---\nname: needs-bin\ntrigger: deploy\nrequires:\n  bins:\n    - definitely-not-a-real-binary-xyz\n---\nbody\n")
	writeSkill(t, dir, "no-deps", "---\nname: no-deps\ntrigger: deploy\n---\nbody\n")

	m := NewManager(dir, nil)
	matched, err := m.Match("please deploy this")
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(matched) != 1 || matched[0].Name != "no-deps" {
		t.Fatalf("Match() = %+v, want only no-deps (missing binary filtered out)", matched)
	}
}

func TestManagerReloadOnMissingDirectoryYieldsEmptyCatalog(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "does-not-exist"), nil)
	skills, err := m.Skills()
	if err != nil {
		t.Fatalf("Skills() error = %v", err)
	}
	if len(skills) != 0 {
		t.Fatalf("Skills() = %+v, want empty catalog", skills)
	}
}
