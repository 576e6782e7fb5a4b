package prompt

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStageThresholds(t *testing.T) {
	cases := []struct {
		facts int
		want  int
	}{
		{0, 0},
		{1, 1},
		{2, 1},
		{3, 2},
		{5, 2},
		{6, 3},
		{9, 3},
		{10, 4},
		{100, 4},
	}
	for _, c := range cases {
		if got := Stage(c.facts); got != c.want {
			t.Errorf("Stage(%d) = %d, want %d", c.facts, got, c.want)
		}
	}
}

func TestStageHintReadsPerLanguageTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "WELCOME.toml")
	content := "[english]\n\"0\" = \"Welcome! Tell me your name to get started.\"\n\n[spanish]\n\"0\" = \"¡Bienvenido! Dime tu nombre.\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	hint, err := StageHint(path, LangSpanish, 0)
	if err != nil {
		t.Fatalf("StageHint() error = %v", err)
	}
	if hint != "¡Bienvenido! Dime tu nombre." {
		t.Fatalf("StageHint() = %q", hint)
	}
}

func TestStageHintFallsBackToEnglishForUnknownLanguage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "WELCOME.toml")
	content := "[english]\n\"0\" = \"Welcome!\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	hint, err := StageHint(path, LangRussian, 0)
	if err != nil {
		t.Fatalf("StageHint() error = %v", err)
	}
	if hint != "Welcome!" {
		t.Fatalf("StageHint() = %q, want english fallback", hint)
	}
}

func TestStageHintMissingFileReturnsEmpty(t *testing.T) {
	hint, err := StageHint(filepath.Join(t.TempDir(), "missing.toml"), LangEnglish, 0)
	if err != nil {
		t.Fatalf("StageHint() error = %v", err)
	}
	if hint != "" {
		t.Fatalf("StageHint() = %q, want empty for missing file", hint)
	}
}
