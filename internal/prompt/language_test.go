package prompt

import "testing"

func TestDetectLanguageDefaultsToEnglish(t *testing.T) {
	if got := DetectLanguage("What time does the meeting start?"); got != LangEnglish {
		t.Fatalf("DetectLanguage() = %q, want english", got)
	}
}

func TestDetectLanguageRecognizesSpanish(t *testing.T) {
	if got := DetectLanguage("el gato de la casa y los perros de los vecinos"); got != LangSpanish {
		t.Fatalf("DetectLanguage() = %q, want spanish", got)
	}
}

func TestDetectLanguageRecognizesGerman(t *testing.T) {
	if got := DetectLanguage("der Hund und die Katze sind nicht ein Problem für mich"); got != LangGerman {
		t.Fatalf("DetectLanguage() = %q, want german", got)
	}
}

func TestResolveLanguagePrefersStoredFact(t *testing.T) {
	if got := ResolveLanguage("french", "hola como estas"); got != "french" {
		t.Fatalf("ResolveLanguage() = %q, want stored fact to win", got)
	}
}

func TestResolveLanguageFallsBackToHeuristic(t *testing.T) {
	if got := ResolveLanguage("", "el gato y la casa de los vecinos"); got != LangSpanish {
		t.Fatalf("ResolveLanguage() = %q, want heuristic result", got)
	}
}
