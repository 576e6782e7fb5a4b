package prompt

import "strings"

// Supported language codes, matching what LANG_SWITCH accepts and what
// the stop-word heuristic below can distinguish from English.
const (
	LangEnglish    = "english"
	LangSpanish    = "spanish"
	LangPortuguese = "portuguese"
	LangFrench     = "french"
	LangGerman     = "german"
	LangItalian    = "italian"
	LangDutch      = "dutch"
	LangRussian    = "russian"
)

// stopWords are short, extremely common function words unlikely to
// appear as loanwords in another language — good discriminators for a
// cheap heuristic over a handful of words rather than a real n-gram
// language model.
var stopWords = map[string][]string{
	LangSpanish:    {"el", "la", "de", "que", "y", "los", "las", "por", "para", "con"},
	LangPortuguese: {"o", "a", "de", "que", "e", "os", "as", "para", "com", "não"},
	LangFrench:     {"le", "la", "de", "et", "les", "des", "pour", "avec", "pas", "que"},
	LangGerman:     {"der", "die", "das", "und", "nicht", "ein", "eine", "ist", "mit", "für"},
	LangItalian:    {"il", "la", "di", "che", "e", "per", "con", "non", "gli", "una"},
	LangDutch:      {"de", "het", "een", "van", "en", "niet", "met", "voor", "is", "dat"},
	LangRussian:    {"и", "в", "не", "на", "что", "это", "как", "для", "но", "мне"},
}

// DetectLanguage picks the most likely language for text by counting
// stop-word hits per candidate language and returning the highest
// scorer, defaulting to English when nothing scores above zero. Word
// boundaries are plain whitespace splits — good enough for stop-word
// counting, no need for a full tokenizer.
func DetectLanguage(text string) string {
	words := strings.Fields(fold.String(text))
	if len(words) == 0 {
		return LangEnglish
	}

	present := make(map[string]bool, len(words))
	for _, w := range words {
		present[w] = true
	}

	best := LangEnglish
	bestScore := 0
	for lang, candidates := range stopWords {
		score := 0
		for _, c := range candidates {
			if present[fold.String(c)] {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = lang
		}
	}
	return best
}

// ResolveLanguage returns the sender's preferred_language fact if set
// and non-empty, otherwise runs the stop-word heuristic over text.
// Callers are responsible for persisting the result as a fact on first
// contact — this function is a pure decision, not a side effect.
func ResolveLanguage(preferredLanguageFact, text string) string {
	if preferredLanguageFact != "" {
		return preferredLanguageFact
	}
	return DetectLanguage(text)
}
