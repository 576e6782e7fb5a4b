package prompt

import "testing"

func TestDetectNeedsMatchesEnglishKeyword(t *testing.T) {
	needs := DetectNeeds("Can you remind me to water the plants tomorrow?")
	if !needs.Scheduling {
		t.Fatalf("DetectNeeds() = %+v, want Scheduling", needs)
	}
	if needs.Builds || needs.Outcomes {
		t.Fatalf("DetectNeeds() = %+v, want only scheduling", needs)
	}
}

func TestDetectNeedsMatchesTranslatedKeyword(t *testing.T) {
	needs := DetectNeeds("¿Puedes recordarme llamar a mi madre?")
	if !needs.Scheduling {
		t.Fatalf("DetectNeeds() = %+v, want Scheduling from Spanish keyword", needs)
	}
}

func TestDetectNeedsNoneMatched(t *testing.T) {
	needs := DetectNeeds("What's the capital of France?")
	if needs.Any() {
		t.Fatalf("DetectNeeds() = %+v, want no capability detected", needs)
	}
}

func TestDetectNeedsMultipleGroups(t *testing.T) {
	needs := DetectNeeds("Forget this conversation and remind me to follow up next week")
	if !needs.Meta || !needs.Scheduling {
		t.Fatalf("DetectNeeds() = %+v, want both Meta and Scheduling", needs)
	}
}
