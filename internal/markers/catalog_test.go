package markers

import (
	"strings"
	"testing"
)

func TestExtractFindsKnownMarkersAndPrefersLongerName(t *testing.T) {
	text := "Sure, I'll handle that.\nSCHEDULE_ACTION: deploy the service|2026-08-01T09:00:00Z|once\nSee you then."
	got := Extract(text)
	if len(got) != 1 {
		t.Fatalf("Extract() returned %d markers, want 1: %+v", len(got), got)
	}
	if got[0].Name != "SCHEDULE_ACTION" {
		t.Fatalf("Extract() name = %q, want SCHEDULE_ACTION", got[0].Name)
	}
	if len(got[0].Fields) != 3 || got[0].Fields[0] != "deploy the service" {
		t.Fatalf("Extract() fields = %+v", got[0].Fields)
	}
}

func TestExtractHandlesBareTagMarker(t *testing.T) {
	got := Extract("Working on it.\nSILENT\n")
	if len(got) != 1 || got[0].Name != "SILENT" || got[0].Payload != "" {
		t.Fatalf("Extract() = %+v, want a single bare SILENT marker", got)
	}
}

func TestStripRemovesMarkerLinesAndCollapsesBlankLines(t *testing.T) {
	text := "Hello there.\n\nSCHEDULE: call mom|2026-08-01T09:00:00Z|once\n\nTalk soon."
	got := Strip(text)
	if strings.Contains(got, "SCHEDULE") {
		t.Fatalf("Strip() left a marker behind: %q", got)
	}
	if !strings.Contains(got, "Hello there.") || !strings.Contains(got, "Talk soon.") {
		t.Fatalf("Strip() dropped surrounding text: %q", got)
	}
}

func TestStripSafetyNetCatchesMalformedPayload(t *testing.T) {
	got := Strip("PERSONALITY:\nOk then.")
	if strings.Contains(got, "PERSONALITY") {
		t.Fatalf("Strip() leaked a malformed marker: %q", got)
	}
}

func TestSplitFieldsTrimsWhitespace(t *testing.T) {
	fields := splitFields(" call mom | 2026-08-01T09:00:00Z | once ")
	want := []string{"call mom", "2026-08-01T09:00:00Z", "once"}
	if len(fields) != len(want) {
		t.Fatalf("splitFields() = %+v, want %+v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Fatalf("splitFields()[%d] = %q, want %q", i, fields[i], want[i])
		}
	}
}
