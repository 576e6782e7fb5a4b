package whatsapp

import (
	"testing"

	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"google.golang.org/protobuf/proto"
)

func TestExtractTextPrefersConversation(t *testing.T) {
	m := &waProto.Message{Conversation: proto.String("hi there")}
	if got := extractText(m); got != "hi there" {
		t.Fatalf("extractText() = %q, want %q", got, "hi there")
	}
}

func TestExtractTextFallsBackToExtendedText(t *testing.T) {
	m := &waProto.Message{
		ExtendedTextMessage: &waProto.ExtendedTextMessage{Text: proto.String("quoted reply")},
	}
	if got := extractText(m); got != "quoted reply" {
		t.Fatalf("extractText() = %q, want %q", got, "quoted reply")
	}
}

func TestExtractTextEmptyForUnsupportedContent(t *testing.T) {
	if got := extractText(&waProto.Message{}); got != "" {
		t.Fatalf("extractText() = %q, want empty for no text content", got)
	}
	if got := extractText(nil); got != "" {
		t.Fatalf("extractText(nil) = %q, want empty", got)
	}
}
