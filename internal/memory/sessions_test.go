package memory

import (
	"testing"

	"github.com/omegacore/omega/pkg/models"
)

func TestUpsertAndGetSession(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	session := &models.ProviderSession{Channel: models.ChannelTelegram, SenderID: "alice", Project: "garden", SessionID: "sess-1"}
	if err := s.UpsertSession(ctx, session); err != nil {
		t.Fatalf("UpsertSession() error = %v", err)
	}

	got, err := s.GetSession(ctx, models.ChannelTelegram, "alice", "garden")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.SessionID != "sess-1" {
		t.Fatalf("GetSession() session id = %q, want sess-1", got.SessionID)
	}

	session.SessionID = "sess-2"
	if err := s.UpsertSession(ctx, session); err != nil {
		t.Fatalf("UpsertSession() overwrite error = %v", err)
	}
	got, err = s.GetSession(ctx, models.ChannelTelegram, "alice", "garden")
	if err != nil {
		t.Fatalf("GetSession() after overwrite error = %v", err)
	}
	if got.SessionID != "sess-2" {
		t.Fatalf("GetSession() after overwrite = %q, want sess-2", got.SessionID)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetSession(t.Context(), models.ChannelCLI, "nobody", ""); err != ErrNotFound {
		t.Fatalf("GetSession() error = %v, want ErrNotFound", err)
	}
}
