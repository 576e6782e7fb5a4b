package memory

import (
	"context"
	"time"

	"github.com/omegacore/omega/pkg/models"
)

// UpsertSession records the provider-side continuation handle for a
// (channel, sender, project) tuple.
func (s *Store) UpsertSession(ctx context.Context, session *models.ProviderSession) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO provider_sessions (channel, sender_id, project, session_id, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (channel, sender_id, project) DO UPDATE SET
			 session_id = excluded.session_id,
			 updated_at = excluded.updated_at`,
		string(session.Channel), session.SenderID, session.Project, session.SessionID, now,
	)
	if err != nil {
		return wrapDBError("upsert session", err)
	}
	return nil
}

// GetSession looks up the provider continuation handle for a tuple, or
// ErrNotFound if none exists (a fresh session should be started).
func (s *Store) GetSession(ctx context.Context, channel models.ChannelType, sender, project string) (*models.ProviderSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT channel, sender_id, project, session_id, updated_at
		 FROM provider_sessions WHERE channel = ? AND sender_id = ? AND project = ?`,
		string(channel), sender, project,
	)
	var session models.ProviderSession
	var ch string
	if err := row.Scan(&ch, &session.SenderID, &session.Project, &session.SessionID, &session.UpdatedAt); err != nil {
		return nil, wrapDBError("get session", err)
	}
	session.Channel = models.ChannelType(ch)
	return &session, nil
}
