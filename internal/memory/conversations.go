package memory

import (
	"context"
	"database/sql"
	"time"

	"github.com/omegacore/omega/pkg/models"
)

// GetOrCreateActive returns the active conversation for (channel, sender,
// project), creating one if none is open.
func (s *Store) GetOrCreateActive(ctx context.Context, channel models.ChannelType, sender, project string) (*models.Conversation, error) {
	conv, err := s.findActive(ctx, channel, sender, project)
	if err == nil {
		return conv, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (channel, sender_id, project, status, started_at, last_activity)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(channel), sender, project, string(models.ConversationActive), now, now,
	)
	if err != nil {
		return nil, wrapDBError("create conversation", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, wrapDBError("conversation last insert id", err)
	}

	return &models.Conversation{
		ID:           id,
		Channel:      channel,
		SenderID:     sender,
		Project:      project,
		Status:       models.ConversationActive,
		StartedAt:    now,
		LastActivity: now,
	}, nil
}

func (s *Store) findActive(ctx context.Context, channel models.ChannelType, sender, project string) (*models.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, channel, sender_id, project, status, summary, started_at, last_activity
		 FROM conversations
		 WHERE channel = ? AND sender_id = ? AND project = ? AND status = ?
		 ORDER BY last_activity DESC LIMIT 1`,
		string(channel), sender, project, string(models.ConversationActive),
	)
	return scanConversation(row)
}

func scanConversation(row *sql.Row) (*models.Conversation, error) {
	var conv models.Conversation
	var channel, status string
	if err := row.Scan(&conv.ID, &channel, &conv.SenderID, &conv.Project, &status, &conv.Summary, &conv.StartedAt, &conv.LastActivity); err != nil {
		return nil, wrapDBError("scan conversation", err)
	}
	conv.Channel = models.ChannelType(channel)
	conv.Status = models.ConversationStatus(status)
	return &conv, nil
}

// Close marks a conversation closed and stores its summary.
func (s *Store) Close(ctx context.Context, id int64, summary string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET status = ?, summary = ?, last_activity = ? WHERE id = ?`,
		string(models.ConversationClosed), summary, now, id,
	)
	if err != nil {
		return wrapDBError("close conversation", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBError("close conversation rows affected", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FindIdle returns active conversations that haven't been touched for
// at least threshold, for the summarizer loop (C10) to compact.
func (s *Store) FindIdle(ctx context.Context, threshold time.Duration) ([]*models.Conversation, error) {
	cutoff := time.Now().UTC().Add(-threshold)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, channel, sender_id, project, status, summary, started_at, last_activity
		 FROM conversations WHERE status = ? AND last_activity <= ?`,
		string(models.ConversationActive), cutoff,
	)
	if err != nil {
		return nil, wrapDBError("find idle conversations", err)
	}
	defer rows.Close()
	return scanConversations(rows)
}

// FindAllActive returns every currently active conversation, for the
// heartbeat loop and status reporting.
func (s *Store) FindAllActive(ctx context.Context) ([]*models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, channel, sender_id, project, status, summary, started_at, last_activity
		 FROM conversations WHERE status = ?`,
		string(models.ConversationActive),
	)
	if err != nil {
		return nil, wrapDBError("find active conversations", err)
	}
	defer rows.Close()
	return scanConversations(rows)
}

func scanConversations(rows *sql.Rows) ([]*models.Conversation, error) {
	var out []*models.Conversation
	for rows.Next() {
		var conv models.Conversation
		var channel, status string
		if err := rows.Scan(&conv.ID, &channel, &conv.SenderID, &conv.Project, &status, &conv.Summary, &conv.StartedAt, &conv.LastActivity); err != nil {
			return nil, wrapDBError("scan conversation row", err)
		}
		conv.Channel = models.ChannelType(channel)
		conv.Status = models.ConversationStatus(status)
		out = append(out, &conv)
	}
	return out, wrapDBError("iterate conversation rows", rows.Err())
}

// RecentSummaries returns the summaries of the last n closed
// conversations for a sender/project, newest first, for context
// assembly (spec §4.2: "last 3 closed").
func (s *Store) RecentSummaries(ctx context.Context, sender, project string, n int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT summary FROM conversations
		 WHERE sender_id = ? AND project = ? AND status = ? AND summary != ''
		 ORDER BY last_activity DESC LIMIT ?`,
		sender, project, string(models.ConversationClosed), n,
	)
	if err != nil {
		return nil, wrapDBError("recent summaries", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var summary string
		if err := rows.Scan(&summary); err != nil {
			return nil, wrapDBError("scan summary", err)
		}
		out = append(out, summary)
	}
	return out, wrapDBError("iterate summaries", rows.Err())
}
