package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/omegacore/omega/pkg/models"
)

// Append stores one turn of a conversation.
func (s *Store) Append(ctx context.Context, conversationID int64, senderID string, role models.Role, content string, attachments []models.Attachment) (*models.Message, error) {
	attachmentsJSON, err := marshalAttachments(attachments)
	if err != nil {
		return nil, wrapDBError("marshal attachments", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, sender_id, role, content, attachments, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		conversationID, senderID, string(role), content, attachmentsJSON, now,
	)
	if err != nil {
		return nil, wrapDBError("append message", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, wrapDBError("message last insert id", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET last_activity = ? WHERE id = ?`, now, conversationID,
	); err != nil {
		return nil, wrapDBError("touch conversation", err)
	}

	return &models.Message{
		ID:             id,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Attachments:    attachments,
		Timestamp:      now,
	}, nil
}

// History returns the most recent limit messages of a conversation in
// chronological order, for context assembly.
func (s *Store) History(ctx context.Context, conversationID int64, limit int) ([]*models.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, attachments, timestamp
		 FROM (
			 SELECT id, conversation_id, role, content, attachments, timestamp
			 FROM messages WHERE conversation_id = ?
			 ORDER BY timestamp DESC LIMIT ?
		 ) ORDER BY timestamp ASC`,
		conversationID, limit,
	)
	if err != nil {
		return nil, wrapDBError("history", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// SearchFTS performs a full-text search over a sender's message history,
// best FTS rank first, for recall during context assembly.
func (s *Store) SearchFTS(ctx context.Context, senderID, query string, limit int) ([]*models.Message, error) {
	if query == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.conversation_id, m.role, m.content, m.attachments, m.timestamp
		 FROM messages_fts f
		 JOIN messages m ON m.rowid = f.rowid
		 WHERE f.sender_id = ? AND messages_fts MATCH ?
		 ORDER BY rank LIMIT ?`,
		senderID, query, limit,
	)
	if err != nil {
		return nil, wrapDBError("search fts", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]*models.Message, error) {
	var out []*models.Message
	for rows.Next() {
		var msg models.Message
		var role, attachmentsJSON string
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &role, &msg.Content, &attachmentsJSON, &msg.Timestamp); err != nil {
			return nil, wrapDBError("scan message", err)
		}
		msg.Role = models.Role(role)
		attachments, err := unmarshalAttachments(attachmentsJSON)
		if err != nil {
			return nil, wrapDBError("unmarshal attachments", err)
		}
		msg.Attachments = attachments
		out = append(out, &msg)
	}
	return out, wrapDBError("iterate messages", rows.Err())
}

func marshalAttachments(attachments []models.Attachment) (string, error) {
	if len(attachments) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(attachments)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalAttachments(raw string) ([]models.Attachment, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var attachments []models.Attachment
	if err := json.Unmarshal([]byte(raw), &attachments); err != nil {
		return nil, err
	}
	return attachments, nil
}
