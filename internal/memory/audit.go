package memory

import (
	"context"
	"time"

	"github.com/omegacore/omega/pkg/models"
)

// AppendAudit records one pipeline exchange. The audit log is
// append-only; there is no update or delete path.
func (s *Store) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	now := entry.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (timestamp, channel, sender_id, input, output, provider, model, processing_ms, status, denial_reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		now, string(entry.Channel), entry.SenderID, entry.Input, entry.Output, entry.Provider, entry.Model,
		entry.ProcessingMS, string(entry.Status), entry.DenialReason,
	)
	if err != nil {
		return wrapDBError("append audit entry", err)
	}
	return nil
}

// AuditRange returns audit entries between from and to, oldest first,
// for the status endpoint and manual inspection.
func (s *Store) AuditRange(ctx context.Context, from, to time.Time) ([]*models.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, channel, sender_id, input, output, provider, model, processing_ms, status, denial_reason
		 FROM audit_log WHERE timestamp BETWEEN ? AND ? ORDER BY timestamp ASC`,
		from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, wrapDBError("audit range", err)
	}
	defer rows.Close()

	var out []*models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var channel, status string
		if err := rows.Scan(&e.ID, &e.Timestamp, &channel, &e.SenderID, &e.Input, &e.Output, &e.Provider, &e.Model, &e.ProcessingMS, &status, &e.DenialReason); err != nil {
			return nil, wrapDBError("scan audit entry", err)
		}
		e.Channel = models.ChannelType(channel)
		e.Status = models.AuditStatus(status)
		out = append(out, &e)
	}
	return out, wrapDBError("iterate audit entries", rows.Err())
}
