package memory

import (
	"context"
	"database/sql"
	"time"

	"github.com/omegacore/omega/pkg/models"
)

// AppendOutcome records one REWARD marker's verdict on a past action or
// reply, project-scoped.
func (s *Store) AppendOutcome(ctx context.Context, outcome *models.Outcome) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outcomes (sender_id, project, score, domain, lesson, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		outcome.SenderID, outcome.Project, outcome.Score, outcome.Domain, outcome.Lesson, now,
	)
	if err != nil {
		return wrapDBError("append outcome", err)
	}
	return nil
}

// RecentOutcomes returns outcomes recorded within the last window,
// project-scoped, for context assembly (spec §4.2: "last 24h").
func (s *Store) RecentOutcomes(ctx context.Context, project string, window time.Duration) ([]*models.Outcome, error) {
	cutoff := time.Now().UTC().Add(-window)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sender_id, project, score, domain, lesson, timestamp
		 FROM outcomes WHERE project = ? AND timestamp >= ? ORDER BY timestamp DESC`,
		project, cutoff,
	)
	if err != nil {
		return nil, wrapDBError("recent outcomes", err)
	}
	defer rows.Close()

	var out []*models.Outcome
	for rows.Next() {
		var o models.Outcome
		if err := rows.Scan(&o.ID, &o.SenderID, &o.Project, &o.Score, &o.Domain, &o.Lesson, &o.Timestamp); err != nil {
			return nil, wrapDBError("scan outcome", err)
		}
		out = append(out, &o)
	}
	return out, wrapDBError("iterate outcomes", rows.Err())
}

// UpsertLesson accumulates a distilled behavioral rule: a repeated rule
// within the same project/domain increments its occurrence count
// instead of duplicating the row.
func (s *Store) UpsertLesson(ctx context.Context, lesson *models.Lesson) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lessons (sender_id, project, domain, rule, occurrences, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?)
		 ON CONFLICT (project, domain, rule) DO UPDATE SET
			 occurrences = occurrences + 1,
			 updated_at = excluded.updated_at`,
		lesson.SenderID, lesson.Project, lesson.Domain, lesson.Rule, now,
	)
	if err != nil {
		return wrapDBError("upsert lesson", err)
	}
	return nil
}

// Lessons returns the accumulated lessons for a project, for context
// assembly.
func (s *Store) Lessons(ctx context.Context, project string) ([]*models.Lesson, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sender_id, project, domain, rule, occurrences, updated_at
		 FROM lessons WHERE project = ? ORDER BY occurrences DESC`, project,
	)
	if err != nil {
		return nil, wrapDBError("lessons", err)
	}
	defer rows.Close()
	return scanLessons(rows)
}

func scanLessons(rows *sql.Rows) ([]*models.Lesson, error) {
	var out []*models.Lesson
	for rows.Next() {
		var l models.Lesson
		if err := rows.Scan(&l.ID, &l.SenderID, &l.Project, &l.Domain, &l.Rule, &l.Occurrences, &l.UpdatedAt); err != nil {
			return nil, wrapDBError("scan lesson", err)
		}
		out = append(out, &l)
	}
	return out, wrapDBError("iterate lessons", rows.Err())
}
