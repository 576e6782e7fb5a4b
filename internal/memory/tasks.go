package memory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/omegacore/omega/pkg/models"
)

// duplicateWindow and duplicateOverlapThreshold implement spec §4.2's
// duplicate-task signal: a candidate due within 30 minutes of an
// existing task, sharing more than half its description's tokens, is
// reported back to the caller as a conflict rather than silently
// created twice.
const (
	duplicateWindow           = 30 * time.Minute
	duplicateOverlapThreshold = 0.5
	failureRetryDelay         = 2 * time.Minute
)

// Create stores a new task unless it duplicates one already pending
// near the same time, in which case it returns the conflicting task
// alongside ErrConflict and lets the caller decide whether to proceed.
func (s *Store) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	candidates, err := s.pendingNear(ctx, task.SenderID, task.DueAt)
	if err != nil {
		return nil, err
	}
	for _, existing := range candidates {
		if tokenOverlapRatio(existing.Description, task.Description) > duplicateOverlapThreshold {
			return existing, ErrConflict
		}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (channel, sender_id, reply_target, project, task_type, description, due_at, status, repeat_pattern, retry_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		string(task.Channel), task.SenderID, task.ReplyTarget, task.Project, string(task.Type), task.Description,
		task.DueAt.UTC(), string(models.TaskPending), string(task.Repeat),
	)
	if err != nil {
		return nil, wrapDBError("create task", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, wrapDBError("task last insert id", err)
	}

	created := *task
	created.ID = id
	created.Status = models.TaskPending
	created.RetryCount = 0
	return &created, nil
}

func (s *Store) pendingNear(ctx context.Context, sender string, dueAt time.Time) ([]*models.Task, error) {
	from := dueAt.Add(-duplicateWindow)
	to := dueAt.Add(duplicateWindow)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, channel, sender_id, reply_target, project, task_type, description, due_at, status, repeat_pattern, retry_count
		 FROM tasks WHERE sender_id = ? AND status = ? AND due_at BETWEEN ? AND ?`,
		sender, string(models.TaskPending), from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, wrapDBError("pending near", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// GetDue returns every pending, deliverable task whose due time has
// arrived, for the scheduler poller (C9).
func (s *Store) GetDue(ctx context.Context, now time.Time) ([]*models.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, channel, sender_id, reply_target, project, task_type, description, due_at, status, repeat_pattern, retry_count
		 FROM tasks WHERE status = ? AND due_at <= ?`,
		string(models.TaskPending), now.UTC(),
	)
	if err != nil {
		return nil, wrapDBError("get due tasks", err)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}

	deliverable := tasks[:0]
	for _, t := range tasks {
		if t.Deliverable() {
			deliverable = append(deliverable, t)
		}
	}
	return deliverable, nil
}

// Defer pushes a task's due_at to newDueAt without touching its retry
// count or status. Used by the scheduler to push a due task past a
// quiet-hours window — it already has the exact id, so it goes
// straight to it rather than through Update's prefix-resolution path,
// which a scheduler-driven defer should never risk being ambiguous.
func (s *Store) Defer(ctx context.Context, id int64, newDueAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE tasks SET due_at = ? WHERE id = ?`, newDueAt.UTC(), id)
	if err != nil {
		return wrapDBError("defer task", err)
	}
	return nil
}

// Complete marks a task delivered and, for recurring tasks, advances
// due_at and resets it to pending rather than leaving it delivered.
func (s *Store) Complete(ctx context.Context, id int64) error {
	task, err := s.getByID(ctx, id)
	if err != nil {
		return err
	}

	next, advance := nextDueAt(task.DueAt, task.Repeat)
	if !advance {
		_, err := s.db.ExecContext(ctx, `UPDATE tasks SET status = ? WHERE id = ?`, string(models.TaskDelivered), id)
		if err != nil {
			return wrapDBError("complete task", err)
		}
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks SET due_at = ?, status = ?, retry_count = 0 WHERE id = ?`,
		next.UTC(), string(models.TaskPending), id,
	)
	if err != nil {
		return wrapDBError("advance recurring task", err)
	}
	return nil
}

// nextDueAt implements spec §4.2's repeat advancement: once does not
// advance (the caller marks it delivered instead of rescheduling), daily adds
// a day, weekly adds a week, monthly adds a calendar month (clamped to
// the shorter month's last day), and weekdays skips to the next
// non-weekend day.
func nextDueAt(due time.Time, repeat models.RepeatPattern) (time.Time, bool) {
	switch repeat {
	case models.RepeatDaily:
		return due.AddDate(0, 0, 1), true
	case models.RepeatWeekly:
		return due.AddDate(0, 0, 7), true
	case models.RepeatMonthly:
		return clampToMonth(due), true
	case models.RepeatWeekdays:
		return nextWeekday(due), true
	default:
		return due, false
	}
}

func clampToMonth(due time.Time) time.Time {
	year, month, day := due.Date()
	firstOfNext := time.Date(year, month+1, 1, due.Hour(), due.Minute(), due.Second(), due.Nanosecond(), due.Location())
	lastDayOfNext := firstOfNext.AddDate(0, 1, -1).Day()
	if day > lastDayOfNext {
		day = lastDayOfNext
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day, due.Hour(), due.Minute(), due.Second(), due.Nanosecond(), due.Location())
}

func nextWeekday(due time.Time) time.Time {
	next := due.AddDate(0, 0, 1)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Fail records a delivery failure: the task is deferred by two minutes
// and retried, unless it has already failed MaxActionRetries times, in
// which case it is marked permanently failed.
func (s *Store) Fail(ctx context.Context, id int64) error {
	task, err := s.getByID(ctx, id)
	if err != nil {
		return err
	}

	retryCount := task.RetryCount + 1
	if retryCount >= models.MaxActionRetries {
		_, err := s.db.ExecContext(ctx,
			`UPDATE tasks SET status = ?, retry_count = ? WHERE id = ?`,
			string(models.TaskFailed), retryCount, id,
		)
		if err != nil {
			return wrapDBError("mark task permanently failed", err)
		}
		return nil
	}

	nextAttempt := time.Now().UTC().Add(failureRetryDelay)
	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks SET due_at = ?, retry_count = ? WHERE id = ?`,
		nextAttempt, retryCount, id,
	)
	if err != nil {
		return wrapDBError("defer failed task", err)
	}
	return nil
}

// Cancel cancels the task whose id begins with idPrefix. idPrefix must
// resolve to exactly one task; ambiguous or absent prefixes error.
func (s *Store) Cancel(ctx context.Context, idPrefix string) error {
	task, err := s.resolvePrefix(ctx, idPrefix)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, task.ID)
	if err != nil {
		return wrapDBError("cancel task", err)
	}
	return nil
}

// Update applies a partial field update to the task whose id begins
// with idPrefix.
func (s *Store) Update(ctx context.Context, idPrefix string, fields map[string]any) error {
	task, err := s.resolvePrefix(ctx, idPrefix)
	if err != nil {
		return err
	}

	if desc, ok := fields["description"].(string); ok {
		task.Description = desc
	}
	if dueAt, ok := fields["due_at"].(time.Time); ok {
		task.DueAt = dueAt
	}
	if repeat, ok := fields["repeat"].(models.RepeatPattern); ok {
		task.Repeat = repeat
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks SET description = ?, due_at = ?, repeat_pattern = ? WHERE id = ?`,
		task.Description, task.DueAt.UTC(), string(task.Repeat), task.ID,
	)
	if err != nil {
		return wrapDBError("update task", err)
	}
	return nil
}

// resolvePrefix looks up a task by the string prefix of its id, the
// unit a user references a task by in conversation (e.g. "cancel 42").
func (s *Store) resolvePrefix(ctx context.Context, idPrefix string) (*models.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, channel, sender_id, reply_target, project, task_type, description, due_at, status, repeat_pattern, retry_count
		 FROM tasks WHERE CAST(id AS TEXT) LIKE ? || '%'`,
		idPrefix,
	)
	if err != nil {
		return nil, wrapDBError("resolve task prefix", err)
	}
	defer rows.Close()

	matches, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	if len(matches) > 1 {
		return nil, fmt.Errorf("ambiguous task prefix %q matches %d tasks", idPrefix, len(matches))
	}
	return matches[0], nil
}

func (s *Store) getByID(ctx context.Context, id int64) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, channel, sender_id, reply_target, project, task_type, description, due_at, status, repeat_pattern, retry_count
		 FROM tasks WHERE id = ?`, id,
	)
	return scanTask(row)
}

func scanTask(row *sql.Row) (*models.Task, error) {
	var t models.Task
	var channel, taskType, status, repeat string
	if err := row.Scan(&t.ID, &channel, &t.SenderID, &t.ReplyTarget, &t.Project, &taskType, &t.Description, &t.DueAt, &status, &repeat, &t.RetryCount); err != nil {
		return nil, wrapDBError("scan task", err)
	}
	t.Channel = models.ChannelType(channel)
	t.Type = models.TaskType(taskType)
	t.Status = models.TaskStatus(status)
	t.Repeat = models.RepeatPattern(repeat)
	return &t, nil
}

func scanTasks(rows *sql.Rows) ([]*models.Task, error) {
	var out []*models.Task
	for rows.Next() {
		var t models.Task
		var channel, taskType, status, repeat string
		if err := rows.Scan(&t.ID, &channel, &t.SenderID, &t.ReplyTarget, &t.Project, &taskType, &t.Description, &t.DueAt, &status, &repeat, &t.RetryCount); err != nil {
			return nil, wrapDBError("scan task row", err)
		}
		t.Channel = models.ChannelType(channel)
		t.Type = models.TaskType(taskType)
		t.Status = models.TaskStatus(status)
		t.Repeat = models.RepeatPattern(repeat)
		out = append(out, &t)
	}
	return out, wrapDBError("iterate tasks", rows.Err())
}
