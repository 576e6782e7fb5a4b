package memory

import (
	"strconv"
	"testing"
	"time"

	"github.com/omegacore/omega/pkg/models"
)

func newTask(sender, desc string, due time.Time) *models.Task {
	return &models.Task{
		Channel:     models.ChannelCLI,
		SenderID:    sender,
		ReplyTarget: sender,
		Description: desc,
		DueAt:       due,
		Type:        models.TaskReminder,
		Repeat:      models.RepeatOnce,
	}
}

func TestCreateTask(t *testing.T) {
	s := newTestStore(t)
	due := time.Now().UTC().Add(time.Hour)
	created, err := s.Create(t.Context(), newTask("alice", "water the plants", due))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("Create() did not assign an id")
	}
	if created.Status != models.TaskPending {
		t.Fatalf("Create() status = %q, want pending", created.Status)
	}
}

func TestCreateDetectsDuplicateByTokenOverlap(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()
	due := time.Now().UTC().Add(time.Hour)

	first, err := s.Create(ctx, newTask("alice", "water the plants", due))
	if err != nil {
		t.Fatalf("Create() first task error = %v", err)
	}

	existing, err := s.Create(ctx, newTask("alice", "water the plants outside", due.Add(5*time.Minute)))
	if err != ErrConflict {
		t.Fatalf("Create() error = %v, want ErrConflict", err)
	}
	if existing == nil || existing.ID != first.ID {
		t.Fatalf("Create() conflict task = %+v, want the original task %d", existing, first.ID)
	}
}

func TestCreateAllowsDistinctTasksNearSameTime(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()
	due := time.Now().UTC().Add(time.Hour)

	if _, err := s.Create(ctx, newTask("alice", "water the plants", due)); err != nil {
		t.Fatalf("Create() first task error = %v", err)
	}
	if _, err := s.Create(ctx, newTask("alice", "call the dentist", due.Add(time.Minute))); err != nil {
		t.Fatalf("Create() unrelated task error = %v", err)
	}
}

func TestGetDueFiltersByTimeAndDeliverability(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()
	now := time.Now().UTC()

	due, err := s.Create(ctx, newTask("alice", "water the plants", now.Add(-time.Minute)))
	if err != nil {
		t.Fatalf("Create() due task error = %v", err)
	}
	if _, err := s.Create(ctx, newTask("alice", "call the dentist", now.Add(time.Hour))); err != nil {
		t.Fatalf("Create() future task error = %v", err)
	}

	results, err := s.GetDue(ctx, now)
	if err != nil {
		t.Fatalf("GetDue() error = %v", err)
	}
	if len(results) != 1 || results[0].ID != due.ID {
		t.Fatalf("GetDue() = %+v, want only the overdue task %d", results, due.ID)
	}
}

func TestCompleteOnceTaskMarksDelivered(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()
	task, err := s.Create(ctx, newTask("alice", "water the plants", time.Now().UTC()))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Complete(ctx, task.ID); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	got, err := s.getByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("getByID() error = %v", err)
	}
	if got.Status != models.TaskDelivered {
		t.Fatalf("Complete() status = %q, want delivered", got.Status)
	}
}

func TestCompleteDailyTaskReschedules(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()
	due := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	task := newTask("alice", "take vitamins", due)
	task.Repeat = models.RepeatDaily
	created, err := s.Create(ctx, task)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Complete(ctx, created.ID); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	got, err := s.getByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("getByID() error = %v", err)
	}
	if got.Status != models.TaskPending {
		t.Fatalf("Complete() recurring status = %q, want pending", got.Status)
	}
	want := due.AddDate(0, 0, 1)
	if !got.DueAt.Equal(want) {
		t.Fatalf("Complete() recurring due_at = %v, want %v", got.DueAt, want)
	}
}

func TestNextDueAtMonthlyClampsToShorterMonth(t *testing.T) {
	due := time.Date(2026, 1, 31, 8, 0, 0, 0, time.UTC)
	next, advance := nextDueAt(due, models.RepeatMonthly)
	if !advance {
		t.Fatalf("nextDueAt() advance = false, want true")
	}
	want := time.Date(2026, 2, 28, 8, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("nextDueAt() monthly = %v, want %v", next, want)
	}
}

func TestNextDueAtWeekdaysSkipsWeekend(t *testing.T) {
	friday := time.Date(2026, 1, 30, 8, 0, 0, 0, time.UTC) // a Friday
	next, advance := nextDueAt(friday, models.RepeatWeekdays)
	if !advance {
		t.Fatalf("nextDueAt() advance = false, want true")
	}
	if next.Weekday() != time.Monday {
		t.Fatalf("nextDueAt() weekdays after Friday = %v, want Monday", next.Weekday())
	}
}

func TestFailDefersThenPermanentlyFails(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()
	task := newTask("alice", "send the report", time.Now().UTC())
	task.Type = models.TaskAction
	created, err := s.Create(ctx, task)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for i := 0; i < models.MaxActionRetries-1; i++ {
		if err := s.Fail(ctx, created.ID); err != nil {
			t.Fatalf("Fail() iteration %d error = %v", i, err)
		}
		got, err := s.getByID(ctx, created.ID)
		if err != nil {
			t.Fatalf("getByID() error = %v", err)
		}
		if got.Status != models.TaskPending {
			t.Fatalf("Fail() iteration %d status = %q, want pending before exhausting retries", i, got.Status)
		}
	}

	if err := s.Fail(ctx, created.ID); err != nil {
		t.Fatalf("Fail() final error = %v", err)
	}
	got, err := s.getByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("getByID() error = %v", err)
	}
	if got.Status != models.TaskFailed {
		t.Fatalf("Fail() final status = %q, want failed", got.Status)
	}
}

func TestCancelByPrefix(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()
	created, err := s.Create(ctx, newTask("alice", "water the plants", time.Now().UTC()))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	prefix := strconv.FormatInt(created.ID, 10)
	if err := s.Cancel(ctx, prefix); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if _, err := s.getByID(ctx, created.ID); err != ErrNotFound {
		t.Fatalf("getByID() after cancel error = %v, want ErrNotFound", err)
	}
}

func TestCancelAmbiguousPrefixErrors(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()
	// Ten distinct tasks, spaced an hour apart so none collide as
	// duplicates, produce ids 1..10 and make "1" ambiguous between
	// task 1 and task 10.
	base := time.Now().UTC()
	for i := 0; i < 10; i++ {
		desc := "task number " + strconv.Itoa(i)
		if _, err := s.Create(ctx, newTask("alice", desc, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Create() iteration %d error = %v", i, err)
		}
	}
	if err := s.Cancel(ctx, "1"); err == nil {
		t.Fatalf("Cancel() with an ambiguous prefix should error")
	}
}
