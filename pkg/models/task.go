package models

import "time"

// TaskStatus tracks a scheduled task's lifecycle.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskDelivered TaskStatus = "delivered"
	TaskFailed    TaskStatus = "failed"
)

// TaskType distinguishes a plain reminder from an autonomous action.
type TaskType string

const (
	TaskReminder TaskType = "reminder"
	TaskAction   TaskType = "action"
)

// RepeatPattern controls how a delivered task is rescheduled.
type RepeatPattern string

const (
	RepeatOnce     RepeatPattern = "once"
	RepeatDaily    RepeatPattern = "daily"
	RepeatWeekly   RepeatPattern = "weekly"
	RepeatMonthly  RepeatPattern = "monthly"
	RepeatWeekdays RepeatPattern = "weekdays"
)

// MaxActionRetries bounds how many times an action task is retried before
// it is marked permanently failed.
const MaxActionRetries = 3

// Task is a scheduled reminder or autonomous action.
type Task struct {
	ID          int64         `json:"id"`
	Channel     ChannelType   `json:"channel"`
	SenderID    string        `json:"sender_id"`
	ReplyTarget string        `json:"reply_target"`
	Description string        `json:"description"`
	DueAt       time.Time     `json:"due_at"` // always UTC
	Status      TaskStatus    `json:"status"`
	Type        TaskType      `json:"task_type"`
	Repeat      RepeatPattern `json:"repeat"`
	RetryCount  int           `json:"retry_count"`
	Project     string        `json:"project,omitempty"`
}

// Deliverable reports whether the scheduler may dispatch this task: a
// pending task that has already exhausted its action retries must never be
// picked up again (it should have been transitioned to TaskFailed).
func (t *Task) Deliverable() bool {
	if t == nil || t.Status != TaskPending {
		return false
	}
	if t.Type == TaskAction && t.RetryCount >= MaxActionRetries {
		return false
	}
	return true
}
