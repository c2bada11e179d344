package database

import "time"

// Task status values. A task starts PENDING and moves to APPROVED or
// REJECTED exactly once; resolved tasks never change again.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// User represents a person known to the bot, keyed by their external
// chat-platform identifier. Created on first /start and never deleted.
type User struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	UserID    string `db:"user_id"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
}

// DisplayName returns the user's name for reports.
func (u *User) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Task represents a delegated task. LastRemind holds the time the next
// reminder becomes due; the sweep advances it by RemindInterval minutes
// after every notification.
type Task struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	AssigneeID     string    `db:"assignee_id"`
	ChatID         string    `db:"chat_id"`
	CreatorName    string    `db:"creator_name"`
	Description    string    `db:"description"`
	FileID         string    `db:"file_id"`
	FileCaption    string    `db:"file_caption"`
	Status         string    `db:"status"`
	RemindInterval int       `db:"remind_interval"`
	LastRemind     time.Time `db:"last_remind"`
}

// Title returns the text shown for the task in reports and reminders:
// the description, or the attachment caption when no description was given.
func (t *Task) Title() string {
	if t.Description != "" {
		return t.Description
	}
	return t.FileCaption
}
