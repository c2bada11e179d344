package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// UpsertUser creates a user record for userID if none exists. An
	// existing record is left untouched, so repeated /start is idempotent.
	UpsertUser(ctx context.Context, userID, firstName, lastName string) (*User, error)

	// GetUser retrieves a user by external identifier. Returns nil, nil if not found.
	GetUser(ctx context.Context, userID string) (*User, error)

	// CreateTask inserts a new task record.
	CreateTask(ctx context.Context, task *Task) error

	// GetTask retrieves a task by id. Returns nil, nil if not found.
	GetTask(ctx context.Context, id uint) (*Task, error)

	// SetTaskStatus transitions a task out of PENDING. It reports whether a
	// row changed; a task already resolved is left as-is and returns false.
	SetTaskStatus(ctx context.Context, id uint, status string) (bool, error)

	// ListTasksByAssignee retrieves the assignee's most recent tasks, newest first.
	ListTasksByAssignee(ctx context.Context, assigneeID string, limit int) ([]Task, error)

	// ListTasksByChat retrieves the most recent tasks created from a chat, newest first.
	ListTasksByChat(ctx context.Context, chatID string, limit int) ([]Task, error)

	// CountTasksByChat counts tasks created from a chat. An empty status counts all.
	CountTasksByChat(ctx context.Context, chatID, status string) (int, error)

	// ListDueReminders retrieves pending tasks whose next reminder time has passed.
	ListDueReminders(ctx context.Context, now time.Time) ([]Task, error)

	// RescheduleReminder advances a task's next reminder time.
	RescheduleReminder(ctx context.Context, id uint, next time.Time) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertUser creates a user record for userID if none exists.
func (s *sqlxStore) UpsertUser(ctx context.Context, userID, firstName, lastName string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id cannot be empty")
	}

	now := time.Now().UTC()
	user := &User{
		UserID:    userID,
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
        INSERT INTO users (user_id, first_name, last_name, created_at, updated_at)
        VALUES (:user_id, :first_name, :last_name, :created_at, :updated_at)
        ON CONFLICT (user_id) DO NOTHING;
    `
	result, err := s.db.NamedExecContext(ctx, query, user)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error upserting user", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to upsert user %s: %w", userID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		// Record already existed, fetch it unchanged
		s.logger.DebugContext(ctx, "User already exists, not modified", "user_id", userID)
		return s.GetUser(ctx, userID)
	}

	if id, err := result.LastInsertId(); err == nil {
		//nolint:gosec // integer overflow conversion is acceptable here
		user.ID = uint(id)
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after upserting user",
			"user_id", userID, "error", err)
	}

	s.logger.DebugContext(ctx, "User created", "user_id", userID, "id", user.ID)
	return user, nil
}

// GetUser retrieves a user by external identifier. Returns nil, nil if not found.
func (s *sqlxStore) GetUser(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id cannot be empty")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var user User
	query := `SELECT id, created_at, updated_at, user_id, first_name, last_name
	          FROM users WHERE user_id = ?`

	err := s.db.GetContext(ctx, &user, query, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No user found", "user_id", userID)
		return nil, nil

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}

	return &user, nil
}

// CreateTask inserts a new task record.
func (s *sqlxStore) CreateTask(ctx context.Context, task *Task) error {
	if task == nil {
		return fmt.Errorf("cannot create nil task")
	}
	if task.AssigneeID == "" {
		return fmt.Errorf("task must have a non-empty assignee_id")
	}
	if task.ChatID == "" {
		return fmt.Errorf("task must have a non-empty chat_id")
	}
	if task.RemindInterval <= 0 {
		return fmt.Errorf("task must have a positive remind_interval")
	}

	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = StatusPending
	}
	if task.LastRemind.IsZero() {
		task.LastRemind = now
	}

	query := `
        INSERT INTO tasks (assignee_id, chat_id, creator_name, description, file_id,
                           file_caption, status, remind_interval, last_remind,
                           created_at, updated_at)
        VALUES (:assignee_id, :chat_id, :creator_name, :description, :file_id,
                :file_caption, :status, :remind_interval, :last_remind,
                :created_at, :updated_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, task)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating task",
			"assignee_id", task.AssigneeID, "chat_id", task.ChatID, "error", err)
		return fmt.Errorf("failed to create task for %s: %w", task.AssigneeID, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		//nolint:gosec // integer overflow conversion is acceptable here
		task.ID = uint(id)
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after creating task",
			"assignee_id", task.AssigneeID, "error", err)
	}

	s.logger.DebugContext(ctx, "Task created successfully",
		"task_id", task.ID, "assignee_id", task.AssigneeID, "chat_id", task.ChatID)
	return nil
}

// GetTask retrieves a task by id. Returns nil, nil if not found.
func (s *sqlxStore) GetTask(ctx context.Context, id uint) (*Task, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var task Task
	query := `SELECT id, created_at, updated_at, assignee_id, chat_id, creator_name,
	                 description, file_id, file_caption, status, remind_interval, last_remind
	          FROM tasks WHERE id = ?`

	err := s.db.GetContext(ctx, &task, query, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No task found", "task_id", id)
		return nil, nil

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting task", "task_id", id, "error", err)
		return nil, fmt.Errorf("failed to get task %d: %w", id, err)
	}

	return &task, nil
}

// SetTaskStatus transitions a task out of PENDING. The WHERE clause guards
// the one-shot invariant: a task already APPROVED or REJECTED is not touched.
func (s *sqlxStore) SetTaskStatus(ctx context.Context, id uint, status string) (bool, error) {
	if status != StatusApproved && status != StatusRejected {
		return false, fmt.Errorf("invalid target status %q", status)
	}

	query := `UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	result, err := s.db.ExecContext(ctx, query, status, time.Now().UTC(), id, StatusPending)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error setting task status",
			"task_id", id, "status", status, "error", err)
		return false, fmt.Errorf("failed to set status of task %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not get affected row count when setting status",
			"task_id", id, "error", err)
		return false, nil
	}

	s.logger.DebugContext(ctx, "Task status updated",
		"task_id", id, "status", status, "changed", affected == 1)
	return affected == 1, nil
}

// ListTasksByAssignee retrieves the assignee's most recent tasks, newest first.
func (s *sqlxStore) ListTasksByAssignee(ctx context.Context, assigneeID string, limit int) ([]Task, error) {
	return s.listTasks(ctx, "assignee_id", assigneeID, limit)
}

// ListTasksByChat retrieves the most recent tasks created from a chat, newest first.
func (s *sqlxStore) ListTasksByChat(ctx context.Context, chatID string, limit int) ([]Task, error) {
	return s.listTasks(ctx, "chat_id", chatID, limit)
}

func (s *sqlxStore) listTasks(ctx context.Context, column, value string, limit int) ([]Task, error) {
	if value == "" {
		return nil, fmt.Errorf("%s cannot be empty", column)
	}
	if limit <= 0 {
		limit = 10
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var tasks []Task
	query := fmt.Sprintf(`
        SELECT id, created_at, updated_at, assignee_id, chat_id, creator_name,
               description, file_id, file_caption, status, remind_interval, last_remind
        FROM tasks
        WHERE %s = ?
        ORDER BY created_at DESC, id DESC
        LIMIT ?;
    `, column)

	if err := s.db.SelectContext(ctx, &tasks, query, value, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error listing tasks", column, value, "error", err)
		return nil, fmt.Errorf("failed to list tasks by %s %s: %w", column, value, err)
	}

	s.logger.DebugContext(ctx, "Listed tasks", column, value, "count", len(tasks))
	return tasks, nil
}

// CountTasksByChat counts tasks created from a chat. An empty status counts all.
func (s *sqlxStore) CountTasksByChat(ctx context.Context, chatID, status string) (int, error) {
	if chatID == "" {
		return 0, fmt.Errorf("chat_id cannot be empty")
	}

	var (
		count int
		err   error
	)
	if status == "" {
		err = s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM tasks WHERE chat_id = ?`, chatID)
	} else {
		err = s.db.GetContext(ctx, &count,
			`SELECT COUNT(*) FROM tasks WHERE chat_id = ? AND status = ?`, chatID, status)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error counting tasks",
			"chat_id", chatID, "status", status, "error", err)
		return 0, fmt.Errorf("failed to count tasks for chat %s: %w", chatID, err)
	}

	return count, nil
}

// ListDueReminders retrieves pending tasks whose next reminder time has passed.
func (s *sqlxStore) ListDueReminders(ctx context.Context, now time.Time) ([]Task, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var tasks []Task
	query := `
        SELECT id, created_at, updated_at, assignee_id, chat_id, creator_name,
               description, file_id, file_caption, status, remind_interval, last_remind
        FROM tasks
        WHERE status = ? AND last_remind < ?
        ORDER BY last_remind ASC;
    `

	if err := s.db.SelectContext(ctx, &tasks, query, StatusPending, now.UTC()); err != nil {
		s.logger.ErrorContext(ctx, "Error listing due reminders", "error", err)
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}

	s.logger.DebugContext(ctx, "Listed due reminders", "count", len(tasks))
	return tasks, nil
}

// RescheduleReminder advances a task's next reminder time.
func (s *sqlxStore) RescheduleReminder(ctx context.Context, id uint, next time.Time) error {
	query := `UPDATE tasks SET last_remind = ?, updated_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, next.UTC(), time.Now().UTC(), id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error rescheduling reminder", "task_id", id, "error", err)
		return fmt.Errorf("failed to reschedule reminder for task %d: %w", id, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected != 1 {
		s.logger.WarnContext(ctx, "Unexpected number of rows affected when rescheduling",
			"task_id", id, "affected", affected)
	}

	return nil
}
