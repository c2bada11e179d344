package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/okonst/taskmate/internal/config"
	"github.com/okonst/taskmate/internal/database"
	"github.com/okonst/taskmate/internal/observability"
)

// ReminderSweep re-notifies assignees of pending tasks whose next reminder
// time has passed, then pushes each task's next reminder out by its own
// interval. It never changes task status.
type ReminderSweep struct {
	logger  *slog.Logger
	cfg     *config.Config
	store   database.Store
	gateway Gateway
	metrics *observability.Metrics
}

// NewReminderSweep creates the sweep. metrics may be nil.
func NewReminderSweep(
	logger *slog.Logger,
	cfg *config.Config,
	store database.Store,
	gateway Gateway,
	metrics *observability.Metrics,
) *ReminderSweep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReminderSweep{
		logger:  logger.With("component", "reminder_sweep"),
		cfg:     cfg,
		store:   store,
		gateway: gateway,
		metrics: metrics,
	}
}

// Run performs one sweep pass. Per-task failures are logged and skipped so
// one broken task cannot starve the rest.
func (r *ReminderSweep) Run(ctx context.Context) error {
	tasks, err := r.store.ListDueReminders(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to select due reminders: %w", err)
	}
	if len(tasks) == 0 {
		return nil
	}

	r.logger.InfoContext(ctx, "Sending reminders", "due", len(tasks))
	for i := range tasks {
		task := &tasks[i]
		if err := r.remind(ctx, task); err != nil {
			r.logger.ErrorContext(ctx, "Failed to remind, continuing sweep",
				"task_id", task.ID, "assignee_id", task.AssigneeID, "error", err)
			if r.metrics != nil {
				r.metrics.HandlerErrors.WithLabelValues("reminder_sweep").Inc()
			}
		}
	}
	return nil
}

func (r *ReminderSweep) remind(ctx context.Context, task *database.Task) error {
	prompt := fmt.Sprintf(r.cfg.Bot.Messages.ReminderPrompt, task.CreatorName, task.Title())
	keyboard := decisionKeyboard(task.ID)

	sentAt := time.Now().UTC()
	var err error
	if task.FileID != "" {
		err = r.gateway.SendFile(ctx, task.AssigneeID, task.FileID, prompt, keyboard)
	} else {
		err = r.gateway.SendText(ctx, task.AssigneeID, prompt, keyboard)
	}
	if err != nil {
		return fmt.Errorf("send failed: %w", err)
	}

	next := sentAt.Add(time.Duration(task.RemindInterval) * time.Minute)
	if err := r.store.RescheduleReminder(ctx, task.ID, next); err != nil {
		return fmt.Errorf("reschedule failed: %w", err)
	}

	if r.metrics != nil {
		r.metrics.RemindersSent.Inc()
	}
	r.logger.DebugContext(ctx, "Reminder sent",
		"task_id", task.ID, "assignee_id", task.AssigneeID, "next_remind", next)
	return nil
}
