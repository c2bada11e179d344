package bot

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/okonst/taskmate/internal/config"
	"github.com/okonst/taskmate/internal/database"
	"github.com/okonst/taskmate/internal/observability"
	"github.com/okonst/taskmate/internal/session"
	"github.com/okonst/taskmate/internal/vkteams"
)

// Engine is the conversation state machine. Given an inbound message or
// callback, the chat's session state, and persisted data, it decides the
// next session state, any repository mutations, and the reply to send.
//
// A returned error means the reply could not be delivered (or a lookup
// failed before one could be produced); the dispatcher uses it to hold the
// event cursor back for redelivery. User mistakes are never errors, they
// are conversational replies.
type Engine struct {
	logger   *slog.Logger
	cfg      *config.Config
	store    database.Store
	sessions *session.Store
	gateway  Gateway
	metrics  *observability.Metrics
}

// NewEngine creates the conversation engine. metrics may be nil.
func NewEngine(
	logger *slog.Logger,
	cfg *config.Config,
	store database.Store,
	sessions *session.Store,
	gateway Gateway,
	metrics *observability.Metrics,
) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		logger:   logger.With("component", "engine"),
		cfg:      cfg,
		store:    store,
		sessions: sessions,
		gateway:  gateway,
		metrics:  metrics,
	}
}

// HandleMessage processes one inbound chat message against the chat's
// session state. Every branch concludes with exactly one reply.
func (e *Engine) HandleMessage(ctx context.Context, msg *vkteams.MessageEvent) error {
	log := e.logger.With("chat_id", msg.ChatID)

	// /start cancels any active flow: the welcome path clears the session,
	// so the chat always lands back in idle mode.
	if firstToken(msg.Text) == "/start" {
		return e.handleCommand(ctx, log, msg)
	}

	state, ok := e.sessions.Get(msg.ChatID)
	if !ok {
		return e.handleCommand(ctx, log, msg)
	}

	switch state.Step {
	case session.StepAwaitingDescription:
		return e.handleDescription(ctx, log, msg, state)
	case session.StepAwaitingUserID:
		return e.handleAssigneeContact(ctx, log, msg, state)
	case session.StepAwaitingUserIDForTasks:
		return e.handleReportContact(ctx, log, msg)
	case session.StepAwaitingTime:
		return e.handleRemindInterval(ctx, log, msg, state)
	default:
		// A stored step outside the enumeration means a corrupt session;
		// drop it and fall back to command dispatch.
		log.WarnContext(ctx, "Dropping session with unknown step", "step", state.Step)
		e.sessions.Delete(msg.ChatID)
		return e.handleCommand(ctx, log, msg)
	}
}

// handleCommand dispatches an idle-mode message by its first
// whitespace-delimited token.
func (e *Engine) handleCommand(ctx context.Context, log *slog.Logger, msg *vkteams.MessageEvent) error {
	switch firstToken(msg.Text) {
	case "/start":
		log.InfoContext(ctx, "Handling /start command", "user_id", msg.From.UserID)
		if _, err := e.store.UpsertUser(ctx, msg.From.UserID, msg.From.FirstName, msg.From.LastName); err != nil {
			log.ErrorContext(ctx, "Failed to upsert user on /start", "error", err)
			return e.reply(ctx, msg.ChatID, e.cfg.Bot.Messages.GeneralError, nil)
		}
		e.sessions.Delete(msg.ChatID)
		return e.reply(ctx, msg.ChatID, e.cfg.Bot.Messages.Welcome, mainKeyboard())

	case "/help":
		return e.reply(ctx, msg.ChatID, e.cfg.Bot.Messages.Help, nil)

	default:
		return e.reply(ctx, msg.ChatID, e.cfg.Bot.Messages.UnknownCommand, nil)
	}
}

// handleDescription captures the task text, the creator's display name, and
// any attached file, then asks for the assignee's contact.
func (e *Engine) handleDescription(ctx context.Context, log *slog.Logger, msg *vkteams.MessageEvent, state session.State) error {
	state.Description = msg.Text
	state.CreatorName = displayName(msg.From)
	if msg.FileID != "" {
		state.FileID = msg.FileID
		state.FileCaption = msg.FileCaption
	}
	state.Step = session.StepAwaitingUserID
	e.sessions.Put(msg.ChatID, state)

	log.DebugContext(ctx, "Captured task description, awaiting assignee contact")
	return e.reply(ctx, msg.ChatID, e.cfg.Bot.Messages.AskContact, nil)
}

// handleAssigneeContact resolves the shared contact to a known user and
// advances to the reminder-interval step. Malformed input and unknown users
// leave the step unchanged so the sender can retry.
func (e *Engine) handleAssigneeContact(ctx context.Context, log *slog.Logger, msg *vkteams.MessageEvent, state session.State) error {
	userID, ok := parseContact(msg.Text)
	if !ok {
		return e.reply(ctx, msg.ChatID, e.cfg.Bot.Messages.BadContact, nil)
	}

	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to look up assignee", "assignee_id", userID, "error", err)
		return e.reply(ctx, msg.ChatID, e.cfg.Bot.Messages.GeneralError, nil)
	}
	if user == nil {
		return e.reply(ctx, msg.ChatID, e.cfg.Bot.Messages.UserNotFound, nil)
	}

	state.AssigneeID = user.UserID
	if msg.FileID != "" {
		state.FileID = msg.FileID
		state.FileCaption = msg.FileCaption
	}
	state.Step = session.StepAwaitingTime
	e.sessions.Put(msg.ChatID, state)

	log.DebugContext(ctx, "Assignee resolved, awaiting reminder interval", "assignee_id", user.UserID)
	return e.reply(ctx, msg.ChatID, e.cfg.Bot.Messages.AskTime, nil)
}

// handleReportContact resolves the shared contact and reports that user's
// most recent tasks. The session ends whether or not tasks were found.
func (e *Engine) handleReportContact(ctx context.Context, log *slog.Logger, msg *vkteams.MessageEvent) error {
	userID, ok := parseContact(msg.Text)
	if !ok {
		return e.reply(ctx, msg.ChatID, e.cfg.Bot.Messages.BadContact, nil)
	}

	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to look up report target", "user_id", userID, "error", err)
		return e.reply(ctx, msg.ChatID, e.cfg.Bot.Messages.GeneralError, nil)
	}
	if user == nil {
		return e.reply(ctx, msg.ChatID, e.cfg.Bot.Messages.UserNotFound, nil)
	}

	tasks, err := e.store.ListTasksByAssignee(ctx, user.UserID, e.cfg.Bot.ReportLimit)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list tasks for report", "user_id", user.UserID, "error", err)
		return e.reply(ctx, msg.ChatID, e.cfg.Bot.Messages.GeneralError, nil)
	}

	e.sessions.Delete(msg.ChatID)
	if len(tasks) == 0 {
		return e.reply(ctx, msg.ChatID, e.cfg.Bot.Messages.NoTasks, nil)
	}
	return e.reply(ctx, msg.ChatID, e.formatReport(ctx, tasks), nil)
}

// handleRemindInterval parses the reminder interval and persists the
// accumulated task. The task is only ever written here, fully formed.
func (e *Engine) handleRemindInterval(ctx context.Context, log *slog.Logger, msg *vkteams.MessageEvent, state session.State) error {
	minutes, err := strconv.Atoi(strings.TrimSpace(msg.Text))
	if err != nil || minutes <= 0 {
		return e.reply(ctx, msg.ChatID, e.cfg.Bot.Messages.BadTime, nil)
	}

	task := &database.Task{
		AssigneeID:     state.AssigneeID,
		ChatID:         msg.ChatID,
		CreatorName:    state.CreatorName,
		Description:    state.Description,
		FileID:         state.FileID,
		FileCaption:    state.FileCaption,
		Status:         database.StatusPending,
		RemindInterval: minutes,
		LastRemind:     time.Now().UTC(),
	}

	// The flow ends here either way: a failed insert loses the draft and
	// the user must restart from the menu.
	e.sessions.Delete(msg.ChatID)

	if err := e.store.CreateTask(ctx, task); err != nil {
		log.ErrorContext(ctx, "Failed to persist task", "assignee_id", state.AssigneeID, "error", err)
		return e.reply(ctx, msg.ChatID, e.cfg.Bot.Messages.GeneralError, nil)
	}

	log.InfoContext(ctx, "Task created",
		"task_id", task.ID, "assignee_id", task.AssigneeID, "remind_interval_min", minutes)
	return e.reply(ctx, msg.ChatID, e.cfg.Bot.Messages.TaskCreated, nil)
}

// HandleCallback processes one inline-button press. The callback query is
// acknowledged regardless of outcome, then the reply goes out as a plain
// text message without buttons.
func (e *Engine) HandleCallback(ctx context.Context, cb *vkteams.CallbackEvent) error {
	log := e.logger.With("chat_id", cb.ChatID, "callback_data", cb.Data)

	reply := e.callbackReply(ctx, log, cb)

	if err := e.gateway.AnswerCallbackQuery(ctx, cb.QueryID, ""); err != nil {
		log.ErrorContext(ctx, "Failed to answer callback query", "query_id", cb.QueryID, "error", err)
	}
	return e.reply(ctx, cb.ChatID, reply, nil)
}

func (e *Engine) callbackReply(ctx context.Context, log *slog.Logger, cb *vkteams.CallbackEvent) string {
	switch {
	case strings.HasPrefix(cb.Data, callbackApprovePrefix):
		return e.resolveTask(ctx, log, strings.TrimPrefix(cb.Data, callbackApprovePrefix), database.StatusApproved)

	case strings.HasPrefix(cb.Data, callbackRejectPrefix):
		return e.resolveTask(ctx, log, strings.TrimPrefix(cb.Data, callbackRejectPrefix), database.StatusRejected)

	case cb.Data == callbackCreateTask:
		e.sessions.Put(cb.ChatID, session.State{Step: session.StepAwaitingDescription})
		return e.cfg.Bot.Messages.AskDescription

	case cb.Data == callbackCheckUserTasks:
		e.sessions.Put(cb.ChatID, session.State{Step: session.StepAwaitingUserIDForTasks})
		return e.cfg.Bot.Messages.AskContact

	case cb.Data == callbackWatchTasks:
		tasks, err := e.store.ListTasksByChat(ctx, cb.From.UserID, e.cfg.Bot.ReportLimit)
		if err != nil {
			log.ErrorContext(ctx, "Failed to list own tasks", "error", err)
			return e.cfg.Bot.Messages.GeneralError
		}
		if len(tasks) == 0 {
			return e.cfg.Bot.Messages.NoTasks
		}
		return e.formatReport(ctx, tasks)

	case cb.Data == callbackWatchStatistics:
		return e.formatStatistics(ctx, log, cb.From.UserID)

	default:
		return e.cfg.Bot.Messages.UnknownCommand
	}
}

// resolveTask applies an approve/reject decision. Transitions are one-shot:
// a task already resolved reports its state and nothing changes.
func (e *Engine) resolveTask(ctx context.Context, log *slog.Logger, rawID, status string) string {
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return e.cfg.Bot.Messages.TaskNotFound
	}

	task, err := e.store.GetTask(ctx, uint(id))
	if err != nil {
		log.ErrorContext(ctx, "Failed to load task for decision", "task_id", id, "error", err)
		return e.cfg.Bot.Messages.GeneralError
	}
	if task == nil {
		return e.cfg.Bot.Messages.TaskNotFound
	}
	if task.Status != database.StatusPending {
		return e.cfg.Bot.Messages.AlreadyResolved
	}

	changed, err := e.store.SetTaskStatus(ctx, task.ID, status)
	if err != nil {
		log.ErrorContext(ctx, "Failed to set task status", "task_id", id, "status", status, "error", err)
		return e.cfg.Bot.Messages.GeneralError
	}
	if !changed {
		// Lost the race against another decision between read and write.
		return e.cfg.Bot.Messages.AlreadyResolved
	}

	log.InfoContext(ctx, "Task resolved", "task_id", id, "status", status)
	if status == database.StatusApproved {
		return e.cfg.Bot.Messages.TaskApproved
	}
	return e.cfg.Bot.Messages.TaskRejected
}

func (e *Engine) formatStatistics(ctx context.Context, log *slog.Logger, chatID string) string {
	var counts [4]int
	for i, status := range []string{"", database.StatusApproved, database.StatusRejected, database.StatusPending} {
		n, err := e.store.CountTasksByChat(ctx, chatID, status)
		if err != nil {
			log.ErrorContext(ctx, "Failed to count tasks", "status", status, "error", err)
			return e.cfg.Bot.Messages.GeneralError
		}
		counts[i] = n
	}

	var b strings.Builder
	b.WriteString("Your tasks:\n")
	b.WriteString("Total: " + strconv.Itoa(counts[0]) + "\n")
	b.WriteString("Approved: " + strconv.Itoa(counts[1]) + "\n")
	b.WriteString("Rejected: " + strconv.Itoa(counts[2]) + "\n")
	b.WriteString("Pending: " + strconv.Itoa(counts[3]))
	return b.String()
}

// formatReport renders a numbered task report: title, assignee name,
// status label, creation time. Assignee names are resolved once per user.
func (e *Engine) formatReport(ctx context.Context, tasks []database.Task) string {
	names := make(map[string]string)
	var b strings.Builder
	for i, task := range tasks {
		name, ok := names[task.AssigneeID]
		if !ok {
			name = task.AssigneeID
			if user, err := e.store.GetUser(ctx, task.AssigneeID); err == nil && user != nil {
				name = user.DisplayName()
			}
			names[task.AssigneeID] = name
		}

		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(task.Title())
		b.WriteString(" — ")
		b.WriteString(name)
		b.WriteString(" — ")
		b.WriteString(e.statusLabel(task.Status))
		b.WriteString(" — ")
		b.WriteString(task.CreatedAt.Format("02.01.2006 15:04"))
	}
	return b.String()
}

func (e *Engine) statusLabel(status string) string {
	switch status {
	case database.StatusApproved:
		return e.cfg.Bot.Messages.StatusApproved
	case database.StatusRejected:
		return e.cfg.Bot.Messages.StatusRejected
	default:
		return e.cfg.Bot.Messages.StatusPending
	}
}

// reply sends the single reply that concludes a branch.
func (e *Engine) reply(ctx context.Context, chatID, text string, keyboard vkteams.Keyboard) error {
	if err := e.gateway.SendText(ctx, chatID, text, keyboard); err != nil {
		e.logger.ErrorContext(ctx, "Failed to send reply", "chat_id", chatID, "error", err)
		return err
	}
	if e.metrics != nil {
		e.metrics.RepliesSent.Inc()
	}
	return nil
}

// parseContact extracts the assignee identifier from a contact-share
// payload: the trailing '/'-delimited segment, which must contain '@'.
func parseContact(text string) (string, bool) {
	segment := strings.TrimSpace(text)
	if i := strings.LastIndex(segment, "/"); i >= 0 {
		segment = segment[i+1:]
	}
	segment = strings.TrimSpace(segment)
	if segment == "" || !strings.Contains(segment, "@") {
		return "", false
	}
	return segment, true
}

func firstToken(text string) string {
	if fields := strings.Fields(text); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

func displayName(c vkteams.Contact) string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
