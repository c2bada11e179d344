package config

import "time"

// Default values for configuration
const (
	DefaultAPIBaseURL = "https://myteam.mail.ru/bot/v1"

	DefaultPollInterval     = 3 * time.Second
	DefaultPollTimeout      = 25 * time.Second
	DefaultReminderInterval = 30 * time.Second
	DefaultSessionTTL       = time.Hour
	DefaultReportLimit      = 10

	DefaultDBPath = "tasks.db"

	DefaultHTTPAddr = ":8080"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// DefaultBotMessages holds the default reply texts.
var DefaultBotMessages = BotMessages{
	Welcome:         "Hi! I help you delegate tasks. Pick an action:",
	Help:            "/start - show the action menu\n/help - show this message",
	UnknownCommand:  "Unknown command. Send /help to see what I can do.",
	AskDescription:  "Describe the task. You can attach a file as well.",
	AskContact:      "Share the contact of the person this task is for.",
	AskTime:         "How often should I remind about it? Send an interval in minutes.",
	BadContact:      "That doesn't look like a contact. Please share a contact.",
	BadTime:         "Please send a positive whole number of minutes.",
	UserNotFound:    "I don't know that user yet. They need to send me /start first.",
	TaskNotFound:    "Task not found.",
	TaskCreated:     "Task created. I'll keep reminding the assignee until they decide.",
	TaskApproved:    "Task approved.",
	TaskRejected:    "Task rejected.",
	AlreadyResolved: "This task has already been resolved.",
	NoTasks:         "No tasks found.",
	GeneralError:    "Something went wrong. Please try again.",
	ReminderPrompt:  "Task from %s:\n%s",

	StatusPending:  "pending",
	StatusApproved: "approved",
	StatusRejected: "rejected",
}
