// Package session holds the short-lived per-chat conversation state.
// Absence of a state means the chat is in idle command-dispatch mode.
package session

// Step identifies the point a chat has reached in a multi-step flow.
type Step string

const (
	StepAwaitingDescription    Step = "awaiting_description"
	StepAwaitingUserID         Step = "awaiting_user_id"
	StepAwaitingUserIDForTasks Step = "awaiting_user_id_for_tasks"
	StepAwaitingTime           Step = "awaiting_time"
)

// State is the conversation state for one chat: the current step plus the
// task fields accumulated so far. It is overwritten on every step and
// deleted when the flow completes.
type State struct {
	Step Step

	Description    string
	CreatorName    string
	AssigneeID     string
	FileID         string
	FileCaption    string
	RemindInterval int
}
