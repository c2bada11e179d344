package bot

import (
	"context"
	"time"

	"github.com/okonst/taskmate/internal/vkteams"
)

// Gateway is the outbound half of the messaging platform used by the
// conversation engine and the reminder sweep.
type Gateway interface {
	SendText(ctx context.Context, chatID, text string, keyboard vkteams.Keyboard) error
	SendFile(ctx context.Context, chatID, fileID, caption string, keyboard vkteams.Keyboard) error
	AnswerCallbackQuery(ctx context.Context, queryID, text string) error
}

// EventSource is the inbound half of the messaging platform, consumed by
// the dispatcher.
type EventSource interface {
	FetchEvents(ctx context.Context, lastEventID int64, pollTimeout time.Duration) ([]vkteams.Event, error)
}
