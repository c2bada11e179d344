package bot_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okonst/taskmate/internal/bot"
	"github.com/okonst/taskmate/internal/vkteams"
)

// fakeSource serves one canned batch per FetchEvents call and records the
// cursor each call asked for.
type fakeSource struct {
	batches [][]vkteams.Event
	errs    []error
	cursors []int64
}

func (s *fakeSource) FetchEvents(_ context.Context, lastEventID int64, _ time.Duration) ([]vkteams.Event, error) {
	s.cursors = append(s.cursors, lastEventID)
	call := len(s.cursors) - 1
	if call < len(s.errs) && s.errs[call] != nil {
		return nil, s.errs[call]
	}
	if call < len(s.batches) {
		return s.batches[call], nil
	}
	return nil, nil
}

func messageEvent(id int64, chatID, text string) vkteams.Event {
	return vkteams.Event{ID: id, Type: vkteams.EventNewMessage, Message: message(chatID, text)}
}

func TestTickAdvancesCursorInOrder(t *testing.T) {
	t.Parallel()
	engine, _, gateway, _ := newTestEngine(t)
	source := &fakeSource{batches: [][]vkteams.Event{{
		messageEvent(10, "alice@corp", "/help"),
		messageEvent(11, "bob@corp", "/help"),
		{ID: 12, Type: vkteams.EventCallbackQuery, Callback: callback("alice@corp", "q1", "watch_statistics")},
	}}}
	d := bot.NewDispatcher(nil, source, engine, time.Second, time.Second, nil)

	cursor := d.Tick(context.Background(), 9)
	if cursor != 12 {
		t.Errorf("cursor = %d, want 12", cursor)
	}
	if got := gateway.sentCount(); got != 3 {
		t.Errorf("sent %d replies, want 3", got)
	}
	if len(source.cursors) != 1 || source.cursors[0] != 9 {
		t.Errorf("fetch cursors = %v, want [9]", source.cursors)
	}
}

func TestTickStopsAtFirstFailedDispatch(t *testing.T) {
	t.Parallel()
	engine, _, gateway, _ := newTestEngine(t)
	gateway.failChats["bob@corp"] = true
	source := &fakeSource{batches: [][]vkteams.Event{
		{
			messageEvent(10, "alice@corp", "/help"),
			messageEvent(11, "bob@corp", "/help"),
			messageEvent(12, "carol@corp", "/help"),
		},
		{
			messageEvent(11, "bob@corp", "/help"),
			messageEvent(12, "carol@corp", "/help"),
		},
	}}
	d := bot.NewDispatcher(nil, source, engine, time.Second, time.Second, nil)
	ctx := context.Background()

	cursor := d.Tick(ctx, 0)
	if cursor != 10 {
		t.Fatalf("cursor after failure = %d, want 10", cursor)
	}
	if got := gateway.sentCount(); got != 1 {
		t.Fatalf("sent %d replies before failure, want 1", got)
	}

	// Next poll starts from the failed event and redelivers it.
	gateway.failChats["bob@corp"] = false
	cursor = d.Tick(ctx, cursor)
	if cursor != 12 {
		t.Errorf("cursor after redelivery = %d, want 12", cursor)
	}
	if got := source.cursors[1]; got != 10 {
		t.Errorf("redelivery fetched from cursor %d, want 10", got)
	}
	if got := gateway.sentCount(); got != 3 {
		t.Errorf("sent %d replies in total, want 3", got)
	}
}

func TestTickFetchErrorKeepsCursor(t *testing.T) {
	t.Parallel()
	engine, _, gateway, _ := newTestEngine(t)
	source := &fakeSource{errs: []error{errors.New("gateway down")}}
	d := bot.NewDispatcher(nil, source, engine, time.Second, time.Second, nil)

	if cursor := d.Tick(context.Background(), 41); cursor != 41 {
		t.Errorf("cursor = %d, want 41", cursor)
	}
	if gateway.sentCount() != 0 {
		t.Error("no replies expected on a failed poll")
	}
}

func TestTickSkipsUnrecognizedEvents(t *testing.T) {
	t.Parallel()
	engine, _, gateway, _ := newTestEngine(t)
	source := &fakeSource{batches: [][]vkteams.Event{{
		{ID: 20, Type: vkteams.EventType("editedMessage")},
		messageEvent(21, "alice@corp", "/help"),
	}}}
	d := bot.NewDispatcher(nil, source, engine, time.Second, time.Second, nil)

	// Unrecognized types still advance the cursor so the poll makes progress.
	if cursor := d.Tick(context.Background(), 0); cursor != 21 {
		t.Errorf("cursor = %d, want 21", cursor)
	}
	if got := gateway.sentCount(); got != 1 {
		t.Errorf("sent %d replies, want 1", got)
	}
}
