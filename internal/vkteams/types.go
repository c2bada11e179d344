package vkteams

import (
	"encoding/json"
	"fmt"
)

// EventType discriminates the gateway event kinds the bot understands.
type EventType string

const (
	EventNewMessage    EventType = "newMessage"
	EventCallbackQuery EventType = "callbackQuery"
)

// Event is the decoded form of one long-poll event. Exactly one of Message
// and Callback is set, matching Type; both are nil for unrecognized types,
// which callers skip while still advancing past the event id.
type Event struct {
	ID       int64
	Type     EventType
	Message  *MessageEvent
	Callback *CallbackEvent
}

// MessageEvent carries an inbound chat message.
type MessageEvent struct {
	ChatID      string
	Text        string
	From        Contact
	FileID      string
	FileCaption string
}

// CallbackEvent carries an inline-button press.
type CallbackEvent struct {
	QueryID string
	ChatID  string
	From    Contact
	Data    string
}

// Contact identifies the sender of an event.
type Contact struct {
	UserID    string `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Button is one inline keyboard button.
type Button struct {
	Text         string `json:"text"`
	CallbackData string `json:"callbackData,omitempty"`
	URL          string `json:"url,omitempty"`
}

// Keyboard is an inline button grid, rows of buttons.
type Keyboard [][]Button

// Transport-level shapes. These mirror the wire format exactly and are
// converted to Event at the decode boundary.

type rawEvent struct {
	EventID int64           `json:"eventId"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type rawMessagePayload struct {
	Chat struct {
		ChatID string `json:"chatId"`
	} `json:"chat"`
	From  Contact `json:"from"`
	Text  string  `json:"text"`
	Parts []struct {
		Type    string `json:"type"`
		Payload struct {
			FileID  string `json:"fileId"`
			Caption string `json:"caption"`
		} `json:"payload"`
	} `json:"parts"`
}

type rawCallbackPayload struct {
	QueryID string  `json:"queryId"`
	From    Contact `json:"from"`
	Message struct {
		Chat struct {
			ChatID string `json:"chatId"`
		} `json:"chat"`
	} `json:"message"`
	CallbackData string `json:"callbackData"`
}

// decodeEvent converts a raw wire event into the domain event union.
func decodeEvent(raw rawEvent) (Event, error) {
	ev := Event{ID: raw.EventID, Type: EventType(raw.Type)}

	switch ev.Type {
	case EventNewMessage:
		var p rawMessagePayload
		if err := json.Unmarshal(raw.Payload, &p); err != nil {
			return Event{}, fmt.Errorf("malformed newMessage payload (event %d): %w", raw.EventID, err)
		}
		msg := &MessageEvent{
			ChatID: p.Chat.ChatID,
			Text:   p.Text,
			From:   p.From,
		}
		for _, part := range p.Parts {
			if part.Type == "file" {
				msg.FileID = part.Payload.FileID
				msg.FileCaption = part.Payload.Caption
				break
			}
		}
		ev.Message = msg

	case EventCallbackQuery:
		var p rawCallbackPayload
		if err := json.Unmarshal(raw.Payload, &p); err != nil {
			return Event{}, fmt.Errorf("malformed callbackQuery payload (event %d): %w", raw.EventID, err)
		}
		ev.Callback = &CallbackEvent{
			QueryID: p.QueryID,
			ChatID:  p.Message.Chat.ChatID,
			From:    p.From,
			Data:    p.CallbackData,
		}

	default:
		// Unrecognized event types are kept so the cursor still advances
	}

	return ev, nil
}

// BotInfo describes the bot account as reported by self/get.
type BotInfo struct {
	UserID    string `json:"userId"`
	Nick      string `json:"nick"`
	FirstName string `json:"firstName"`
	About     string `json:"about"`
}
