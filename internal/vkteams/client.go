// Package vkteams implements a client for the VK Teams bot HTTP API: sending
// text and file messages with optional inline keyboards, acknowledging
// callback queries, and long-polling the event feed.
package vkteams

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to one bot account on a VK Teams API server.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a gateway client. The HTTP client timeout must exceed
// the longest poll timeout passed to FetchEvents, so it is left generous.
func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     logger.With("component", "vkteams"),
	}
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// statuser is satisfied by every response shape through the embedded
// apiResponse.
type statuser interface {
	status() (bool, string)
}

func (r apiResponse) status() (bool, string) {
	return r.OK, r.Description
}

// SelfGet returns the bot's own account info.
func (c *Client) SelfGet(ctx context.Context) (*BotInfo, error) {
	var resp struct {
		apiResponse
		BotInfo
	}
	if err := c.call(ctx, http.MethodGet, "self/get", url.Values{}, &resp); err != nil {
		return nil, err
	}
	return &resp.BotInfo, nil
}

// FetchEvents long-polls the event feed for events after lastEventID.
// Events are returned in the order the gateway produced them.
func (c *Client) FetchEvents(ctx context.Context, lastEventID int64, pollTimeout time.Duration) ([]Event, error) {
	params := url.Values{}
	params.Set("lastEventId", strconv.FormatInt(lastEventID, 10))
	params.Set("pollTime", strconv.Itoa(int(pollTimeout.Seconds())))

	var resp struct {
		apiResponse
		Events []rawEvent `json:"events"`
	}
	if err := c.call(ctx, http.MethodGet, "events/get", params, &resp); err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(resp.Events))
	for _, raw := range resp.Events {
		ev, err := decodeEvent(raw)
		if err != nil {
			// A malformed payload must not stall the feed; skip the event
			// but keep its id so the cursor moves past it.
			c.logger.WarnContext(ctx, "Skipping undecodable event", "event_id", raw.EventID, "error", err)
			events = append(events, Event{ID: raw.EventID, Type: EventType(raw.Type)})
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// SendText sends a plain text message, with an inline keyboard when given.
func (c *Client) SendText(ctx context.Context, chatID, text string, keyboard Keyboard) error {
	params := url.Values{}
	params.Set("chatId", chatID)
	params.Set("text", text)
	if err := addKeyboard(params, keyboard); err != nil {
		return err
	}

	var resp apiResponse
	return c.call(ctx, http.MethodPost, "messages/sendText", params, &resp)
}

// SendFile re-sends a previously uploaded file by id, with a caption and an
// inline keyboard when given.
func (c *Client) SendFile(ctx context.Context, chatID, fileID, caption string, keyboard Keyboard) error {
	params := url.Values{}
	params.Set("chatId", chatID)
	params.Set("fileId", fileID)
	if caption != "" {
		params.Set("caption", caption)
	}
	if err := addKeyboard(params, keyboard); err != nil {
		return err
	}

	var resp apiResponse
	return c.call(ctx, http.MethodGet, "messages/sendFile", params, &resp)
}

// AnswerCallbackQuery acknowledges an inline-button press. Every callback
// must be answered even when the handling itself failed.
func (c *Client) AnswerCallbackQuery(ctx context.Context, queryID, text string) error {
	params := url.Values{}
	params.Set("queryId", queryID)
	if text != "" {
		params.Set("text", text)
	}

	var resp apiResponse
	return c.call(ctx, http.MethodGet, "messages/answerCallbackQuery", params, &resp)
}

func addKeyboard(params url.Values, keyboard Keyboard) error {
	if len(keyboard) == 0 {
		return nil
	}
	markup, err := json.Marshal(keyboard)
	if err != nil {
		return fmt.Errorf("failed to marshal inline keyboard: %w", err)
	}
	params.Set("inlineKeyboardMarkup", string(markup))
	return nil
}

// call performs one API request. The token always travels as a query
// parameter; POST requests carry the remaining parameters as a form body.
func (c *Client) call(ctx context.Context, method, endpoint string, params url.Values, out interface{}) error {
	params.Set("token", c.token)

	var req *http.Request
	var err error
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method,
			c.baseURL+"/"+endpoint, strings.NewReader(params.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, method,
			c.baseURL+"/"+endpoint+"?"+params.Encode(), nil)
	}
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return fmt.Errorf("%s returned HTTP %d: %s", endpoint, httpResp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}

	// All payload shapes embed apiResponse; check the ok flag through it.
	if s, ok := out.(statuser); ok {
		if apiOK, desc := s.status(); !apiOK {
			return fmt.Errorf("%s rejected by API: %s", endpoint, desc)
		}
	}
	return nil
}
