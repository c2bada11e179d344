package bot_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/okonst/taskmate/internal/config"
	"github.com/okonst/taskmate/internal/database"
	"github.com/okonst/taskmate/internal/vkteams"
)

func testConfig() *config.Config {
	return &config.Config{
		Bot: config.BotConfig{
			PollInterval:     config.DefaultPollInterval,
			PollTimeout:      config.DefaultPollTimeout,
			ReminderInterval: config.DefaultReminderInterval,
			SessionTTL:       config.DefaultSessionTTL,
			ReportLimit:      config.DefaultReportLimit,
			Messages:         config.DefaultBotMessages,
		},
	}
}

// fakeStore is an in-memory database.Store for engine and sweep tests.
type fakeStore struct {
	mu      sync.Mutex
	users   map[string]*database.User
	tasks   map[uint]*database.Task
	nextID  uint
	upserts int

	failCreate     bool
	failReschedule map[uint]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:          make(map[string]*database.User),
		tasks:          make(map[uint]*database.Task),
		failReschedule: make(map[uint]bool),
	}
}

func (s *fakeStore) addUser(userID, first, last string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = &database.User{UserID: userID, FirstName: first, LastName: last}
}

func (s *fakeStore) addTask(t database.Task) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	if t.Status == "" {
		t.Status = database.StatusPending
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.tasks[t.ID] = &t
	return t.ID
}

func (s *fakeStore) task(id uint) database.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.tasks[id]
}

func (s *fakeStore) Ping(context.Context) error { return nil }

func (s *fakeStore) UpsertUser(_ context.Context, userID, first, last string) (*database.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if u, ok := s.users[userID]; ok {
		return u, nil
	}
	u := &database.User{UserID: userID, FirstName: first, LastName: last}
	s.users[userID] = u
	return u, nil
}

func (s *fakeStore) GetUser(_ context.Context, userID string) (*database.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (s *fakeStore) CreateTask(_ context.Context, task *database.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate {
		return errors.New("insert failed")
	}
	s.nextID++
	task.ID = s.nextID
	task.CreatedAt = time.Now().UTC()
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

func (s *fakeStore) GetTask(_ context.Context, id uint) (*database.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (s *fakeStore) SetTaskStatus(_ context.Context, id uint, status string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.Status != database.StatusPending {
		return false, nil
	}
	t.Status = status
	return true, nil
}

func (s *fakeStore) ListTasksByAssignee(_ context.Context, assigneeID string, limit int) ([]database.Task, error) {
	return s.list(func(t *database.Task) bool { return t.AssigneeID == assigneeID }, limit), nil
}

func (s *fakeStore) ListTasksByChat(_ context.Context, chatID string, limit int) ([]database.Task, error) {
	return s.list(func(t *database.Task) bool { return t.ChatID == chatID }, limit), nil
}

func (s *fakeStore) list(match func(*database.Task) bool, limit int) []database.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []database.Task
	for _, t := range s.tasks {
		if match(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *fakeStore) CountTasksByChat(_ context.Context, chatID, status string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, t := range s.tasks {
		if t.ChatID == chatID && (status == "" || t.Status == status) {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) ListDueReminders(_ context.Context, now time.Time) ([]database.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []database.Task
	for _, t := range s.tasks {
		if t.Status == database.StatusPending && t.LastRemind.Before(now) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastRemind.Before(out[j].LastRemind) })
	return out, nil
}

func (s *fakeStore) RescheduleReminder(_ context.Context, id uint, next time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReschedule[id] {
		return errors.New("update failed")
	}
	if t, ok := s.tasks[id]; ok {
		t.LastRemind = next
	}
	return nil
}

// sentMessage records one outbound gateway call.
type sentMessage struct {
	ChatID   string
	Text     string
	FileID   string
	Keyboard vkteams.Keyboard
}

// fakeGateway records sends and acknowledgements.
type fakeGateway struct {
	mu        sync.Mutex
	sent      []sentMessage
	answered  []string
	failSend  bool
	failChats map[string]bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{failChats: make(map[string]bool)}
}

func (g *fakeGateway) SendText(_ context.Context, chatID, text string, keyboard vkteams.Keyboard) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failSend || g.failChats[chatID] {
		return errors.New("send failed")
	}
	g.sent = append(g.sent, sentMessage{ChatID: chatID, Text: text, Keyboard: keyboard})
	return nil
}

func (g *fakeGateway) SendFile(_ context.Context, chatID, fileID, caption string, keyboard vkteams.Keyboard) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failSend || g.failChats[chatID] {
		return errors.New("send failed")
	}
	g.sent = append(g.sent, sentMessage{ChatID: chatID, Text: caption, FileID: fileID, Keyboard: keyboard})
	return nil
}

func (g *fakeGateway) AnswerCallbackQuery(_ context.Context, queryID, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.answered = append(g.answered, queryID)
	return nil
}

func (g *fakeGateway) lastSent() sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.sent) == 0 {
		return sentMessage{}
	}
	return g.sent[len(g.sent)-1]
}

func (g *fakeGateway) sentCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sent)
}
