package bot

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vespers/internal/app"
	"vespers/internal/config"
	"vespers/internal/logging"
	"vespers/internal/model"
	"vespers/internal/service"
)

const testChat int64 = 42

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	requests int
	updates  chan tgbotapi.Update
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) last() tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return tgbotapi.MessageConfig{}
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestBot(t *testing.T) (*Bot, *fakeAPI, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2025, 11, 27, 9, 0, 0, 0, time.UTC)}
	cfg := config.Config{
		DatabaseURL: filepath.Join(t.TempDir(), "vespers.db"),
		Timer: config.TimerConfig{
			Focus:          25 * time.Minute,
			ShortBreak:     5 * time.Minute,
			LongBreak:      15 * time.Minute,
			LongBreakEvery: 4,
			AutoBreak:      true,
		},
		Dashboard: config.DashboardConfig{Days: 7, WordGoal: 2000},
	}
	ws, err := app.Open(context.Background(), cfg, nil, app.WithClock(clock))
	if err != nil {
		t.Fatalf("open workspace: %v", err)
	}
	t.Cleanup(func() { ws.Close(context.Background()) })
	api := newFakeAPI()
	return newBot(api, testChat, ws, logging.Nop().Logger), api, clock
}

func command(chatID int64, text string) *tgbotapi.Message {
	name, _, _ := strings.Cut(text, " ")
	return &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID, Type: "private"},
		From:     &tgbotapi.User{ID: 7},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func plain(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID, Type: "private"},
		From: &tgbotapi.User{ID: 7},
	}
}

func run(t *testing.T, b *Bot, msg *tgbotapi.Message) {
	t.Helper()
	if err := b.handleMessage(context.Background(), msg); err != nil {
		t.Fatalf("handleMessage(%q): %v", msg.Text, err)
	}
}

func TestAddAndCompleteTask(t *testing.T) {
	b, api, _ := newTestBot(t)
	ctx := context.Background()

	run(t, b, command(testChat, "/add draft chapter 1"))
	if got := api.last().Text; !strings.Contains(got, "Added <b>#1</b> Draft chapter 1") {
		t.Fatalf("reply = %q", got)
	}

	run(t, b, command(testChat, "/done 1"))
	task, err := b.ws.Tasks.GetTask(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != model.StatusDone {
		t.Fatalf("status = %s", task.Status)
	}

	run(t, b, command(testChat, "/reopen 1"))
	task, _ = b.ws.Tasks.GetTask(ctx, 1)
	if task.Status != model.StatusPending || task.CompletedAt != nil {
		t.Fatalf("task after reopen = %+v", task)
	}

	run(t, b, command(testChat, "/reopen 1"))
	if got := api.last().Text; !strings.HasPrefix(got, "⚠️") {
		t.Fatalf("reopening a pending task should fail, got %q", got)
	}
}

func TestAddTaskConversation(t *testing.T) {
	b, api, _ := newTestBot(t)
	run(t, b, command(testChat, "/add"))
	if b.stage != stageTitle {
		t.Fatalf("stage = %v", b.stage)
	}
	run(t, b, plain(testChat, "Research setting"))
	if b.stage != stageNone {
		t.Fatal("conversation not finished")
	}
	if got := api.last().Text; !strings.Contains(got, "Research setting") {
		t.Fatalf("reply = %q", got)
	}

	run(t, b, command(testChat, "/add"))
	run(t, b, plain(testChat, btnCancelDialog))
	if b.stage != stageNone {
		t.Fatal("cancel button did not clear the conversation")
	}
	tasks, _ := b.ws.Tasks.List(context.Background(), nil)
	if len(tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(tasks))
	}
}

func TestCommandAbandonsPendingPrompt(t *testing.T) {
	b, api, _ := newTestBot(t)
	run(t, b, command(testChat, "/add"))
	run(t, b, command(testChat, "/tasks"))
	if b.stage != stageNone {
		t.Fatalf("stage = %v after /tasks, want none", b.stage)
	}
	run(t, b, plain(testChat, "hello"))
	if got := api.last().Text; !strings.Contains(got, "I did not understand") {
		t.Fatalf("reply = %q", got)
	}
	tasks, _ := b.ws.Tasks.List(context.Background(), nil)
	if len(tasks) != 0 {
		t.Fatalf("stray text became %d task(s)", len(tasks))
	}

	run(t, b, command(testChat, "/words"))
	run(t, b, command(testChat, "/status"))
	run(t, b, plain(testChat, "300"))
	if got := api.last().Text; !strings.Contains(got, "I did not understand") {
		t.Fatalf("reply after /status = %q", got)
	}
}

func TestIgnoresOtherChats(t *testing.T) {
	b, api, _ := newTestBot(t)
	run(t, b, command(999, "/add intruder"))
	if api.count() != 0 {
		t.Fatalf("replied to a foreign chat: %+v", api.last())
	}
	tasks, _ := b.ws.Tasks.List(context.Background(), nil)
	if len(tasks) != 0 {
		t.Fatal("foreign chat created a task")
	}
}

func TestBadIDReportsError(t *testing.T) {
	b, api, _ := newTestBot(t)
	run(t, b, command(testChat, "/done abc"))
	if got := api.last().Text; !strings.Contains(got, "not a valid id") {
		t.Fatalf("reply = %q", got)
	}
	run(t, b, command(testChat, "/done 12"))
	if got := api.last().Text; !strings.Contains(got, "not found") {
		t.Fatalf("reply = %q", got)
	}
}

func TestTimerCommandsAndTicks(t *testing.T) {
	b, api, clock := newTestBot(t)
	ctx := context.Background()
	run(t, b, command(testChat, "/add Draft"))
	run(t, b, command(testChat, "/timer 1"))
	if got := api.last().Text; !strings.Contains(got, "Focus for 25 min") || !strings.Contains(got, "Draft") {
		t.Fatalf("reply = %q", got)
	}

	run(t, b, command(testChat, "/pause"))
	if b.ws.Timer.State() != service.TimerPaused {
		t.Fatalf("state = %s", b.ws.Timer.State())
	}
	run(t, b, command(testChat, "/pause"))
	if got := api.last().Text; !strings.HasPrefix(got, "⚠️") {
		t.Fatalf("double pause reply = %q", got)
	}
	run(t, b, command(testChat, "/resume"))

	clock.now = clock.now.Add(25 * time.Minute)
	before := api.count()
	if err := b.advanceTimer(ctx); err != nil {
		t.Fatal(err)
	}
	if api.count() != before+2 {
		t.Fatalf("expected completion and break messages, got %d", api.count()-before)
	}
	if got := api.last().Text; !strings.Contains(got, "Break for 05:00") {
		t.Fatalf("reply = %q", got)
	}

	run(t, b, command(testChat, "/status"))
	if got := api.last().Text; !strings.Contains(got, "Break") {
		t.Fatalf("status = %q", got)
	}
	run(t, b, command(testChat, "/skip"))
	if b.ws.Timer.State() != service.TimerIdle {
		t.Fatalf("state = %s", b.ws.Timer.State())
	}
}

func TestCancelCommand(t *testing.T) {
	b, api, _ := newTestBot(t)
	run(t, b, command(testChat, "/timer"))
	run(t, b, command(testChat, "/cancel"))
	if b.ws.Timer.State() != service.TimerIdle {
		t.Fatalf("state = %s", b.ws.Timer.State())
	}
	if got := api.last().Text; !strings.Contains(got, "cancelled") {
		t.Fatalf("reply = %q", got)
	}
	snap, err := b.ws.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.PomodorosCancelled != 1 {
		t.Fatalf("cancelled = %d", snap.PomodorosCancelled)
	}
}

func TestCallbacks(t *testing.T) {
	b, api, _ := newTestBot(t)
	ctx := context.Background()
	run(t, b, command(testChat, "/add Outline act two"))
	run(t, b, command(testChat, "/tasks"))
	markup, ok := api.last().ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(markup.InlineKeyboard) != 1 {
		t.Fatalf("task list markup = %#v", api.last().ReplyMarkup)
	}

	cb := &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    cbStartPrefix + "1",
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: testChat}},
	}
	if err := b.handleCallback(ctx, cb); err != nil {
		t.Fatal(err)
	}
	if b.ws.Timer.State() != service.TimerRunning {
		t.Fatalf("state = %s", b.ws.Timer.State())
	}

	cb.Data = cbCompletePrefix + "1"
	if err := b.handleCallback(ctx, cb); err != nil {
		t.Fatal(err)
	}
	task, _ := b.ws.Tasks.GetTask(ctx, 1)
	if !task.IsDone() {
		t.Fatal("callback did not complete the task")
	}
	if api.requests != 2 {
		t.Fatalf("callbacks acknowledged %d times, want 2", api.requests)
	}
}

func TestOutlineAndWords(t *testing.T) {
	b, api, _ := newTestBot(t)
	run(t, b, command(testChat, "/outline add Act One"))
	run(t, b, command(testChat, "/outline under 1 Opening scene"))
	run(t, b, command(testChat, "/outline done 2"))
	run(t, b, command(testChat, "/outline"))
	got := api.last().Text
	if !strings.Contains(got, "☐ <b>#1</b> Act One") || !strings.Contains(got, "   ☑ <b>#2</b> Opening scene") {
		t.Fatalf("outline = %q", got)
	}

	run(t, b, command(testChat, "/outline rename 1 Act One: Arrival"))
	if got := api.last().Text; got != "🗂 Renamed <b>#1</b> to Act One: Arrival" {
		t.Fatalf("rename reply = %q", got)
	}
	run(t, b, command(testChat, "/outline"))
	if got := api.last().Text; !strings.Contains(got, "☐ <b>#1</b> Act One: Arrival") {
		t.Fatalf("outline after rename = %q", got)
	}
	run(t, b, command(testChat, "/outline rename 1"))
	if got := api.last().Text; !strings.HasPrefix(got, "⚠️") {
		t.Fatalf("blank rename reply = %q", got)
	}

	run(t, b, command(testChat, "/outline under 9 Orphan"))
	if got := api.last().Text; !strings.Contains(got, "not found") {
		t.Fatalf("reply = %q", got)
	}

	run(t, b, command(testChat, "/words 1020 2"))
	if got := api.last().Text; !strings.Contains(got, "1,020") {
		t.Fatalf("reply = %q", got)
	}
	run(t, b, command(testChat, "/words"))
	run(t, b, plain(testChat, "-5"))
	if got := api.last().Text; !strings.HasPrefix(got, "⚠️") {
		t.Fatalf("negative words reply = %q", got)
	}

	run(t, b, command(testChat, "/stats 3"))
	if got := api.last().Text; !strings.Contains(got, "Last 3 day(s)") || !strings.Contains(got, "1,020") {
		t.Fatalf("stats = %q", got)
	}
}

func TestStartSendsQueuedReport(t *testing.T) {
	b, api, _ := newTestBot(t)
	b.tick = time.Hour
	b.QueueReport()
	b.QueueReport()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Start(ctx) }()

	deadline := time.After(5 * time.Second)
	for api.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("report was not sent")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Start = %v, want context.Canceled", err)
	}
	if api.count() != 1 {
		t.Fatalf("sent %d messages, want exactly one report", api.count())
	}
	if msg := api.last(); msg.ChatID != testChat || !strings.Contains(msg.Text, "Daily report") {
		t.Fatalf("report = %+v", msg)
	}
}

func TestParseTaskIDAndShortTitle(t *testing.T) {
	if id, err := parseTaskID("complete:17", cbCompletePrefix); err != nil || id != 17 {
		t.Fatalf("parseTaskID = %d, %v", id, err)
	}
	if _, err := parseTaskID("complete:x", cbCompletePrefix); err == nil {
		t.Fatal("expected error")
	}
	if got := shortTitle("a very long title that keeps going", 10); got != "A very lo…" {
		t.Fatalf("shortTitle = %q", got)
	}
}
