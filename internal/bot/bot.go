package bot

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vespers/internal/app"
	"vespers/internal/apperr"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageWords
)

const (
	cbCompletePrefix = "complete:"
	cbStartPrefix    = "start:"
)

const (
	btnCancelDialog  = "⏪ Cancel input"
	menuLabelNewTask = "➕ New task"
	menuLabelTasks   = "📋 Tasks"
	menuLabelTimer   = "🍅 Focus"
	menuLabelStats   = "📈 Stats"
	menuLabelHelp    = "ℹ️ Help"
	iconDone         = "✅"

	defaultTick = 5 * time.Second
)

// telegramAPI is the part of *tgbotapi.BotAPI the bot uses.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is a Telegram companion for one chat. All workspace access happens on the
// goroutine running Start; other goroutines talk to it through QueueReport.
type Bot struct {
	api     telegramAPI
	ws      *app.Workspace
	chatID  int64
	logger  *slog.Logger
	reports chan struct{}
	tick    time.Duration
	stage   conversationStage
}

// New connects to Telegram with token and serves chatID only.
func New(token string, chatID int64, ws *app.Workspace, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	if logger == nil {
		logger = ws.Logger.Logger
	}
	logger.Info("bot authorized", "account", api.Self.UserName, "chat", chatID)
	return newBot(api, chatID, ws, logger), nil
}

func newBot(api telegramAPI, chatID int64, ws *app.Workspace, logger *slog.Logger) *Bot {
	return &Bot{
		api:     api,
		ws:      ws,
		chatID:  chatID,
		logger:  logger,
		reports: make(chan struct{}, 1),
		tick:    defaultTick,
	}
}

// QueueReport asks the update loop to send the daily report. It never blocks; a
// report already waiting absorbs the request.
func (b *Bot) QueueReport() {
	select {
	case b.reports <- struct{}{}:
	default:
		b.logger.Debug("daily report already queued")
	}
}

// Start polls updates until ctx is cancelled. Updates, queued reports and timer
// ticks are all handled on this goroutine.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	ticker := time.NewTicker(b.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		case <-b.reports:
			if err := b.SendDailyReport(ctx); err != nil {
				b.logger.Error("send daily report", "err", err)
			}
		case <-ticker.C:
			if err := b.advanceTimer(ctx); err != nil {
				b.logger.Error("advance timer", "err", err)
			}
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.logger.Error("handle callback", "err", err)
		}
	case update.Message != nil:
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.logger.Error("handle message", "err", err)
		}
	}
}

// SendDailyReport sends today's summary to the chat.
func (b *Bot) SendDailyReport(ctx context.Context) error {
	text, err := b.ws.Reports.DailySummary(ctx, b.ws.Clock.Now())
	if err != nil {
		return err
	}
	b.logger.Info("daily report sent", "chat", b.chatID)
	return b.sendText(b.chatID, text)
}

// advanceTimer applies due timer transitions and tells the chat about them.
func (b *Bot) advanceTimer(ctx context.Context) error {
	if !b.ws.Timer.Active() {
		return nil
	}
	fired, err := b.ws.Timer.Advance(ctx)
	for _, event := range fired {
		if text := timerEventText(event, b.ws.Timer.Remaining()); text != "" {
			if sendErr := b.sendText(b.chatID, text); sendErr != nil {
				return sendErr
			}
		}
	}
	return err
}

func (b *Bot) allowed(chatID int64) bool {
	return chatID == b.chatID
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

// sendError replies with a user-facing error and logs failures of the program.
func (b *Bot) sendError(chatID int64, err error) error {
	if !apperr.IsUserFacing(err) {
		b.logger.Error("command failed", "err", err)
	}
	return b.sendText(chatID, "⚠️ "+escape(apperr.Message(err)))
}

func (b *Bot) ack(cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Warn("callback ack", "err", err)
	}
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
			tgbotapi.NewKeyboardButton(menuLabelTimer),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelStats),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func isCancelDialogInput(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), btnCancelDialog)
}

func parseTaskID(data, prefix string) (uint, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(data, prefix))
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperr.MalformedInput("bot.parse_id", "%q is not a valid id", raw)
	}
	return uint(value), nil
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
