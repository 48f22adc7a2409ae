package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vespers/internal/apperr"
	"vespers/internal/metrics"
	"vespers/internal/model"
	"vespers/internal/service"
)

const helpText = "ℹ️ <b>Vespers</b>\n" +
	"• /tasks: open tasks with buttons\n" +
	"• /add &lt;title&gt;: add a task\n" +
	"• /done &lt;id&gt;, /reopen &lt;id&gt;: change a task\n" +
	"• /timer [id]: start a pomodoro, optionally for a task\n" +
	"• /status: show the timer\n" +
	"• /pause, /resume, /stop, /cancel: control the pomodoro\n" +
	"• /skip: skip the break\n" +
	"• /words &lt;n&gt; [node]: log words written\n" +
	"• /outline: show the outline\n" +
	"• /outline add &lt;title&gt;, /outline under &lt;id&gt; &lt;title&gt;\n" +
	"• /outline rename &lt;id&gt; &lt;title&gt;, /outline done &lt;id&gt;\n" +
	"• /stats [days]: figures for the last days\n" +
	"• /report: today's report"

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.Chat == nil || !b.allowed(msg.Chat.ID) {
		if msg.Chat != nil {
			b.logger.Warn("ignoring message from unknown chat", "chat", msg.Chat.ID)
		}
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.stage = stageNone
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		b.logger.Info("command", "name", msg.Command(), "args", msg.CommandArguments())
		// Any command but /cancel abandons a pending prompt.
		if msg.Command() != "cancel" {
			b.stage = stageNone
		}
		return b.handleCommand(ctx, msg.Chat.ID, msg.Command(), strings.TrimSpace(msg.CommandArguments()))
	}

	if b.stage != stageNone {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "I did not understand that. Send /add to add a task or /help for the commands.")
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, command, args string) error {
	switch command {
	case "start", "help":
		return b.sendText(chatID, helpText)
	case "tasks":
		return b.sendTaskList(ctx, chatID)
	case "add":
		if args == "" {
			b.stage = stageTitle
			return b.sendWithReplyMarkup(chatID, "✏️ Send the task title.", cancelKeyboard())
		}
		return b.addTask(ctx, chatID, args)
	case "done":
		return b.changeTask(ctx, chatID, args, true)
	case "reopen":
		return b.changeTask(ctx, chatID, args, false)
	case "timer":
		return b.startTimer(ctx, chatID, args)
	case "status":
		return b.sendText(chatID, b.timerStatus())
	case "pause":
		return b.timerAction(chatID, "⏸ Paused.", b.ws.Timer.Pause())
	case "resume":
		return b.timerAction(chatID, "▶️ Resumed.", b.ws.Timer.Resume())
	case "stop":
		_, err := b.ws.Timer.Interrupt(ctx)
		return b.timerAction(chatID, "⏹ Pomodoro interrupted.", err)
	case "skip":
		return b.timerAction(chatID, "⏭ Break skipped.", b.skipBreak(ctx))
	case "cancel":
		if b.stage != stageNone {
			b.stage = stageNone
			return b.sendText(chatID, "⏪ Input cancelled.")
		}
		_, err := b.ws.Timer.Cancel(ctx)
		return b.timerAction(chatID, "🗑 Pomodoro cancelled.", err)
	case "words":
		if args == "" {
			b.stage = stageWords
			return b.sendWithReplyMarkup(chatID, "✍️ How many words did you write?", cancelKeyboard())
		}
		return b.logWords(ctx, chatID, args)
	case "outline":
		return b.handleOutline(ctx, chatID, args)
	case "stats":
		return b.sendStats(ctx, chatID, args)
	case "report":
		text, err := b.ws.Reports.DailySummary(ctx, b.ws.Clock.Now())
		if err != nil {
			return b.sendError(chatID, err)
		}
		return b.sendText(chatID, text)
	default:
		return b.sendText(chatID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	stage := b.stage
	b.stage = stageNone
	switch stage {
	case stageTitle:
		return b.addTask(ctx, msg.Chat.ID, msg.Text)
	case stageWords:
		return b.logWords(ctx, msg.Chat.ID, msg.Text)
	}
	return nil
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewTask):
		return true, b.handleCommand(ctx, msg.Chat.ID, "add", "")
	case strings.ToLower(menuLabelTasks):
		return true, b.sendTaskList(ctx, msg.Chat.ID)
	case strings.ToLower(menuLabelTimer):
		return true, b.startTimer(ctx, msg.Chat.ID, "")
	case strings.ToLower(menuLabelStats):
		return true, b.sendStats(ctx, msg.Chat.ID, "")
	case strings.ToLower(menuLabelHelp):
		return true, b.sendText(msg.Chat.ID, helpText)
	default:
		return false, nil
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.Message == nil || cb.Message.Chat == nil || !b.allowed(cb.Message.Chat.ID) {
		return nil
	}
	b.ack(cb)
	chatID := cb.Message.Chat.ID

	switch data := cb.Data; {
	case strings.HasPrefix(data, cbCompletePrefix):
		return b.changeTask(ctx, chatID, strings.TrimPrefix(data, cbCompletePrefix), true)
	case strings.HasPrefix(data, cbStartPrefix):
		return b.startTimer(ctx, chatID, strings.TrimPrefix(data, cbStartPrefix))
	default:
		return nil
	}
}

func (b *Bot) addTask(ctx context.Context, chatID int64, title string) error {
	task, err := b.ws.Tasks.CreateTask(ctx, title, nil)
	if err != nil {
		return b.sendError(chatID, err)
	}
	b.logger.Info("task created", "id", task.ID)
	return b.sendText(chatID, fmt.Sprintf("➕ Added <b>#%d</b> %s", task.ID, escape(normalizeTitle(task.Title))))
}

func (b *Bot) changeTask(ctx context.Context, chatID int64, args string, done bool) error {
	if args == "" {
		return b.sendText(chatID, "Give the task id, e.g. /done 3")
	}
	taskID, err := parseTaskID(args, "")
	if err != nil {
		return b.sendError(chatID, err)
	}

	var task *model.Task
	if done {
		task, err = b.ws.Tasks.CompleteTask(ctx, taskID)
	} else {
		task, err = b.ws.Tasks.Reopen(ctx, taskID)
	}
	if err != nil {
		return b.sendError(chatID, err)
	}
	if done {
		b.logger.Info("task completed", "id", task.ID)
		return b.sendText(chatID, fmt.Sprintf("%s Task «%s» done.", iconDone, escape(normalizeTitle(task.Title))))
	}
	return b.sendText(chatID, fmt.Sprintf("↩️ Task «%s» reopened.", escape(normalizeTitle(task.Title))))
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64) error {
	tasks, err := b.ws.Tasks.ListActive(ctx)
	if err != nil {
		return b.sendError(chatID, err)
	}
	if len(tasks) == 0 {
		return b.sendText(chatID, "No open tasks. Add one with /add.")
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Open tasks</b>\n")
	builder.WriteString("Tap ✅ to finish a task or 🍅 to focus on it.\n\n")

	now := b.ws.Clock.Now()
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, task := range tasks {
		builder.WriteString(service.FormatTask(task, now))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s #%d · %s", iconDone, task.ID, shortTitle(task.Title, 24)), fmt.Sprintf("%s%d", cbCompletePrefix, task.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🍅", fmt.Sprintf("%s%d", cbStartPrefix, task.ID)),
		))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) startTimer(ctx context.Context, chatID int64, args string) error {
	var taskID *uint
	if args != "" {
		id, err := parseTaskID(args, "")
		if err != nil {
			return b.sendError(chatID, err)
		}
		taskID = &id
	}
	session, err := b.ws.Timer.Start(ctx, taskID, 0)
	if err != nil {
		return b.sendError(chatID, err)
	}
	text := fmt.Sprintf("🍅 Focus for %d min.", int(session.Planned/time.Minute))
	if taskID != nil {
		if task, err := b.ws.Tasks.GetTask(ctx, *taskID); err == nil {
			text += fmt.Sprintf(" Working on «%s».", escape(normalizeTitle(task.Title)))
		}
	}
	return b.sendText(chatID, text)
}

func (b *Bot) skipBreak(ctx context.Context) error {
	if b.ws.Timer.State() == service.TimerBreak {
		_, err := b.ws.Timer.Interrupt(ctx)
		return err
	}
	return b.ws.Timer.SkipBreak()
}

func (b *Bot) timerAction(chatID int64, success string, err error) error {
	if err != nil {
		return b.sendError(chatID, err)
	}
	return b.sendText(chatID, success)
}

func (b *Bot) timerStatus() string {
	snap := b.ws.Timer.Snapshot()
	switch snap.State {
	case service.TimerRunning:
		return fmt.Sprintf("🍅 Running · %s left", formatRemaining(snap.Remaining))
	case service.TimerPaused:
		return fmt.Sprintf("⏸ Paused · %s left", formatRemaining(snap.Remaining))
	case service.TimerFinished:
		return "✅ Pomodoro finished. /skip to skip the break."
	case service.TimerBreak:
		return fmt.Sprintf("☕ Break · %s left", formatRemaining(snap.Remaining))
	default:
		return "💤 Timer idle. /timer to start."
	}
}

func (b *Bot) logWords(ctx context.Context, chatID int64, args string) error {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return b.sendText(chatID, "Give the word count, e.g. /words 500")
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return b.sendError(chatID, apperr.MalformedInput("words.log", "%q is not a number", fields[0]))
	}
	var nodeID *uint
	if len(fields) > 1 {
		id, err := parseTaskID(fields[1], "")
		if err != nil {
			return b.sendError(chatID, err)
		}
		nodeID = &id
	}
	if _, err := b.ws.Words.Log(ctx, n, nodeID); err != nil {
		return b.sendError(chatID, err)
	}
	return b.sendText(chatID, fmt.Sprintf("✍️ Logged %s words.", metrics.Thousands(n)))
}

func (b *Bot) handleOutline(ctx context.Context, chatID int64, args string) error {
	sub, rest, _ := strings.Cut(args, " ")
	rest = strings.TrimSpace(rest)
	switch strings.ToLower(sub) {
	case "":
		tree, err := b.ws.Outline.Tree(ctx)
		if err != nil {
			return b.sendError(chatID, err)
		}
		if len(tree) == 0 {
			return b.sendText(chatID, "The outline is empty. Start it with /outline add &lt;title&gt;.")
		}
		var builder strings.Builder
		builder.WriteString("🗂 <b>Outline</b>\n")
		writeOutline(&builder, tree, 0)
		return b.sendText(chatID, strings.TrimSpace(builder.String()))
	case "add":
		return b.addNode(ctx, chatID, nil, rest)
	case "under":
		idText, title, _ := strings.Cut(rest, " ")
		parentID, err := parseTaskID(idText, "")
		if err != nil {
			return b.sendError(chatID, err)
		}
		return b.addNode(ctx, chatID, &parentID, title)
	case "rename":
		idText, title, _ := strings.Cut(rest, " ")
		id, err := parseTaskID(idText, "")
		if err != nil {
			return b.sendError(chatID, err)
		}
		node, err := b.ws.Outline.Rename(ctx, id, title)
		if err != nil {
			return b.sendError(chatID, err)
		}
		return b.sendText(chatID, fmt.Sprintf("🗂 Renamed <b>#%d</b> to %s", node.ID, escape(node.Title)))
	case "done", "undone":
		id, err := parseTaskID(rest, "")
		if err != nil {
			return b.sendError(chatID, err)
		}
		node, err := b.ws.Outline.SetCompleted(ctx, id, sub == "done")
		if err != nil {
			return b.sendError(chatID, err)
		}
		state := "reopened"
		if node.Completed {
			state = "marked done"
		}
		return b.sendText(chatID, fmt.Sprintf("🗂 «%s» %s.", escape(node.Title), state))
	default:
		return b.sendText(chatID, "Use /outline, /outline add, /outline under, /outline rename or /outline done.")
	}
}

func (b *Bot) addNode(ctx context.Context, chatID int64, parentID *uint, title string) error {
	node, err := b.ws.Outline.AddNode(ctx, parentID, title)
	if err != nil {
		return b.sendError(chatID, err)
	}
	return b.sendText(chatID, fmt.Sprintf("🗂 Added <b>#%d</b> %s", node.ID, escape(node.Title)))
}

func (b *Bot) sendStats(ctx context.Context, chatID int64, args string) error {
	days := b.ws.Config.Dashboard.Days
	if args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n <= 0 {
			return b.sendError(chatID, apperr.MalformedInput("bot.stats", "days must be a positive number"))
		}
		days = n
	}
	snap, err := b.ws.Reports.LastDays(ctx, days)
	if err != nil {
		return b.sendError(chatID, err)
	}
	text := fmt.Sprintf("📈 <b>Last %d day(s)</b>\n", days) + service.FormatSnapshot(snap)
	return b.sendText(chatID, strings.TrimSpace(text))
}

func writeOutline(builder *strings.Builder, nodes []*service.OutlineTree, depth int) {
	for _, node := range nodes {
		mark := "☐"
		if node.Node.Completed {
			mark = "☑"
		}
		builder.WriteString(fmt.Sprintf("%s%s <b>#%d</b> %s\n", strings.Repeat("   ", depth), mark, node.Node.ID, escape(node.Node.Title)))
		writeOutline(builder, node.Children, depth+1)
	}
}

func timerEventText(event service.TimerEvent, remaining time.Duration) string {
	switch event {
	case service.EventComplete:
		return "🍅 Pomodoro complete!"
	case service.EventStartBreak:
		return fmt.Sprintf("☕ Break for %s.", formatRemaining(remaining))
	case service.EventEndBreak:
		return "🔔 Break over. /timer to focus again."
	default:
		return ""
	}
}

func formatRemaining(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d/time.Minute), int(d%time.Minute/time.Second))
}
