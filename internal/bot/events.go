package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"event-planner/internal/calendar"
	"event-planner/internal/model"
	"event-planner/internal/service"
)

const (
	cbCancelPrefix  = "cancel:"
	cbRecoverPrefix = "recover:"
	cbEditPrefix    = "edit:"
	cbDeletePrefix  = "delete:"
	cbPagePrefix    = "page:"
)

// eventsPerPage keeps a list message well under Telegram's 4096 character
// and inline keyboard limits.
const eventsPerPage = 8

type confirmationRequest struct {
	userID  string
	eventID string
	title   string
}

func (b *Bot) sendEventList(ctx context.Context, chatID int64, userID string) error {
	return b.sendEventPage(ctx, chatID, userID, 0)
}

func (b *Bot) sendEventPage(ctx context.Context, chatID int64, userID string, page int) error {
	all, err := b.events.ListUserEvents(ctx, userID)
	if err != nil {
		return b.replyError(chatID, err)
	}
	events := service.VisibleEvents(all)
	if len(events) == 0 {
		return b.sendText(chatID, "You have no events yet. Add one with /newevent.")
	}

	pages := (len(events) + eventsPerPage - 1) / eventsPerPage
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}
	from := page * eventsPerPage
	to := min(from+eventsPerPage, len(events))

	var builder strings.Builder
	builder.WriteString("📋 <b>Your events</b>")
	if pages > 1 {
		builder.WriteString(fmt.Sprintf(" (page %d/%d)", page+1, pages))
	}
	builder.WriteString("\nUse the buttons to cancel, recover, edit or delete an event.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, ev := range events[from:to] {
		builder.WriteString(formatEvent(ev, b.loc))
		builder.WriteByte('\n')

		label := shortTitle(ev.Title, 16)
		var row []tgbotapi.InlineKeyboardButton
		if ev.Status == model.StatusCanceled {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData("♻️ "+label, cbRecoverPrefix+ev.ID))
		} else {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData("🚫 "+label, cbCancelPrefix+ev.ID))
		}
		row = append(row,
			tgbotapi.NewInlineKeyboardButtonData("✏️", cbEditPrefix+ev.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+ev.ID),
		)
		buttons = append(buttons, row)
	}

	var nav []tgbotapi.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("◀️ Prev", cbPagePrefix+strconv.Itoa(page-1)))
	}
	if page < pages-1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Next ▶️", cbPagePrefix+strconv.Itoa(page+1)))
	}
	if len(nav) > 0 {
		buttons = append(buttons, nav)
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.From == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn().Err(err).Msg("callback ack")
	}

	chatID := cb.Message.Chat.ID
	userID, ok := b.session()
	if !ok {
		return b.sendText(chatID, "🔒 Please /login or /register first.")
	}

	data := cb.Data
	b.log.Info().Int64("from", cb.From.ID).Str("data", data).Msg("callback received")

	switch {
	case strings.HasPrefix(data, cbPagePrefix):
		page, err := strconv.Atoi(strings.TrimPrefix(data, cbPagePrefix))
		if err != nil {
			return nil
		}
		return b.sendEventPage(ctx, chatID, userID, page)
	case strings.HasPrefix(data, cbCancelPrefix):
		return b.changeStatus(ctx, chatID, userID, strings.TrimPrefix(data, cbCancelPrefix), model.StatusCanceled)
	case strings.HasPrefix(data, cbRecoverPrefix):
		return b.changeStatus(ctx, chatID, userID, strings.TrimPrefix(data, cbRecoverPrefix), model.StatusActive)
	case strings.HasPrefix(data, cbEditPrefix):
		ev, err := b.events.GetEvent(ctx, userID, strings.TrimPrefix(data, cbEditPrefix))
		if err != nil {
			return b.replyError(chatID, err)
		}
		b.clearConfirmation(cb.From.ID)
		return b.startEdit(chatID, cb.From.ID, userID, ev)
	case strings.HasPrefix(data, cbDeletePrefix):
		ev, err := b.events.GetEvent(ctx, userID, strings.TrimPrefix(data, cbDeletePrefix))
		if err != nil {
			return b.replyError(chatID, err)
		}
		b.clearConversation(cb.From.ID)
		return b.askDeleteConfirmation(chatID, cb.From.ID, userID, ev)
	default:
		return nil
	}
}

func (b *Bot) changeStatus(ctx context.Context, chatID int64, userID, eventID string, status model.EventStatus) error {
	ev, err := b.events.SetEventStatus(ctx, userID, eventID, status)
	if err != nil {
		return b.replyError(chatID, err)
	}

	var info string
	switch status {
	case model.StatusCanceled:
		info = fmt.Sprintf("🚫 «%s» canceled, reminders removed.", escape(ev.Title))
	case model.StatusActive:
		info = fmt.Sprintf("♻️ «%s» is active again, %d reminder(s) set.", escape(ev.Title), len(ev.NotificationIDs))
	default:
		info = fmt.Sprintf("«%s» is now %s.", escape(ev.Title), status)
	}
	if err := b.sendText(chatID, info); err != nil {
		return err
	}
	return b.sendEventList(ctx, chatID, userID)
}

func (b *Bot) setStatusByRef(ctx context.Context, msg *tgbotapi.Message, userID string, status model.EventStatus) error {
	ev, err := b.eventFromArgs(ctx, msg, userID)
	if ev == nil {
		return err
	}
	return b.changeStatus(ctx, msg.Chat.ID, userID, ev.ID, status)
}

func (b *Bot) startEditByRef(ctx context.Context, msg *tgbotapi.Message, userID string) error {
	ev, err := b.eventFromArgs(ctx, msg, userID)
	if ev == nil {
		return err
	}
	return b.startEdit(msg.Chat.ID, msg.From.ID, userID, ev)
}

func (b *Bot) askDeleteByRef(ctx context.Context, msg *tgbotapi.Message, userID string) error {
	ev, err := b.eventFromArgs(ctx, msg, userID)
	if ev == nil {
		return err
	}
	return b.askDeleteConfirmation(msg.Chat.ID, msg.From.ID, userID, ev)
}

// eventFromArgs resolves the command argument. A nil event means the user has
// already been answered and err is the send result.
func (b *Bot) eventFromArgs(ctx context.Context, msg *tgbotapi.Message, userID string) (*model.Event, error) {
	ref := strings.TrimSpace(msg.CommandArguments())
	if ref == "" {
		return nil, b.sendText(msg.Chat.ID, fmt.Sprintf("Add the event code: /%s 1a2b3c4d. See /events for codes.", msg.Command()))
	}
	ev, err := b.events.FindEventByRef(ctx, userID, ref)
	if err != nil {
		return nil, b.replyError(msg.Chat.ID, err)
	}
	return ev, nil
}

func (b *Bot) askDeleteConfirmation(chatID, fromID int64, userID string, ev *model.Event) error {
	b.setConfirmation(fromID, confirmationRequest{userID: userID, eventID: ev.ID, title: ev.Title})
	text := fmt.Sprintf("Delete «%s» (<code>%s</code>)?", escape(ev.Title), ev.ShortID())
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		if _, err := b.events.SoftDeleteEvent(ctx, req.userID, req.eventID); err != nil {
			return b.replyError(msg.Chat.ID, err)
		}
		if err := b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 «%s» deleted.", escape(req.title))); err != nil {
			return err
		}
		return b.sendEventList(ctx, msg.Chat.ID, req.userID)
	case isBackInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "↩️ Kept.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Confirm or go back.", confirmKeyboard())
	}
}

func (b *Bot) handleAgenda(ctx context.Context, chatID int64, userID string) error {
	text, err := b.agenda.Summary(ctx, userID, b.now().In(b.loc))
	if err != nil {
		return b.replyError(chatID, err)
	}
	return b.sendText(chatID, text)
}

func (b *Bot) handleExport(ctx context.Context, chatID int64, userID string) error {
	events, err := b.events.ListUserEvents(ctx, userID)
	if err != nil {
		return b.replyError(chatID, err)
	}
	if len(service.VisibleEvents(events)) == 0 {
		return b.sendText(chatID, "Nothing to export yet.")
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  "events.ics",
		Bytes: calendar.Export(events, b.now()),
	})
	doc.Caption = "📆 Your events. Import the file into any calendar app."
	if _, err := b.api.Send(doc); err != nil {
		return err
	}
	b.log.Info().Str("user_id", userID).Msg("calendar exported")
	return nil
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.ToLower(strings.TrimSpace(msg.Text))
	switch text {
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	case strings.ToLower(menuLabelNewEvent), strings.ToLower(menuLabelEvents), strings.ToLower(menuLabelAgenda):
	default:
		return false, nil
	}

	userID, ok := b.session()
	if !ok {
		return true, b.sendText(msg.Chat.ID, "🔒 Please /login or /register first.")
	}
	switch text {
	case strings.ToLower(menuLabelNewEvent):
		return true, b.startNewEvent(msg)
	case strings.ToLower(menuLabelEvents):
		return true, b.sendEventList(ctx, msg.Chat.ID, userID)
	default:
		return true, b.handleAgenda(ctx, msg.Chat.ID, userID)
	}
}
