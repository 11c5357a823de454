package bot

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"event-planner/internal/model"
)

const (
	btnSkip           = "⏭️ Skip"
	btnKeep           = "📌 Keep"
	btnConfirm        = "✅ Confirm"
	btnBack           = "↩️ Back"
	btnAbort          = "⏪ Abort input"
	menuLabelNewEvent = "➕ New event"
	menuLabelEvents   = "📋 Events"
	menuLabelAgenda   = "🗓 Agenda"
	menuLabelHelp     = "ℹ️ Help"
)

const (
	maxTitleRunes       = 100
	maxDescriptionRunes = 200
)

func formatEvent(ev model.Event, loc *time.Location) string {
	var b strings.Builder

	icon := "🟢"
	switch ev.Status {
	case model.StatusCanceled:
		icon = "🚫"
	case model.StatusInactive:
		icon = "⏸"
	}

	start := ev.StartDate.In(loc)
	end := ev.EndDate.In(loc)
	endLayout := dateLayout
	if sameDay(start, end) {
		endLayout = "15:04"
	}

	b.WriteString(fmt.Sprintf("%s <b>%s</b> <code>%s</code>\n", icon, escape(shortTitle(ev.Title, maxTitleRunes)), ev.ShortID()))
	b.WriteString(fmt.Sprintf("   ⏰ %s – %s\n", start.Format(dateLayout), end.Format(endLayout)))
	if ev.Description != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(shortTitle(ev.Description, maxDescriptionRunes))))
	}
	if n := len(ev.NotificationIDs); n > 0 {
		b.WriteString(fmt.Sprintf("   🔔 %d reminder(s)\n", n))
	}
	return b.String()
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewEvent),
			tgbotapi.NewKeyboardButton(menuLabelEvents),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelAgenda),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnConfirm),
			tgbotapi.NewKeyboardButton(btnBack),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func abortKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAbort),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAbort),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func keepKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnKeep),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAbort),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isKeepInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnKeep) || value == "keep"
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "confirm" || value == "yes"
}

func isBackInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnBack) || value == "back" || value == "no"
}

func isAbortInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnAbort) || value == "abort"
}
