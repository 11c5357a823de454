package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"event-planner/internal/model"
	"event-planner/internal/service"
)

const dateLayout = "2006-01-02 15:04"

type conversationStage int

const (
	stageNone conversationStage = iota
	stageRegFirstName
	stageRegLastName
	stageRegEmail
	stageRegPassword
	stageRegConfirm
	stageLoginEmail
	stageLoginPassword
	stageEventTitle
	stageEventDescription
	stageEventStart
	stageEventEnd
	stageProfileFirstName
	stageProfileLastName
	stageProfileEmail
	stageProfilePassword
	stageProfileConfirm
)

type conversationState struct {
	stage    conversationStage
	register service.RegisterInput
	email    string
	event    service.EventInput
	// editing is the stored event while an edit dialog runs.
	editing *model.Event
	userID  string
	profile service.ProfilePatch
}

func (b *Bot) startRegister(msg *tgbotapi.Message) error {
	b.setConversation(msg.From.ID, &conversationState{stage: stageRegFirstName})
	return b.sendWithReplyMarkup(msg.Chat.ID, "📝 Creating an account.\n<b>Step 1:</b> your first name?", abortKeyboard())
}

func (b *Bot) startLogin(msg *tgbotapi.Message) error {
	b.setConversation(msg.From.ID, &conversationState{stage: stageLoginEmail})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🔑 Your email?", abortKeyboard())
}

func (b *Bot) startNewEvent(msg *tgbotapi.Message) error {
	userID, _ := b.session()
	b.log.Info().Str("user_id", userID).Msg("start new event conversation")
	b.setConversation(msg.From.ID, &conversationState{stage: stageEventTitle, userID: userID})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New event.\n<b>Step 1:</b> what is it called?", abortKeyboard())
}

func (b *Bot) startEdit(chatID, fromID int64, userID string, ev *model.Event) error {
	state := &conversationState{stage: stageEventTitle, userID: userID, editing: ev}
	b.setConversation(fromID, state)
	text := fmt.Sprintf("✏️ Editing <b>%s</b>.\n<b>Step 1:</b> new title?", escape(ev.Title))
	return b.sendWithReplyMarkup(chatID, text, keepKeyboard())
}

func (b *Bot) startProfile(ctx context.Context, msg *tgbotapi.Message, userID string) error {
	user, err := b.auth.GetUser(ctx, userID)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	b.setConversation(msg.From.ID, &conversationState{stage: stageProfileFirstName, userID: userID})
	text := fmt.Sprintf("⚙️ <b>Profile</b>\nName: %s\nEmail: %s\n\n<b>Step 1:</b> first name?",
		escape(user.FullName()), escape(user.Email))
	return b.sendWithReplyMarkup(msg.Chat.ID, text, keepKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	chatID := msg.Chat.ID

	switch state.stage {
	case stageRegFirstName:
		state.register.FirstName = text
		state.stage = stageRegLastName
		return b.sendWithReplyMarkup(chatID, "<b>Step 2:</b> last name?", abortKeyboard())
	case stageRegLastName:
		state.register.LastName = text
		state.stage = stageRegEmail
		return b.sendWithReplyMarkup(chatID, "<b>Step 3:</b> email?", abortKeyboard())
	case stageRegEmail:
		state.register.Email = text
		state.stage = stageRegPassword
		return b.sendWithReplyMarkup(chatID, "<b>Step 4:</b> password (at least 5 characters with a digit and a special character). The message will be removed.", abortKeyboard())
	case stageRegPassword:
		b.deleteMessage(chatID, msg.MessageID)
		state.register.Password = msg.Text
		state.stage = stageRegConfirm
		return b.sendWithReplyMarkup(chatID, "<b>Step 5:</b> repeat the password.", abortKeyboard())
	case stageRegConfirm:
		b.deleteMessage(chatID, msg.MessageID)
		state.register.Confirm = msg.Text
		b.clearConversation(msg.From.ID)
		return b.finishRegister(ctx, chatID, state.register)

	case stageLoginEmail:
		state.email = text
		state.stage = stageLoginPassword
		return b.sendWithReplyMarkup(chatID, "🔑 Password? The message will be removed.", abortKeyboard())
	case stageLoginPassword:
		b.deleteMessage(chatID, msg.MessageID)
		b.clearConversation(msg.From.ID)
		return b.finishLogin(ctx, chatID, state.email, msg.Text)

	case stageEventTitle:
		switch {
		case state.editing != nil && isKeepInput(text):
			state.event.Title = state.editing.Title
		case text == "":
			return b.sendWithReplyMarkup(chatID, "Title is required.", abortKeyboard())
		default:
			state.event.Title = text
		}
		state.stage = stageEventDescription
		if state.editing != nil {
			return b.sendWithReplyMarkup(chatID, "<b>Step 2:</b> description (send <code>-</code> to clear).", keepKeyboard())
		}
		return b.sendWithReplyMarkup(chatID, "<b>Step 2:</b> short description (or skip).", skipKeyboard())
	case stageEventDescription:
		switch {
		case state.editing != nil && isKeepInput(text):
			state.event.Description = state.editing.Description
		case isSkipInput(text):
			state.event.Description = ""
		default:
			state.event.Description = text
		}
		state.stage = stageEventStart
		return b.askTime(chatID, state, "<b>Step 3:</b> start time")
	case stageEventStart:
		start, ok := b.parseTimeInput(text, state, func(ev *model.Event) time.Time { return ev.StartDate })
		if !ok {
			return b.askTime(chatID, state, "Cannot read the date. Start time")
		}
		state.event.StartDate = start
		state.stage = stageEventEnd
		return b.askTime(chatID, state, "<b>Step 4:</b> end time")
	case stageEventEnd:
		end, ok := b.parseTimeInput(text, state, func(ev *model.Event) time.Time { return ev.EndDate })
		if !ok {
			return b.askTime(chatID, state, "Cannot read the date. End time")
		}
		state.event.EndDate = end
		return b.finishEvent(ctx, chatID, msg.From.ID, state)

	case stageProfileFirstName:
		if !isKeepInput(text) {
			state.profile.FirstName = &text
		}
		state.stage = stageProfileLastName
		return b.sendWithReplyMarkup(chatID, "<b>Step 2:</b> last name?", keepKeyboard())
	case stageProfileLastName:
		if !isKeepInput(text) {
			state.profile.LastName = &text
		}
		state.stage = stageProfileEmail
		return b.sendWithReplyMarkup(chatID, "<b>Step 3:</b> email?", keepKeyboard())
	case stageProfileEmail:
		if !isKeepInput(text) {
			state.profile.Email = &text
		}
		state.stage = stageProfilePassword
		return b.sendWithReplyMarkup(chatID, "<b>Step 4:</b> new password, or keep the current one. The message will be removed.", keepKeyboard())
	case stageProfilePassword:
		if isKeepInput(text) {
			b.clearConversation(msg.From.ID)
			return b.finishProfile(ctx, chatID, state)
		}
		b.deleteMessage(chatID, msg.MessageID)
		password := msg.Text
		state.profile.Password = &password
		state.stage = stageProfileConfirm
		return b.sendWithReplyMarkup(chatID, "<b>Step 5:</b> repeat the new password.", abortKeyboard())
	case stageProfileConfirm:
		b.deleteMessage(chatID, msg.MessageID)
		confirm := msg.Text
		state.profile.Confirm = &confirm
		b.clearConversation(msg.From.ID)
		return b.finishProfile(ctx, chatID, state)

	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(chatID, "Dialog reset. Please start again.")
	}
}

func (b *Bot) askTime(chatID int64, state *conversationState, prompt string) error {
	text := fmt.Sprintf("%s in the format <code>%s</code>?", prompt, b.now().In(b.loc).Format(dateLayout))
	if state.editing != nil {
		return b.sendWithReplyMarkup(chatID, text, keepKeyboard())
	}
	return b.sendWithReplyMarkup(chatID, text, abortKeyboard())
}

func (b *Bot) parseTimeInput(text string, state *conversationState, stored func(*model.Event) time.Time) (time.Time, bool) {
	if state.editing != nil && isKeepInput(text) {
		return stored(state.editing), true
	}
	t, err := time.ParseInLocation(dateLayout, text, b.loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (b *Bot) finishRegister(ctx context.Context, chatID int64, input service.RegisterInput) error {
	user, err := b.auth.Register(ctx, input)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			if sendErr := b.replyError(chatID, err); sendErr != nil {
				return sendErr
			}
			return b.sendText(chatID, "Start over with /register.")
		}
		return b.replyError(chatID, err)
	}
	b.setSession(user.ID)
	return b.sendText(chatID, fmt.Sprintf("✅ Account created. Welcome, %s!\nAdd your first event with /newevent.", escape(displayName(user))))
}

func (b *Bot) finishLogin(ctx context.Context, chatID int64, email, password string) error {
	user, err := b.auth.Login(ctx, email, password)
	if err != nil {
		return b.replyError(chatID, err)
	}
	b.setSession(user.ID)
	return b.sendText(chatID, fmt.Sprintf("✅ Logged in as %s.", escape(displayName(user))))
}

func (b *Bot) finishEvent(ctx context.Context, chatID, fromID int64, state *conversationState) error {
	var (
		ev  *model.Event
		err error
	)
	if state.editing != nil {
		// the event may have been canceled or recovered while the dialog ran
		stored, getErr := b.events.GetEvent(ctx, state.userID, state.editing.ID)
		if getErr != nil {
			b.clearConversation(fromID)
			return b.replyError(chatID, getErr)
		}
		upd := *stored
		upd.Title = state.event.Title
		upd.Description = state.event.Description
		upd.StartDate = state.event.StartDate
		upd.EndDate = state.event.EndDate
		ev, err = b.events.UpdateEvent(ctx, state.userID, upd)
	} else {
		ev, err = b.events.AddEvent(ctx, state.userID, state.event)
	}

	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) && !errors.Is(err, service.ErrEventDeleted) {
			// stay on the last step so only the end time has to be re-entered
			return b.askTime(chatID, state, "❌ "+escape(verr.Message)+"\nEnd time")
		}
		b.clearConversation(fromID)
		return b.replyError(chatID, err)
	}
	b.clearConversation(fromID)

	verb := "saved"
	if state.editing != nil {
		verb = "updated"
	}
	b.log.Info().Str("user_id", state.userID).Str("event_id", ev.ID).Str("action", verb).Msg("event form completed")

	if err := b.sendText(chatID, fmt.Sprintf("✅ <b>Event %s</b>\n%s", verb, formatEvent(*ev, b.loc))); err != nil {
		return err
	}
	return b.sendEventList(ctx, chatID, state.userID)
}

func (b *Bot) finishProfile(ctx context.Context, chatID int64, state *conversationState) error {
	user, err := b.auth.UpdateProfile(ctx, state.userID, state.profile)
	if err != nil {
		return b.replyError(chatID, err)
	}
	return b.sendText(chatID, fmt.Sprintf("✅ Profile updated.\nName: %s\nEmail: %s", escape(user.FullName()), escape(user.Email)))
}

func displayName(u *model.User) string {
	if name := u.FullName(); name != "" {
		return name
	}
	return u.Email
}
