package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"event-planner/internal/model"
	"event-planner/internal/service"
)

type telegramClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// AuthService is the account side of the planner.
type AuthService interface {
	Register(ctx context.Context, input service.RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.User, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*model.User, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, patch service.ProfilePatch) (*model.User, error)
}

// EventService is the event lifecycle as used by the chat.
type EventService interface {
	AddEvent(ctx context.Context, userID string, input service.EventInput) (*model.Event, error)
	UpdateEvent(ctx context.Context, userID string, ev model.Event) (*model.Event, error)
	SetEventStatus(ctx context.Context, userID, eventID string, status model.EventStatus) (*model.Event, error)
	SoftDeleteEvent(ctx context.Context, userID, eventID string) (*model.Event, error)
	ListUserEvents(ctx context.Context, userID string) ([]model.Event, error)
	GetEvent(ctx context.Context, userID, eventID string) (*model.Event, error)
	FindEventByRef(ctx context.Context, userID, ref string) (*model.Event, error)
}

type AgendaService interface {
	Summary(ctx context.Context, userID string, now time.Time) (string, error)
}

// Options configures the chat side of the bot.
type Options struct {
	// ChatID is the only chat the bot answers.
	ChatID   int64
	Location *time.Location
	Now      func() time.Time
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api    telegramClient
	auth   AuthService
	events EventService
	agenda AgendaService
	log    zerolog.Logger

	chatID int64
	loc    *time.Location
	now    func() time.Time

	mu            sync.Mutex
	userID        string
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
}

func New(api telegramClient, auth AuthService, events EventService, agenda AgendaService, opts Options, log zerolog.Logger) *Bot {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Bot{
		api:           api,
		auth:          auth,
		events:        events,
		agenda:        agenda,
		log:           log,
		chatID:        opts.ChatID,
		loc:           opts.Location,
		now:           opts.Now,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}
}

// Start restores the stored session and polls updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	b.restoreSession(ctx)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info().Int64("chat_id", b.chatID).Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}

	return ctx.Err()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.Message == nil || cb.Message.Chat == nil || !b.isOwnerChat(cb.Message.Chat.ID) {
			return
		}
		if err := b.handleCallback(ctx, cb); err != nil {
			b.log.Error().Err(err).Msg("handle callback")
		}
	case update.Message != nil:
		msg := update.Message
		if msg.Chat == nil || !b.isOwnerChat(msg.Chat.ID) {
			if msg.Chat != nil {
				b.log.Debug().Int64("chat_id", msg.Chat.ID).Msg("ignored message from foreign chat")
			}
			return
		}
		if err := b.handleMessage(ctx, msg); err != nil {
			b.log.Error().Err(err).Msg("handle message")
		}
	}
}

func (b *Bot) isOwnerChat(chatID int64) bool {
	return b.chatID != 0 && chatID == b.chatID
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isAbortInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input aborted.")
	}

	if msg.IsCommand() {
		b.log.Info().Int64("from", msg.From.ID).Str("command", msg.Command()).Msg("command received")
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	return b.sendText(msg.Chat.ID, "I did not get that. Use /newevent to add an event or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	// any command ends an unfinished dialog
	b.clearConversation(msg.From.ID)
	b.clearConfirmation(msg.From.ID)

	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "register":
		return b.startRegister(msg)
	case "login":
		return b.startLogin(msg)
	case "logout":
		return b.handleLogout(ctx, msg)
	case "abort":
		return b.sendText(msg.Chat.ID, "⏪ Input aborted.")
	}

	userID, ok := b.session()
	if !ok {
		return b.sendText(msg.Chat.ID, "🔒 Please /login or /register first.")
	}

	switch msg.Command() {
	case "newevent":
		return b.startNewEvent(msg)
	case "events":
		return b.sendEventList(ctx, msg.Chat.ID, userID)
	case "edit":
		return b.startEditByRef(ctx, msg, userID)
	case "cancel":
		return b.setStatusByRef(ctx, msg, userID, model.StatusCanceled)
	case "activate":
		return b.setStatusByRef(ctx, msg, userID, model.StatusActive)
	case "delete":
		return b.askDeleteByRef(ctx, msg, userID)
	case "agenda":
		return b.handleAgenda(ctx, msg.Chat.ID, userID)
	case "export":
		return b.handleExport(ctx, msg.Chat.ID, userID)
	case "profile":
		return b.startProfile(ctx, msg, userID)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	userID, ok := b.session()
	if !ok {
		return b.sendText(msg.Chat.ID, "👋 Hi!\n<b>I keep your events and remind you before they start.</b>\n\n"+
			"• /register — create an account\n"+
			"• /login — sign in\n"+
			"• /help — all commands")
	}

	name := "there"
	if user, err := b.auth.GetUser(ctx, userID); err == nil && user.FullName() != "" {
		name = user.FullName()
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("👋 Welcome back, %s!\nUse /events to see your events or /newevent to add one.", escape(name)))
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"• /register, /login, /logout — account\n" +
		"• /newevent — add an event step by step\n" +
		"• /events — list events with cancel/recover/edit/delete buttons\n" +
		"• /edit &lt;ref&gt; — edit an event\n" +
		"• /cancel &lt;ref&gt; — cancel an event and its reminders\n" +
		"• /activate &lt;ref&gt; — make an event active again\n" +
		"• /delete &lt;ref&gt; — delete an event\n" +
		"• /agenda — what is coming up\n" +
		"• /export — download events as .ics\n" +
		"• /profile — change name, email or password\n" +
		"• /abort — abort the current input\n\n" +
		"&lt;ref&gt; is the short code shown next to each event. Times use <code>" + dateLayout + "</code>."
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleLogout(ctx context.Context, msg *tgbotapi.Message) error {
	if err := b.auth.Logout(ctx); err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	b.setSession("")
	return b.sendText(msg.Chat.ID, "👋 Logged out.")
}

func (b *Bot) restoreSession(ctx context.Context) {
	user, err := b.auth.CurrentUser(ctx)
	switch {
	case errors.Is(err, service.ErrNoSession):
		b.log.Info().Msg("no stored session")
	case err != nil:
		b.log.Error().Err(err).Msg("restore session")
	default:
		b.setSession(user.ID)
		b.log.Info().Str("user_id", user.ID).Msg("session restored")
	}
}

func (b *Bot) session() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.userID, b.userID != ""
}

func (b *Bot) setSession(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.userID = userID
}

// replyError shows user-facing errors verbatim and hides the rest.
func (b *Bot) replyError(chatID int64, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return b.sendText(chatID, "❌ "+escape(verr.Message))
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrInvalidCredentials):
		return b.sendText(chatID, "❌ "+escape(err.Error()))
	default:
		b.log.Error().Err(err).Msg("request failed")
		return b.sendText(chatID, "⚠️ Something went wrong, please try again.")
	}
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

// deleteMessage removes a message from the chat, used for passwords.
func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.log.Warn().Err(err).Msg("delete message")
	}
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func escape(s string) string {
	return html.EscapeString(s)
}
