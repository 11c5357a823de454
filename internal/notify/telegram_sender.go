package notify

import (
	"context"
	"fmt"
	"html"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
}

// TelegramSender delivers alerts as chat messages to the owner chat.
type TelegramSender struct {
	api     telegramAPI
	chatID  int64
	limiter *rate.Limiter

	mu         sync.Mutex
	authorized bool
}

// NewTelegramSender limits delivery to perSecond messages with a burst of one.
func NewTelegramSender(api telegramAPI, chatID int64, perSecond float64) *TelegramSender {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &TelegramSender{
		api:     api,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

// Authorize verifies that the bot can reach the owner chat. A successful
// check is remembered.
func (s *TelegramSender) Authorize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authorized {
		return nil
	}
	if s.chatID == 0 {
		return ErrPermissionDenied
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: s.chatID}}); err != nil {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	s.authorized = true
	return nil
}

func (s *TelegramSender) Send(ctx context.Context, p Payload) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(s.chatID, FormatPayload(p))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	return nil
}

// FormatPayload renders an alert as Telegram HTML.
func FormatPayload(p Payload) string {
	text := "🔔 <b>" + html.EscapeString(p.Title) + "</b>"
	if p.Body != "" {
		text += "\n" + html.EscapeString(p.Body)
	}
	return text
}
