package notify

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTelegram struct {
	sent       []tgbotapi.Chattable
	getChatErr error
	chatCalls  int
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeTelegram) GetChat(tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error) {
	f.chatCalls++
	if f.getChatErr != nil {
		return tgbotapi.Chat{}, f.getChatErr
	}
	return tgbotapi.Chat{ID: 42}, nil
}

func TestTelegramSender_Authorize(t *testing.T) {
	api := &fakeTelegram{}
	s := NewTelegramSender(api, 42, 10)

	require.NoError(t, s.Authorize(context.Background()))
	require.NoError(t, s.Authorize(context.Background()))
	assert.Equal(t, 1, api.chatCalls)
}

func TestTelegramSender_AuthorizeDenied(t *testing.T) {
	s := NewTelegramSender(&fakeTelegram{}, 0, 10)
	assert.ErrorIs(t, s.Authorize(context.Background()), ErrPermissionDenied)

	api := &fakeTelegram{getChatErr: errors.New("chat not found")}
	s = NewTelegramSender(api, 42, 10)
	err := s.Authorize(context.Background())
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegramSender_Send(t *testing.T) {
	api := &fakeTelegram{}
	s := NewTelegramSender(api, 42, 10)

	require.NoError(t, s.Send(context.Background(), Payload{Title: "Event in 5 minutes", Body: "Q&A <prep>"}))
	require.Len(t, api.sent, 1)

	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.Equal(t, "🔔 <b>Event in 5 minutes</b>\nQ&amp;A &lt;prep&gt;", msg.Text)
}

func TestTelegramSender_SendHonoursContext(t *testing.T) {
	api := &fakeTelegram{}
	s := NewTelegramSender(api, 42, 0.001)
	require.NoError(t, s.Send(context.Background(), Payload{Title: "first"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, s.Send(ctx, Payload{Title: "second"}))
	assert.Len(t, api.sent, 1)
}
