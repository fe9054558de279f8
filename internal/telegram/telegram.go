// Package telegram sends reminders to a Telegram chat or channel via
// the Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot writes to one chat. The Bot API client authorizes with getMe, so
// it is created on the first Send rather than at startup.
type Bot struct {
	token    string
	chatID   int64
	channel  string // "@name" when sending to a public channel
	endpoint string
	client   *http.Client

	mu  sync.Mutex
	api *tgbotapi.BotAPI
}

// New validates chatID, which is a numeric chat id or an "@channel"
// username.
func New(token, chatID string) (*Bot, error) {
	b := &Bot{
		token:    token,
		endpoint: tgbotapi.APIEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
	if token == "" {
		return nil, errors.New("telegram: token is required")
	}
	switch {
	case strings.HasPrefix(chatID, "@") && len(chatID) > 1:
		b.channel = chatID
	default:
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("telegram: chat id %q is neither a number nor an @channel", chatID)
		}
		b.chatID = id
	}
	return b, nil
}

func (b *Bot) botAPI() (*tgbotapi.BotAPI, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.api != nil {
		return b.api, nil
	}
	api, err := tgbotapi.NewBotAPIWithClient(b.token, b.endpoint, b.client)
	if err != nil {
		return nil, fmt.Errorf("telegram: authorize: %w", redact(err))
	}
	b.api = api
	return api, nil
}

// Send posts message to the bot's chat.
func (b *Bot) Send(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	api, err := b.botAPI()
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(b.chatID, message)
	if b.channel != "" {
		msg = tgbotapi.NewMessageToChannel(b.channel, message)
	}
	if _, err := api.Send(msg); err != nil {
		return fmt.Errorf("telegram: send: %w", redact(err))
	}
	return nil
}

// redact drops the request URL, which carries the token, from transport
// errors.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}
