package deliver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Mavwarf/planner/internal/audio"
	"github.com/Mavwarf/planner/internal/mqtt"
	"github.com/Mavwarf/planner/internal/telegram"
	"github.com/Mavwarf/planner/internal/toast"
	"github.com/Mavwarf/planner/internal/webhook"
)

// Toast shows a desktop notification.
type Toast struct {
	show func(title, message string) error
}

func NewToast() *Toast {
	return &Toast{show: toast.Show}
}

func (t *Toast) Notify(_ context.Context, n Notification) error {
	if err := t.show(n.Title, n.Body); err != nil {
		return fmt.Errorf("toast: %w", err)
	}
	return nil
}

// Sound plays a chime.
type Sound struct {
	Name   string
	Volume int // 0-100
	play   func(name string, volume int) error
}

// NewSound validates name against the built-in chimes.
func NewSound(name string, volume int) (*Sound, error) {
	if _, err := audio.Lookup(name); err != nil {
		return nil, err
	}
	return &Sound{Name: name, Volume: volume, play: audio.Play}, nil
}

func (s *Sound) Notify(ctx context.Context, _ Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.play(s.Name, s.Volume); err != nil {
		return fmt.Errorf("sound: %w", err)
	}
	return nil
}

// MQTT publishes the notification as JSON.
type MQTT struct {
	opts    mqtt.Options
	publish func(mqtt.Options, []byte) error
}

func NewMQTT(opts mqtt.Options) *MQTT {
	return &MQTT{opts: opts, publish: mqtt.Publish}
}

func (m *MQTT) Notify(_ context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("mqtt payload: %w", err)
	}
	return m.publish(m.opts, payload)
}

// Webhook posts the notification to an HTTP endpoint. JSON targets get
// the full Notification; Slack and Discord get the rendered text.
type Webhook struct {
	target webhook.Target
	text   TextFunc
	send   func(context.Context, webhook.Target, string, []byte) error
}

func NewWebhook(t webhook.Target, text TextFunc) *Webhook {
	return &Webhook{target: t, text: text, send: webhook.Send}
}

func (w *Webhook) Notify(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("webhook payload: %w", err)
	}
	return w.send(ctx, w.target, w.text(n), payload)
}

// Telegram sends the rendered text to a chat.
type Telegram struct {
	text TextFunc
	send func(context.Context, string) error
}

func NewTelegram(bot *telegram.Bot, text TextFunc) *Telegram {
	return &Telegram{text: text, send: bot.Send}
}

func (t *Telegram) Notify(ctx context.Context, n Notification) error {
	return t.send(ctx, t.text(n))
}
