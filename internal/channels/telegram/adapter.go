// Package telegram implements the channels.Listener port (C12) against
// the Telegram Bot API via long polling.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/omegacore/omega/internal/config"
	"github.com/omegacore/omega/pkg/models"
)

// Adapter bridges a Telegram bot to the gateway: inbound messages are
// pushed onto the gateway's inbox, outbound replies are sent with the
// bot API client.
type Adapter struct {
	cfg    config.ChannelConfig
	bot    *tgbot.Bot
	logger *slog.Logger
}

// New constructs an Adapter from the [channel.telegram] config section.
// The bot connection itself isn't established until Start.
func New(cfg config.ChannelConfig, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{cfg: cfg, logger: logger.With("channel", "telegram")}
}

func (a *Adapter) Name() string { return "telegram" }

// Start connects the bot and begins long-polling until ctx is canceled.
func (a *Adapter) Start(ctx context.Context, inbox chan<- models.IncomingMessage) error {
	opts := []tgbot.Option{
		tgbot.WithDefaultHandler(func(ctx context.Context, b *tgbot.Bot, update *tgmodels.Update) {
			a.handleUpdate(update, inbox)
		}),
	}
	b, err := tgbot.New(a.cfg.Token, opts...)
	if err != nil {
		return fmt.Errorf("telegram: create bot: %w", err)
	}
	a.bot = b

	a.logger.Info("telegram adapter starting")
	b.Start(ctx)
	return nil
}

func (a *Adapter) handleUpdate(update *tgmodels.Update, inbox chan<- models.IncomingMessage) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	msg := update.Message
	name := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)

	in := models.IncomingMessage{
		Channel:     models.ChannelTelegram,
		SenderID:    strconv.FormatInt(msg.From.ID, 10),
		SenderName:  name,
		ReplyTarget: strconv.FormatInt(msg.Chat.ID, 10),
		Text:        msg.Text,
		ReceivedAt:  time.Unix(int64(msg.Date), 0),
	}
	if in.Text == "" && msg.Caption != "" {
		in.Text = msg.Caption
	}

	select {
	case inbox <- in:
	default:
		a.logger.Warn("inbox full, dropping telegram message", "chat_id", msg.Chat.ID)
	}
}

// Stop is a no-op beyond context cancellation: the bot library's Start
// returns once ctx is done, which Run already waits for.
func (a *Adapter) Stop(ctx context.Context) error { return nil }

// Send posts text to the chat identified by replyTarget.
func (a *Adapter) Send(ctx context.Context, replyTarget, text string) error {
	if a.bot == nil {
		return fmt.Errorf("telegram: bot not started")
	}
	chatID, err := strconv.ParseInt(replyTarget, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat id %q: %w", replyTarget, err)
	}
	_, err = a.bot.SendMessage(ctx, &tgbot.SendMessageParams{ChatID: chatID, Text: text})
	return err
}

// SendTyping emits Telegram's "typing" chat action.
func (a *Adapter) SendTyping(ctx context.Context, replyTarget string) error {
	if a.bot == nil {
		return nil
	}
	chatID, err := strconv.ParseInt(replyTarget, 10, 64)
	if err != nil {
		return nil
	}
	_, err = a.bot.SendChatAction(ctx, &tgbot.SendChatActionParams{ChatID: chatID, Action: tgmodels.ChatActionTyping})
	return err
}
