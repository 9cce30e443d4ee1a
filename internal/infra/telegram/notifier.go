package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"learnhub-checkout/internal/config"
	"learnhub-checkout/internal/domain/ports/adapter"
)

var (
	_ adapter.Notifier = (*BotNotifier)(nil)
	_ adapter.Notifier = (*NoopNotifier)(nil)
)

// sender is the part of *tgbotapi.BotAPI the notifier needs.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// BotNotifier posts operator messages to one admin chat.
type BotNotifier struct {
	bot    sender
	chatID int64
	log    *zerolog.Logger
}

func NewBotNotifier(cfg *config.TelegramConfig, logger *zerolog.Logger) (*BotNotifier, error) {
	if cfg == nil || cfg.Token == "" {
		return nil, errors.New("telegram token empty")
	}
	if cfg.AdminChatID == 0 {
		return nil, errors.New("telegram admin chat id empty")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	return newBotNotifier(bot, cfg.AdminChatID, logger), nil
}

func newBotNotifier(bot sender, chatID int64, logger *zerolog.Logger) *BotNotifier {
	l := logger.With().Str("component", "telegram").Logger()
	return &BotNotifier{bot: bot, chatID: chatID, log: &l}
}

func (n *BotNotifier) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.DisableWebPagePreview = true
	_, err := n.bot.Send(msg)
	return err
}

// NoopNotifier logs instead of sending, for local runs without a bot token.
type NoopNotifier struct {
	log *zerolog.Logger
}

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	l := logger.With().Str("component", "telegram_noop").Logger()
	return &NoopNotifier{log: &l}
}

func (n *NoopNotifier) Notify(ctx context.Context, text string) error {
	n.log.Info().Str("text", text).Msg("admin notification")
	return nil
}
