package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"netaccess-billing/internal/config"
	"netaccess-billing/internal/domain/ports/adapter"
)

var _ adapter.AdminAlerter = (*BotAlerter)(nil)

// messageSender is the part of *tgbotapi.BotAPI the alerter uses.
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// BotAlerter posts treasurer alerts to one Telegram chat.
type BotAlerter struct {
	bot    messageSender
	chatID int64
	log    *zerolog.Logger
}

func NewBotAlerter(cfg config.TelegramConfig, logger *zerolog.Logger) (*BotAlerter, error) {
	if cfg.Token == "" || cfg.AdminChatID == 0 {
		return nil, fmt.Errorf("telegram token and admin chat id are required")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	l := logger.With().Str("component", "telegram_alerter").Str("bot", bot.Self.UserName).Logger()
	return &BotAlerter{bot: bot, chatID: cfg.AdminChatID, log: &l}, nil
}

func (a *BotAlerter) Alert(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(a.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := a.bot.Send(msg); err != nil {
		a.log.Warn().Err(err).Msg("alert not delivered")
		return fmt.Errorf("telegram alert: %w", err)
	}
	return nil
}
