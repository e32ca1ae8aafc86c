package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
)

// TelegramSender delivers notifications as telegram messages. The chat id is
// the user id the booking was created with.
type TelegramSender struct {
	bot *bot.Bot
}

func NewTelegramSender(b *bot.Bot) *TelegramSender {
	return &TelegramSender{bot: b}
}

func (s *TelegramSender) Send(ctx context.Context, userID int64, text string) error {
	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: userID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
