package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"basewatch/internal/types"
	"basewatch/lib/helpers"
)

// Notifier delivers triggered notifications to a Telegram chat.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewNotifier(token string, chatID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}
	return &Notifier{bot: bot, chatID: chatID}, nil
}

func (n *Notifier) Notify(notification types.Notification) error {
	msg := tgbotapi.NewMessage(n.chatID, FormatNotification(notification))
	msg.ParseMode = "MarkdownV2"
	msg.DisableWebPagePreview = true

	_, err := n.bot.Send(msg)
	return errors.Wrapf(err, "could not send notification %s", notification.ID)
}

// FormatNotification renders a notification as a MarkdownV2 message.
func FormatNotification(n types.Notification) string {
	return fmt.Sprintf("*%s*\n\n%s",
		helpers.EscapeMarkdownV2(n.Title),
		helpers.EscapeMarkdownV2(n.Message))
}
