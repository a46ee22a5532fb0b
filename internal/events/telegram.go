package events

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier sends reminders to a single chat. It suits a personal
// deployment where every owner reads the same chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

func (n *TelegramNotifier) Notify(_ context.Context, reminder ReminderEvent) error {
	msg := tgbotapi.NewMessage(n.chatID, FormatReminder(reminder))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram reminder: %w", err)
	}
	return nil
}

func FormatReminder(reminder ReminderEvent) string {
	var sb strings.Builder
	sb.WriteString("⏰ <b>Reminder</b>\n")
	sb.WriteString(html.EscapeString(strings.TrimSpace(reminder.Title)))
	sb.WriteString(fmt.Sprintf("\ndue %s UTC", reminder.DueAt.UTC().Format("2006-01-02 15:04")))
	return sb.String()
}
