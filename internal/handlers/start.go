package handlers

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// StartHandler handles the /start command
type StartHandler struct {
	logger *logrus.Logger
}

// NewStartHandler creates a new start command handler
func NewStartHandler(logger *logrus.Logger) *StartHandler {
	return &StartHandler{
		logger: logger,
	}
}

// Handle processes the /start command
func (h *StartHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	welcomeText := `
🎯 *Welcome to satslist!*

I track the products you want to buy once the Bitcoin price gets there. Your wishlist lives as signed events on Nostr relays, with no database and no account.

*Available Commands:*
• /wish <sats> <title> [url] - Add a wishlist item
• /import <url> <sats> - Add an item from a shop page
• /wishlist - Show your wishlist
• /delwish <id> - Delete an item
• /price - Current Bitcoin price
• /notify on|off - Target-reached notifications
• /cleardeleted - Forget local deletion memory
• /help - Show this help message

Get started by adding your first wish with /wish!
	`

	msg := tgbotapi.NewMessage(message.Chat.ID, welcomeText)
	msg.ParseMode = tgbotapi.ModeMarkdown

	_, err := bot.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send welcome message: %w", err)
	}

	return nil
}
