package handlers

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// HelpHandler handles the /help command
type HelpHandler struct {
	logger *logrus.Logger
}

// NewHelpHandler creates a new help command handler
func NewHelpHandler(logger *logrus.Logger) *HelpHandler {
	return &HelpHandler{
		logger: logger,
	}
}

// Handle processes the /help command
func (h *HelpHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	helpText := `
📖 *satslist commands*

*Wishlist:*
• /wish <sats> <title> [url] - Add an item with a target price in sats
  Example: ` + "`/wish 500000 PlayStation 5`" + `
• /import <url> <sats> - Scrape title, image and price from a shop page
• /wishlist - Show all items with live affordability status
• /delwish <id> - Delete an item (use the id from /wishlist)

*Price:*
• /price - Current BTC price in EUR/USD with 24h change

*Notifications:*
• /notify on - Alert me once when an item reaches its target
• /notify off - Revoke notification consent

*Maintenance:*
• /cleardeleted - Forget local deletion memory (deleted items may reappear)
	`

	msg := tgbotapi.NewMessage(message.Chat.ID, helpText)
	msg.ParseMode = tgbotapi.ModeMarkdown

	_, err := bot.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send help message: %w", err)
	}

	return nil
}
