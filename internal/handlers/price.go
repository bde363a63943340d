package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/satslist/satslist/internal/service"
)

// PriceHandler handles the /price command.
type PriceHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewPriceHandler creates a new PriceHandler.
func NewPriceHandler(svc *service.Service, logger *logrus.Logger) *PriceHandler {
	return &PriceHandler{svc: svc, logger: logger}
}

// Handle processes the /price command.
func (h *PriceHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	price := h.svc.CurrentPrice()
	if price == nil {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		fetched, err := h.svc.RefreshPrice(ctx)
		if err != nil {
			return fmt.Errorf("fetch bitcoin price: %w", err)
		}
		price = fetched
	}

	arrow := "📈"
	if price.Change24h < 0 {
		arrow = "📉"
	}
	reply := fmt.Sprintf("₿ *Bitcoin*\n%s / $%.0f\n%s %.2f%% in 24h",
		formatEuros(price.EUR), price.USD, arrow, price.Change24h)

	msg := tgbotapi.NewMessage(message.Chat.ID, reply)
	msg.ParseMode = tgbotapi.ModeMarkdown
	bot.Send(msg)
	return nil
}
