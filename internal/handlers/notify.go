package handlers

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/satslist/satslist/internal/notify"
	"github.com/satslist/satslist/internal/service"
)

// NotifyHandler handles the /notify command for granting and revoking
// notification consent.
type NotifyHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewNotifyHandler creates a new NotifyHandler.
func NewNotifyHandler(svc *service.Service, logger *logrus.Logger) *NotifyHandler {
	return &NotifyHandler{svc: svc, logger: logger}
}

// Handle processes the /notify command.
func (h *NotifyHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	if len(args) == 0 {
		state := "off"
		if h.svc.Notifier.Consent() == notify.ConsentGranted {
			state = "on"
		}
		bot.Send(tgbotapi.NewMessage(message.Chat.ID,
			"🔔 Notifications are currently "+state+". Use /notify on or /notify off."))
		return nil
	}

	switch args[0] {
	case "on":
		h.svc.Notifier.SetConsent(notify.ConsentGranted)
		bot.Send(tgbotapi.NewMessage(message.Chat.ID,
			"🔔 Notifications enabled. You'll be alerted once per item when its target is reached."))
	case "off":
		h.svc.Notifier.SetConsent(notify.ConsentDenied)
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "🔕 Notifications disabled."))
	default:
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "❓ Use /notify on or /notify off."))
	}
	return nil
}
