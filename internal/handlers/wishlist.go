package handlers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/satslist/satslist/internal/models"
	"github.com/satslist/satslist/internal/service"
)

const commandTimeout = 30 * time.Second

// ---------------------------------------------------------------------------
// WishAddHandler – /wish <sats> <title> [url]
// ---------------------------------------------------------------------------

// WishAddHandler handles the /wish command to add an item to the wishlist.
type WishAddHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewWishAddHandler creates a new WishAddHandler.
func NewWishAddHandler(svc *service.Service, logger *logrus.Logger) *WishAddHandler {
	return &WishAddHandler{svc: svc, logger: logger}
}

// Handle processes the /wish command.
func (h *WishAddHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	if len(args) < 2 {
		msg := tgbotapi.NewMessage(message.Chat.ID,
			"❌ Please provide a target price and a title.\n"+
				"Usage: `/wish 500000 PlayStation 5 https://shop.example/ps5`")
		msg.ParseMode = tgbotapi.ModeMarkdown
		bot.Send(msg)
		return nil
	}

	targetSats, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || targetSats <= 0 {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "❌ The target price must be a positive number of sats."))
		return nil
	}

	titleWords := args[1:]
	payload := models.WishlistPayload{TargetPriceSats: targetSats}

	// A trailing URL becomes the item link; its hostname the source.
	if last := titleWords[len(titleWords)-1]; strings.HasPrefix(last, "http://") || strings.HasPrefix(last, "https://") {
		if u, err := url.Parse(last); err == nil && u.Hostname() != "" {
			payload.Link = last
			payload.Source = u.Hostname()
			titleWords = titleWords[:len(titleWords)-1]
		}
	}
	payload.Title = strings.Join(titleWords, " ")

	if p := h.svc.CurrentPrice(); p != nil {
		payload.TargetPriceEUR = models.SatsToEUR(targetSats, p.EUR)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	item, err := h.svc.Sync.AddItem(ctx, payload)
	if err != nil {
		return fmt.Errorf("add wishlist item: %w", err)
	}

	reply := fmt.Sprintf("✅ Added *%s* at %s (`%s`)", item.Title, formatSats(item.TargetPriceSats), shortID(item.ID))
	msg := tgbotapi.NewMessage(message.Chat.ID, reply)
	msg.ParseMode = tgbotapi.ModeMarkdown
	bot.Send(msg)
	return nil
}

// ---------------------------------------------------------------------------
// WishImportHandler – /import <url> <sats>
// ---------------------------------------------------------------------------

// WishImportHandler scrapes a shop page for title, image and price and adds
// the result to the wishlist.
type WishImportHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewWishImportHandler creates a new WishImportHandler.
func NewWishImportHandler(svc *service.Service, logger *logrus.Logger) *WishImportHandler {
	return &WishImportHandler{svc: svc, logger: logger}
}

// Handle processes the /import command.
func (h *WishImportHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	if len(args) < 2 {
		msg := tgbotapi.NewMessage(message.Chat.ID,
			"❌ Please provide a product URL and a target price.\n"+
				"Usage: `/import https://shop.example/ps5 500000`")
		msg.ParseMode = tgbotapi.ModeMarkdown
		bot.Send(msg)
		return nil
	}

	targetSats, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || targetSats <= 0 {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "❌ The target price must be a positive number of sats."))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	// Scrape failures are non-fatal: the item falls back to manual fields.
	payload := models.WishlistPayload{TargetPriceSats: targetSats, Link: args[0]}
	meta, err := h.svc.Metadata.Fetch(ctx, args[0])
	if err != nil {
		h.logger.WithError(err).WithField("url", args[0]).Warn("Product metadata scrape failed")
		if u, parseErr := url.Parse(args[0]); parseErr == nil {
			payload.Title = u.Hostname()
			payload.Source = u.Hostname()
		}
	} else {
		payload.Title = meta.Title
		payload.Image = meta.Image
		payload.Source = meta.Source
		payload.SourcePriceEUR = meta.PriceEUR
	}

	item, err := h.svc.Sync.AddItem(ctx, payload)
	if err != nil {
		return fmt.Errorf("import wishlist item: %w", err)
	}

	reply := fmt.Sprintf("✅ Imported *%s* at %s (`%s`)", item.Title, formatSats(item.TargetPriceSats), shortID(item.ID))
	if item.SourcePriceEUR > 0 {
		reply += fmt.Sprintf("\nCurrent shop price: %s", formatEuros(item.SourcePriceEUR))
	}
	msg := tgbotapi.NewMessage(message.Chat.ID, reply)
	msg.ParseMode = tgbotapi.ModeMarkdown
	bot.Send(msg)
	return nil
}

// ---------------------------------------------------------------------------
// WishListHandler – /wishlist
// ---------------------------------------------------------------------------

// WishListHandler shows the current wishlist with live affordability status.
type WishListHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewWishListHandler creates a new WishListHandler.
func NewWishListHandler(svc *service.Service, logger *logrus.Logger) *WishListHandler {
	return &WishListHandler{svc: svc, logger: logger}
}

// Handle processes the /wishlist command.
func (h *WishListHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	items, stats := h.svc.SnapshotWithPrice()

	if len(items) == 0 {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "Your wishlist is empty. Add something with /wish!"))
		return nil
	}

	var b strings.Builder
	b.WriteString("🎁 *Your wishlist*\n\n")
	for _, item := range items {
		b.WriteString(formatItemLine(item))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n%d items · %d ready · total target %s", stats.Count, stats.ReadyCount, formatSats(stats.TotalTarget))

	if warn := h.svc.Sync.RateLimitWarning(); warn != "" {
		fmt.Fprintf(&b, "\n\n⚠️ %s", warn)
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, b.String())
	msg.ParseMode = tgbotapi.ModeMarkdown
	bot.Send(msg)
	return nil
}

// ---------------------------------------------------------------------------
// WishDeleteHandler – /delwish <id>
// ---------------------------------------------------------------------------

// WishDeleteHandler deletes a wishlist item by id or unambiguous id prefix.
type WishDeleteHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewWishDeleteHandler creates a new WishDeleteHandler.
func NewWishDeleteHandler(svc *service.Service, logger *logrus.Logger) *WishDeleteHandler {
	return &WishDeleteHandler{svc: svc, logger: logger}
}

// Handle processes the /delwish command.
func (h *WishDeleteHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	if len(args) == 0 {
		msg := tgbotapi.NewMessage(message.Chat.ID,
			"❌ Please provide the item id.\nUsage: `/delwish 3f2a91bc`")
		msg.ParseMode = tgbotapi.ModeMarkdown
		bot.Send(msg)
		return nil
	}

	prefix := args[0]
	var matched []models.WishlistItem
	for _, item := range h.svc.Sync.Wishlist() {
		if strings.HasPrefix(item.ID, prefix) {
			matched = append(matched, item)
		}
	}

	switch {
	case len(matched) == 0:
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, fmt.Sprintf("❌ No wishlist item matches id %q.", prefix)))
		return nil
	case len(matched) > 1:
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, fmt.Sprintf("❌ Id %q is ambiguous, use more characters.", prefix)))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := h.svc.Sync.DeleteItem(ctx, matched[0].ID); err != nil {
		return fmt.Errorf("delete wishlist item: %w", err)
	}

	reply := fmt.Sprintf("🗑 Deleted *%s*", matched[0].Title)
	msg := tgbotapi.NewMessage(message.Chat.ID, reply)
	msg.ParseMode = tgbotapi.ModeMarkdown
	bot.Send(msg)
	return nil
}

// ---------------------------------------------------------------------------
// WishClearDeletedHandler – /cleardeleted
// ---------------------------------------------------------------------------

// WishClearDeletedHandler resets the local deletion memory.
type WishClearDeletedHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewWishClearDeletedHandler creates a new WishClearDeletedHandler.
func NewWishClearDeletedHandler(svc *service.Service, logger *logrus.Logger) *WishClearDeletedHandler {
	return &WishClearDeletedHandler{svc: svc, logger: logger}
}

// Handle processes the /cleardeleted command.
func (h *WishClearDeletedHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	h.svc.Sync.ClearDeleted()
	bot.Send(tgbotapi.NewMessage(message.Chat.ID,
		"🧹 Local deletion memory cleared. Previously deleted items may reappear on the next sync."))
	return nil
}
