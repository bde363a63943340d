package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/satslist/satslist/internal/api"
	"github.com/satslist/satslist/internal/config"
	"github.com/satslist/satslist/internal/handlers"
	"github.com/satslist/satslist/internal/metadata"
	"github.com/satslist/satslist/internal/notify"
	"github.com/satslist/satslist/internal/price"
	"github.com/satslist/satslist/internal/relay"
	"github.com/satslist/satslist/internal/repository"
	"github.com/satslist/satslist/internal/repository/sqlite"
	"github.com/satslist/satslist/internal/service"
	"github.com/satslist/satslist/internal/telegram"
	"github.com/satslist/satslist/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel)
	l.Info("Starting satslist...")

	// Local store. The daemon stays functional without it, but deletion
	// memory and notification state then reset on every restart.
	var store repository.Store = repository.NoopStore{}
	db, err := sqlite.Open(cfg.DatabasePath, logger.Component(l, "sqlite"))
	if err != nil {
		l.WithError(err).Warn("Local store unavailable, deletion memory will not survive restarts")
	} else {
		defer db.Close()
		if err := db.Migrate("migrations"); err != nil {
			l.Fatalf("Failed to run migrations: %v", err)
		}
		store = db
	}

	// Nostr identity
	signer, err := relay.NewKeySigner(cfg.NostrSecretKey)
	if err != nil {
		l.Fatalf("Failed to load Nostr identity: %v", err)
	}
	l.Infof("Using Nostr identity %s", signer.PublicKey())

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	// Relay plumbing
	relayLog := relay.NewLog(0)
	pool := relay.NewPool(ctx, cfg.Relays, logger.Component(l, "relay"))
	gateway := relay.NewGateway(logger.Component(l, "gateway"), relayLog.Append, 0)
	defer gateway.Close()

	deletions := repository.NewIDList(store, repository.KeyDeletedItems, logger.Component(l, "repository"))
	sync := service.NewSynchronizer(ctx, gateway, pool, signer, deletions, logger.Component(l, "sync"))
	defer sync.Close()

	// Price oracle and product metadata scraper
	priceClient := price.NewClient(logger.Component(l, "price"))
	extractor := metadata.NewExtractor(cfg.MetadataProxy, logger.Component(l, "metadata"))

	// Telegram bot (optional)
	var bot *telegram.Bot
	if cfg.TelegramToken != "" {
		bot, err = telegram.NewBot(cfg.TelegramToken, l)
		if err != nil {
			l.Fatalf("Failed to create Telegram bot: %v", err)
		}
	}

	// Notification sinks: desktop always, Telegram when a chat is configured.
	sinks := []notify.Sink{notify.DesktopSink{}}
	if bot != nil && cfg.TelegramChatID != 0 {
		chatID := cfg.TelegramChatID
		sinks = append(sinks, notify.SinkFunc(func(title, body string) error {
			return bot.SendMessage(chatID, "🎯 *"+title+"*\n"+body)
		}))
	}
	notifier := notify.NewNotifier(store, logger.Component(l, "notify"), sinks...)

	// Service layer
	svc := service.New(l, sync, priceClient, extractor, notifier)

	// Register command handlers
	if bot != nil {
		bot.RegisterCommand("start", handlers.NewStartHandler(l))
		bot.RegisterCommand("help", handlers.NewHelpHandler(l))

		// Wishlist handlers
		bot.RegisterCommand("wish", handlers.NewWishAddHandler(svc, l))
		bot.RegisterCommand("import", handlers.NewWishImportHandler(svc, l))
		bot.RegisterCommand("wishlist", handlers.NewWishListHandler(svc, l))
		bot.RegisterCommand("delwish", handlers.NewWishDeleteHandler(svc, l))
		bot.RegisterCommand("cleardeleted", handlers.NewWishClearDeletedHandler(svc, l))

		// Price and notification handlers
		bot.RegisterCommand("price", handlers.NewPriceHandler(svc, l))
		bot.RegisterCommand("notify", handlers.NewNotifyHandler(svc, l))

		go func() {
			if err := bot.Start(ctx); err != nil {
				l.Errorf("Bot error: %v", err)
			}
		}()
	}

	// Background price and sync cycles
	go svc.StartWatcher(ctx)

	// HTTP API
	apiServer := api.NewServer(svc, relayLog, l)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: apiServer.Handler(),
	}

	go func() {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("HTTP server error: %v", err)
		}
	}()

	l.Info("satslist started successfully")

	<-ctx.Done()

	l.Info("Shutting down HTTP server...")
	httpServer.Close()

	l.Info("satslist stopped")
}
