package service

import (
	"context"
	"time"
)

const (
	priceInterval = time.Minute
	syncInterval  = 5 * time.Minute
)

// StartWatcher runs the background loop that keeps the price and the
// wishlist fresh and feeds the notification side-channel after each cycle.
// It blocks until the context is cancelled, so it should be launched in a
// separate goroutine.
func (s *Service) StartWatcher(ctx context.Context) {
	priceTicker := time.NewTicker(priceInterval)
	defer priceTicker.Stop()
	syncTicker := time.NewTicker(syncInterval)
	defer syncTicker.Stop()

	s.logger.Info("Watcher started")

	// Prime both on startup.
	s.refreshPriceCycle(ctx)
	s.refreshWishlistCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Watcher stopped")
			return
		case <-priceTicker.C:
			s.refreshPriceCycle(ctx)
		case <-syncTicker.C:
			s.refreshWishlistCycle(ctx)
		}
	}
}

// refreshPriceCycle updates the price and re-observes the wishlist: a price
// move alone can push an item over its target.
func (s *Service) refreshPriceCycle(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := s.RefreshPrice(cycleCtx); err != nil {
		s.logger.WithError(err).Warn("Price refresh failed")
		return
	}
	items, _ := s.SnapshotWithPrice()
	s.Notifier.Observe(items)
}

func (s *Service) refreshWishlistCycle(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if err := s.Sync.Refresh(cycleCtx); err != nil {
		s.logger.WithError(err).Warn("Wishlist refresh failed")
		return
	}
	items, _ := s.SnapshotWithPrice()
	s.Notifier.Observe(items)
}
