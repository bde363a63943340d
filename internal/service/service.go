package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/satslist/satslist/internal/metadata"
	"github.com/satslist/satslist/internal/models"
	"github.com/satslist/satslist/internal/notify"
	"github.com/satslist/satslist/internal/price"
)

// Service is the central business logic layer. It ties the wishlist
// synchronizer to the price oracle, the metadata extractor and the
// notification side-channel.
type Service struct {
	logger   *logrus.Logger
	Sync     *Synchronizer
	Price    *price.Client
	Metadata *metadata.Extractor
	Notifier *notify.Notifier

	mu           sync.RWMutex
	currentPrice *models.BitcoinPrice
}

// New creates a new Service with all required dependencies.
func New(logger *logrus.Logger,
	sync *Synchronizer,
	priceClient *price.Client,
	extractor *metadata.Extractor,
	notifier *notify.Notifier,
) *Service {
	return &Service{
		logger:   logger,
		Sync:     sync,
		Price:    priceClient,
		Metadata: extractor,
		Notifier: notifier,
	}
}

// CurrentPrice returns the last fetched Bitcoin price, or nil before the
// first successful fetch.
func (s *Service) CurrentPrice() *models.BitcoinPrice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentPrice
}

// RefreshPrice fetches and caches the current Bitcoin price.
func (s *Service) RefreshPrice(ctx context.Context) (*models.BitcoinPrice, error) {
	p, err := s.Price.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh bitcoin price: %w", err)
	}
	s.mu.Lock()
	s.currentPrice = p
	s.mu.Unlock()
	return p, nil
}

// SnapshotWithPrice returns the visible wishlist with current sats values
// derived from the cached price, plus stats. Before the first price fetch the
// items carry no current value and stay in the dreaming state.
func (s *Service) SnapshotWithPrice() ([]models.WishlistItem, models.WishlistStats) {
	var btcEUR float64
	if p := s.CurrentPrice(); p != nil {
		btcEUR = p.EUR
	}
	return s.Sync.Snapshot(btcEUR)
}
