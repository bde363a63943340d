package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/satslist/satslist/internal/metrics"
	"github.com/satslist/satslist/internal/models"
	"github.com/satslist/satslist/internal/relay"
	"github.com/satslist/satslist/internal/repository"
)

const (
	// queryLimit bounds the newest-N wishlist read.
	queryLimit = 100

	// tombstoneDebounce coalesces rapid deletions into one aggregate publish.
	tombstoneDebounce = 2 * time.Second

	// publishTimeout bounds every mutating relay operation.
	publishTimeout = 5 * time.Second

	// refetchDelay gives relays a moment to index before the post-delete
	// reconciling read.
	refetchDelay = 3 * time.Second

	// cleanupThreshold/cleanupTarget cap the local deletion memory. The
	// aggregate remote tombstone stays the durable cross-device record.
	cleanupThreshold = 200
	cleanupTarget    = 100
)

// PublishState is the last observed outcome of the add-item publish path.
type PublishState struct {
	LastError     string     `json:"lastError,omitempty"`
	LastSuccessAt *time.Time `json:"lastSuccessAt,omitempty"`
}

// Synchronizer owns the authoritative in-memory wishlist view: the set of raw
// relay events minus every deletion known locally or through the remote
// aggregate tombstone. All cache mutations go through it.
type Synchronizer struct {
	rootCtx   context.Context
	log       *logrus.Entry
	gateway   *relay.Gateway
	transport relay.Transport
	signer    relay.Signer
	deletions *repository.IDList

	debounce time.Duration

	// generation stamps in-flight reads; results from a read issued before
	// the most recent mutation are discarded instead of overwriting fresher
	// optimistic state.
	generation atomic.Int64

	mu            sync.Mutex
	raw           []models.WishlistItem
	deleted       map[string]struct{}
	deletedOrder  []string
	lastPublished []string
	publishTimer  *time.Timer
	publishState  PublishState
	rateLimitWarn string
	clearPending  bool
	closed        bool
}

// NewSynchronizer creates the synchronizer and restores the local deletion
// set. rootCtx bounds background reconciliation work.
func NewSynchronizer(
	rootCtx context.Context,
	gateway *relay.Gateway,
	transport relay.Transport,
	signer relay.Signer,
	deletions *repository.IDList,
	log *logrus.Entry,
) *Synchronizer {
	s := &Synchronizer{
		rootCtx:   rootCtx,
		log:       log,
		gateway:   gateway,
		transport: transport,
		signer:    signer,
		deletions: deletions,
		debounce:  tombstoneDebounce,
		deleted:   make(map[string]struct{}),
	}

	for _, id := range deletions.Load() {
		if _, dup := s.deleted[id]; dup {
			continue
		}
		s.deleted[id] = struct{}{}
		s.deletedOrder = append(s.deletedOrder, id)
	}

	return s
}

// Refresh fetches the raw wishlist events and the aggregate tombstone, then
// reconciles them into the visible wishlist. The tombstone read is
// best-effort: when it fails, the local deletion memory keeps filtering.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	if s.signer == nil {
		return relay.ErrNoIdentity
	}
	return s.refresh(ctx, s.generation.Inc())
}

// refresh runs one reconciliation pass stamped with gen. The result is
// discarded when a newer mutation or read has superseded the stamp by the
// time it lands.
func (s *Synchronizer) refresh(ctx context.Context, gen int64) error {
	author := s.signer.PublicKey()

	itemFilters := nostr.Filters{{
		Kinds:   []int{relay.WishlistKind},
		Authors: []string{author},
		Tags:    nostr.TagMap{"t": []string{relay.CommunityTag}},
		Limit:   queryLimit,
	}}
	events, err := s.gateway.Do(ctx, "wishlist query", func(ctx context.Context) ([]nostr.Event, error) {
		return s.transport.Query(ctx, itemFilters)
	})
	if err != nil {
		s.noteQueryFailure(err)
		return err
	}
	items := s.mergeItemEvents(events)

	tombFilters := nostr.Filters{{
		Kinds:   []int{relay.TombstoneKind},
		Authors: []string{author},
		Tags:    nostr.TagMap{"t": []string{relay.TombstoneTag}},
		Limit:   1,
	}}
	var remoteIDs []string
	remoteKnown := false
	tombEvents, err := s.gateway.Do(ctx, "tombstone query", func(ctx context.Context) ([]nostr.Event, error) {
		return s.transport.Query(ctx, tombFilters)
	})
	if err != nil {
		s.log.WithError(err).Warn("Tombstone query failed; keeping local deletion set")
	} else {
		remoteKnown = true
		if ev := newestEvent(tombEvents); ev != nil {
			remoteIDs = relay.ParseTombstoneEvent(*ev)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A mutation superseded this read while it was in flight; applying its
	// result would resurrect optimistically deleted items.
	if s.generation.Load() != gen {
		s.log.Debug("Discarding stale wishlist read")
		return nil
	}

	s.raw = items
	s.rateLimitWarn = ""

	if remoteKnown {
		if s.clearPending {
			// A clear awaits republication; adopting the remote set here
			// would silently undo it. Once the remote set carries nothing
			// the local one lacks, the clear has propagated.
			pending := false
			for _, id := range remoteIDs {
				if _, ok := s.deleted[id]; !ok {
					pending = true
					break
				}
			}
			s.clearPending = pending
		} else {
			// Union merge: a deletion known by either side is retained. The
			// absence of an id remotely only means "not yet propagated".
			for _, id := range remoteIDs {
				if _, ok := s.deleted[id]; !ok {
					s.deleted[id] = struct{}{}
					s.deletedOrder = append(s.deletedOrder, id)
				}
			}
		}
		s.lastPublished = sortIDs(remoteIDs)
		s.cleanupLocked()
		s.persistDeletedLocked()
		s.maybeSchedulePublishLocked()
	}

	metrics.WishlistSize.Set(float64(len(s.visibleLocked())))
	metrics.TombstoneSize.Set(float64(len(s.deletedOrder)))
	return nil
}

// AddItem validates, signs and publishes a new wishlist item. The item is not
// inserted optimistically; a background reconciling read picks it up after a
// successful publish.
func (s *Synchronizer) AddItem(ctx context.Context, payload models.WishlistPayload) (*models.WishlistItem, error) {
	if s.signer == nil {
		return nil, relay.ErrNoIdentity
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	ev, err := relay.BuildItemEvent(s.signer.PublicKey(), payload)
	if err != nil {
		return nil, err
	}
	if err := s.signer.Sign(&ev); err != nil {
		return nil, err
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.transport.Publish(pubCtx, ev); err != nil {
		metrics.RelayPublishes.WithLabelValues("item", "error").Inc()
		s.setPublishError(err)
		return nil, err
	}
	metrics.RelayPublishes.WithLabelValues("item", "ok").Inc()
	s.setPublishSuccess()

	item := relay.ParseItemEvent(ev)
	s.log.WithFields(logrus.Fields{
		"item_id": item.ID,
		"title":   item.Title,
	}).Info("Wishlist item published")

	s.scheduleRefetch(0)
	return item, nil
}

// DeleteItem optimistically removes the item from the visible wishlist and
// records it in the tombstone set before publishing the retract event. On
// publish failure both changes are rolled back, restoring the prior view.
func (s *Synchronizer) DeleteItem(ctx context.Context, itemID string) error {
	if s.signer == nil {
		return relay.ErrNoIdentity
	}

	s.mu.Lock()
	_, already := s.deleted[itemID]
	if !already {
		s.deleted[itemID] = struct{}{}
		s.deletedOrder = append(s.deletedOrder, itemID)
		s.cleanupLocked()
		s.persistDeletedLocked()
		s.maybeSchedulePublishLocked()
	}
	// Invalidate any read that started before this deletion.
	s.generation.Inc()
	s.mu.Unlock()

	ev := relay.BuildRetractEvent(s.signer.PublicKey(), itemID)
	if err := s.signer.Sign(&ev); err != nil {
		s.rollbackDelete(itemID, already)
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.transport.Publish(pubCtx, ev); err != nil {
		metrics.RelayPublishes.WithLabelValues("retract", "error").Inc()
		s.log.WithError(err).WithField("item_id", itemID).Warn("Delete publish failed, rolling back")
		s.rollbackDelete(itemID, already)
		return err
	}
	metrics.RelayPublishes.WithLabelValues("retract", "ok").Inc()
	s.log.WithField("item_id", itemID).Info("Wishlist item deleted")

	s.scheduleRefetch(refetchDelay)
	return nil
}

// ClearDeleted forgets all local deletion memory and overwrites the remote
// aggregate with the empty set. In-flight reads are invalidated and the
// remote set is not re-adopted until the empty set has been published, so a
// refresh racing the clear cannot resurrect it. Previously deleted items
// reappear once their creation events are fetched again; this is the recovery
// path for a corrupted deletion store, not an undo.
func (s *Synchronizer) ClearDeleted() {
	s.mu.Lock()
	s.deleted = make(map[string]struct{})
	s.deletedOrder = nil
	s.deletions.Clear()
	s.clearPending = true
	s.generation.Inc()
	if s.publishTimer != nil {
		s.publishTimer.Stop()
		s.publishTimer = nil
	}
	needPublish := len(s.lastPublished) > 0 && !s.closed
	s.mu.Unlock()

	metrics.TombstoneSize.Set(0)
	if needPublish {
		go s.publishTombstone()
	}
}

// Wishlist returns the visible wishlist: raw events minus the tombstone set.
func (s *Synchronizer) Wishlist() []models.WishlistItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visibleLocked()
}

// Snapshot returns the visible wishlist with current sats values derived
// from the given BTC/EUR price, plus the aggregate stats. Status is derived
// uniformly from the price comparison.
func (s *Synchronizer) Snapshot(btcPriceEUR float64) ([]models.WishlistItem, models.WishlistStats) {
	items := s.Wishlist()
	for i := range items {
		if btcPriceEUR > 0 && items[i].SourcePriceEUR > 0 {
			items[i].CurrentPriceSats = models.EURToSats(items[i].SourcePriceEUR, btcPriceEUR)
		}
		items[i].Status = items[i].DeriveStatus()
	}
	return items, models.ComputeStats(items)
}

// DeletedIDs returns the current tombstone set in insertion order.
func (s *Synchronizer) DeletedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletedOrder...)
}

// PublishStatus returns the last add-publish outcome.
func (s *Synchronizer) PublishStatus() PublishState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publishState
}

// RateLimitWarning returns a user-facing hint when the relays reported rate
// limits on the last read, or "" when the last read succeeded.
func (s *Synchronizer) RateLimitWarning() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rateLimitWarn
}

// Close stops pending debounce timers and background refetches.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.publishTimer != nil {
		s.publishTimer.Stop()
		s.publishTimer = nil
	}
}

// ---------------------------------------------------------------------------
// Internals
// ---------------------------------------------------------------------------

// mergeItemEvents deduplicates raw events by logical id, keeping the highest
// created_at per id, and sorts newest-first for display. Malformed events are
// dropped individually and never abort the merge.
func (s *Synchronizer) mergeItemEvents(events []nostr.Event) []models.WishlistItem {
	byID := make(map[string]models.WishlistItem, len(events))
	for _, ev := range events {
		item := relay.ParseItemEvent(ev)
		if item == nil {
			s.log.WithField("event_id", ev.ID).Debug("Dropping malformed wishlist event")
			continue
		}
		if existing, ok := byID[item.ID]; !ok || item.CreatedAt > existing.CreatedAt {
			byID[item.ID] = *item
		}
	}

	items := make([]models.WishlistItem, 0, len(byID))
	for _, item := range byID {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt != items[j].CreatedAt {
			return items[i].CreatedAt > items[j].CreatedAt
		}
		return items[i].ID < items[j].ID
	})
	return items
}

func (s *Synchronizer) visibleLocked() []models.WishlistItem {
	visible := make([]models.WishlistItem, 0, len(s.raw))
	for _, item := range s.raw {
		if _, gone := s.deleted[item.ID]; gone {
			continue
		}
		visible = append(visible, item)
	}
	return visible
}

func (s *Synchronizer) rollbackDelete(itemID string, wasDeleted bool) {
	if wasDeleted {
		// The id was in the tombstone set before this call; nothing to undo.
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deleted, itemID)
	for i, id := range s.deletedOrder {
		if id == itemID {
			s.deletedOrder = append(s.deletedOrder[:i], s.deletedOrder[i+1:]...)
			break
		}
	}
	s.persistDeletedLocked()
	s.maybeSchedulePublishLocked()
}

// maybeSchedulePublishLocked schedules a debounced aggregate tombstone
// publish when the local set differs from the last set known published.
// Superseding schedules cancel the prior pending timer.
func (s *Synchronizer) maybeSchedulePublishLocked() {
	if s.closed {
		return
	}
	ids := sortIDs(s.deletedOrder)
	if sameIDList(ids, s.lastPublished) {
		if s.publishTimer != nil {
			s.publishTimer.Stop()
			s.publishTimer = nil
		}
		return
	}
	if s.publishTimer != nil {
		s.publishTimer.Stop()
	}
	s.publishTimer = time.AfterFunc(s.debounce, s.publishTombstone)
}

// publishTombstone publishes the full deletion set as one replaceable event.
// Republishing is always a full-set overwrite, never a delta.
func (s *Synchronizer) publishTombstone() {
	if s.signer == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	ids := sortIDs(s.deletedOrder)
	s.mu.Unlock()

	ev, err := relay.BuildTombstoneEvent(s.signer.PublicKey(), ids)
	if err != nil {
		s.log.WithError(err).Error("Failed to build tombstone event")
		return
	}
	if err := s.signer.Sign(&ev); err != nil {
		s.log.WithError(err).Error("Failed to sign tombstone event")
		return
	}

	ctx, cancel := context.WithTimeout(s.rootCtx, publishTimeout)
	defer cancel()
	if err := s.transport.Publish(ctx, ev); err != nil {
		metrics.RelayPublishes.WithLabelValues("tombstone", "error").Inc()
		// Retried on the next set change or reconcile merge.
		s.log.WithError(err).Warn("Tombstone publish failed")
		return
	}
	metrics.RelayPublishes.WithLabelValues("tombstone", "ok").Inc()

	s.mu.Lock()
	s.lastPublished = ids
	s.mu.Unlock()
	s.log.WithField("count", len(ids)).Info("Published deletion tombstone")
}

// scheduleRefetch runs a reconciling read after the given delay. The read's
// generation is stamped now, not when the timer fires, so an explicit refresh
// issued in the meantime always supersedes it.
func (s *Synchronizer) scheduleRefetch(after time.Duration) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	gen := s.generation.Inc()
	time.AfterFunc(after, func() {
		ctx, cancel := context.WithTimeout(s.rootCtx, 30*time.Second)
		defer cancel()
		if err := s.refresh(ctx, gen); err != nil {
			s.log.WithError(err).Debug("Background reconcile fetch failed")
		}
	})
}

// cleanupLocked truncates the deletion set to the most recent entries when
// it grows past the cap, trading history for bounded local storage.
func (s *Synchronizer) cleanupLocked() {
	if len(s.deletedOrder) <= cleanupThreshold {
		return
	}
	s.deletedOrder = append([]string(nil), s.deletedOrder[len(s.deletedOrder)-cleanupTarget:]...)
	s.deleted = make(map[string]struct{}, len(s.deletedOrder))
	for _, id := range s.deletedOrder {
		s.deleted[id] = struct{}{}
	}
}

func (s *Synchronizer) persistDeletedLocked() {
	s.deletions.Save(append([]string(nil), s.deletedOrder...))
}

func (s *Synchronizer) noteQueryFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if relay.IsRateLimited(err) {
		s.rateLimitWarn = "Relays are reporting rate limits. Wait a moment or reduce the relay count."
	}
}

func (s *Synchronizer) setPublishError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishState.LastError = err.Error()
}

func (s *Synchronizer) setPublishSuccess() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishState.LastError = ""
	s.publishState.LastSuccessAt = &now
}

func newestEvent(events []nostr.Event) *nostr.Event {
	var newest *nostr.Event
	for i := range events {
		if newest == nil || events[i].CreatedAt > newest.CreatedAt {
			newest = &events[i]
		}
	}
	return newest
}

func sortIDs(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func sameIDList(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
