package notify

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/satslist/satslist/internal/metrics"
	"github.com/satslist/satslist/internal/models"
	"github.com/satslist/satslist/internal/repository"
)

// Consent is the user's notification permission state. Notifications never
// fire unless consent is granted, and consent is revocable.
type Consent string

const (
	ConsentDefault Consent = "default"
	ConsentGranted Consent = "granted"
	ConsentDenied  Consent = "denied"
)

// notifiedCap bounds the persisted already-notified set; exceeding it keeps
// only the most recent entries.
const (
	notifiedCap    = 200
	notifiedTarget = 100
)

// Sink delivers one notification. Delivery is best-effort; errors are logged
// and never reach the sync pipeline.
type Sink interface {
	Notify(title, body string) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(title, body string) error

func (f SinkFunc) Notify(title, body string) error { return f(title, body) }

// Notifier observes the synchronized wishlist and fires a target-reached
// alert at most once per item, across restarts.
type Notifier struct {
	log   *logrus.Entry
	store repository.Store
	list  *repository.IDList
	sinks []Sink

	mu       sync.Mutex
	consent  Consent
	notified map[string]struct{}
	order    []string
}

// NewNotifier creates a notifier, restoring consent and the already-notified
// set from the local store.
func NewNotifier(store repository.Store, log *logrus.Entry, sinks ...Sink) *Notifier {
	n := &Notifier{
		log:      log,
		store:    store,
		list:     repository.NewIDList(store, repository.KeyNotifiedItems, log),
		sinks:    sinks,
		consent:  ConsentDefault,
		notified: make(map[string]struct{}),
	}

	if raw, ok := store.Get(repository.KeyNotificationConsent); ok {
		switch Consent(raw) {
		case ConsentGranted, ConsentDenied:
			n.consent = Consent(raw)
		}
	}
	for _, id := range n.list.Load() {
		if _, dup := n.notified[id]; dup {
			continue
		}
		n.notified[id] = struct{}{}
		n.order = append(n.order, id)
	}

	return n
}

// Consent returns the current permission state.
func (n *Notifier) Consent() Consent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.consent
}

// SetConsent updates and persists the permission state.
func (n *Notifier) SetConsent(c Consent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.consent = c
	n.store.Set(repository.KeyNotificationConsent, string(c))
}

// Observe checks the visible wishlist after a sync and fires an alert for
// each item whose target price has been reached and which has not been
// notified before. Items are marked notified before dispatch, so a failing
// sink can never cause a duplicate alert later.
func (n *Notifier) Observe(items []models.WishlistItem) {
	n.mu.Lock()
	if n.consent != ConsentGranted {
		n.mu.Unlock()
		return
	}

	var due []models.WishlistItem
	for _, item := range items {
		if !item.TargetReached() {
			continue
		}
		if _, done := n.notified[item.ID]; done {
			continue
		}
		n.notified[item.ID] = struct{}{}
		n.order = append(n.order, item.ID)
		due = append(due, item)
	}
	if len(due) > 0 {
		n.cleanupLocked()
		n.list.Save(append([]string(nil), n.order...))
	}
	n.mu.Unlock()

	for _, item := range due {
		n.dispatch(item)
	}
}

func (n *Notifier) dispatch(item models.WishlistItem) {
	title := "Target price reached"
	body := fmt.Sprintf("%s is now within reach (%d sats target)", item.Title, item.TargetPriceSats)

	for _, sink := range n.sinks {
		if err := sink.Notify(title, body); err != nil {
			n.log.WithError(err).WithField("item_id", item.ID).Warn("Notification delivery failed")
			continue
		}
		metrics.NotificationsSent.Inc()
	}
	n.log.WithFields(logrus.Fields{
		"item_id": item.ID,
		"title":   item.Title,
	}).Info("Target-reached notification fired")
}

// cleanupLocked truncates the notified set to the most recent entries once it
// grows past the cap.
func (n *Notifier) cleanupLocked() {
	if len(n.order) <= notifiedCap {
		return
	}
	n.order = append([]string(nil), n.order[len(n.order)-notifiedTarget:]...)
	n.notified = make(map[string]struct{}, len(n.order))
	for _, id := range n.order {
		n.notified[id] = struct{}{}
	}
}
