package notify

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satslist/satslist/internal/models"
	"github.com/satslist/satslist/internal/repository"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("component", "test")
}

type recordingSink struct {
	mu     sync.Mutex
	titles []string
	bodies []string
	err    error
}

func (r *recordingSink) Notify(title, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.titles = append(r.titles, title)
	r.bodies = append(r.bodies, body)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.titles)
}

func reachedItem(id, title string) models.WishlistItem {
	return models.WishlistItem{
		ID:               id,
		Title:            title,
		TargetPriceSats:  1_000_000,
		CurrentPriceSats: 500_000,
	}
}

func pendingItem(id string) models.WishlistItem {
	return models.WishlistItem{
		ID:               id,
		Title:            "Still pricey",
		TargetPriceSats:  1000,
		CurrentPriceSats: 5000,
	}
}

func TestObserveRequiresConsent(t *testing.T) {
	sink := &recordingSink{}
	n := NewNotifier(repository.NewMemoryStore(), testLog(), sink)

	n.Observe([]models.WishlistItem{reachedItem("a", "A")})
	assert.Zero(t, sink.count())

	n.SetConsent(ConsentDenied)
	n.Observe([]models.WishlistItem{reachedItem("a", "A")})
	assert.Zero(t, sink.count())
}

func TestObserveFiresOncePerItem(t *testing.T) {
	sink := &recordingSink{}
	n := NewNotifier(repository.NewMemoryStore(), testLog(), sink)
	n.SetConsent(ConsentGranted)

	items := []models.WishlistItem{reachedItem("a", "Within reach"), pendingItem("b")}

	n.Observe(items)
	require.Equal(t, 1, sink.count())
	assert.Contains(t, sink.bodies[0], "Within reach")

	// Repeated observation of the same state never refires.
	n.Observe(items)
	n.Observe(items)
	assert.Equal(t, 1, sink.count())
}

func TestObserveSurvivesRestart(t *testing.T) {
	store := repository.NewMemoryStore()
	sink := &recordingSink{}

	n := NewNotifier(store, testLog(), sink)
	n.SetConsent(ConsentGranted)
	n.Observe([]models.WishlistItem{reachedItem("a", "A")})
	require.Equal(t, 1, sink.count())

	// A fresh notifier over the same store restores consent and the
	// already-notified set.
	restarted := NewNotifier(store, testLog(), sink)
	assert.Equal(t, ConsentGranted, restarted.Consent())
	restarted.Observe([]models.WishlistItem{reachedItem("a", "A")})
	assert.Equal(t, 1, sink.count())
}

func TestObserveFailingSinkStillMarksNotified(t *testing.T) {
	sink := &recordingSink{err: errors.New("delivery failed")}
	n := NewNotifier(repository.NewMemoryStore(), testLog(), sink)
	n.SetConsent(ConsentGranted)

	n.Observe([]models.WishlistItem{reachedItem("a", "A")})

	// At-most-once: a failed delivery never causes a duplicate alert later.
	sink.err = nil
	n.Observe([]models.WishlistItem{reachedItem("a", "A")})
	assert.Zero(t, sink.count())
}

func TestObserveMultipleSinks(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}
	n := NewNotifier(repository.NewMemoryStore(), testLog(), first, second)
	n.SetConsent(ConsentGranted)

	n.Observe([]models.WishlistItem{reachedItem("a", "A")})
	assert.Equal(t, 1, first.count())
	assert.Equal(t, 1, second.count())
}

func TestConsentPersisted(t *testing.T) {
	store := repository.NewMemoryStore()
	n := NewNotifier(store, testLog())

	assert.Equal(t, ConsentDefault, n.Consent())

	n.SetConsent(ConsentGranted)
	assert.Equal(t, ConsentGranted, NewNotifier(store, testLog()).Consent())

	n.SetConsent(ConsentDenied)
	assert.Equal(t, ConsentDenied, NewNotifier(store, testLog()).Consent())
}

func TestNotifiedSetCapped(t *testing.T) {
	sink := &recordingSink{}
	n := NewNotifier(repository.NewMemoryStore(), testLog(), sink)
	n.SetConsent(ConsentGranted)

	items := make([]models.WishlistItem, 0, notifiedCap+1)
	for i := 0; i <= notifiedCap; i++ {
		items = append(items, reachedItem(fmt.Sprintf("id-%03d", i), "Item"))
	}
	n.Observe(items)

	n.mu.Lock()
	defer n.mu.Unlock()
	assert.Len(t, n.order, notifiedTarget)
}
