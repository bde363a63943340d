package repository

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// Storage keys. The values are shared with previously persisted client state
// and must not change.
const (
	KeyDeletedItems        = "satslist-deleted-items"
	KeyNotifiedItems       = "satslist-notified-items"
	KeyNotificationConsent = "satslist-notification-consent"
)

// Store is the local persistent key-value port. Implementations must degrade
// gracefully: a broken backend returns misses and swallows writes instead of
// failing the caller.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// NoopStore is the fallback Store used when no backend is available. All
// reads miss and all writes are discarded.
type NoopStore struct{}

func (NoopStore) Get(string) (string, bool) { return "", false }
func (NoopStore) Set(string, string)        {}
func (NoopStore) Delete(string)             {}

// MemoryStore is an in-memory Store, used for tests and as a session-scoped
// buffer when persistence is disabled.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *MemoryStore) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func (m *MemoryStore) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

// IDList persists an ordered list of logical ids under a single key as a JSON
// array. It backs both the local deletion store and the notified-id set.
type IDList struct {
	store Store
	key   string
	log   *logrus.Entry
}

// NewIDList creates an id list bound to the given key.
func NewIDList(store Store, key string, log *logrus.Entry) *IDList {
	return &IDList{store: store, key: key, log: log}
}

// Load returns the persisted ids, or an empty list when the key is absent or
// its JSON is corrupt. Corruption is logged and treated as empty.
func (l *IDList) Load() []string {
	raw, ok := l.store.Get(l.key)
	if !ok {
		return []string{}
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		l.log.WithError(err).WithField("key", l.key).Warn("Discarding corrupt id list")
		return []string{}
	}
	return ids
}

// Save persists the ids, replacing the previous list.
func (l *IDList) Save(ids []string) {
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		l.log.WithError(err).WithField("key", l.key).Warn("Failed to encode id list")
		return
	}
	l.store.Set(l.key, string(raw))
}

// Clear removes the persisted list.
func (l *IDList) Clear() {
	l.store.Delete(l.key)
}
