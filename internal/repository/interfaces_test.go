package repository

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("component", "test")
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	_, ok := store.Get("missing")
	assert.False(t, ok)

	store.Set("key", "value")
	v, ok := store.Get("key")
	assert.True(t, ok)
	assert.Equal(t, "value", v)

	store.Set("key", "updated")
	v, _ = store.Get("key")
	assert.Equal(t, "updated", v)

	store.Delete("key")
	_, ok = store.Get("key")
	assert.False(t, ok)
}

func TestIDListRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	list := NewIDList(store, KeyDeletedItems, testLog())

	assert.Empty(t, list.Load())

	list.Save([]string{"a", "b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, list.Load())

	list.Save(nil)
	assert.Empty(t, list.Load())
}

func TestIDListCorruptData(t *testing.T) {
	store := NewMemoryStore()
	store.Set(KeyDeletedItems, "{not json")

	list := NewIDList(store, KeyDeletedItems, testLog())
	assert.Empty(t, list.Load())
}

func TestIDListClear(t *testing.T) {
	store := NewMemoryStore()
	list := NewIDList(store, KeyNotifiedItems, testLog())

	list.Save([]string{"x"})
	list.Clear()

	_, ok := store.Get(KeyNotifiedItems)
	assert.False(t, ok)
	assert.Empty(t, list.Load())
}

func TestNoopStore(t *testing.T) {
	var store Store = NoopStore{}
	store.Set("key", "value")
	_, ok := store.Get("key")
	assert.False(t, ok)
}
