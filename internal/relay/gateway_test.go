package relay

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatewayTestLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("component", "test")
}

// fakeClock drives the gateway's injected now/sleep so throttle tests run
// instantly and deterministically.
type fakeClock struct {
	mu      sync.Mutex
	current time.Time
	sleeps  []time.Duration
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *fakeClock) sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.current = c.current.Add(d)
	return nil
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

func (c *fakeClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

func newTestGateway(t *testing.T, spacing time.Duration) (*Gateway, *fakeClock) {
	t.Helper()
	clock := &fakeClock{current: time.Unix(1000, 0)}
	g := NewGateway(gatewayTestLog(), nil, spacing)
	g.now = clock.now
	g.sleep = clock.sleep
	t.Cleanup(g.Close)
	return g, clock
}

func noEvents(context.Context) ([]nostr.Event, error) { return nil, nil }

func TestGatewaySpacesConsecutiveQueries(t *testing.T) {
	g, clock := newTestGateway(t, 2*time.Second)

	_, err := g.Do(context.Background(), "first", noEvents)
	require.NoError(t, err)

	_, err = g.Do(context.Background(), "second", noEvents)
	require.NoError(t, err)

	sleeps := clock.recorded()
	require.Len(t, sleeps, 1, "only the second query should be throttled")
	assert.Equal(t, 2*time.Second, sleeps[0])
}

func TestGatewaySpacingMeasuredFromQueryStart(t *testing.T) {
	g, clock := newTestGateway(t, 2*time.Second)

	_, err := g.Do(context.Background(), "first", noEvents)
	require.NoError(t, err)

	clock.advance(1500 * time.Millisecond)

	_, err = g.Do(context.Background(), "second", noEvents)
	require.NoError(t, err)

	sleeps := clock.recorded()
	require.Len(t, sleeps, 1)
	assert.Equal(t, 500*time.Millisecond, sleeps[0])
}

func TestGatewayNoThrottleAfterSpacingElapsed(t *testing.T) {
	g, clock := newTestGateway(t, 2*time.Second)

	_, err := g.Do(context.Background(), "first", noEvents)
	require.NoError(t, err)

	clock.advance(3 * time.Second)

	_, err = g.Do(context.Background(), "second", noEvents)
	require.NoError(t, err)
	assert.Empty(t, clock.recorded())
}

func TestGatewayPropagatesQueryError(t *testing.T) {
	g, _ := newTestGateway(t, time.Millisecond)

	boom := errors.New("boom")
	_, err := g.Do(context.Background(), "failing", func(context.Context) ([]nostr.Event, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestGatewayCancelledQueryDoesNotStallQueue(t *testing.T) {
	g, _ := newTestGateway(t, time.Millisecond)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Do(cancelled, "cancelled", noEvents)
	assert.ErrorIs(t, err, context.Canceled)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := g.Do(context.Background(), "follow-up", noEvents)
		assert.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("queue stalled behind a cancelled query")
	}
}

func TestGatewayClosed(t *testing.T) {
	g, _ := newTestGateway(t, time.Millisecond)
	g.Close()

	_, err := g.Do(context.Background(), "after close", noEvents)
	assert.ErrorIs(t, err, ErrGatewayClosed)
}

// The jobs channel is buffered, so a post-Close Do can win the enqueue race
// against the closed signal. Either way the caller must be released promptly,
// even with a context that never cancels.
func TestGatewayCloseReleasesBufferedCallers(t *testing.T) {
	g, _ := newTestGateway(t, time.Millisecond)
	g.Close()

	for i := 0; i < 50; i++ {
		done := make(chan error, 1)
		go func() {
			_, err := g.Do(context.Background(), "after close", noEvents)
			done <- err
		}()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, ErrGatewayClosed)
		case <-time.After(5 * time.Second):
			t.Fatal("Do blocked after Close")
		}
	}
}

func TestGatewayEmitsTrace(t *testing.T) {
	var mu sync.Mutex
	var lines []string
	sink := func(msg string) {
		mu.Lock()
		lines = append(lines, msg)
		mu.Unlock()
	}

	g := NewGateway(gatewayTestLog(), sink, time.Millisecond)
	defer g.Close()

	_, err := g.Do(context.Background(), "traced query", func(context.Context) ([]nostr.Event, error) {
		return []nostr.Event{{ID: "a"}}, nil
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[len(lines)-1], "traced query returned 1 events")
}
