package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sirupsen/logrus"

	"github.com/satslist/satslist/internal/metrics"
)

// DefaultQuerySpacing is the minimum interval between the starts of two
// consecutive relay queries. Relays rate-limit by connection, not by query
// semantics, so the throttle is global across all query types.
const DefaultQuerySpacing = 2 * time.Second

// LogSink receives a human-readable trace of queueing and query outcomes,
// consumed by the relay debug log.
type LogSink func(message string)

// QueryFunc is a read operation scheduled through the gateway.
type QueryFunc func(ctx context.Context) ([]nostr.Event, error)

// ErrGatewayClosed is returned for operations enqueued after Close.
var ErrGatewayClosed = errors.New("relay gateway closed")

type gatewayResult struct {
	events []nostr.Event
	err    error
}

type gatewayJob struct {
	ctx   context.Context
	label string
	fn    QueryFunc
	done  chan gatewayResult
}

// Gateway serializes relay read queries through a single FIFO queue with a
// minimum inter-query spacing. Cancelling one queued query never stalls the
// queries behind it.
type Gateway struct {
	spacing time.Duration
	jobs    chan *gatewayJob
	sink    LogSink
	log     *logrus.Entry

	// injectable for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	closeOnce sync.Once
	closed    chan struct{}
}

// NewGateway creates a gateway and starts its worker. A nil sink discards the
// trace; a zero spacing falls back to DefaultQuerySpacing.
func NewGateway(log *logrus.Entry, sink LogSink, spacing time.Duration) *Gateway {
	if spacing <= 0 {
		spacing = DefaultQuerySpacing
	}
	if sink == nil {
		sink = func(string) {}
	}
	g := &Gateway{
		spacing: spacing,
		jobs:    make(chan *gatewayJob, 64),
		sink:    sink,
		log:     log,
		now:     time.Now,
		sleep:   sleepContext,
		closed:  make(chan struct{}),
	}
	go g.run()
	return g
}

// Do schedules fn on the queue and waits for its result. The context cancels
// the wait at any point; the underlying transport error is propagated
// untouched.
func (g *Gateway) Do(ctx context.Context, label string, fn QueryFunc) ([]nostr.Event, error) {
	job := &gatewayJob{ctx: ctx, label: label, fn: fn, done: make(chan gatewayResult, 1)}

	select {
	case g.jobs <- job:
	case <-g.closed:
		return nil, ErrGatewayClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-job.done:
		return res.events, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-g.closed:
		// The job may have landed in the buffer after the worker exited,
		// or the worker may have taken it right before shutdown.
		select {
		case res := <-job.done:
			return res.events, res.err
		default:
			return nil, ErrGatewayClosed
		}
	}
}

// Close stops the worker and releases callers still waiting on queued
// queries with ErrGatewayClosed. A query already running is abandoned to its
// own context deadline.
func (g *Gateway) Close() {
	g.closeOnce.Do(func() { close(g.closed) })
}

func (g *Gateway) run() {
	var lastStart time.Time

	for {
		var job *gatewayJob
		select {
		case job = <-g.jobs:
		case <-g.closed:
			return
		}

		// A query cancelled while queued is skipped without consuming the
		// throttle window of the next one.
		if err := job.ctx.Err(); err != nil {
			g.emit(fmt.Sprintf("%s cancelled while queued", job.label))
			job.done <- gatewayResult{err: err}
			continue
		}

		if !lastStart.IsZero() {
			if wait := g.spacing - g.now().Sub(lastStart); wait > 0 {
				g.emit(fmt.Sprintf("Throttling %s for %s", job.label, wait.Round(time.Millisecond)))
				if err := g.sleep(job.ctx, wait); err != nil {
					job.done <- gatewayResult{err: err}
					continue
				}
			}
		}

		lastStart = g.now()
		start := lastStart
		events, err := job.fn(job.ctx)
		metrics.RelayQueryDuration.Observe(g.now().Sub(start).Seconds())
		if err != nil {
			metrics.RelayQueries.WithLabelValues("error").Inc()
			g.emit(fmt.Sprintf("%s failed: %v", job.label, err))
			g.log.WithError(err).WithField("query", job.label).Warn("Relay query failed")
		} else {
			metrics.RelayQueries.WithLabelValues("ok").Inc()
			g.emit(fmt.Sprintf("%s returned %d events", job.label, len(events)))
		}
		job.done <- gatewayResult{events: events, err: err}
	}
}

func (g *Gateway) emit(message string) {
	g.sink(message)
	g.log.Debug(message)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
