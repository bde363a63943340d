package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/nbd-wtf/go-nostr"
	"github.com/sirupsen/logrus"
)

// ErrorKind classifies a transport failure. Callers branch on the kind
// instead of sniffing error strings.
type ErrorKind int

const (
	ErrorNetwork ErrorKind = iota
	ErrorTimeout
	ErrorRateLimited
	ErrorRejected
)

// String returns the kind name for logging.
func (k ErrorKind) String() string {
	switch k {
	case ErrorTimeout:
		return "timeout"
	case ErrorRateLimited:
		return "rate-limited"
	case ErrorRejected:
		return "rejected"
	default:
		return "network"
	}
}

// Error is a classified transport failure, optionally attributed to a relay.
type Error struct {
	Kind  ErrorKind
	Relay string
	Err   error
}

func (e *Error) Error() string {
	if e.Relay != "" {
		return fmt.Sprintf("relay %s: %s: %v", e.Relay, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Classify wraps an underlying failure with its error kind. Relays signal
// rejections through machine-readable OK message prefixes, which is the only
// string inspection performed.
func Classify(relayURL string, err error) *Error {
	kind := ErrorNetwork
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = ErrorTimeout
	case strings.Contains(msg, "rate-limited") || strings.Contains(msg, "rate limit"):
		kind = ErrorRateLimited
	case strings.Contains(msg, "blocked:") || strings.Contains(msg, "invalid:") || strings.Contains(msg, "restricted:"):
		kind = ErrorRejected
	}
	return &Error{Kind: kind, Relay: relayURL, Err: err}
}

// IsRateLimited reports whether any error in the chain (including aggregated
// multi-relay errors) is a rate-limit rejection.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var te *Error
	if errors.As(err, &te) && te.Kind == ErrorRateLimited {
		return true
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			if IsRateLimited(e) {
				return true
			}
		}
	}
	return false
}

// IsTimeout reports whether the error chain contains a transport timeout.
func IsTimeout(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == ErrorTimeout
}

// Transport issues queries against a multi-relay set and fans publishes out
// to the same set. Both operations respect context cancellation.
type Transport interface {
	Query(ctx context.Context, filters nostr.Filters) ([]nostr.Event, error)
	Publish(ctx context.Context, ev nostr.Event) error
}

// Pool is a Transport backed by a go-nostr SimplePool over a fixed relay set.
type Pool struct {
	pool   *nostr.SimplePool
	relays []string
	log    *logrus.Entry
}

// NewPool creates a pool transport. The context bounds the lifetime of the
// underlying relay connections.
func NewPool(ctx context.Context, relays []string, log *logrus.Entry) *Pool {
	return &Pool{
		pool:   nostr.NewSimplePool(ctx),
		relays: relays,
		log:    log,
	}
}

// Query collects matching events from all relays until every relay has
// delivered its stored set or the context is done.
func (p *Pool) Query(ctx context.Context, filters nostr.Filters) ([]nostr.Event, error) {
	if len(p.relays) == 0 {
		return nil, &Error{Kind: ErrorNetwork, Err: errors.New("no relays configured")}
	}

	events := make([]nostr.Event, 0, 32)
	for incoming := range p.pool.SubManyEose(ctx, p.relays, filters) {
		if incoming.Event == nil {
			continue
		}
		events = append(events, *incoming.Event)
	}

	if err := ctx.Err(); err != nil && len(events) == 0 {
		return nil, Classify("", err)
	}
	return events, nil
}

// Publish fans the signed event out to every relay. It succeeds when at least
// one relay accepts the event; if all relays fail, the per-relay failures are
// aggregated into a single error.
func (p *Pool) Publish(ctx context.Context, ev nostr.Event) error {
	if len(p.relays) == 0 {
		return &Error{Kind: ErrorNetwork, Err: errors.New("no relays configured")}
	}

	var result *multierror.Error
	accepted := 0
	for _, url := range p.relays {
		r, err := p.pool.EnsureRelay(url)
		if err != nil {
			p.log.WithError(err).WithField("relay", url).Debug("Failed to connect to relay")
			result = multierror.Append(result, Classify(url, err))
			continue
		}
		if err := r.Publish(ctx, ev); err != nil {
			p.log.WithError(err).WithField("relay", url).Debug("Relay refused event")
			result = multierror.Append(result, Classify(url, err))
			continue
		}
		accepted++
	}

	if accepted == 0 {
		return fmt.Errorf("publish failed on all %d relays: %w", len(p.relays), result.ErrorOrNil())
	}
	return nil
}
