package relay

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
)

// ErrNoIdentity is returned when a mutating operation is attempted without an
// active signing identity.
var ErrNoIdentity = errors.New("no signing identity configured")

// Signer authorizes and signs outgoing events on the user's behalf.
type Signer interface {
	PublicKey() string
	Sign(ev *nostr.Event) error
}

// KeySigner signs events with a local Nostr secret key.
type KeySigner struct {
	secretKey string
	publicKey string
}

// NewKeySigner creates a signer from a secret key given either as raw hex or
// in nsec bech32 form.
func NewKeySigner(secret string) (*KeySigner, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrNoIdentity
	}

	if strings.HasPrefix(secret, "nsec1") {
		prefix, value, err := nip19.Decode(secret)
		if err != nil {
			return nil, fmt.Errorf("failed to decode nsec key: %w", err)
		}
		if prefix != "nsec" {
			return nil, fmt.Errorf("unexpected key prefix %q", prefix)
		}
		secret = value.(string)
	}

	pub, err := nostr.GetPublicKey(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid secret key: %w", err)
	}

	return &KeySigner{secretKey: secret, publicKey: pub}, nil
}

// PublicKey returns the hex public key of the identity.
func (s *KeySigner) PublicKey() string {
	return s.publicKey
}

// Sign computes the event id and signature in place.
func (s *KeySigner) Sign(ev *nostr.Event) error {
	if err := ev.Sign(s.secretKey); err != nil {
		return fmt.Errorf("failed to sign event: %w", err)
	}
	return nil
}
