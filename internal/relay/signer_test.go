package relay

import (
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satslist/satslist/internal/models"
)

func TestNewKeySignerHex(t *testing.T) {
	sk := nostr.GeneratePrivateKey()
	signer, err := NewKeySigner(sk)
	require.NoError(t, err)

	pub, err := nostr.GetPublicKey(sk)
	require.NoError(t, err)
	assert.Equal(t, pub, signer.PublicKey())
}

func TestNewKeySignerNsec(t *testing.T) {
	sk := nostr.GeneratePrivateKey()
	nsec, err := nip19.EncodePrivateKey(sk)
	require.NoError(t, err)

	signer, err := NewKeySigner(nsec)
	require.NoError(t, err)

	pub, err := nostr.GetPublicKey(sk)
	require.NoError(t, err)
	assert.Equal(t, pub, signer.PublicKey())
}

func TestNewKeySignerInvalid(t *testing.T) {
	_, err := NewKeySigner("")
	assert.ErrorIs(t, err, ErrNoIdentity)

	_, err = NewKeySigner("   ")
	assert.ErrorIs(t, err, ErrNoIdentity)

	_, err = NewKeySigner("not-a-key")
	assert.Error(t, err)

	_, err = NewKeySigner("nsec1broken")
	assert.Error(t, err)
}

func TestKeySignerSign(t *testing.T) {
	sk := nostr.GeneratePrivateKey()
	signer, err := NewKeySigner(sk)
	require.NoError(t, err)

	ev, err := BuildItemEvent(signer.PublicKey(), models.WishlistPayload{
		Title:           "Signed item",
		TargetPriceSats: 1000,
	})
	require.NoError(t, err)

	require.NoError(t, signer.Sign(&ev))
	assert.NotEmpty(t, ev.ID)
	assert.NotEmpty(t, ev.Sig)

	ok, err := ev.CheckSignature()
	require.NoError(t, err)
	assert.True(t, ok)
}
