package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEURToSats(t *testing.T) {
	// 300 EUR at 60k EUR/BTC is exactly 500k sats.
	assert.Equal(t, int64(500_000), EURToSats(300, 60_000))

	// Rounded, not truncated.
	assert.Equal(t, int64(833_333), EURToSats(500, 60_000))

	assert.Equal(t, int64(0), EURToSats(300, 0))
	assert.Equal(t, int64(0), EURToSats(300, -1))
}

func TestSatsToEUR(t *testing.T) {
	assert.InDelta(t, 300.0, SatsToEUR(500_000, 60_000), 0.001)
	assert.InDelta(t, 0.0, SatsToEUR(0, 60_000), 0.001)
}

func TestEURToSatsRoundTrip(t *testing.T) {
	price := 48_213.77
	sats := EURToSats(250, price)
	assert.InDelta(t, 250.0, SatsToEUR(sats, price), 0.01)
}
