package models

import (
	"math"
	"time"
)

// SatsPerBTC is the number of satoshis in one bitcoin.
const SatsPerBTC = 100_000_000

// BitcoinPrice is a snapshot of the reference-asset price.
type BitcoinPrice struct {
	EUR         float64   `json:"eur"`
	USD         float64   `json:"usd"`
	Change24h   float64   `json:"change24h"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// EURToSats converts a fiat amount to satoshis at the given BTC/EUR price.
// Returns 0 when the price is not positive.
func EURToSats(eur, btcPriceEUR float64) int64 {
	if btcPriceEUR <= 0 {
		return 0
	}
	return int64(math.Round(eur / btcPriceEUR * SatsPerBTC))
}

// SatsToEUR converts satoshis to a fiat amount at the given BTC/EUR price.
func SatsToEUR(sats int64, btcPriceEUR float64) float64 {
	return float64(sats) / SatsPerBTC * btcPriceEUR
}
