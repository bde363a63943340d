package handlers

import (
	"fmt"
	"strings"

	"github.com/satslist/satslist/internal/models"
)

// formatSats renders a sats amount with a compact unit suffix.
func formatSats(sats int64) string {
	switch {
	case sats >= models.SatsPerBTC:
		return fmt.Sprintf("%.2f BTC", float64(sats)/models.SatsPerBTC)
	case sats >= 1_000_000:
		return fmt.Sprintf("%.2fM sats", float64(sats)/1_000_000)
	case sats >= 1_000:
		return fmt.Sprintf("%.1fk sats", float64(sats)/1_000)
	default:
		return fmt.Sprintf("%d sats", sats)
	}
}

// formatEuros renders a fiat amount with two decimals.
func formatEuros(eur float64) string {
	return fmt.Sprintf("%.2f €", eur)
}

// statusBadge maps an item status to its display marker.
func statusBadge(status models.ItemStatus) string {
	switch status {
	case models.ItemStatusReady:
		return "🎯"
	case models.ItemStatusTracking:
		return "📉"
	default:
		return "💭"
	}
}

// shortID returns the id prefix shown in list output.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// formatItemLine renders a single wishlist entry for the /wishlist output.
func formatItemLine(item models.WishlistItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s `%s` *%s* - %s", statusBadge(item.Status), shortID(item.ID), item.Title, formatSats(item.TargetPriceSats))
	if item.CurrentPriceSats > 0 {
		fmt.Fprintf(&b, " (now %s)", formatSats(item.CurrentPriceSats))
	}
	if item.Source != "" {
		fmt.Fprintf(&b, " · %s", item.Source)
	}
	return b.String()
}
