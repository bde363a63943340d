package models

import (
	"fmt"
	"strings"
)

// ItemStatus represents the affordability status of a wishlist item. It is
// derived from the live price comparison and never stored on the wire.
type ItemStatus string

const (
	ItemStatusDreaming ItemStatus = "dreaming"
	ItemStatusTracking ItemStatus = "tracking"
	ItemStatusReady    ItemStatus = "ready"
)

// WishlistItem represents a single product on the wishlist, materialized from
// a relay event. The logical ID is client-generated and stable; EventID is the
// content-addressed identifier of the underlying event.
type WishlistItem struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Link             string     `json:"link,omitempty"`
	Image            string     `json:"image,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	TargetPriceSats  int64      `json:"targetPriceSats"`
	TargetPriceEUR   float64    `json:"targetPriceEUR,omitempty"`
	SourcePriceEUR   float64    `json:"sourcePriceEUR,omitempty"`
	CurrentPriceSats int64      `json:"currentPriceSats,omitempty"`
	Source           string     `json:"source,omitempty"`
	Status           ItemStatus `json:"status,omitempty"`
	CreatedAt        int64      `json:"createdAt"`
	EventID          string     `json:"eventId"`
}

// TargetReached returns true if the current sats value is known and has
// dropped to or below the target price.
func (i *WishlistItem) TargetReached() bool {
	return i.CurrentPriceSats > 0 && i.CurrentPriceSats <= i.TargetPriceSats
}

// DeriveStatus computes the item status from the price comparison.
func (i *WishlistItem) DeriveStatus() ItemStatus {
	switch {
	case i.TargetReached():
		return ItemStatusReady
	case i.CurrentPriceSats > 0:
		return ItemStatusTracking
	default:
		return ItemStatusDreaming
	}
}

// WishlistPayload is the user-supplied input for creating a wishlist item.
// The ID is optional; a fresh one is generated when absent.
type WishlistPayload struct {
	ID              string  `json:"id,omitempty"`
	Title           string  `json:"title"`
	Link            string  `json:"link,omitempty"`
	Image           string  `json:"image,omitempty"`
	Notes           string  `json:"notes,omitempty"`
	TargetPriceSats int64   `json:"targetPriceSats"`
	TargetPriceEUR  float64 `json:"targetPriceEUR,omitempty"`
	SourcePriceEUR  float64 `json:"sourcePriceEUR,omitempty"`
	Source          string  `json:"source,omitempty"`
}

// Validate checks the payload preconditions for publishing.
func (p *WishlistPayload) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if p.TargetPriceSats <= 0 {
		return fmt.Errorf("target price must be greater than zero sats")
	}
	return nil
}

// WishlistStats holds derived aggregates over the visible wishlist.
type WishlistStats struct {
	Count       int   `json:"count"`
	ReadyCount  int   `json:"readyCount"`
	TotalTarget int64 `json:"totalTarget"`
}

// ComputeStats folds the visible wishlist into its aggregate stats.
func ComputeStats(items []WishlistItem) WishlistStats {
	stats := WishlistStats{Count: len(items)}
	for _, item := range items {
		stats.TotalTarget += item.TargetPriceSats
		if item.TargetReached() {
			stats.ReadyCount++
		}
	}
	return stats
}
