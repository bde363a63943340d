package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWishlistPayloadValidate(t *testing.T) {
	tests := []struct {
		name    string
		payload WishlistPayload
		wantErr bool
	}{
		{
			name:    "valid",
			payload: WishlistPayload{Title: "PlayStation 5", TargetPriceSats: 500_000},
			wantErr: false,
		},
		{
			name:    "missing title",
			payload: WishlistPayload{TargetPriceSats: 500_000},
			wantErr: true,
		},
		{
			name:    "whitespace title",
			payload: WishlistPayload{Title: "   ", TargetPriceSats: 500_000},
			wantErr: true,
		},
		{
			name:    "zero target",
			payload: WishlistPayload{Title: "PlayStation 5"},
			wantErr: true,
		},
		{
			name:    "negative target",
			payload: WishlistPayload{Title: "PlayStation 5", TargetPriceSats: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name string
		item WishlistItem
		want ItemStatus
	}{
		{
			name: "no current price",
			item: WishlistItem{TargetPriceSats: 1000},
			want: ItemStatusDreaming,
		},
		{
			name: "above target",
			item: WishlistItem{TargetPriceSats: 1000, CurrentPriceSats: 1500},
			want: ItemStatusTracking,
		},
		{
			name: "at target",
			item: WishlistItem{TargetPriceSats: 1000, CurrentPriceSats: 1000},
			want: ItemStatusReady,
		},
		{
			name: "below target",
			item: WishlistItem{TargetPriceSats: 1000, CurrentPriceSats: 800},
			want: ItemStatusReady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.DeriveStatus())
		})
	}
}

func TestComputeStats(t *testing.T) {
	items := []WishlistItem{
		{TargetPriceSats: 1_000_000, CurrentPriceSats: 500_000},
		{TargetPriceSats: 500_000, CurrentPriceSats: 833_333},
	}

	stats := ComputeStats(items)

	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, 1, stats.ReadyCount)
	assert.Equal(t, int64(1_500_000), stats.TotalTarget)
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := ComputeStats(nil)
	assert.Equal(t, WishlistStats{}, stats)
}
