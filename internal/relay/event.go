package relay

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nbd-wtf/go-nostr"

	"github.com/satslist/satslist/internal/models"
)

// Event kinds and tags used on the wire. The item blob layout and the tag
// names are shared with previously published events and must not change.
const (
	// WishlistKind is the parameterized replaceable kind holding one event
	// per wishlist item, addressed by the logical item id in the d tag.
	WishlistKind = 30078

	// RetractKind is the generic per-item delete signal.
	RetractKind = 5

	// TombstoneKind is the single replaceable event carrying the full set of
	// deleted logical ids. It is the cross-device deletion sync mechanism.
	TombstoneKind = 17779

	CommunityTag  = "satslist-wishlist"
	TombstoneTag  = "satslist-wishlist-deleted"
	TombstoneDTag = "deleted-list"

	retractContent = "Deleted wishlist item"
)

// itemBlob is the JSON object embedded in the "item" tag. Optional fields are
// pointers so that absent values serialize as explicit nulls, matching events
// already stored at relays.
type itemBlob struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Link            *string  `json:"link"`
	Image           *string  `json:"image"`
	Notes           *string  `json:"notes"`
	TargetPriceSats int64    `json:"targetPriceSats"`
	TargetPriceEUR  *float64 `json:"targetPriceEUR"`
	SourcePriceEUR  *float64 `json:"sourcePriceEUR"`
	Source          *string  `json:"source"`
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optFloat(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}

func strValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func floatValue(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// BuildItemEvent builds an unsigned wishlist-item event for the given payload.
// A fresh logical id is generated when the payload does not carry one.
// It fails on invalid local input; it never performs I/O.
func BuildItemEvent(pubkey string, payload models.WishlistPayload) (nostr.Event, error) {
	if err := payload.Validate(); err != nil {
		return nostr.Event{}, fmt.Errorf("invalid wishlist payload: %w", err)
	}

	itemID := payload.ID
	if itemID == "" {
		itemID = uuid.NewString()
	}

	blob, err := json.Marshal(itemBlob{
		ID:              itemID,
		Title:           payload.Title,
		Link:            optString(payload.Link),
		Image:           optString(payload.Image),
		Notes:           optString(payload.Notes),
		TargetPriceSats: payload.TargetPriceSats,
		TargetPriceEUR:  optFloat(payload.TargetPriceEUR),
		SourcePriceEUR:  optFloat(payload.SourcePriceEUR),
		Source:          optString(payload.Source),
	})
	if err != nil {
		return nostr.Event{}, fmt.Errorf("failed to marshal item blob: %w", err)
	}

	return nostr.Event{
		Kind:      WishlistKind,
		PubKey:    pubkey,
		CreatedAt: nostr.Now(),
		Content:   "",
		Tags: nostr.Tags{
			{"d", itemID},
			{"t", CommunityTag},
			{"item", string(blob)},
		},
	}, nil
}

// ParseItemEvent extracts a wishlist item from an event. It returns nil when
// the item tag is absent or its JSON is malformed; malformed remote data drops
// that one event and never aborts the merge.
func ParseItemEvent(ev nostr.Event) *models.WishlistItem {
	tag := ev.Tags.GetFirst([]string{"item"})
	if tag == nil || len(*tag) < 2 {
		return nil
	}

	var blob itemBlob
	if err := json.Unmarshal([]byte((*tag)[1]), &blob); err != nil {
		return nil
	}

	id := blob.ID
	if id == "" {
		id = ev.ID
	}

	return &models.WishlistItem{
		ID:              id,
		Title:           blob.Title,
		Link:            strValue(blob.Link),
		Image:           strValue(blob.Image),
		Notes:           strValue(blob.Notes),
		TargetPriceSats: blob.TargetPriceSats,
		TargetPriceEUR:  floatValue(blob.TargetPriceEUR),
		SourcePriceEUR:  floatValue(blob.SourcePriceEUR),
		Source:          strValue(blob.Source),
		Status:          models.ItemStatusDreaming,
		CreatedAt:       int64(ev.CreatedAt),
		EventID:         ev.ID,
	}
}

// BuildRetractEvent builds the generic kind-5 delete signal referencing the
// addressable wishlist event of the given logical item id.
func BuildRetractEvent(pubkey, itemID string) nostr.Event {
	return nostr.Event{
		Kind:      RetractKind,
		PubKey:    pubkey,
		CreatedAt: nostr.Now(),
		Content:   retractContent,
		Tags: nostr.Tags{
			{"a", fmt.Sprintf("%d:%s:%s", WishlistKind, pubkey, itemID)},
		},
	}
}

// BuildTombstoneEvent serializes the full deletion set as the content of the
// aggregate tombstone event. Publication is always a full-set overwrite; the
// relay's replaceable-event semantics keep only the latest copy.
func BuildTombstoneEvent(pubkey string, ids []string) (nostr.Event, error) {
	if ids == nil {
		ids = []string{}
	}
	content, err := json.Marshal(ids)
	if err != nil {
		return nostr.Event{}, fmt.Errorf("failed to marshal deleted ids: %w", err)
	}

	return nostr.Event{
		Kind:      TombstoneKind,
		PubKey:    pubkey,
		CreatedAt: nostr.Now(),
		Content:   string(content),
		Tags: nostr.Tags{
			{"t", TombstoneTag},
			{"d", TombstoneDTag},
		},
	}, nil
}

// ParseTombstoneEvent returns the deduplicated set of deleted logical ids
// carried by a tombstone event, or an empty slice on any parse failure.
func ParseTombstoneEvent(ev nostr.Event) []string {
	var raw []any
	if err := json.Unmarshal([]byte(ev.Content), &raw); err != nil {
		return []string{}
	}

	seen := make(map[string]struct{}, len(raw))
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		ids = append(ids, s)
	}
	return ids
}
