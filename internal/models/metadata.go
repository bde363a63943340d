package models

// ProductMetadata is the best-effort result of scraping a shop page.
// Missing fields are left zero for manual entry.
type ProductMetadata struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Image       string  `json:"image,omitempty"`
	PriceEUR    float64 `json:"priceEUR,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	Source      string  `json:"source"`
}
