package models

// Product is a ranked catalog match, priced at the tier applicable to the
// requested quantity. Read-only to the dialogue core.
type Product struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	Price          int    `json:"price"`
	MinOrder       int    `json:"min_order"`
	ImageURL       string `json:"image_url"`
	RelevanceScore int    `json:"relevance_score"`
}
