package models

// RawProduct is an unvalidated catalogue record. Field names vary between
// feeds so it is kept as a generic map.
type RawProduct map[string]interface{}

// ClientProduct is the normalized shape returned to callers.
type ClientProduct struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Price    *float64 `json:"price"`
	Currency string   `json:"currency"`
	Unit     string   `json:"unit"`
	Pitch    string   `json:"pitch"`
	Tags     []string `json:"tags"`
	Thumb    string   `json:"thumb"`
}

// CatalogueSummaryEntry is the token-minimized view embedded in prompts.
// It never carries url or image fields.
type CatalogueSummaryEntry struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Price    *float64 `json:"price"`
	Currency string   `json:"currency"`
	Tags     []string `json:"tags"`
	Pitch    string   `json:"pitch"`
}

type ProductsResponse struct {
	Count    int             `json:"count"`
	Products []ClientProduct `json:"products"`
}

type HealthResponse struct {
	OK       bool `json:"ok"`
	Products int  `json:"products"`
}
