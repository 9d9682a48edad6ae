// Package result holds typed search hits and the response envelope.
package result

import (
	"github.com/regalo-labs/giftfinder/internal/domain"
	"github.com/regalo-labs/giftfinder/internal/domain/search/sortmode"
)

// Item is a single ranked catalog hit. Code is always non-empty; Price is nil
// when the index row carries no price (such items sort last under price
// ordering). Score is the raw index score (cosine distance, ascending =
// closer). Product is the joined detail record, nil unless requested or when
// the best-effort join failed.
type Item struct {
	Code     string          `json:"code"`
	Title    string          `json:"title,omitempty"`
	Brand    string          `json:"brand,omitempty"`
	Category string          `json:"category,omitempty"`
	Keywords string          `json:"keywords,omitempty"`
	Price    *float64        `json:"price,omitempty"`
	Score    float64         `json:"score"`
	Product  *domain.Product `json:"product,omitempty"`
}

// Filters echoes the effective request filters back to the caller.
type Filters struct {
	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
	Expanded bool     `json:"expanded,omitempty"`
}

// Envelope is the search response. Count 0 with an empty item list is the
// expected "not found" signal, never an error; callers may retry broadened.
type Envelope struct {
	Count   int           `json:"count"`
	K       int           `json:"k"`
	Filters Filters       `json:"filters"`
	Sort    sortmode.Mode `json:"sort_by"`
	Items   []Item        `json:"items"`
}
