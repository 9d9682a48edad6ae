// Package sortmode defines the result ordering policy for catalog searches.
package sortmode

// Mode is the result ordering strategy.
type Mode string

// Sort mode constants.
const (
	// Relevance preserves the index's own KNN ordering.
	Relevance Mode = "relevance"
	PriceAsc  Mode = "price_asc"
	PriceDesc Mode = "price_desc"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Relevance || m == PriceAsc || m == PriceDesc
}

// ByPrice reports whether the mode resorts by price.
func (m Mode) ByPrice() bool {
	return m == PriceAsc || m == PriceDesc
}
