// Package query holds the validated catalog search request.
package query

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/regalo-labs/giftfinder/internal/domain"
	"github.com/regalo-labs/giftfinder/internal/domain/search/sortmode"
)

// Search parameter limits.
const (
	// MaxQueryChars caps the text fed to the embedding provider.
	MaxQueryChars = 12000
	// DefaultK is the requested candidate count when the caller leaves k unset.
	DefaultK = 8
	// HardKCap is the hard upper bound on returned items, independent of k.
	HardKCap = 5
	// OversampleFactor widens the index fetch to leave headroom for the
	// post-filter resort and cap.
	OversampleFactor = 3
	// MaxKQuery bounds the oversampled fetch.
	MaxKQuery = 50
)

// expansionTerms are appended to the embedded text in expanded mode. A
// deliberate low-precision/high-recall widener, not a semantic re-query.
const expansionTerms = "gift idea present regalo"

var whitespaceRe = regexp.MustCompile(`\s+`)

// Query is a validated search request.
type Query struct {
	text           string
	k              int
	minPrice       *float64
	maxPrice       *float64
	includeDetails bool
	expanded       bool
	sort           sortmode.Mode
}

// New validates and normalizes search parameters.
// Text is normalized (NUL bytes stripped, whitespace collapsed, trimmed,
// length-capped); a query that is empty after normalization is rejected before
// any embedding call is made. k defaults to 8; the effective result count is
// always capped at min(5, k).
func New(
	text string,
	k int,
	minPrice, maxPrice *float64,
	includeDetails, expanded bool,
	sort sortmode.Mode,
) (Query, error) {
	text = normalize(text)
	if text == "" {
		return Query{}, fmt.Errorf("%w: query text is required", domain.ErrInvalidRequest)
	}

	if k <= 0 {
		k = DefaultK
	}

	if minPrice != nil && maxPrice != nil && *minPrice > *maxPrice {
		return Query{}, fmt.Errorf("%w: min_price %g exceeds max_price %g",
			domain.ErrInvalidRequest, *minPrice, *maxPrice)
	}

	if sort == "" {
		sort = sortmode.Relevance
	}
	if !sort.IsValid() {
		return Query{}, fmt.Errorf("%w: invalid sort_by %q", domain.ErrInvalidRequest, sort)
	}

	return Query{
		text:           text,
		k:              k,
		minPrice:       minPrice,
		maxPrice:       maxPrice,
		includeDetails: includeDetails,
		expanded:       expanded,
		sort:           sort,
	}, nil
}

// Text returns the normalized query text.
func (q *Query) Text() string { return q.text }

// EmbeddingText returns the text to vectorize, with the fixed broadening
// terms appended in expanded mode.
func (q *Query) EmbeddingText() string {
	if q.expanded {
		return q.text + " " + expansionTerms
	}
	return q.text
}

// K returns the requested candidate count.
func (q *Query) K() int { return q.k }

// KLimit returns the effective result cap: min(5, k).
func (q *Query) KLimit() int {
	if q.k < HardKCap {
		return q.k
	}
	return HardKCap
}

// KQuery returns the oversampled index fetch size:
// min(50, max(kLimit, kLimit*3)).
func (q *Query) KQuery() int {
	kq := q.KLimit() * OversampleFactor
	if kq < q.KLimit() {
		kq = q.KLimit()
	}
	if kq > MaxKQuery {
		kq = MaxKQuery
	}
	return kq
}

// MinPrice returns the lower price bound, nil when unset.
func (q *Query) MinPrice() *float64 { return q.minPrice }

// MaxPrice returns the upper price bound, nil when unset.
func (q *Query) MaxPrice() *float64 { return q.maxPrice }

// HasPriceFilter reports whether any price bound is set.
func (q *Query) HasPriceFilter() bool { return q.minPrice != nil || q.maxPrice != nil }

// IncludeDetails reports whether full product records should be joined.
func (q *Query) IncludeDetails() bool { return q.includeDetails }

// Expanded reports whether broadened recall mode is on.
func (q *Query) Expanded() bool { return q.expanded }

// Sort returns the result ordering mode.
func (q *Query) Sort() sortmode.Mode { return q.sort }

// normalize strips NUL bytes, collapses whitespace, trims, and caps length.
// The cap backs off to a rune boundary so a multi-byte character is never
// split into invalid UTF-8 on its way to the embedding provider.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\x00", " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if len(s) > MaxQueryChars {
		cut := MaxQueryChars
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}

// Sanitize prepares arbitrary text for embedding: same normalization as a
// query, but an empty result becomes a "." placeholder instead of an error.
func Sanitize(s string) string {
	s = normalize(s)
	if s == "" {
		s = "."
	}
	return s
}
