package domain

import "encoding/json"

// Product is the full catalog detail record stored as a JSON document per
// product code. Price may live in either of two historical fields; Price()
// resolves the populated one.
type Product struct {
	ID                  string   `json:"id,omitempty"`
	Title               string   `json:"title,omitempty"`
	Description         string   `json:"description,omitempty"`
	Category            string   `json:"category,omitempty"`
	Brand               string   `json:"brand,omitempty"`
	EAN                 string   `json:"ean,omitempty"`
	UPC                 string   `json:"upc,omitempty"`
	Themes              []string `json:"themes,omitempty"`
	Material            string   `json:"material,omitempty"`
	MaterialSecondary   string   `json:"material_secondary,omitempty"`
	MadeIn              string   `json:"made_in,omitempty"`
	Format              string   `json:"format,omitempty"`
	Binding             string   `json:"binding,omitempty"`
	Dimensions          string   `json:"dimensions,omitempty"`
	CanonicalText       string   `json:"canonical_text,omitempty"`
	Keywords            []string `json:"keywords,omitempty"`
	Topics              []string `json:"topics,omitempty"`
	AttributesExtracted []string `json:"attributes_extracted,omitempty"`
	PriceEUR            *float64 `json:"price,omitempty"`
	Prezzo              *float64 `json:"prezzo,omitempty"`
}

// Price returns the populated price field, preferring the canonical one.
func (p *Product) Price() *float64 {
	if p.PriceEUR != nil {
		return p.PriceEUR
	}
	return p.Prezzo
}

// DefaultDetailFields is the subset of product fields attached to tool
// payloads when the caller does not name specific ones. The full record is
// too large to carry through a model conversation; the price the caller sees
// comes from the search hit, not the detail record.
var DefaultDetailFields = []string{
	"id", "title", "description", "category", "brand", "ean", "upc", "themes",
	"material", "material_secondary", "made_in", "format", "binding",
	"dimensions", "canonical_text", "keywords", "topics", "attributes_extracted",
}

// PickFields returns the product as a map keyed by JSON field name,
// restricted to the wanted fields. Empty wanted selects DefaultDetailFields;
// unknown names and unset fields are silently dropped.
func (p *Product) PickFields(wanted []string) map[string]any {
	if p == nil {
		return nil
	}
	if len(wanted) == 0 {
		wanted = DefaultDetailFields
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return nil
	}

	out := make(map[string]any, len(wanted))
	for _, k := range wanted {
		if v, ok := all[k]; ok {
			out[k] = v
		}
	}
	return out
}

// DecodeProduct parses a catalog JSON payload into a Product.
func DecodeProduct(data []byte) (*Product, error) {
	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
