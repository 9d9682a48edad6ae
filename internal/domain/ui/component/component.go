// Package component defines the closed registry of presentational component
// kinds. The registry is configuration: built once at process start, immutable
// afterward, and consumed by both the schema builder and the tree interpreter
// so the generation contract and its executor can never drift apart.
package component

import (
	"fmt"
	"sort"
)

// ParamKind is the declared type of a component parameter.
type ParamKind string

// Parameter kind constants.
const (
	String      ParamKind = "string"
	Number      ParamKind = "number"
	Boolean     ParamKind = "boolean"
	StringArray ParamKind = "string_array"
	NumberArray ParamKind = "number_array"
	// StringRows is an array of string arrays (table rows).
	StringRows ParamKind = "string_rows"
	// Nodes is an ordered list of nested child components.
	Nodes ParamKind = "nodes"
)

// IsValid checks if the kind is one of the supported values.
func (k ParamKind) IsValid() bool {
	switch k {
	case String, Number, Boolean, StringArray, NumberArray, StringRows, Nodes:
		return true
	}
	return false
}

// Component name constants for the closed set.
const (
	Card     = "card"
	Carousel = "carousel"
	PLPGrid  = "plp_grid"
	BarChart = "bar_chart"
	Header   = "header"
	Table    = "table"
	Item     = "item"
	Order    = "order"
)

// Definition declares one component kind: its discriminator name and typed
// parameter set.
type Definition struct {
	Name   string
	Params map[string]ParamKind
}

// Registry is the immutable component set.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry validates definitions and builds a registry.
// Fails fast on duplicate names or unrecognized parameter kinds.
func NewRegistry(defs []Definition) (*Registry, error) {
	m := make(map[string]Definition, len(defs))
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("component name is required")
		}
		if _, dup := m[d.Name]; dup {
			return nil, fmt.Errorf("duplicate component name %q", d.Name)
		}
		for param, kind := range d.Params {
			if !kind.IsValid() {
				return nil, fmt.Errorf("component %q: unrecognized kind %q for parameter %q",
					d.Name, kind, param)
			}
		}
		m[d.Name] = d
	}
	return &Registry{defs: m}, nil
}

// MustNewRegistry builds a registry or panics. For the static default set.
func MustNewRegistry(defs []Definition) *Registry {
	r, err := NewRegistry(defs)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the definition for a component name.
func (r *Registry) Get(name string) (Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Names returns all registered component names in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered components.
func (r *Registry) Len() int { return len(r.defs) }

// Default returns the registry for the closed component set the chat model may
// emit.
func Default() *Registry {
	return MustNewRegistry([]Definition{
		{Name: Card, Params: map[string]ParamKind{
			"title":    String,
			"children": Nodes,
		}},
		{Name: Carousel, Params: map[string]ParamKind{
			"children": Nodes,
		}},
		{Name: PLPGrid, Params: map[string]ParamKind{
			"columns":  Number,
			"children": Nodes,
		}},
		{Name: BarChart, Params: map[string]ParamKind{
			"title":  String,
			"labels": StringArray,
			"values": NumberArray,
		}},
		{Name: Header, Params: map[string]ParamKind{
			"title":    String,
			"subtitle": String,
		}},
		{Name: Table, Params: map[string]ParamKind{
			"title":   String,
			"columns": StringArray,
			"rows":    StringRows,
		}},
		{Name: Item, Params: map[string]ParamKind{
			"code":        String,
			"title":       String,
			"brand":       String,
			"category":    String,
			"description": String,
			"image_url":   String,
			"price":       Number,
			"match":       Number,
		}},
		{Name: Order, Params: map[string]ParamKind{
			"order_id": String,
			"status":   String,
			"date":     String,
			"total":    Number,
			"items":    StringArray,
		}},
	})
}
