// Package render interprets schema-constrained UI trees. Each node resolves
// through a closed name->handler dispatch to a concrete parameter struct; a
// malformed or unknown child is a silent no-render, so one bad node never
// takes down the rest of the tree.
package render

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/regalo-labs/giftfinder/internal/domain"
	"github.com/regalo-labs/giftfinder/internal/domain/ui/component"
	"github.com/regalo-labs/giftfinder/internal/logger"
)

// Element is one rendered unit of the output tree. Props carries only the
// values that survived interpretation: absent or non-numeric numbers suppress
// their prop entirely rather than rendering a placeholder.
type Element struct {
	Kind     string         `json:"kind"`
	Props    map[string]any `json:"props,omitempty"`
	Children []Element      `json:"children,omitempty"`
}

// Grid column counts the presentation layer supports; anything else maps to
// the baseline.
const defaultGridColumns = 3

var supportedGridColumns = map[int]struct{}{2: {}, 3: {}, 4: {}, 5: {}, 6: {}}

// Service renders validated UI trees against the component registry.
type Service struct {
	reg *component.Registry
}

// New creates a render service.
func New(reg *component.Registry) *Service {
	return &Service{reg: reg}
}

// Render interprets one UI payload. The top-level value must be an object
// whose discriminator names a registered component and whose fields are all
// declared; anything less is a request-level error. Below the root, bad nodes
// degrade to no-render.
func (s *Service) Render(ctx context.Context, raw json.RawMessage) (Element, error) {
	name, fields, err := decodeNode(raw)
	if err != nil {
		return Element{}, fmt.Errorf("%w: %s", domain.ErrInvalidRequest, err)
	}

	def, ok := s.reg.Get(name)
	if !ok {
		return Element{}, fmt.Errorf("%w: unregistered component %q", domain.ErrInvalidRequest, name)
	}
	if err := checkDeclared(def, fields); err != nil {
		return Element{}, fmt.Errorf("%w: %s", domain.ErrInvalidRequest, err)
	}

	return s.renderResolved(ctx, name, fields), nil
}

// renderChild resolves one child node. Returns false when the node must be
// skipped: not an object, unknown kind, or undeclared fields under strict
// validation.
func (s *Service) renderChild(ctx context.Context, raw json.RawMessage) (Element, bool) {
	name, fields, err := decodeNode(raw)
	if err != nil {
		logger.FromContext(ctx).Debug("skipping malformed ui node", zap.Error(err))
		return Element{}, false
	}

	def, ok := s.reg.Get(name)
	if !ok {
		logger.FromContext(ctx).Debug("skipping unknown ui component", zap.String("name", name))
		return Element{}, false
	}
	if err := checkDeclared(def, fields); err != nil {
		logger.FromContext(ctx).Debug("skipping invalid ui node",
			zap.String("name", name), zap.Error(err))
		return Element{}, false
	}

	return s.renderResolved(ctx, name, fields), true
}

func (s *Service) renderResolved(ctx context.Context, name string, fields nodeFields) Element {
	switch name {
	case component.Card:
		return s.renderCard(ctx, fields)
	case component.Carousel:
		return s.renderCarousel(ctx, fields)
	case component.PLPGrid:
		return s.renderPLPGrid(ctx, fields)
	case component.BarChart:
		return renderBarChart(fields)
	case component.Header:
		return renderHeader(fields)
	case component.Table:
		return renderTable(fields)
	case component.Item:
		return renderItem(fields)
	case component.Order:
		return renderOrder(fields)
	}
	// Unreachable: the registry gate above only admits the closed set.
	return Element{Kind: name}
}

// --- Container kinds ---

func (s *Service) renderCard(ctx context.Context, fields nodeFields) Element {
	el := Element{Kind: component.Card, Props: map[string]any{}}
	if title := fields.getString("title"); title != "" {
		el.Props["title"] = title
	}
	el.Children = s.renderChildren(ctx, fields.getNodes("children"))
	return el
}

func (s *Service) renderCarousel(ctx context.Context, fields nodeFields) Element {
	return Element{
		Kind:     component.Carousel,
		Children: s.renderChildren(ctx, fields.getNodes("children")),
	}
}

// renderPLPGrid re-sorts children by their numeric match field, descending,
// before layout. A child with no match sorts as match=0. Columns outside the
// supported discrete set fall back to the baseline.
func (s *Service) renderPLPGrid(ctx context.Context, fields nodeFields) Element {
	children := fields.getNodes("children")

	type ranked struct {
		raw   json.RawMessage
		match float64
	}
	order := make([]ranked, len(children))
	for i, child := range children {
		order[i] = ranked{raw: child, match: childMatch(child)}
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].match > order[j].match })

	sorted := make([]json.RawMessage, len(order))
	for i, r := range order {
		sorted[i] = r.raw
	}

	columns := defaultGridColumns
	if n := fields.getNumber("columns"); n != nil {
		if _, ok := supportedGridColumns[int(*n)]; ok && *n == float64(int(*n)) {
			columns = int(*n)
		}
	}

	return Element{
		Kind:     component.PLPGrid,
		Props:    map[string]any{"columns": columns},
		Children: s.renderChildren(ctx, sorted),
	}
}

func (s *Service) renderChildren(ctx context.Context, raws []json.RawMessage) []Element {
	if len(raws) == 0 {
		return nil
	}
	out := make([]Element, 0, len(raws))
	for _, raw := range raws {
		if el, ok := s.renderChild(ctx, raw); ok {
			out = append(out, el)
		}
	}
	return out
}

// childMatch extracts the match score used for grid ordering; absent or
// non-numeric is 0.
func childMatch(raw json.RawMessage) float64 {
	var probe struct {
		Match json.RawMessage `json:"match"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return 0
	}
	if n := asNumber(probe.Match); n != nil {
		return *n
	}
	return 0
}

// --- Leaf kinds ---

func renderBarChart(fields nodeFields) Element {
	props := map[string]any{}
	if title := fields.getString("title"); title != "" {
		props["title"] = title
	}
	if labels := fields.getStringArray("labels"); labels != nil {
		props["labels"] = labels
	}
	if values := fields.getNumberArray("values"); values != nil {
		props["values"] = values
	}
	return Element{Kind: component.BarChart, Props: props}
}

func renderHeader(fields nodeFields) Element {
	props := map[string]any{}
	if title := fields.getString("title"); title != "" {
		props["title"] = title
	}
	if subtitle := fields.getString("subtitle"); subtitle != "" {
		props["subtitle"] = subtitle
	}
	return Element{Kind: component.Header, Props: props}
}

func renderTable(fields nodeFields) Element {
	props := map[string]any{}
	if title := fields.getString("title"); title != "" {
		props["title"] = title
	}
	if columns := fields.getStringArray("columns"); columns != nil {
		props["columns"] = columns
	}
	if rows := fields.getStringRows("rows"); rows != nil {
		props["rows"] = rows
	}
	return Element{Kind: component.Table, Props: props}
}

func renderItem(fields nodeFields) Element {
	props := map[string]any{}
	for _, key := range []string{"code", "title", "brand", "category", "description", "image_url"} {
		if v := fields.getString(key); v != "" {
			props[key] = v
		}
	}
	if price := fields.getNumber("price"); price != nil {
		props["price"] = *price
	}
	if match := fields.getNumber("match"); match != nil {
		props["match"] = clamp01(*match)
	}
	return Element{Kind: component.Item, Props: props}
}

func renderOrder(fields nodeFields) Element {
	props := map[string]any{}
	for _, key := range []string{"order_id", "status", "date"} {
		if v := fields.getString(key); v != "" {
			props[key] = v
		}
	}
	if total := fields.getNumber("total"); total != nil {
		props["total"] = *total
	}
	if items := fields.getStringArray("items"); items != nil {
		props["items"] = items
	}
	return Element{Kind: component.Order, Props: props}
}

// clamp01 bounds a 0..1 similarity before the presentation layer converts it
// to a percentage.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
