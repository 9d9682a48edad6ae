package render

import (
	"encoding/json"
	"fmt"

	"github.com/regalo-labs/giftfinder/internal/domain/ui/component"
)

// nodeFields is the raw field set of one UI node, keyed by field name with
// the discriminator removed. Accessors are tolerant: a wrong-typed value
// reads as absent, so a bad number suppresses its visual element instead of
// failing the node.
type nodeFields map[string]json.RawMessage

// decodeNode splits a raw node into its discriminator and field set.
func decodeNode(raw json.RawMessage) (string, nodeFields, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", nil, fmt.Errorf("node is not an object")
	}

	nameRaw, ok := obj["name"]
	if !ok {
		return "", nil, fmt.Errorf("missing name discriminator")
	}
	var name string
	if err := json.Unmarshal(nameRaw, &name); err != nil || name == "" {
		return "", nil, fmt.Errorf("name discriminator is not a string")
	}

	delete(obj, "name")
	return name, nodeFields(obj), nil
}

// checkDeclared enforces the strict schema contract: every field must be a
// declared parameter of the component.
func checkDeclared(def component.Definition, fields nodeFields) error {
	for field := range fields {
		if _, ok := def.Params[field]; !ok {
			return fmt.Errorf("undeclared field %q", field)
		}
	}
	return nil
}

func (f nodeFields) getString(key string) string {
	var v string
	if raw, ok := f[key]; ok {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

func (f nodeFields) getNumber(key string) *float64 {
	raw, ok := f[key]
	if !ok {
		return nil
	}
	return asNumber(raw)
}

func (f nodeFields) getStringArray(key string) []string {
	var v []string
	if raw, ok := f[key]; ok {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

func (f nodeFields) getNumberArray(key string) []float64 {
	var v []float64
	if raw, ok := f[key]; ok {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

func (f nodeFields) getStringRows(key string) [][]string {
	var v [][]string
	if raw, ok := f[key]; ok {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

func (f nodeFields) getNodes(key string) []json.RawMessage {
	var v []json.RawMessage
	if raw, ok := f[key]; ok {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

func asNumber(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}
