// Package schema derives the strict model-facing JSON Schema from the
// component registry and validates instances against it. The top-level schema
// is a discriminated union over all registered components; each variant
// requires the literal name plus exactly the declared parameters, with
// additionalProperties disallowed, so the model can neither invent component
// kinds nor unknown fields.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/regalo-labs/giftfinder/internal/domain/ui/component"
)

// Schema is the top-level generation contract: anyOf over all component
// variants, referenced by name.
type Schema struct {
	AnyOf []Ref             `json:"anyOf"`
	Defs  map[string]Object `json:"$defs"`
}

// Ref is a JSON Schema reference.
type Ref struct {
	Ref string `json:"$ref"`
}

// Object is a closed object schema for one component variant.
type Object struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required"`
	AdditionalProperties bool                `json:"additionalProperties"`
}

// Property is a parameter schema fragment.
type Property struct {
	Type  string    `json:"type,omitempty"`
	Const string    `json:"const,omitempty"`
	Items *Property `json:"items,omitempty"`
	Ref   string    `json:"$ref,omitempty"`
}

// Build derives the schema from a registry. Called once at startup; the
// schema changes only when the component set does.
func Build(reg *component.Registry) Schema {
	names := reg.Names()

	s := Schema{
		AnyOf: make([]Ref, 0, len(names)),
		Defs:  make(map[string]Object, len(names)),
	}

	for _, name := range names {
		def, _ := reg.Get(name)
		s.AnyOf = append(s.AnyOf, Ref{Ref: "#/$defs/" + name})
		s.Defs[name] = buildVariant(def)
	}

	return s
}

func buildVariant(def component.Definition) Object {
	props := make(map[string]Property, len(def.Params)+1)
	props["name"] = Property{Const: def.Name}

	params := make([]string, 0, len(def.Params))
	for param := range def.Params {
		params = append(params, param)
	}
	sort.Strings(params)

	required := make([]string, 0, len(params)+1)
	required = append(required, "name")
	for _, param := range params {
		props[param] = paramProperty(def.Params[param])
		required = append(required, param)
	}

	return Object{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: false,
	}
}

func paramProperty(kind component.ParamKind) Property {
	switch kind {
	case component.String:
		return Property{Type: "string"}
	case component.Number:
		return Property{Type: "number"}
	case component.Boolean:
		return Property{Type: "boolean"}
	case component.StringArray:
		return Property{Type: "array", Items: &Property{Type: "string"}}
	case component.NumberArray:
		return Property{Type: "array", Items: &Property{Type: "number"}}
	case component.StringRows:
		return Property{Type: "array", Items: &Property{
			Type: "array", Items: &Property{Type: "string"},
		}}
	case component.Nodes:
		// Children reference the root schema: grids of items compose
		// self-referentially.
		return Property{Type: "array", Items: &Property{Ref: "#"}}
	}
	// NewRegistry rejects unrecognized kinds before Build can see them.
	return Property{}
}

// Validate strictly checks one instance against the registry: the
// discriminator must be present and registered, every field must be declared,
// and declared fields must match their parameter kind. Child nodes are
// validated recursively.
func Validate(reg *component.Registry, raw json.RawMessage) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("node is not an object: %w", err)
	}

	nameRaw, ok := obj["name"]
	if !ok {
		return fmt.Errorf("missing name discriminator")
	}
	var name string
	if err := json.Unmarshal(nameRaw, &name); err != nil || name == "" {
		return fmt.Errorf("name discriminator is not a string")
	}

	def, ok := reg.Get(name)
	if !ok {
		return fmt.Errorf("unregistered component %q", name)
	}

	for field, value := range obj {
		if field == "name" {
			continue
		}
		kind, declared := def.Params[field]
		if !declared {
			return fmt.Errorf("component %q: undeclared field %q", name, field)
		}
		if err := validateValue(reg, kind, value); err != nil {
			return fmt.Errorf("component %q, field %q: %w", name, field, err)
		}
	}

	return nil
}

func validateValue(reg *component.Registry, kind component.ParamKind, raw json.RawMessage) error {
	switch kind {
	case component.String:
		var v string
		return typed(json.Unmarshal(raw, &v), "string")
	case component.Number:
		var v float64
		return typed(json.Unmarshal(raw, &v), "number")
	case component.Boolean:
		var v bool
		return typed(json.Unmarshal(raw, &v), "boolean")
	case component.StringArray:
		var v []string
		return typed(json.Unmarshal(raw, &v), "string array")
	case component.NumberArray:
		var v []float64
		return typed(json.Unmarshal(raw, &v), "number array")
	case component.StringRows:
		var v [][]string
		return typed(json.Unmarshal(raw, &v), "array of string arrays")
	case component.Nodes:
		var children []json.RawMessage
		if err := json.Unmarshal(raw, &children); err != nil {
			return typed(err, "node array")
		}
		for i, child := range children {
			if err := Validate(reg, child); err != nil {
				return fmt.Errorf("child %d: %w", i, err)
			}
		}
	}
	return nil
}

func typed(err error, want string) error {
	if err != nil {
		return fmt.Errorf("expected %s", want)
	}
	return nil
}
