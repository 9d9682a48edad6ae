package component

import (
	"testing"
)

func TestNewRegistry_RejectsDuplicateName(t *testing.T) {
	_, err := NewRegistry([]Definition{
		{Name: "widget", Params: map[string]ParamKind{"title": String}},
		{Name: "widget", Params: map[string]ParamKind{"title": String}},
	})
	if err == nil {
		t.Fatal("expected error for duplicate name")
	}
}

func TestNewRegistry_RejectsEmptyName(t *testing.T) {
	_, err := NewRegistry([]Definition{{Name: ""}})
	if err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestNewRegistry_RejectsUnknownParamKind(t *testing.T) {
	_, err := NewRegistry([]Definition{
		{Name: "widget", Params: map[string]ParamKind{"title": "paragraph"}},
	})
	if err == nil {
		t.Fatal("expected error for unrecognized param kind")
	}
}

func TestDefault_ClosedSet(t *testing.T) {
	reg := Default()

	want := []string{Card, Carousel, PLPGrid, BarChart, Header, Table, Item, Order}
	if reg.Len() != len(want) {
		t.Fatalf("expected %d components, got %d", len(want), reg.Len())
	}
	for _, name := range want {
		if _, ok := reg.Get(name); !ok {
			t.Errorf("expected component %q registered", name)
		}
	}
	if _, ok := reg.Get("hero_banner"); ok {
		t.Error("unexpected component outside the closed set")
	}
}

func TestDefault_ItemParams(t *testing.T) {
	reg := Default()
	def, ok := reg.Get(Item)
	if !ok {
		t.Fatal("item not registered")
	}
	if def.Params["match"] != Number {
		t.Errorf("expected match to be a number, got %q", def.Params["match"])
	}
	if def.Params["price"] != Number {
		t.Errorf("expected price to be a number, got %q", def.Params["price"])
	}
	if def.Params["code"] != String {
		t.Errorf("expected code to be a string, got %q", def.Params["code"])
	}
}

func TestNames_SortedStable(t *testing.T) {
	reg := Default()
	names := reg.Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("names not in ascending order: %v", names)
		}
	}
}
