package view

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var label = &Kind{
	Name:   "label",
	Props:  []Field{{Name: "text"}, {Name: "lines", Optional: true}},
	Style:  []Field{{Name: "color", Optional: true}, {Name: "font"}},
	Layout: []Field{{Name: "width", Optional: true}},
}

type rgb struct{ r, g, b uint8 }

// hexColor compares case-insensitively.
type hexColor string

func (h hexColor) Equal(other any) bool {
	o, ok := other.(hexColor)
	return ok && strings.EqualFold(string(o), string(h))
}

func TestDiff_SingleField(t *testing.T) {
	old := New(label, "a").Prop("text", "hi").Styled("font", "mono")
	new := New(label, "a").Prop("text", "bye").Styled("font", "mono")

	got := Diff(label, old, new)
	want := ChangeSet{Changes: []Change{{Section: Props, Field: "text", Value: "bye"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Diff() mismatch (-want +got):\n%s", diff)
	}
}

func TestDiff_Identical(t *testing.T) {
	old := New(label, "a").Prop("text", "hi").Styled("color", rgb{1, 2, 3})
	new := New(label, "a").Prop("text", "hi").Styled("color", rgb{1, 2, 3})

	if cs := Diff(label, old, new); !cs.Empty() {
		t.Errorf("expected empty change set, got %+v", cs)
	}
}

func TestDiff_UnsetOnRemoval(t *testing.T) {
	old := New(label, "a").Prop("text", "hi").Styled("color", "red")
	new := New(label, "a").Prop("text", "hi")

	cs := Diff(label, old, new)
	c, ok := cs.Get(Style, "color")
	if !ok {
		t.Fatal("expected a change for style color")
	}
	if !c.Unset || c.Value != nil {
		t.Errorf("expected unset change, got %+v", c)
	}
	if cs.Len() != 1 {
		t.Errorf("expected 1 change, got %d", cs.Len())
	}
}

func TestDiff_SectionsIndependent(t *testing.T) {
	old := New(label, "a").Prop("text", "x").Laid("width", 10)
	new := New(label, "a").Prop("text", "x").Styled("font", "serif").Laid("width", 12)

	got := Diff(label, old, new)
	want := ChangeSet{Changes: []Change{
		{Section: Style, Field: "font", Value: "serif"},
		{Section: Layout, Field: "width", Value: 12},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Diff() mismatch (-want +got):\n%s", diff)
	}
}

func TestDiff_UsesEqualer(t *testing.T) {
	old := New(label, "a").Styled("color", hexColor("#FFF"))
	new := New(label, "a").Styled("color", hexColor("#fff"))
	if cs := Diff(label, old, new); !cs.Empty() {
		t.Errorf("expected Equaler values to compare equal, got %+v", cs)
	}
}

func TestDiff_IgnoresFieldsOutsideSchema(t *testing.T) {
	old := New(label, "a").Prop("text", "x").Prop("debug", 1)
	new := New(label, "a").Prop("text", "x").Prop("debug", 2)
	if cs := Diff(label, old, new); !cs.Empty() {
		t.Errorf("expected schema-less fields to be ignored, got %+v", cs)
	}
}

func TestDiff_NilKindUsesNameOrder(t *testing.T) {
	old := &Node{Props: Values{"b": 1, "a": 1}}
	new := &Node{Props: Values{"b": 2, "c": 3}}

	got := Diff(nil, old, new)
	want := ChangeSet{Changes: []Change{
		{Section: Props, Field: "a", Unset: true},
		{Section: Props, Field: "b", Value: 2},
		{Section: Props, Field: "c", Value: 3},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Diff() mismatch (-want +got):\n%s", diff)
	}
}

func TestFull_ListsEverySchemaField(t *testing.T) {
	n := New(label, "a").Prop("text", "hi").Styled("font", "mono")

	got := Full(label, n)
	want := ChangeSet{Full: true, Changes: []Change{
		{Section: Props, Field: "text", Value: "hi"},
		{Section: Props, Field: "lines", Unset: true},
		{Section: Style, Field: "color", Unset: true},
		{Section: Style, Field: "font", Value: "mono"},
		{Section: Layout, Field: "width", Unset: true},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Full() mismatch (-want +got):\n%s", diff)
	}
}
