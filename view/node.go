// Package view describes component trees and computes the field-level
// change sets and tree patches a renderer applies to a visual tree.
//
// A Kind is the schema of a component kind: the ordered property, style
// and layout fields it understands. A Node is one instance in a tree.
//
//	label := &view.Kind{
//	    Name:  "label",
//	    Props: []view.Field{{Name: "text"}},
//	    Style: []view.Field{{Name: "color", Optional: true}},
//	}
//	root := view.New(label, "title").Prop("text", "hello")
//
// The renderer consumes two things: a full ChangeSet per node on first
// render, and a Patch produced by Reconcile on every render after that.
// A Change with Unset set means the renderer resets that visual property
// to its default; it must not be ignored.
//
// Field order within a section is the order a renderer applies changes
// in. Kinds whose fields interact (a layout width that depends on a
// style font, for example) list the independent field first.
package view

import "strconv"

// Section identifies one of the independently diffed bundles of a Node.
type Section int

const (
	Props Section = iota
	Style
	Layout
)

// String returns the string representation of the section.
func (s Section) String() string {
	switch s {
	case Props:
		return "props"
	case Style:
		return "style"
	case Layout:
		return "layout"
	default:
		return "unknown"
	}
}

// Field is one schema field of a component kind.
type Field struct {
	Name string
	// Optional fields may be absent; their absence is reported as Unset.
	Optional bool
}

// Kind is the schema of a renderable component kind.
type Kind struct {
	Name   string
	Props  []Field
	Style  []Field
	Layout []Field
}

// Fields returns the schema fields of section s in application order.
func (k *Kind) Fields(s Section) []Field {
	if k == nil {
		return nil
	}
	switch s {
	case Props:
		return k.Props
	case Style:
		return k.Style
	case Layout:
		return k.Layout
	default:
		return nil
	}
}

// Values is a bundle of field values keyed by field name.
type Values map[string]any

// Node is a component description in a view tree.
type Node struct {
	// Key identifies the node among its siblings across renders. Nodes
	// without a key are matched by position.
	Key      string
	Kind     *Kind
	Props    Values
	Style    Values
	Layout   Values
	Children []*Node
}

// New creates a node of kind k with the given sibling key.
func New(k *Kind, key string) *Node {
	return &Node{Key: key, Kind: k}
}

// Prop sets a property value and returns n.
func (n *Node) Prop(name string, v any) *Node {
	n.Props = set(n.Props, name, v)
	return n
}

// Styled sets a style value and returns n.
func (n *Node) Styled(name string, v any) *Node {
	n.Style = set(n.Style, name, v)
	return n
}

// Laid sets a layout value and returns n.
func (n *Node) Laid(name string, v any) *Node {
	n.Layout = set(n.Layout, name, v)
	return n
}

// Append adds the non-nil children and returns n.
func (n *Node) Append(children ...*Node) *Node {
	for _, c := range children {
		if c != nil {
			n.Children = append(n.Children, c)
		}
	}
	return n
}

// Values returns the bundle of section s.
func (n *Node) Values(s Section) Values {
	if n == nil {
		return nil
	}
	switch s {
	case Props:
		return n.Props
	case Style:
		return n.Style
	case Layout:
		return n.Layout
	default:
		return nil
	}
}

// Walk calls fn for n and every descendant in depth-first order with the
// path of each node.
func Walk(n *Node, fn func(path string, n *Node)) {
	walk(RootPath, n, fn)
}

func walk(path string, n *Node, fn func(string, *Node)) {
	if n == nil {
		return
	}
	fn(path, n)
	children := present(n.Children)
	for i, seg := range segments(children) {
		walk(childPath(path, seg), children[i], fn)
	}
}

// RootPath is the path of the root node of a tree.
const RootPath = "/"

func childPath(parent, seg string) string {
	if parent == RootPath {
		parent = ""
	}
	return parent + "/" + seg
}

// segments returns the path segment of each sibling. Keyed children are
// addressed by key, unkeyed ones by position. When siblings share a key
// the first one owns it and the rest are addressed by position.
func segments(children []*Node) []string {
	out := make([]string, len(children))
	seen := make(map[string]struct{}, len(children))
	for i, c := range children {
		if c.Key != "" {
			if _, dup := seen[c.Key]; !dup {
				seen[c.Key] = struct{}{}
				out[i] = c.Key
				continue
			}
		}
		out[i] = "#" + strconv.Itoa(i)
	}
	return out
}

// present drops nil children. Children assigned directly rather than
// through Append may contain them.
func present(children []*Node) []*Node {
	for _, c := range children {
		if c == nil {
			out := make([]*Node, 0, len(children)-1)
			for _, c := range children {
				if c != nil {
					out = append(out, c)
				}
			}
			return out
		}
	}
	return children
}

func set(v Values, name string, x any) Values {
	if v == nil {
		v = make(Values)
	}
	v[name] = x
	return v
}
