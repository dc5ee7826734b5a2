package view

import (
	"reflect"
	"sort"
)

// Equaler lets a field value define its own equality for diffing.
type Equaler interface {
	Equal(other any) bool
}

// Change records that one field changed. When Unset is true the field is
// now absent and Value is nil.
type Change struct {
	Section Section
	Field   string
	Value   any
	Unset   bool
}

// ChangeSet is the field-level difference between two nodes of a kind.
// Changes are ordered by section, then by schema field order.
type ChangeSet struct {
	// Full is true for a first-render change set covering every field.
	Full    bool
	Changes []Change
}

// Empty reports whether the change set lists nothing to apply.
func (c ChangeSet) Empty() bool { return len(c.Changes) == 0 }

// Len returns the number of changes.
func (c ChangeSet) Len() int { return len(c.Changes) }

// Get returns the change for field name in section s.
func (c ChangeSet) Get(s Section, name string) (Change, bool) {
	for _, ch := range c.Changes {
		if ch.Section == s && ch.Field == name {
			return ch, true
		}
	}
	return Change{}, false
}

var sections = [...]Section{Props, Style, Layout}

// Diff computes the partial change set turning old into new. Fields equal
// in both are omitted; fields present in old and absent in new are
// reported as Unset. A nil kind diffs every field present on either side
// in name order.
func Diff(k *Kind, old, new *Node) ChangeSet {
	var cs ChangeSet
	for _, s := range sections {
		ov, nv := old.Values(s), new.Values(s)
		for _, name := range fieldNames(k, s, ov, nv) {
			o, oOk := ov[name]
			n, nOk := nv[name]
			switch {
			case !nOk && oOk:
				cs.Changes = append(cs.Changes, Change{Section: s, Field: name, Unset: true})
			case nOk && (!oOk || !Equal(o, n)):
				cs.Changes = append(cs.Changes, Change{Section: s, Field: name, Value: n})
			}
		}
	}
	return cs
}

// Full computes the first-render change set of n: every schema field is
// listed, with absent fields reported as Unset.
func Full(k *Kind, n *Node) ChangeSet {
	cs := ChangeSet{Full: true}
	for _, s := range sections {
		nv := n.Values(s)
		for _, name := range fieldNames(k, s, nil, nv) {
			if v, ok := nv[name]; ok {
				cs.Changes = append(cs.Changes, Change{Section: s, Field: name, Value: v})
			} else {
				cs.Changes = append(cs.Changes, Change{Section: s, Field: name, Unset: true})
			}
		}
	}
	return cs
}

// Equal reports whether two field values are equal, using Equaler when a
// implements it and deep equality otherwise.
func Equal(a, b any) bool {
	if e, ok := a.(Equaler); ok {
		return e.Equal(b)
	}
	return reflect.DeepEqual(a, b)
}

func fieldNames(k *Kind, s Section, a, b Values) []string {
	if k != nil {
		fs := k.Fields(s)
		names := make([]string, len(fs))
		for i, f := range fs {
			names[i] = f.Name
		}
		return names
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	var names []string
	for _, v := range [...]Values{a, b} {
		for name := range v {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}
