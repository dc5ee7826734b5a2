package view

// Op is the kind of a tree edit.
type Op int

const (
	// Create inserts Node at Index under Parent.
	Create Op = iota
	// Remove deletes the subtree at Path.
	Remove
	// Replace swaps the subtree at Path for Node, whose kind differs.
	Replace
	// Update applies Changes to the node at Path.
	Update
	// Move repositions the node at Path from From to Index under Parent.
	Move
)

// String returns the string representation of the op.
func (o Op) String() string {
	switch o {
	case Create:
		return "create"
	case Remove:
		return "remove"
	case Replace:
		return "replace"
	case Update:
		return "update"
	case Move:
		return "move"
	default:
		return "unknown"
	}
}

// Edit is a single mutation of the visual tree.
type Edit struct {
	Op      Op
	Path    string
	Parent  string
	Index   int
	From    int
	Node    *Node
	Changes ChangeSet
}

// Patch is the ordered list of edits turning one tree into another.
// Within a parent, removals come first, then edits in new child order.
type Patch struct {
	Edits []Edit
}

// Empty reports whether the patch has no edits.
func (p Patch) Empty() bool { return len(p.Edits) == 0 }

// Len returns the number of edits.
func (p Patch) Len() int { return len(p.Edits) }

// Removed returns the paths of subtrees that no longer exist in their
// previous form: removed nodes and replaced nodes.
func (p Patch) Removed() []string {
	var paths []string
	for _, e := range p.Edits {
		if e.Op == Remove || e.Op == Replace {
			paths = append(paths, e.Path)
		}
	}
	return paths
}

// Reconcile computes the patch turning the tree rooted at old into the
// tree rooted at new. Children are matched by key, or by position when
// unkeyed or when an earlier sibling already holds the key. Nil children
// are skipped. A nil old yields a single Create of new; a nil new yields a
// single Remove.
//
// Create and Replace edits carry a Full ChangeSet for their node, so a
// renderer building the node from scratch sees every field. Descendants
// of a created node are listed by Mount.
func Reconcile(old, new *Node) Patch {
	var p Patch
	switch {
	case old == nil && new == nil:
	case old == nil:
		p.Edits = append(p.Edits, Edit{Op: Create, Path: RootPath, Node: new, Changes: Full(new.Kind, new)})
	case new == nil:
		p.Edits = append(p.Edits, Edit{Op: Remove, Path: RootPath})
	default:
		p.node(RootPath, old, new)
	}
	return p
}

func (p *Patch) node(path string, old, new *Node) {
	if old.Kind != new.Kind {
		p.Edits = append(p.Edits, Edit{Op: Replace, Path: path, Node: new, Changes: Full(new.Kind, new)})
		return
	}
	if cs := Diff(new.Kind, old, new); !cs.Empty() {
		p.Edits = append(p.Edits, Edit{Op: Update, Path: path, Node: new, Changes: cs})
	}
	p.children(path, old.Children, new.Children)
}

func (p *Patch) children(parent string, old, new []*Node) {
	old, new = present(old), present(new)
	oldSeg, newSeg := segments(old), segments(new)

	oldAt := make(map[string]int, len(old))
	for i, seg := range oldSeg {
		oldAt[seg] = i
	}
	kept := make(map[string]struct{}, len(new))
	for _, seg := range newSeg {
		kept[seg] = struct{}{}
	}

	for i, seg := range oldSeg {
		if _, ok := kept[seg]; !ok {
			p.Edits = append(p.Edits, Edit{Op: Remove, Path: childPath(parent, seg), Parent: parent, Index: i})
		}
	}

	// Old positions of retained children in new order. Children on the
	// longest increasing run keep their relative order and do not move.
	var positions []int
	for _, seg := range newSeg {
		if j, ok := oldAt[seg]; ok {
			positions = append(positions, j)
		}
	}
	stay := increasingRun(positions)

	for i, c := range new {
		path := childPath(parent, newSeg[i])
		j, ok := oldAt[newSeg[i]]
		if !ok {
			p.Edits = append(p.Edits, Edit{Op: Create, Path: path, Parent: parent, Index: i, Node: c, Changes: Full(c.Kind, c)})
			continue
		}
		if _, ok := stay[j]; !ok {
			p.Edits = append(p.Edits, Edit{Op: Move, Path: path, Parent: parent, Index: i, From: j})
		}
		p.node(path, old[j], c)
	}
}

// Mount returns the Create edits that build the tree rooted at n from
// nothing, parents before children. Each edit carries a Full ChangeSet.
// It is the patch form of a first render.
func Mount(n *Node) Patch {
	var p Patch
	if n != nil {
		p.Edits = append(p.Edits, Edit{Op: Create, Path: RootPath, Node: n, Changes: Full(n.Kind, n)})
		p.mount(RootPath, n)
	}
	return p
}

func (p *Patch) mount(parent string, n *Node) {
	children := present(n.Children)
	for i, seg := range segments(children) {
		c, path := children[i], childPath(parent, seg)
		p.Edits = append(p.Edits, Edit{Op: Create, Path: path, Parent: parent, Index: i, Node: c, Changes: Full(c.Kind, c)})
		p.mount(path, c)
	}
}

// increasingRun returns the members of one longest strictly increasing
// subsequence of seq.
func increasingRun(seq []int) map[int]struct{} {
	out := make(map[int]struct{}, len(seq))
	if len(seq) == 0 {
		return out
	}
	// tails[k] is the index in seq of the smallest tail of an increasing
	// run of length k+1.
	tails := make([]int, 0, len(seq))
	prev := make([]int, len(seq))
	for i, v := range seq {
		lo, hi := 0, len(tails)
		for lo < hi {
			mid := (lo + hi) / 2
			if seq[tails[mid]] < v {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo > 0 {
			prev[i] = tails[lo-1]
		} else {
			prev[i] = -1
		}
		if lo == len(tails) {
			tails = append(tails, i)
		} else {
			tails[lo] = i
		}
	}
	for i := tails[len(tails)-1]; i >= 0; i = prev[i] {
		out[seq[i]] = struct{}{}
	}
	return out
}
