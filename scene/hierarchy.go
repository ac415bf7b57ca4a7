package scene

import (
	"github.com/netisu/i3m"
)

// Tree is a reconstructed node hierarchy.
type Tree struct {
	Roots    []*i3m.Node
	Warnings []Warning
}

// Count returns the number of nodes in t, across all levels.
func (t *Tree) Count() int {
	return (&i3m.Document{Nodes: t.Roots}).Count()
}

// Node colours for the cycle check.
const (
	unvisited = iota
	visiting
	done
)

// Build reconstructs the tree described by the parent links of views.
// Children and roots keep their relative order in views.
// It fails with a StructureError on duplicate indices, dangling parent
// references, parent cycles and unrecoverable rotations.
func Build(views []NodeView) (*Tree, error) {
	t := &Tree{}
	records := make(map[int]*i3m.Node, len(views))
	pos := make(map[int]int, len(views))

	for k := range views {
		v := &views[k]
		if _, dup := records[v.Index]; dup {
			return nil, &StructureError{Index: v.Index, Parent: NoParent, Err: ErrDuplicateIndex}
		}
		local := v.Local
		notes, err := local.normalize()
		if err != nil {
			return nil, &StructureError{Index: v.Index, Parent: NoParent, Err: err}
		}
		for _, msg := range notes {
			t.Warnings = append(t.Warnings, Warning{Index: v.Index, Name: v.Name, Msg: msg})
		}
		records[v.Index] = &i3m.Node{
			Name:     v.Name,
			Position: local.Position,
			Rotation: local.RotationArray(),
			Scale:    local.Scale,
			Children: []*i3m.Node{},
		}
		pos[v.Index] = k
	}

	if err := checkParents(views, pos); err != nil {
		return nil, err
	}

	for k := range views {
		v := &views[k]
		rec := records[v.Index]
		if v.IsRoot() {
			t.Roots = append(t.Roots, rec)
			continue
		}
		parent := records[v.Parent]
		parent.Children = append(parent.Children, rec)
	}

	if n := t.Count(); n != len(views) {
		return nil, &StructureError{Index: -1, Parent: NoParent, Err: ErrCountMismatch}
	}
	return t, nil
}

// checkParents verifies that every parent chain reaches a root.
// Each node is walked at most once, so it runs in O(len(views)) steps
// whatever the shape of the links.
func checkParents(views []NodeView, pos map[int]int) error {
	state := make([]uint8, len(views))
	var path []int
	for k := range views {
		if state[k] != unvisited {
			continue
		}
		path = path[:0]
		cur := k
		for {
			if state[cur] == done {
				break
			}
			if state[cur] == visiting {
				return &StructureError{Index: views[cur].Index, Parent: views[cur].Parent, Err: ErrCycle}
			}
			state[cur] = visiting
			path = append(path, cur)

			v := &views[cur]
			if v.IsRoot() {
				break
			}
			next, ok := pos[v.Parent]
			if !ok {
				return &StructureError{Index: v.Index, Parent: v.Parent, Err: ErrDanglingParent}
			}
			cur = next
		}
		for _, p := range path {
			state[p] = done
		}
	}
	return nil
}
