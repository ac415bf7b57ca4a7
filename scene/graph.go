// Package scene turns an engine scene graph into an i3m document tree.
//
// The engine side is modelled as the Graph capability surface, so any
// loader (or test double) can feed the traversal, hierarchy and asset
// stages without exposing its own types.
package scene

// NoParent is the Parent of a root NodeView.
const NoParent = -1

// Graph is a read-only view of a loaded scene graph.
// Indices are stable for the lifetime of the Graph.
type Graph interface {
	// NodeCount returns the number of nodes.
	NodeCount() int

	// Node returns the node at index i, 0 <= i < NodeCount().
	Node(i int) NodeView
}

// Orderer is implemented by graphs whose declared sibling order
// differs from index order.
type Orderer interface {
	// Order returns every node index exactly once, with the children of
	// each node (and the roots) in their declared relative order.
	Order() []int
}

// ResourceLister is implemented by graphs that reference external
// resources at the model level (textures, buffers, animation sources).
type ResourceLister interface {
	Resources() []string
}

// NodeView is a flat read of one scene graph node.
type NodeView struct {
	Index  int
	Name   string // not required to be unique
	Local  Transform
	Parent int // NoParent for roots

	// Assets holds identifiers of resources referenced by this node.
	Assets []string
}

// IsRoot returns whether v has no parent.
func (v *NodeView) IsRoot() bool { return v.Parent == NoParent }

// Traverse reads every node of g.
// The result follows g's declared order when g implements Orderer and
// index order otherwise. It carries no hierarchy by itself.
func Traverse(g Graph) ([]NodeView, error) {
	n := g.NodeCount()
	order, err := traversalOrder(g, n)
	if err != nil {
		return nil, err
	}
	views := make([]NodeView, 0, n)
	for _, i := range order {
		v := g.Node(i)
		v.Index = i
		views = append(views, v)
	}
	return views, nil
}

func traversalOrder(g Graph, n int) ([]int, error) {
	o, ok := g.(Orderer)
	if !ok {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		return order, nil
	}
	order := o.Order()
	if len(order) != n {
		return nil, &StructureError{Index: -1, Parent: NoParent, Err: ErrBadOrder}
	}
	seen := make([]bool, n)
	for _, i := range order {
		if i < 0 || i >= n || seen[i] {
			return nil, &StructureError{Index: i, Parent: NoParent, Err: ErrBadOrder}
		}
		seen[i] = true
	}
	return order, nil
}
