package scene

import (
	"errors"
	"fmt"
)

var (
	ErrCycle              = errors.New("cyclic parent chain")
	ErrDanglingParent     = errors.New("dangling parent reference")
	ErrDuplicateIndex     = errors.New("duplicate node index")
	ErrBadOrder           = errors.New("declared order is not a permutation of node indices")
	ErrDegenerateRotation = errors.New("zero-length rotation")
	ErrCountMismatch      = errors.New("node count mismatch")
)

// StructureError reports a scene graph whose hierarchy cannot be
// reconstructed.
type StructureError struct {
	Index  int // offending node, -1 if none
	Parent int
	Err    error
}

func (e *StructureError) Error() string {
	switch {
	case e.Index < 0:
		return "scene: " + e.Err.Error()
	case e.Parent != NoParent:
		return fmt.Sprintf("scene: node %d (parent %d): %v", e.Index, e.Parent, e.Err)
	default:
		return fmt.Sprintf("scene: node %d: %v", e.Index, e.Err)
	}
}

func (e *StructureError) Unwrap() error { return e.Err }

// Warning flags a suspicious but convertible node.
type Warning struct {
	Index int
	Name  string
	Msg   string
}

func (w Warning) String() string {
	return fmt.Sprintf("node %d (%q): %s", w.Index, w.Name, w.Msg)
}
