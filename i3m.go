// Package i3m implements the portable i3m scene document and its
// textual encoding.
package i3m

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/chewxy/math32"
)

// Ext is the file extension of an encoded document.
const Ext = ".i3m"

// Node is one node of a document tree. Hierarchy is expressed only by
// nesting; a node does not know its parent.
type Node struct {
	Name     string     `json:"name"`
	Position [3]float32 `json:"position"`
	Rotation [4]float32 `json:"rotation"` // x, y, z, w
	Scale    [3]float32 `json:"scale"`
	Children []*Node    `json:"children"`
}

// MarshalJSON encodes n with an empty (never null) children list.
func (n *Node) MarshalJSON() ([]byte, error) {
	type node Node
	c := node(*n)
	if c.Children == nil {
		c.Children = []*Node{}
	}
	return json.Marshal(c)
}

// Document is the conversion output for one source file.
type Document struct {
	Nodes  []*Node  `json:"nodes"`
	Assets []string `json:"assets"` // sorted, deduplicated
}

// MarshalJSON encodes d with empty (never null) lists.
func (d *Document) MarshalJSON() ([]byte, error) {
	type document Document
	c := document(*d)
	if c.Nodes == nil {
		c.Nodes = []*Node{}
	}
	if c.Assets == nil {
		c.Assets = []string{}
	}
	return json.Marshal(c)
}

// Count returns the number of nodes in d, across all levels.
func (d *Document) Count() int {
	n := 0
	var walk func([]*Node)
	walk = func(nodes []*Node) {
		for _, nd := range nodes {
			n++
			walk(nd.Children)
		}
	}
	walk(d.Nodes)
	return n
}

// Validate checks that every numeric component of d is finite.
func (d *Document) Validate() error {
	var check func(path string, nodes []*Node) error
	check = func(path string, nodes []*Node) error {
		for _, n := range nodes {
			p := n.Name
			if path != "" {
				p = path + "/" + n.Name
			}
			if err := checkFinite(p, "position", n.Position[:]); err != nil {
				return err
			}
			if err := checkFinite(p, "rotation", n.Rotation[:]); err != nil {
				return err
			}
			if err := checkFinite(p, "scale", n.Scale[:]); err != nil {
				return err
			}
			if err := check(p, n.Children); err != nil {
				return err
			}
		}
		return nil
	}
	return check("", d.Nodes)
}

func checkFinite(node, field string, v []float32) error {
	for i, f := range v {
		if math32.IsNaN(f) || math32.IsInf(f, 0) {
			return &SerializationError{Node: node, Field: fmt.Sprintf("%s[%d]", field, i), Value: f}
		}
	}
	return nil
}

// Marshal returns the encoding of d.
// The output is deterministic: equal documents encode to equal bytes.
func Marshal(d *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode encodes d into w.
// Nothing is written if d fails validation.
func Encode(w io.Writer, d *Document) error {
	if err := d.Validate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return &SerializationError{Err: err}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Decode decodes r into a new Document.
func Decode(r io.Reader) (*Document, error) {
	var d Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("i3m: decode: %w", err)
	}
	return &d, nil
}
