// Package gltf loads glTF 2.0 scenes (.gltf, .glb) as scene graphs.
package gltf

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/netisu/i3m/loader"
	"github.com/netisu/i3m/scene"
)

// MIME type of binary glTF.
const MIME = "model/gltf-binary"

var identity = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// Graph is the node graph of a glTF document.
// Node indices are glTF node indices; parents are derived from the
// children lists, and the declared order follows the scenes.
type Graph struct {
	views     []scene.NodeView
	order     []int
	resources []string
}

func (g *Graph) NodeCount() int { return len(g.views) }

func (g *Graph) Node(i int) scene.NodeView { return g.views[i] }

func (g *Graph) Order() []int { return g.order }

func (g *Graph) Resources() []string { return g.resources }

// NewGraph returns the graph of doc.
func NewGraph(doc *gltf.Document) (*Graph, error) {
	n := len(doc.Nodes)
	g := &Graph{views: make([]scene.NodeView, n)}
	for i, nd := range doc.Nodes {
		g.views[i] = scene.NodeView{Index: i, Name: nd.Name, Local: local(nd), Parent: scene.NoParent}
		if nd.Mesh != nil {
			m := *nd.Mesh
			if m < 0 || m >= len(doc.Meshes) {
				return nil, loader.Invalid("node %d: mesh index %d out of range", i, m)
			}
			g.views[i].Assets = []string{named("mesh", m, doc.Meshes[m].Name)}
		}
	}
	for i, nd := range doc.Nodes {
		for _, c := range nd.Children {
			switch {
			case c < 0 || c >= n:
				return nil, loader.Invalid("node %d: child index %d out of range", i, c)
			case c == i:
				return nil, loader.Invalid("node %d is its own child", i)
			case g.views[c].Parent != scene.NoParent:
				return nil, loader.Invalid("node %d has parents %d and %d", c, g.views[c].Parent, i)
			}
			g.views[c].Parent = i
		}
	}
	g.order = declaredOrder(doc, g.views)
	g.resources = append(externalURIs(doc), documentAssets(doc)...)
	return g, nil
}

func local(nd *gltf.Node) scene.Transform {
	if m := nd.MatrixOrDefault(); m != identity {
		var m32 mgl32.Mat4
		for i, v := range m {
			m32[i] = float32(v)
		}
		return scene.FromMatrix(m32)
	}
	return scene.FromTRS(nd.TranslationOrDefault(), nd.RotationOrDefault(), nd.ScaleOrDefault())
}

// declaredOrder lists the roots (default scene first, then the other
// scenes, then unreferenced roots by index) breadth first with their
// children in declared order. Nodes unreachable from any root, which
// only happens for cyclic children lists, come last.
func declaredOrder(doc *gltf.Document, views []scene.NodeView) []int {
	var roots []int
	seen := make([]bool, len(views))
	addRoot := func(i int) {
		if i >= 0 && i < len(views) && !seen[i] && views[i].IsRoot() {
			seen[i] = true
			roots = append(roots, i)
		}
	}
	scenes := make([]int, 0, len(doc.Scenes))
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		scenes = append(scenes, *doc.Scene)
	}
	for i := range doc.Scenes {
		if doc.Scene == nil || i != *doc.Scene {
			scenes = append(scenes, i)
		}
	}
	for _, s := range scenes {
		for _, i := range doc.Scenes[s].Nodes {
			addRoot(i)
		}
	}
	for i := range views {
		addRoot(i)
	}

	order := make([]int, 0, len(views))
	queue := roots
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, i)
		for _, c := range doc.Nodes[i].Children {
			if !seen[c] {
				seen[c] = true
				queue = append(queue, c)
			}
		}
	}
	for i := range views {
		if !seen[i] {
			order = append(order, i)
		}
	}
	return order
}

func external(uri string) bool {
	return uri != "" && !strings.HasPrefix(uri, "data:")
}

// externalURIs returns the resources doc references outside itself.
func externalURIs(doc *gltf.Document) []string {
	var uris []string
	for _, b := range doc.Buffers {
		if external(b.URI) {
			uris = append(uris, b.URI)
		}
	}
	for _, im := range doc.Images {
		if external(im.URI) {
			uris = append(uris, im.URI)
		}
	}
	slices.Sort(uris)
	return slices.Compact(uris)
}

// named identifies the i-th entry of a document array by its name, or
// by kind/index when it has none.
func named(kind string, i int, name string) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("%s/%d", kind, i)
}

// documentAssets returns the materials and animation clips of doc.
func documentAssets(doc *gltf.Document) []string {
	var ids []string
	for i, m := range doc.Materials {
		ids = append(ids, named("material", i, m.Name))
	}
	for i, a := range doc.Animations {
		ids = append(ids, named("animation", i, a.Name))
	}
	return ids
}

// IsGLB returns whether header starts a binary glTF (version 2) blob.
func IsGLB(header []byte) bool {
	return len(header) >= 12 &&
		string(header[:4]) == "glTF" &&
		binary.LittleEndian.Uint32(header[4:8]) == 2
}

// Decode reads a glTF or GLB document from r.
// External buffers cannot be resolved from a stream.
func Decode(r io.Reader) (*Graph, error) {
	var doc gltf.Document
	if err := gltf.NewDecoder(r).Decode(&doc); err != nil {
		return nil, loader.Invalid("%w", err)
	}
	return NewGraph(&doc)
}

// Load loads the glTF file at path, resolving external buffers
// relative to it.
func Load(ctx context.Context, env *loader.Env, path string) (scene.Graph, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, loader.Invalid("%w", err)
	}
	g, err := NewGraph(doc)
	if err != nil {
		return nil, err
	}
	env.Log().Debug("gltf loaded", "path", path, "nodes", len(doc.Nodes), "resources", len(g.resources))
	return g, nil
}

// Register registers the glTF loaders in r.
func Register(r *loader.Registry) {
	l := loader.LoaderFunc(Load)
	r.Register(".gltf", l)
	r.Register(".glb", l)
	r.Sniff(".glb", MIME, IsGLB)
}
