// Package ntsm loads NTSM containers as scene graphs.
package ntsm

import (
	"bytes"
	"context"
	"errors"
	"os"

	"github.com/netisu/aeno"
	"golang.org/x/sync/errgroup"

	gltfAdapter "github.com/netisu/i3m/adapters/gltf"
	"github.com/netisu/i3m/loader"
	"github.com/netisu/i3m/ntsm"
	"github.com/netisu/i3m/scene"
)

// MIME type registered for content sniffing.
const MIME = "application/x-ntsm"

// Graph is the node graph of the GLB embedded in a container.
type Graph struct {
	*gltfAdapter.Graph
	Header   ntsm.Header
	Emitters []ntsm.ParticleEmitter
}

// IsNTSM returns whether header starts an NTSM container.
func IsNTSM(header []byte) bool {
	return bytes.HasPrefix(header, []byte(ntsm.Magic))
}

// Load decodes the container at path.
// The embedded GLB is decoded into a graph and, with env.ValidateMesh,
// concurrently decoded as a mesh; both must succeed.
func Load(ctx context.Context, env *loader.Env, path string) (scene.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := ntsm.Decode(f)
	if err != nil {
		if errors.Is(err, ntsm.ErrInvalid) {
			return nil, loader.Invalid("%w", err)
		}
		return nil, err
	}

	var g *gltfAdapter.Graph
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		g, err = gltfAdapter.Decode(bytes.NewReader(c.GLB))
		return err
	})
	if env != nil && env.ValidateMesh {
		eg.Go(func() error {
			return validateMesh(ctx, env, path, c.GLB)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	env.Log().Debug("ntsm loaded", "path", path, "item", c.Header.ItemName(),
		"nodes", g.NodeCount(), "emitters", len(c.Emitters))
	return &Graph{Graph: g, Header: c.Header, Emitters: c.Emitters}, nil
}

func validateMesh(ctx context.Context, env *loader.Env, path string, glb []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mesh, err := aeno.LoadGLTFFromReader(bytes.NewReader(glb))
	if err != nil {
		return loader.Invalid("mesh: %w", err)
	}
	box := mesh.BoundingBox()
	env.Log().Debug("mesh validated", "path", path,
		"triangles", len(mesh.Triangles), "min", box.Min, "max", box.Max)
	return nil
}

// Register registers the NTSM loader in r.
func Register(r *loader.Registry) {
	r.Register(".ntsm", loader.LoaderFunc(Load))
	r.Sniff(".ntsm", MIME, IsNTSM)
}
