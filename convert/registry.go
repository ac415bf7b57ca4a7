package convert

import (
	"github.com/netisu/i3m/adapters/gltf"
	"github.com/netisu/i3m/adapters/ntsm"
	"github.com/netisu/i3m/loader"
)

// DefaultRegistry returns a registry with every built-in loader.
func DefaultRegistry() *loader.Registry {
	r := loader.NewRegistry()
	gltf.Register(r)
	ntsm.Register(r)
	return r
}
