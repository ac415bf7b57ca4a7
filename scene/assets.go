package scene

import "slices"

// CollectAssets returns the identifiers of every resource referenced
// by views or, when g is a ResourceLister, by g itself.
// The result is sorted and free of duplicates, so it does not depend on
// the order in which references were discovered. It is never nil.
func CollectAssets(g Graph, views []NodeView) []string {
	assets := []string{}
	add := func(ids []string) {
		for _, id := range ids {
			if id != "" {
				assets = append(assets, id)
			}
		}
	}
	for k := range views {
		add(views[k].Assets)
	}
	if rl, ok := g.(ResourceLister); ok {
		add(rl.Resources())
	}
	slices.Sort(assets)
	return slices.Compact(assets)
}
