package catalog

import (
	"fmt"
	"strings"

	"github.com/kart-io/ido-converge/pkg/errors"
)

// Catalog is an ordered set of resources plus explicit ordering edges.
// Resources apply in a deterministic topological order: an edge A -> B means
// A applies strictly before B. Edges may reference resources added later;
// they are validated when the catalog is sorted.
type Catalog struct {
	resources []Resource
	byID      map[string]Resource
	edges     map[string][]string // before -> afters
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		byID:  make(map[string]Resource),
		edges: make(map[string][]string),
	}
}

// Add appends a resource. Adding two resources with the same ID is a
// programming error and panics, mirroring duplicate errno registration.
func (c *Catalog) Add(r Resource) Resource {
	id := r.ID()
	if _, ok := c.byID[id]; ok {
		panic(fmt.Sprintf("catalog: resource %s already added", id))
	}
	c.resources = append(c.resources, r)
	c.byID[id] = r
	return r
}

// Before records an ordering edge: before applies strictly before after.
func (c *Catalog) Before(before, after Resource) {
	c.edges[before.ID()] = append(c.edges[before.ID()], after.ID())
}

// Get returns the resource with the given ID.
func (c *Catalog) Get(id string) (Resource, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// Resources returns the resources in insertion order.
func (c *Catalog) Resources() []Resource {
	return c.resources
}

// Edges returns a copy of the ordering edges, before -> afters.
func (c *Catalog) Edges() map[string][]string {
	out := make(map[string][]string, len(c.edges))
	for k, v := range c.edges {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Sorted returns the resources in apply order. The order is deterministic:
// among resources whose predecessors are all placed, insertion order wins.
// A cycle or an edge naming an unknown resource is a configuration error,
// never a silent reorder.
func (c *Catalog) Sorted() ([]Resource, error) {
	indegree := make(map[string]int, len(c.resources))
	for _, r := range c.resources {
		indegree[r.ID()] = 0
	}
	for from, tos := range c.edges {
		if _, ok := c.byID[from]; !ok {
			return nil, errors.ErrConfiguration.WithMessagef("ordering edge from unknown resource %s", from)
		}
		for _, to := range tos {
			if _, ok := c.byID[to]; !ok {
				return nil, errors.ErrConfiguration.WithMessagef("ordering edge to unknown resource %s", to)
			}
			indegree[to]++
		}
	}

	var sorted []Resource
	placed := make(map[string]bool, len(c.resources))
	for len(sorted) < len(c.resources) {
		progressed := false
		for _, r := range c.resources {
			id := r.ID()
			if placed[id] || indegree[id] != 0 {
				continue
			}
			placed[id] = true
			sorted = append(sorted, r)
			for _, to := range c.edges[id] {
				indegree[to]--
			}
			progressed = true
		}
		if !progressed {
			var stuck []string
			for _, r := range c.resources {
				if !placed[r.ID()] {
					stuck = append(stuck, r.ID())
				}
			}
			return nil, errors.ErrOrderingCycle.WithMessagef("cycle among: %s", strings.Join(stuck, ", "))
		}
	}
	return sorted, nil
}
