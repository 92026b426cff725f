package catalog

import (
	"fmt"
	"sort"

	"github.com/bytedance/sonic"
)

// planEntry is the JSON shape of one resource in a rendered plan.
type planEntry struct {
	ID      string   `json:"id"`
	Kind    string   `json:"kind"`
	Summary string   `json:"summary"`
	Content string   `json:"content,omitempty"`
	Argv    []string `json:"argv,omitempty"`
	After   []string `json:"after,omitempty"`
}

// PlanJSON renders the catalog in apply order as JSON. The output is
// deterministic for identical catalogs. Sensitive file content and command
// environments are redacted.
func (c *Catalog) PlanJSON() ([]byte, error) {
	sorted, err := c.Sorted()
	if err != nil {
		return nil, err
	}

	// Invert edges so each entry lists what it must come after.
	after := make(map[string][]string)
	for from, tos := range c.edges {
		for _, to := range tos {
			after[to] = append(after[to], from)
		}
	}

	entries := make([]planEntry, 0, len(sorted))
	for _, r := range sorted {
		e := planEntry{
			ID:      r.ID(),
			Kind:    r.Kind(),
			Summary: Summary(r),
			After:   sortedCopy(after[r.ID()]),
		}
		switch res := r.(type) {
		case *File:
			if res.Sensitive {
				e.Content = "(sensitive)"
			} else {
				e.Content = res.Content
			}
		case *Exec:
			e.Argv = res.Argv
		}
		entries = append(entries, e)
	}

	out, err := sonic.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plan: %w", err)
	}
	return out, nil
}

// PlanText renders the catalog in apply order as one line per resource.
func (c *Catalog) PlanText() (string, error) {
	sorted, err := c.Sorted()
	if err != nil {
		return "", err
	}
	var out string
	for i, r := range sorted {
		out += fmt.Sprintf("%2d. %s\n", i+1, Summary(r))
	}
	return out, nil
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
