package controller

import (
	"fmt"
	"slices"

	"github.com/malbeclabs/salesdash/dashboard/pkg/filter"
)

// Output is a value the dashboard recomputes when a dropdown changes.
type Output int

const (
	BrandOptions Output = iota
	ProductOptions
	StoreOptions
	CustomerOptions
	Charts
)

func (o Output) String() string {
	switch o {
	case BrandOptions:
		return "brands"
	case ProductOptions:
		return "products"
	case StoreOptions:
		return "stores"
	case CustomerOptions:
		return "customers"
	case Charts:
		return "charts"
	default:
		return "unknown"
	}
}

// Lists returns the dropdown an option output fills, or false for charts.
func (o Output) Lists() (filter.Stage, bool) {
	switch o {
	case BrandOptions:
		return filter.StageBrands, true
	case ProductOptions:
		return filter.StageProduct, true
	case StoreOptions:
		return filter.StageStores, true
	case CustomerOptions:
		return filter.StageCustomer, true
	default:
		return 0, false
	}
}

// Graph maps each output to the dropdowns it reads. Edges only run from
// dropdown state to outputs, so the graph is acyclic.
type Graph struct {
	deps map[Output][]filter.Stage
}

// NewGraph returns the dashboard graph: each option list reads every dropdown
// before its own, and the charts read all five.
func NewGraph() *Graph {
	g := &Graph{deps: make(map[Output][]filter.Stage)}
	for _, out := range []Output{BrandOptions, ProductOptions, StoreOptions, CustomerOptions} {
		stage, _ := out.Lists()
		g.deps[out] = filter.Stages()[:stage]
	}
	g.deps[Charts] = filter.Stages()
	return g
}

// Validate checks that no option list reads its own dropdown or one after it.
func (g *Graph) Validate() error {
	for out, ins := range g.deps {
		stage, ok := out.Lists()
		if !ok {
			continue
		}
		for _, in := range ins {
			if in >= stage {
				return fmt.Errorf("controller: %s depends on %s, which is not upstream", out, in)
			}
		}
	}
	return nil
}

// Inputs returns the dropdowns an output reads.
func (g *Graph) Inputs(out Output) []filter.Stage {
	return slices.Clone(g.deps[out])
}

// Outputs returns every output in evaluation order.
func (g *Graph) Outputs() []Output {
	out := make([]Output, 0, len(g.deps))
	for o := range g.deps {
		out = append(out, o)
	}
	slices.Sort(out)
	return out
}

// Downstream returns the outputs to recompute when dropdown in changes, in
// evaluation order.
func (g *Graph) Downstream(in filter.Stage) []Output {
	var out []Output
	for _, o := range g.Outputs() {
		if slices.Contains(g.deps[o], in) {
			out = append(out, o)
		}
	}
	return out
}
