// Package controller recomputes dashboard outputs when a dropdown changes.
// Only the outputs downstream of the changed dropdown are evaluated.
package controller

import (
	"fmt"
	"iter"

	"github.com/malbeclabs/salesdash/dashboard/pkg/chart"
	"github.com/malbeclabs/salesdash/dashboard/pkg/filter"
	"github.com/malbeclabs/salesdash/ingest/pkg/sales"
)

// Rows is a read-only view of the merged sales.
type Rows interface {
	All() iter.Seq[sales.Row]
}

// Update carries the recomputed outputs. Fields that were not recomputed are
// nil and omitted from JSON.
type Update struct {
	Types     []string   `json:"types,omitzero"`
	Brands    []string   `json:"brands,omitzero"`
	Products  []string   `json:"products,omitzero"`
	Stores    []string   `json:"stores,omitzero"`
	Customers []string   `json:"customers,omitzero"`
	Matched   *int       `json:"matched,omitempty"`
	Charts    *chart.Set `json:"charts,omitempty"`
}

func (u *Update) set(out Output, opts []string) {
	switch out {
	case BrandOptions:
		u.Brands = opts
	case ProductOptions:
		u.Products = opts
	case StoreOptions:
		u.Stores = opts
	case CustomerOptions:
		u.Customers = opts
	}
}

// Outputs lists which outputs the update carries, in evaluation order.
func (u *Update) Outputs() []Output {
	var out []Output
	for _, o := range []struct {
		out Output
		set bool
	}{
		{BrandOptions, u.Brands != nil},
		{ProductOptions, u.Products != nil},
		{StoreOptions, u.Stores != nil},
		{CustomerOptions, u.Customers != nil},
		{Charts, u.Charts != nil},
	} {
		if o.set {
			out = append(out, o.out)
		}
	}
	return out
}

// Controller evaluates the dashboard graph against an immutable row set. It
// holds no per-request state and is safe for concurrent use.
type Controller struct {
	rows  Rows
	graph *Graph
	types []string
}

func New(rows Rows, graph *Graph) (*Controller, error) {
	if rows == nil {
		return nil, fmt.Errorf("controller: rows are required")
	}
	if graph == nil {
		graph = NewGraph()
	}
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	return &Controller{rows: rows, graph: graph, types: filter.ProductTypes(rows.All())}, nil
}

func (c *Controller) Graph() *Graph { return c.graph }

// Types returns the product type options. They never depend on a selection.
func (c *Controller) Types() []string { return c.types }

// Apply recomputes the outputs downstream of changed for state.
func (c *Controller) Apply(state filter.Criteria, changed filter.Stage) Update {
	return c.evaluate(state, c.graph.Downstream(changed))
}

// Full computes every output for state, including the type options.
func (c *Controller) Full(state filter.Criteria) Update {
	u := c.evaluate(state, c.graph.Outputs())
	u.Types = c.types
	return u
}

// Initial is the page state before any selection.
func (c *Controller) Initial() Update {
	return c.Full(filter.Criteria{})
}

// Options computes the five option lists for state.
func (c *Controller) Options(state filter.Criteria) Update {
	u := c.evaluate(state, []Output{BrandOptions, ProductOptions, StoreOptions, CustomerOptions})
	u.Types = c.types
	return u
}

// Charts filters by every selection and renders the six charts.
func (c *Controller) Charts(state filter.Criteria) (chart.Set, int) {
	rows := filter.Apply(c.rows.All(), state)
	return chart.Render(rows), len(rows)
}

// Chart renders a single chart for state.
func (c *Controller) Chart(state filter.Criteria, id chart.ID) chart.Figure {
	return chart.Build(id, filter.Apply(c.rows.All(), state))
}

func (c *Controller) evaluate(state filter.Criteria, outs []Output) Update {
	var u Update
	for _, out := range outs {
		if stage, ok := out.Lists(); ok {
			u.set(out, filter.Options(c.rows.All(), state, stage))
			continue
		}
		set, n := c.Charts(state)
		u.Charts, u.Matched = &set, &n
	}
	return u
}
