// Package catalog holds the reference set of ion species. The catalog is
// read-mostly: it is populated up front, shared by predictions and solves,
// and versioned so fitted models can detect staleness.
package catalog

import (
	"fmt"

	"github.com/san-kum/ionlab/internal/exchange"
)

type Catalog struct {
	ions    []exchange.Ion
	index   map[string]int
	version int
}

func New() *Catalog {
	return &Catalog{index: make(map[string]int)}
}

// Add validates the ion and appends it. Existing entries are never
// overwritten; a second add of the same id fails with ErrDuplicateIon.
func (c *Catalog) Add(ion exchange.Ion) error {
	if err := ion.Validate(); err != nil {
		return err
	}
	if _, ok := c.index[ion.ID]; ok {
		return fmt.Errorf("%w: %s", exchange.ErrDuplicateIon, ion.ID)
	}
	c.index[ion.ID] = len(c.ions)
	c.ions = append(c.ions, ion)
	c.version++
	return nil
}

func (c *Catalog) Lookup(id string) (exchange.Ion, error) {
	i, ok := c.index[id]
	if !ok {
		return exchange.Ion{}, fmt.Errorf("%w: %s", exchange.ErrNotFound, id)
	}
	return c.ions[i], nil
}

// All returns the ions in insertion order. The slice is a copy; callers may
// not reach the catalog's backing storage through it.
func (c *Catalog) All() []exchange.Ion {
	out := make([]exchange.Ion, len(c.ions))
	copy(out, c.ions)
	return out
}

func (c *Catalog) Len() int { return len(c.ions) }

// Copy returns an independent snapshot at the same version. Mutating
// either catalog afterwards leaves the other untouched.
func (c *Catalog) Copy() *Catalog {
	out := &Catalog{
		ions:    append([]exchange.Ion(nil), c.ions...),
		index:   make(map[string]int, len(c.index)),
		version: c.version,
	}
	for id, i := range c.index {
		out.index[id] = i
	}
	return out
}

// Version increments on every successful Add. A prediction model fitted at
// version N is stale once Version() != N.
func (c *Catalog) Version() int { return c.version }

// Measured returns the entries usable as regression training data:
// measured source with a known affinity.
func (c *Catalog) Measured() []exchange.Ion {
	out := make([]exchange.Ion, 0, len(c.ions))
	for _, ion := range c.ions {
		if ion.Source == exchange.Measured && ion.HasAffinity {
			out = append(out, ion)
		}
	}
	return out
}
