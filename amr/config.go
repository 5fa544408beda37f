// Package amr drives adaptive mesh refinement: error-driven refine and
// derefine decisions with hysteresis, and the outer iteration that
// alternates solving, estimating, mesh mutation and rebalancing.
package amr

import (
	"fmt"
	"sort"

	"github.com/notargets/goamr/mesh"
)

func sortElems(ids []mesh.ElemID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// Config holds the AMR thresholds.
type Config struct {
	// MaxElemError flags an element for refinement when exceeded.
	MaxElemError float64

	// Hysteresis scales MaxElemError down to the derefinement
	// threshold. Must be strictly below 1 or refine/derefine cycles
	// oscillate on errors near the threshold.
	Hysteresis float64

	// NCLimit bounds the hanging-node constraint depth across any
	// interface; 0 means unlimited.
	NCLimit int
}

// Validate reports configuration errors; these are fatal to the AMR loop.
func (c Config) Validate() error {
	if !(c.MaxElemError > 0) {
		return fmt.Errorf("max element error must be positive, got %g", c.MaxElemError)
	}
	if !(c.Hysteresis > 0 && c.Hysteresis < 1) {
		return fmt.Errorf("hysteresis must be in (0,1), got %g", c.Hysteresis)
	}
	if c.NCLimit < 0 {
		return fmt.Errorf("hanging-node limit must be non-negative, got %d", c.NCLimit)
	}
	return nil
}

// DerefineThreshold returns the combined-error bound below which a
// sibling group is merged.
func (c Config) DerefineThreshold() float64 {
	return c.Hysteresis * c.MaxElemError
}

// FlagForRefinement flags every leaf whose error exceeds MaxElemError.
// errs is ordered like m.Leaves(). A false second return means no element
// was flagged: the refinement loop has converged.
func (c Config) FlagForRefinement(m *mesh.Mesh, errs []float64) ([]mesh.ElemID, bool, error) {
	leaves := m.Leaves()
	if len(errs) != len(leaves) {
		return nil, false, fmt.Errorf("got %d error values for %d leaves", len(errs), len(leaves))
	}
	var flags []mesh.ElemID
	for i, e := range leaves {
		if errs[i] < 0 {
			return nil, false, fmt.Errorf("negative error %g on element %d", errs[i], e)
		}
		if errs[i] > c.MaxElemError {
			flags = append(flags, e)
		}
	}
	return flags, len(flags) > 0, nil
}

// FlagForDerefinement returns the parents of sibling groups whose
// combined error is below the derefinement threshold, filtered so no
// merge can violate the hanging-node limit. Conforming meshes never
// derefine: with no constraint bookkeeping to unwind there is nothing to
// merge back safely, so the result is always empty.
func (c Config) FlagForDerefinement(m *mesh.Mesh, errs []float64) ([]mesh.ElemID, error) {
	if m.Conforming() {
		return nil, nil
	}
	leaves := m.Leaves()
	if len(errs) != len(leaves) {
		return nil, fmt.Errorf("got %d error values for %d leaves", len(errs), len(leaves))
	}

	type group struct {
		sum   float64
		count int
	}
	groups := make(map[mesh.ElemID]*group)
	for i, e := range leaves {
		p := m.Elem(e).Parent
		if p == mesh.NoElem {
			continue
		}
		g := groups[p]
		if g == nil {
			g = &group{}
			groups[p] = g
		}
		g.sum += errs[i]
		g.count++
	}

	threshold := c.DerefineThreshold()
	var candidates []mesh.ElemID
	for p, g := range groups {
		// Only maximal groups: every child of the parent is a leaf.
		if g.count != len(m.Elem(p).Children) {
			continue
		}
		if g.sum < threshold {
			candidates = append(candidates, p)
		}
	}
	sortElems(candidates)

	return m.DerefineSafe(candidates, c.NCLimit), nil
}
