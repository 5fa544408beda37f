// Package transfer moves solution fields between mesh states: exact
// prolongation onto refined elements, restriction onto re-merged parents,
// and pure data movement between ranks after rebalancing.
//
// Whether a field transfers by interpolation or by conservation is a
// static property of the field type, not a runtime flag: NodalField is
// nodal-interpolatory, ElementField is a conserved per-volume density.
package transfer

import (
	"fmt"

	"github.com/notargets/goamr/mesh"
)

// NodalField stores one value per element corner, addressed per element.
// Corner values of neighboring elements agree at shared vertices when the
// field is conforming; ApplyConstraints restores that after transfer.
type NodalField struct {
	m    *mesh.Mesh
	vals map[mesh.ElemID][]float64
}

// NewNodalField evaluates f at every leaf corner.
func NewNodalField(m *mesh.Mesh, f func([3]float64) float64) *NodalField {
	nf := ZeroNodalField(m)
	for _, e := range m.Leaves() {
		verts := m.Elem(e).Verts
		vals := make([]float64, len(verts))
		for i, v := range verts {
			vals[i] = f(m.Coord(v))
		}
		nf.vals[e] = vals
	}
	return nf
}

// ZeroNodalField creates an empty field bound to a mesh.
func ZeroNodalField(m *mesh.Mesh) *NodalField {
	return &NodalField{m: m, vals: make(map[mesh.ElemID][]float64)}
}

// Mesh returns the mesh the field is defined on.
func (f *NodalField) Mesh() *mesh.Mesh { return f.m }

// Values returns the corner values of an element, nil if absent. The
// slice is owned by the field.
func (f *NodalField) Values(e mesh.ElemID) []float64 { return f.vals[e] }

// Set replaces the corner values of an element.
func (f *NodalField) Set(e mesh.ElemID, vals []float64) {
	f.vals[e] = vals
}

// Len returns the number of elements carrying values.
func (f *NodalField) Len() int { return len(f.vals) }

// ElemAvg returns the corner average on an element.
func (f *NodalField) ElemAvg(e mesh.ElemID) float64 {
	vals := f.vals[e]
	if len(vals) == 0 {
		return 0
	}
	s := 0.0
	for _, v := range vals {
		s += v
	}
	return s / float64(len(vals))
}

// Clone deep-copies the field.
func (f *NodalField) Clone() *NodalField {
	c := ZeroNodalField(f.m)
	for e, vals := range f.vals {
		c.vals[e] = append([]float64(nil), vals...)
	}
	return c
}

// ApplyConstraints overwrites every hanging corner with the weighted
// combination of its free masters, making the field conforming again.
func (f *NodalField) ApplyConstraints() error {
	ct := f.m.Constraints()
	if ct.Len() == 0 {
		return nil
	}

	// Free vertex values, collected from any leaf carrying them.
	free := make(map[mesh.VertID]float64)
	for _, e := range f.m.Leaves() {
		vals := f.vals[e]
		if vals == nil {
			continue
		}
		for i, v := range f.m.Elem(e).Verts {
			if _, dependent := ct.Lookup(v); !dependent {
				free[v] = vals[i]
			}
		}
	}

	for _, e := range f.m.Leaves() {
		vals := f.vals[e]
		if vals == nil {
			continue
		}
		for i, v := range f.m.Elem(e).Verts {
			c, ok := ct.Lookup(v)
			if !ok {
				continue
			}
			s := 0.0
			for j, mv := range c.Masters {
				fv, ok := free[mv]
				if !ok {
					return fmt.Errorf("constraint master vertex %d has no value", mv)
				}
				s += c.Weights[j] * fv
			}
			vals[i] = s
		}
	}
	return nil
}

// ElementField stores one conserved per-volume density per element.
// Prolongation copies the density to children; restriction is the
// volume-weighted average, so the integral over the mesh is preserved.
type ElementField struct {
	m    *mesh.Mesh
	geom *mesh.GeomCache
	vals map[mesh.ElemID]float64
}

// NewElementField creates a field with the given per-leaf densities in
// leaf order; vals may be nil for an all-zero field.
func NewElementField(m *mesh.Mesh, vals []float64) (*ElementField, error) {
	leaves := m.Leaves()
	if vals != nil && len(vals) != len(leaves) {
		return nil, fmt.Errorf("got %d values for %d leaves", len(vals), len(leaves))
	}
	ef := &ElementField{
		m:    m,
		geom: mesh.NewGeomCache(m),
		vals: make(map[mesh.ElemID]float64, len(leaves)),
	}
	for i, e := range leaves {
		if vals != nil {
			ef.vals[e] = vals[i]
		} else {
			ef.vals[e] = 0
		}
	}
	return ef, nil
}

// Value returns the density on an element.
func (f *ElementField) Value(e mesh.ElemID) float64 { return f.vals[e] }

// Set replaces the density on an element.
func (f *ElementField) Set(e mesh.ElemID, v float64) { f.vals[e] = v }

// Integral returns the field integrated over all leaves carrying values.
func (f *ElementField) Integral() float64 {
	s := 0.0
	for e, v := range f.vals {
		s += v * f.geom.Volume(e)
	}
	return s
}
