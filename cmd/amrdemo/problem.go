package main

import (
	"math"

	"github.com/notargets/goamr/mesh"
	"github.com/notargets/goamr/transfer"
)

// frontProblem is a prescribed-solution benchmark: a spherical Gaussian
// front of radius t expanding from the domain center. "Solving" projects
// the exact solution at the current time onto the mesh, so the estimator
// measures pure resolution error.
type frontProblem struct {
	dim    int
	center [3]float64
	width  float64
	t      float64
	dt     float64
}

func newFrontProblem(dim int) *frontProblem {
	p := &frontProblem{
		dim:    dim,
		center: [3]float64{0.5, 0.5, 0},
		width:  0.05,
		t:      0.1,
		dt:     0.07,
	}
	if dim == 3 {
		p.center[2] = 0.5
	}
	return p
}

func (p *frontProblem) advance() { p.t += p.dt }

func (p *frontProblem) exact(x [3]float64) float64 {
	var r2 float64
	for d := 0; d < 3; d++ {
		dx := x[d] - p.center[d]
		r2 += dx * dx
	}
	s := (math.Sqrt(r2) - p.t) / p.width
	return math.Exp(-0.5 * s * s)
}

func (p *frontProblem) solve(m *mesh.Mesh, u *transfer.NodalField) error {
	for _, e := range m.Leaves() {
		el := m.Elem(e)
		vals := make([]float64, len(el.Verts))
		for i, vid := range el.Verts {
			vals[i] = p.exact(m.Coord(vid))
		}
		u.Set(e, vals)
	}
	return nil
}

// estimate measures how far the solution deviates from linearity on each
// element: the exact value at the centroid against the corner average,
// weighted by element volume. Smooth regions vanish; the front shows up
// wherever an element is too coarse to bend with it.
func (p *frontProblem) estimate(m *mesh.Mesh, u *transfer.NodalField) ([]float64, error) {
	gc := mesh.NewGeomCache(m)
	leaves := m.Leaves()
	errs := make([]float64, len(leaves))
	for i, e := range leaves {
		c := gc.Centroid(e)
		dev := p.exact(c) - u.ElemAvg(e)
		errs[i] = math.Abs(dev) * gc.Volume(e)
	}
	return errs, nil
}
