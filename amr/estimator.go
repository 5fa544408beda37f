package amr

import (
	"math"

	"github.com/notargets/goamr/mesh"
	"github.com/notargets/goamr/transfer"
)

// Estimator produces one non-negative error indicator per leaf element,
// ordered like m.Leaves().
type Estimator interface {
	Estimate(m *mesh.Mesh, u *transfer.NodalField) ([]float64, error)
}

// EstimatorFunc adapts a function to the Estimator interface.
type EstimatorFunc func(m *mesh.Mesh, u *transfer.NodalField) ([]float64, error)

func (f EstimatorFunc) Estimate(m *mesh.Mesh, u *transfer.NodalField) ([]float64, error) {
	return f(m, u)
}

// GradientJumpEstimator indicates error from the jump of the element-mean
// solution across conforming faces, weighted by the shared face scale.
// Nonconforming interfaces contribute nothing; their fine side is already
// resolved relative to the coarse side.
type GradientJumpEstimator struct{}

func (GradientJumpEstimator) Estimate(m *mesh.Mesh, u *transfer.NodalField) ([]float64, error) {
	leaves := m.Leaves()
	index := make(map[mesh.ElemID]int, len(leaves))
	for i, e := range leaves {
		index[e] = i
	}

	gc := mesh.NewGeomCache(m)
	acc := make([]float64, len(leaves))
	for _, pair := range m.FaceNeighbors() {
		a, b := pair[0], pair[1]
		jump := u.ElemAvg(a) - u.ElemAvg(b)
		h := 0.5 * (gc.Volume(a) + gc.Volume(b))
		contrib := jump * jump * h
		acc[index[a]] += contrib
		acc[index[b]] += contrib
	}

	errs := make([]float64, len(leaves))
	for i, s := range acc {
		errs[i] = math.Sqrt(s)
	}
	return errs, nil
}
