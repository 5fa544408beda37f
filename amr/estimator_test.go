package amr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/notargets/goamr/mesh"
	"github.com/notargets/goamr/transfer"
)

func TestGradientJumpEstimator_ConstantFieldIsExact(t *testing.T) {
	m, err := mesh.NewCartesian2D(3, 3)
	require.NoError(t, err)
	u := transfer.NewNodalField(m, func([3]float64) float64 { return 4.2 })

	errs, err := GradientJumpEstimator{}.Estimate(m, u)
	require.NoError(t, err)
	require.Len(t, errs, 9)
	for i, e := range errs {
		require.Zero(t, e, "element %d", i)
	}
}

func TestGradientJumpEstimator_DetectsJump(t *testing.T) {
	m, err := mesh.NewCartesian2D(2, 1)
	require.NoError(t, err)
	u := transfer.ZeroNodalField(m)
	u.Set(0, []float64{0, 0, 0, 0})
	u.Set(1, []float64{1, 1, 1, 1})

	errs, err := GradientJumpEstimator{}.Estimate(m, u)
	require.NoError(t, err)
	require.Len(t, errs, 2)

	// One shared face, jump 1, mean measure 0.5 on two half-square
	// elements.
	want := math.Sqrt(0.5)
	require.InDelta(t, want, errs[0], 1e-14)
	require.InDelta(t, want, errs[1], 1e-14)
}
