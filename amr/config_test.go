package amr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/notargets/goamr/mesh"
)

func TestConfig_Validate(t *testing.T) {
	good := Config{MaxElemError: 1e-4, Hysteresis: 0.25, NCLimit: 3}
	require.NoError(t, good.Validate())
	require.InDelta(t, 2.5e-5, good.DerefineThreshold(), 1e-20)

	cases := map[string]Config{
		"zero max error":      {MaxElemError: 0, Hysteresis: 0.25},
		"negative max error":  {MaxElemError: -1, Hysteresis: 0.25},
		"zero hysteresis":     {MaxElemError: 1e-4, Hysteresis: 0},
		"hysteresis of one":   {MaxElemError: 1e-4, Hysteresis: 1},
		"negative depth bound": {MaxElemError: 1e-4, Hysteresis: 0.25, NCLimit: -1},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, cfg.Validate())
		})
	}
}

func TestFlagForRefinement_Threshold(t *testing.T) {
	m, err := mesh.NewCartesian2D(4, 4)
	require.NoError(t, err)
	cfg := Config{MaxElemError: 0.5, Hysteresis: 0.25, NCLimit: 3}

	errs := make([]float64, 16)
	for _, i := range []int{2, 5, 9, 12} {
		errs[i] = 1.0
	}
	flags, any, err := cfg.FlagForRefinement(m, errs)
	require.NoError(t, err)
	require.True(t, any)
	require.Equal(t, []mesh.ElemID{2, 5, 9, 12}, flags)

	// All zero: converged.
	flags, any, err = cfg.FlagForRefinement(m, make([]float64, 16))
	require.NoError(t, err)
	require.False(t, any)
	require.Empty(t, flags)

	// At the threshold exactly is not over it.
	errs = make([]float64, 16)
	errs[3] = 0.5
	flags, any, err = cfg.FlagForRefinement(m, errs)
	require.NoError(t, err)
	require.False(t, any)
	require.Empty(t, flags)
}

func TestFlagForRefinement_InputErrors(t *testing.T) {
	m, err := mesh.NewCartesian2D(2, 2)
	require.NoError(t, err)
	cfg := Config{MaxElemError: 1e-4, Hysteresis: 0.25}

	_, _, err = cfg.FlagForRefinement(m, []float64{1, 2})
	require.Error(t, err)

	_, _, err = cfg.FlagForRefinement(m, []float64{0, 0, -1e-9, 0})
	require.Error(t, err)
}

func TestFlagForDerefinement_Hysteresis(t *testing.T) {
	m, err := mesh.NewCartesian2D(4, 4)
	require.NoError(t, err)
	cfg := Config{MaxElemError: 1e-4, Hysteresis: 0.25, NCLimit: 3}

	_, err = m.Refine([]mesh.ElemID{0}, cfg.NCLimit)
	require.NoError(t, err)
	require.False(t, m.Conforming())

	leaves := m.Leaves()
	require.Len(t, leaves, 19)

	// Children of element 0 are the four highest handles. Combined error
	// 4e-5 sits above the 2.5e-5 threshold: keep the group.
	errs := make([]float64, 19)
	for i := 15; i < 19; i++ {
		errs[i] = 1e-5
	}
	cands, err := cfg.FlagForDerefinement(m, errs)
	require.NoError(t, err)
	require.Empty(t, cands)

	// Combined error 1e-5 is below it: merge.
	for i := 15; i < 19; i++ {
		errs[i] = 2.5e-6
	}
	cands, err = cfg.FlagForDerefinement(m, errs)
	require.NoError(t, err)
	require.Equal(t, []mesh.ElemID{0}, cands)
}

func TestFlagForDerefinement_ConformingNoop(t *testing.T) {
	m, err := mesh.NewCartesian2D(4, 4)
	require.NoError(t, err)
	cfg := Config{MaxElemError: 1e-4, Hysteresis: 0.25, NCLimit: 3}

	cands, err := cfg.FlagForDerefinement(m, make([]float64, 16))
	require.NoError(t, err)
	require.Empty(t, cands, "conforming meshes never derefine")
}

func TestFlagForDerefinement_IgnoresIncompleteGroups(t *testing.T) {
	m, err := mesh.NewCartesian2D(4, 4)
	require.NoError(t, err)
	cfg := Config{MaxElemError: 1e-4, Hysteresis: 0.25, NCLimit: 3}

	rep, err := m.Refine([]mesh.ElemID{0}, cfg.NCLimit)
	require.NoError(t, err)
	child := rep.Splits[0].Children[0]
	_, err = m.Refine([]mesh.ElemID{child}, cfg.NCLimit)
	require.NoError(t, err)

	// All indicators zero: everything merges that structurally can. The
	// group of element 0 is incomplete (one child refined); only the
	// grandchild group qualifies.
	errs := make([]float64, m.NumLeaves())
	cands, err := cfg.FlagForDerefinement(m, errs)
	require.NoError(t, err)
	require.Equal(t, []mesh.ElemID{child}, cands)
}
