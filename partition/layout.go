// Package partition assigns mesh elements to logical ranks, rebalances
// ownership after topology mutation, and rebuilds the ghost layers the
// ranks read across their boundaries.
package partition

import (
	"errors"
	"fmt"
	"sort"

	"github.com/notargets/goamr/mesh"
)

// ErrDegeneratePartition reports a partition that leaves some rank with
// zero owned elements. This is a fatal configuration error; it is not
// retried automatically.
var ErrDegeneratePartition = errors.New("degenerate partition: a rank owns zero elements")

// Strategy defines how leaf elements are grouped into parts.
type Strategy int

const (
	// Block assigns consecutive leaves (ascending handle order).
	Block Strategy = iota
	// RoundRobin distributes leaves cyclically.
	RoundRobin
	// SpaceFillingCurve orders leaves by the Morton code of their
	// centroid and block-splits the curve. Default for rebalancing.
	SpaceFillingCurve
	// GraphGrowth grows contiguous regions over the element dual graph.
	GraphGrowth
)

func (s Strategy) String() string {
	switch s {
	case Block:
		return "block"
	case RoundRobin:
		return "round-robin"
	case SpaceFillingCurve:
		return "sfc"
	case GraphGrowth:
		return "graph-growth"
	}
	return "unknown"
}

// Layout is a complete assignment of the mesh's current leaves to ranks.
// Invariant: every leaf appears exactly once across Parts.
type Layout struct {
	NumParts int
	Total    int

	// EToP maps each leaf to its owning rank.
	EToP map[mesh.ElemID]int

	// Parts lists each rank's owned leaves in ascending handle order.
	Parts [][]mesh.ElemID

	// Version of the mesh this layout was built against.
	MeshVersion uint64
}

// Stats summarizes load balance, in the same terms the element counts of
// the parts: Imbalance is MaxElements over the average.
type Stats struct {
	NumParts    int
	MinElements int
	MaxElements int
	AvgElements float64
	Imbalance   float64
}

// PartOf returns the owning rank of a leaf, or -1 if unknown.
func (l *Layout) PartOf(e mesh.ElemID) int {
	p, ok := l.EToP[e]
	if !ok {
		return -1
	}
	return p
}

// Counts returns the number of owned elements per rank.
func (l *Layout) Counts() []int {
	counts := make([]int, l.NumParts)
	for p, elems := range l.Parts {
		counts[p] = len(elems)
	}
	return counts
}

// Statistics computes load balance metrics.
func (l *Layout) Statistics() Stats {
	s := Stats{
		NumParts:    l.NumParts,
		MinElements: int(^uint(0) >> 1),
		AvgElements: float64(l.Total) / float64(l.NumParts),
	}
	for _, elems := range l.Parts {
		if len(elems) < s.MinElements {
			s.MinElements = len(elems)
		}
		if len(elems) > s.MaxElements {
			s.MaxElements = len(elems)
		}
	}
	if s.AvgElements > 0 {
		s.Imbalance = float64(s.MaxElements) / s.AvgElements
	}
	return s
}

// Validate checks layout consistency against the mesh: every current leaf
// assigned exactly once, no rank empty.
func (l *Layout) Validate(m *mesh.Mesh) error {
	leaves := m.Leaves()
	if l.Total != len(leaves) {
		return fmt.Errorf("layout covers %d elements, mesh has %d leaves", l.Total, len(leaves))
	}
	assigned := 0
	for p, elems := range l.Parts {
		if len(elems) == 0 {
			return fmt.Errorf("%w (rank %d)", ErrDegeneratePartition, p)
		}
		for _, e := range elems {
			if !m.Elem(e).IsLeaf() {
				return fmt.Errorf("rank %d owns non-leaf element %d", p, e)
			}
			if l.EToP[e] != p {
				return fmt.Errorf("element %d listed in part %d but mapped to %d", e, p, l.EToP[e])
			}
			assigned++
		}
	}
	if assigned != len(leaves) {
		return fmt.Errorf("assigned %d elements, mesh has %d leaves", assigned, len(leaves))
	}
	return nil
}

// NewLayout partitions the mesh's current leaves into nparts using the
// given strategy. Counts stay within one element of each other for
// equal-weight elements. Requesting more parts than leaves is degenerate.
func NewLayout(m *mesh.Mesh, nparts int, strategy Strategy) (*Layout, error) {
	if nparts < 1 {
		return nil, fmt.Errorf("invalid part count %d", nparts)
	}
	leaves := m.Leaves()
	if nparts > len(leaves) {
		return nil, fmt.Errorf("%w: %d parts for %d elements", ErrDegeneratePartition, nparts, len(leaves))
	}

	var order []mesh.ElemID
	var eToP map[mesh.ElemID]int

	switch strategy {
	case Block:
		order = append(order, leaves...)
	case SpaceFillingCurve:
		order = mortonOrder(m, leaves)
	case RoundRobin:
		eToP = make(map[mesh.ElemID]int, len(leaves))
		for i, e := range leaves {
			eToP[e] = i % nparts
		}
	case GraphGrowth:
		var err error
		eToP, err = growRegions(m, leaves, nparts)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown partition strategy %d", strategy)
	}

	if eToP == nil {
		// Block-split the chosen ordering; the first remainder parts
		// take one extra element.
		eToP = make(map[mesh.ElemID]int, len(order))
		q, r := len(order)/nparts, len(order)%nparts
		idx := 0
		for p := 0; p < nparts; p++ {
			size := q
			if p < r {
				size++
			}
			for i := 0; i < size; i++ {
				eToP[order[idx]] = p
				idx++
			}
		}
	}

	l := &Layout{
		NumParts:    nparts,
		Total:       len(leaves),
		EToP:        eToP,
		Parts:       make([][]mesh.ElemID, nparts),
		MeshVersion: m.Version(),
	}
	for _, e := range leaves {
		p := eToP[e]
		l.Parts[p] = append(l.Parts[p], e)
	}
	for p := range l.Parts {
		sort.Slice(l.Parts[p], func(i, j int) bool { return l.Parts[p][i] < l.Parts[p][j] })
	}

	if err := l.Validate(m); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}
	return l, nil
}
