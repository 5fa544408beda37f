package partition

import (
	"fmt"

	"github.com/notargets/goamr/mesh"
)

// Move records one element changing owner.
type Move struct {
	Elem mesh.ElemID
	From int
	To   int
}

// MigrationPlan lists every ownership change of one rebalance. Field data
// follows these moves purely as data, with no interpolation.
type MigrationPlan struct {
	Moves []Move
}

// Rebalance computes a fresh partition of the mesh's current leaves and
// the migration plan from the old layout. Elements created by refinement
// since the old layout was built are treated as owned by their nearest
// ancestor's rank, which is where their data lives before the move. old
// may be nil (initial distribution: every move has From == -1).
//
// A resulting empty rank is reported as ErrDegeneratePartition and the old
// layout is left untouched.
func Rebalance(m *mesh.Mesh, old *Layout, nparts int, strategy Strategy) (*Layout, *MigrationPlan, error) {
	next, err := NewLayout(m, nparts, strategy)
	if err != nil {
		return nil, nil, fmt.Errorf("rebalance: %w", err)
	}

	plan := &MigrationPlan{}
	for _, e := range m.Leaves() {
		from := inheritedOwner(m, old, e)
		to := next.EToP[e]
		if from != to {
			plan.Moves = append(plan.Moves, Move{Elem: e, From: from, To: to})
		}
	}
	return next, plan, nil
}

// inheritedOwner resolves pre-rebalance ownership of a leaf: its own entry
// in the old layout, else the nearest ancestor's (children stay on the
// parent's rank until rebalanced). A parent re-merged by derefinement has
// neither — only its former children were in the old layout — so its
// restricted data lives where they lived: resolve through the descendants
// still recorded there, lowest handle winning for determinism. Returns -1
// only when the layout knows nothing about the leaf's lineage.
func inheritedOwner(m *mesh.Mesh, old *Layout, e mesh.ElemID) int {
	if old == nil {
		return -1
	}
	for id := e; id != mesh.NoElem; id = m.Elem(id).Parent {
		if p, ok := old.EToP[id]; ok {
			return p
		}
	}

	best := mesh.NoElem
	owner := -1
	for k, p := range old.EToP {
		for id := m.Elem(k).Parent; id != mesh.NoElem; id = m.Elem(id).Parent {
			if id == e {
				if best == mesh.NoElem || k < best {
					best, owner = k, p
				}
				break
			}
		}
	}
	return owner
}
