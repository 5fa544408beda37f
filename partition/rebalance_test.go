package partition

import (
	"testing"

	"github.com/notargets/goamr/mesh"
)

// oldOwner mirrors ownership inheritance: a leaf unknown to the old
// layout is owned by its nearest ancestor's rank.
func oldOwner(m *mesh.Mesh, old *Layout, e mesh.ElemID) int {
	for id := e; id != mesh.NoElem; id = m.Elem(id).Parent {
		if p, ok := old.EToP[id]; ok {
			return p
		}
	}
	return -1
}

func TestRebalance_InitialDistribution(t *testing.T) {
	m := newQuadMesh(t, 4, 4)
	l, plan, err := Rebalance(m, nil, 4, Block)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Validate(m); err != nil {
		t.Fatal(err)
	}
	if len(plan.Moves) != m.NumLeaves() {
		t.Errorf("initial plan has %d moves, want one per leaf (%d)", len(plan.Moves), m.NumLeaves())
	}
	for _, mv := range plan.Moves {
		if mv.From != -1 {
			t.Errorf("initial move of %d claims source rank %d", mv.Elem, mv.From)
		}
	}
}

func TestRebalance_AfterRefinement(t *testing.T) {
	m := newQuadMesh(t, 4, 4)
	old, err := NewLayout(m, 4, Block)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Refine([]mesh.ElemID{0, 15}, 2); err != nil {
		t.Fatal(err)
	}

	next, plan, err := Rebalance(m, old, 4, SpaceFillingCurve)
	if err != nil {
		t.Fatal(err)
	}
	if err := next.Validate(m); err != nil {
		t.Fatal(err)
	}

	// Every move starts from the inherited owner, and applying the plan
	// reproduces the new ownership exactly.
	owner := make(map[mesh.ElemID]int)
	for _, e := range m.Leaves() {
		owner[e] = oldOwner(m, old, e)
	}
	for _, mv := range plan.Moves {
		if owner[mv.Elem] != mv.From {
			t.Errorf("element %d moves from %d but lives on %d", mv.Elem, mv.From, owner[mv.Elem])
		}
		owner[mv.Elem] = mv.To
	}
	for _, e := range m.Leaves() {
		if owner[e] != next.EToP[e] {
			t.Errorf("element %d ends on %d, layout says %d", e, owner[e], next.EToP[e])
		}
	}
}

func TestRebalance_ResolvesMergedParentOwnership(t *testing.T) {
	m := newQuadMesh(t, 4, 4)
	rep, err := m.Refine([]mesh.ElemID{0}, 0)
	if err != nil {
		t.Fatal(err)
	}
	children := rep.Splits[0].Children

	// The old layout sees only the children; the merged parent must
	// inherit their rank, not fall back to an unknown source.
	old, err := NewLayout(m, 2, Block)
	if err != nil {
		t.Fatal(err)
	}
	childRank := old.EToP[children[0]]

	if _, err := m.Derefine([]mesh.ElemID{0}); err != nil {
		t.Fatal(err)
	}

	next, plan, err := Rebalance(m, old, 2, Block)
	if err != nil {
		t.Fatal(err)
	}
	if err := next.Validate(m); err != nil {
		t.Fatal(err)
	}

	found := false
	for _, mv := range plan.Moves {
		if mv.From == -1 {
			t.Errorf("move of %d lost its source rank", mv.Elem)
		}
		if mv.Elem == 0 {
			found = true
			if mv.From != childRank {
				t.Errorf("merged parent moves from %d, its children lived on %d", mv.From, childRank)
			}
		}
	}
	if !found && next.EToP[0] != childRank {
		t.Errorf("merged parent neither moved nor stayed on its children's rank")
	}
}

func TestRebalance_NoMovesOnStableMesh(t *testing.T) {
	m := newQuadMesh(t, 4, 4)
	old, err := NewLayout(m, 4, Block)
	if err != nil {
		t.Fatal(err)
	}
	_, plan, err := Rebalance(m, old, 4, Block)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Moves) != 0 {
		t.Errorf("unchanged mesh produced %d moves", len(plan.Moves))
	}
}

func TestGhostLayer_Symmetry(t *testing.T) {
	m := newQuadMesh(t, 4, 4)
	if _, err := m.Refine([]mesh.ElemID{5}, 2); err != nil {
		t.Fatal(err)
	}
	l, err := NewLayout(m, 3, SpaceFillingCurve)
	if err != nil {
		t.Fatal(err)
	}
	gl := BuildGhostLayer(m, l)
	if err := gl.Validate(l); err != nil {
		t.Fatal(err)
	}
	for p := 0; p < gl.NumParts; p++ {
		if len(gl.Ghosts[p]) == 0 {
			t.Errorf("rank %d has no ghosts on a connected mesh", p)
		}
		for _, e := range gl.Ghosts[p] {
			if l.EToP[e] == p {
				t.Errorf("rank %d ghosts its own element %d", p, e)
			}
		}
		if gl.Sends[p][p] != nil {
			t.Errorf("rank %d has a self send list", p)
		}
	}
}

func TestGhostLayer_CrossesNonconformingInterface(t *testing.T) {
	m, err := mesh.NewCartesian2D(2, 1)
	if err != nil {
		t.Fatal(err)
	}
	rep, err := m.Refine([]mesh.ElemID{0}, 0)
	if err != nil {
		t.Fatal(err)
	}
	children := rep.Splits[0].Children

	// Coarse element on one rank, all quadrants on the other.
	l := &Layout{
		NumParts: 2,
		Total:    m.NumLeaves(),
		EToP:     map[mesh.ElemID]int{1: 0},
		Parts:    make([][]mesh.ElemID, 2),
	}
	l.Parts[0] = []mesh.ElemID{1}
	for _, c := range children {
		l.EToP[c] = 1
		l.Parts[1] = append(l.Parts[1], c)
	}
	if err := l.Validate(m); err != nil {
		t.Fatal(err)
	}

	gl := BuildGhostLayer(m, l)
	if err := gl.Validate(l); err != nil {
		t.Fatal(err)
	}

	// The coarse rank must ghost the two quadrants on the shared edge.
	want := map[mesh.ElemID]bool{children[1]: true, children[2]: true}
	if len(gl.Ghosts[0]) != 2 {
		t.Fatalf("rank 0 ghosts %v, want the two interface quadrants", gl.Ghosts[0])
	}
	for _, e := range gl.Ghosts[0] {
		if !want[e] {
			t.Errorf("rank 0 ghosts %d, want %v", e, want)
		}
	}
}
