package mesh

import "testing"

func TestRefine_QuadLeafCounts(t *testing.T) {
	m, err := NewCartesian2D(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if m.NumLeaves() != 4 {
		t.Fatalf("initial leaves %d, want 4", m.NumLeaves())
	}

	rep, err := m.Refine([]ElemID{0}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if rep.NumRequested != 1 || rep.NumCascaded != 0 {
		t.Errorf("report requested=%d cascaded=%d, want 1/0", rep.NumRequested, rep.NumCascaded)
	}
	if m.NumLeaves() != 7 {
		t.Errorf("leaves after split %d, want 7", m.NumLeaves())
	}
	if m.Elem(0).IsLeaf() {
		t.Error("refined element still reported as leaf")
	}
	for _, c := range m.Elem(0).Children {
		if m.Elem(c).Level != 1 {
			t.Errorf("child %d level %d, want 1", c, m.Elem(c).Level)
		}
		if m.Elem(c).Parent != 0 {
			t.Errorf("child %d parent %d, want 0", c, m.Elem(c).Parent)
		}
	}
}

func TestRefine_NonLeafIsError(t *testing.T) {
	m, _ := NewCartesian2D(2, 2)
	if _, err := m.Refine([]ElemID{0}, 0); err != nil {
		t.Fatal(err)
	}
	ver := m.Version()
	if _, err := m.Refine([]ElemID{0}, 0); err == nil {
		t.Fatal("refining a non-leaf should fail")
	}
	if m.Version() != ver {
		t.Error("failed refine mutated the mesh")
	}
	if _, err := m.Refine([]ElemID{99}, 0); err == nil {
		t.Fatal("out-of-range handle should fail")
	}
}

func TestRefine_SharedMidpointDedup(t *testing.T) {
	m, _ := NewCartesian2D(2, 2)
	before := m.NumVerts() // 9

	// Elements 0 and 1 share one edge: each split creates 5 refined
	// vertices but the shared edge midpoint is created once.
	if _, err := m.Refine([]ElemID{0, 1}, 0); err != nil {
		t.Fatal(err)
	}
	if got := m.NumVerts() - before; got != 9 {
		t.Errorf("created %d vertices, want 9 (shared midpoint deduplicated)", got)
	}
}

// deepen repeatedly refines the child quadrant touching the right edge,
// building an ever-deeper hanging chain against the unrefined neighbor.
func deepen(t *testing.T, m *Mesh, start ElemID, rounds, ncLimit int) {
	t.Helper()
	cur := start
	for r := 0; r < rounds; r++ {
		rep, err := m.Refine([]ElemID{cur}, ncLimit)
		if err != nil {
			t.Fatal(err)
		}
		for _, sp := range rep.Splits {
			if sp.Parent == cur {
				cur = sp.Children[1]
				break
			}
		}
	}
}

func TestRefine_HangingDepthLimitEnforced(t *testing.T) {
	m, _ := NewCartesian2D(4, 4)

	deepen(t, m, 0, 5, 2)
	if err := m.ScanInterfaces(2); err != nil {
		t.Fatalf("depth limit violated after cascade: %v", err)
	}
}

func TestRefine_UnlimitedDepthWithoutLimit(t *testing.T) {
	m, _ := NewCartesian2D(4, 4)

	deepen(t, m, 0, 3, 0)
	if d := m.Constraints().MaxDepth(); d < 2 {
		t.Fatalf("max constraint depth %d, expected a chain deeper than 1", d)
	}
	if err := m.ScanInterfaces(1); err == nil {
		t.Error("scan should report a chain deeper than limit 1")
	}
}

func TestRefine_CascadeSplitsNeighbor(t *testing.T) {
	m, _ := NewCartesian2D(4, 4)

	// Two rounds against element 1 at limit 1: the second split must
	// drag the neighbor along.
	deepen(t, m, 0, 2, 1)
	if m.Elem(1).IsLeaf() {
		t.Error("neighbor should have been refined by the level-balancing cascade")
	}
}

func TestRefine_DuplicateFlagsCollapse(t *testing.T) {
	m, _ := NewCartesian2D(2, 2)
	rep, err := m.Refine([]ElemID{3, 3, 3}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if rep.NumRequested != 1 || len(rep.Splits) != 1 {
		t.Errorf("duplicate flags produced %d splits", len(rep.Splits))
	}
}

func TestRefine_EmptyFlagsNoop(t *testing.T) {
	m, _ := NewCartesian2D(2, 2)
	ver := m.Version()
	rep, err := m.Refine(nil, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Splits) != 0 || m.Version() != ver {
		t.Error("empty flag set must not mutate the mesh")
	}
}
