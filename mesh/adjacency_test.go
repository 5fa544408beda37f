package mesh

import "testing"

func TestFaceNeighbors_Grid(t *testing.T) {
	m, _ := NewCartesian2D(2, 2)
	pairs := m.FaceNeighbors()
	if len(pairs) != 4 {
		t.Fatalf("conforming pairs %d, want 4", len(pairs))
	}
	want := [][2]ElemID{{0, 1}, {0, 2}, {1, 3}, {2, 3}}
	for i, p := range pairs {
		if p != want[i] {
			t.Errorf("pair %d = %v, want %v", i, p, want[i])
		}
	}
}

func TestFaceNeighbors_ExcludesNonconforming(t *testing.T) {
	m, _ := NewCartesian2D(2, 1)
	if _, err := m.Refine([]ElemID{0}, 0); err != nil {
		t.Fatal(err)
	}
	for _, p := range m.FaceNeighbors() {
		if p[0] == 1 || p[1] == 1 {
			t.Errorf("coarse element appears in conforming pair %v", p)
		}
	}
}

func TestLeafAdjacency_CoarseFineNeighbors(t *testing.T) {
	m, _ := NewCartesian2D(2, 1)
	rep, err := m.Refine([]ElemID{0}, 0)
	if err != nil {
		t.Fatal(err)
	}
	children := rep.Splits[0].Children

	adj := m.LeafAdjacency()
	nbrs := adj[1]

	// The two right-hand quadrants touch the coarse neighbor even though
	// their hanging corner has no vertex handle in common with it.
	wantTouch := map[ElemID]bool{children[1]: true, children[2]: true}
	found := 0
	for _, n := range nbrs {
		if wantTouch[n] {
			found++
		}
	}
	if found != 2 {
		t.Errorf("coarse element neighbors %v, want to include %v and %v",
			nbrs, children[1], children[2])
	}
	for _, n := range nbrs {
		if n == children[0] || n == children[3] {
			t.Errorf("left-hand quadrant %d wrongly adjacent to the coarse element", n)
		}
	}
}

func TestLeafAdjacency_Symmetric(t *testing.T) {
	m, _ := NewCartesian2D(3, 3)
	if _, err := m.Refine([]ElemID{4}, 0); err != nil {
		t.Fatal(err)
	}
	adj := m.LeafAdjacency()
	for e, nbrs := range adj {
		for _, n := range nbrs {
			back := false
			for _, b := range adj[n] {
				if b == e {
					back = true
					break
				}
			}
			if !back {
				t.Errorf("adjacency not symmetric: %d -> %d", e, n)
			}
		}
	}
}
