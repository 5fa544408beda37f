package mesh

import "testing"

func TestConstraints_SingleHangingEdge(t *testing.T) {
	// Two quads side by side; refining the left one hangs the midpoint
	// of the shared edge (vertices 1 and 4).
	m, err := NewCartesian2D(2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !m.Conforming() {
		t.Fatal("fresh mesh must be conforming")
	}

	if _, err := m.Refine([]ElemID{0}, 0); err != nil {
		t.Fatal(err)
	}
	ct := m.Constraints()
	if ct.Len() != 1 {
		t.Fatalf("constraint count %d, want 1", ct.Len())
	}

	v := ct.Dependents()[0]
	c, ok := ct.Lookup(v)
	if !ok {
		t.Fatal("dependent vertex has no constraint")
	}
	if len(c.Masters) != 2 || c.Masters[0] != 1 || c.Masters[1] != 4 {
		t.Errorf("masters %v, want [1 4]", c.Masters)
	}
	for _, w := range c.Weights {
		if w != 0.5 {
			t.Errorf("edge midpoint weights %v, want [0.5 0.5]", c.Weights)
		}
	}
	if c.Depth != 1 {
		t.Errorf("depth %d, want 1", c.Depth)
	}
}

func TestConstraints_HexFaceCenter(t *testing.T) {
	// Two hexes sharing a quad face; refining one hangs the four edge
	// midpoints plus the face center.
	m, err := NewCartesian3D(2, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Refine([]ElemID{0}, 0); err != nil {
		t.Fatal(err)
	}

	ct := m.Constraints()
	if ct.Len() != 5 {
		t.Fatalf("constraint count %d, want 5 (4 edge midpoints + face center)", ct.Len())
	}

	centers := 0
	for _, v := range ct.Dependents() {
		c, _ := ct.Lookup(v)
		switch len(c.Masters) {
		case 2:
			if c.Weights[0] != 0.5 || c.Weights[1] != 0.5 {
				t.Errorf("edge midpoint weights %v", c.Weights)
			}
		case 4:
			centers++
			for _, w := range c.Weights {
				if w != 0.25 {
					t.Errorf("face center weights %v, want four 0.25", c.Weights)
				}
			}
		default:
			t.Errorf("unexpected master count %d", len(c.Masters))
		}
		if c.Depth != 1 {
			t.Errorf("depth %d, want 1", c.Depth)
		}
	}
	if centers != 1 {
		t.Errorf("found %d face-center constraints, want 1", centers)
	}
}

func TestConstraints_DeepChainFlattens(t *testing.T) {
	m, _ := NewCartesian2D(4, 4)
	deepen(t, m, 0, 3, 0)

	ct := m.Constraints()
	if ct.MaxDepth() != 3 {
		t.Fatalf("max depth %d, want 3", ct.MaxDepth())
	}
	for _, v := range ct.Dependents() {
		c, _ := ct.Lookup(v)
		sum := 0.0
		for i, mv := range c.Masters {
			if _, dep := ct.Lookup(mv); dep {
				t.Errorf("vertex %d: master %d is itself dependent", v, mv)
			}
			sum += c.Weights[i]
		}
		if sum < 1-1e-12 || sum > 1+1e-12 {
			t.Errorf("vertex %d: weights sum to %g", v, sum)
		}
	}
}

func TestConstraints_UniformRefinementStaysConforming(t *testing.T) {
	m, _ := NewCartesian2D(2, 2)
	flags := append([]ElemID(nil), m.Leaves()...)
	if _, err := m.Refine(flags, 0); err != nil {
		t.Fatal(err)
	}
	if !m.Conforming() {
		t.Error("uniform refinement must leave the mesh conforming")
	}
	if m.NumLeaves() != 16 {
		t.Errorf("leaves %d, want 16", m.NumLeaves())
	}
}
