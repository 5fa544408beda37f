package partition

import (
	"fmt"
	"sort"

	"github.com/notargets/goamr/mesh"
)

// GhostLayer holds, per rank, the read-only copies of neighbor-owned
// elements adjacent to the rank's boundary, and the matching send lists on
// the owning side. It is rebuilt from scratch after every rebalance or
// topology mutation — never patched incrementally — so all ranks agree by
// construction.
type GhostLayer struct {
	NumParts int

	// Ghosts[p] lists the elements rank p reads but does not own,
	// ascending.
	Ghosts [][]mesh.ElemID

	// Sends[p][q] lists the elements rank p owns that rank q ghosts,
	// ascending. Sends[p][p] is always nil.
	Sends [][][]mesh.ElemID
}

// BuildGhostLayer derives the ghost layer of a layout from leaf adjacency.
// Coarse-fine neighbors across nonconforming interfaces are included.
func BuildGhostLayer(m *mesh.Mesh, l *Layout) *GhostLayer {
	adj := m.LeafAdjacency()

	gl := &GhostLayer{
		NumParts: l.NumParts,
		Ghosts:   make([][]mesh.ElemID, l.NumParts),
		Sends:    make([][][]mesh.ElemID, l.NumParts),
	}
	for p := 0; p < l.NumParts; p++ {
		gl.Sends[p] = make([][]mesh.ElemID, l.NumParts)
	}

	ghostSets := make([]map[mesh.ElemID]bool, l.NumParts)
	for p := range ghostSets {
		ghostSets[p] = make(map[mesh.ElemID]bool)
	}

	for _, e := range m.Leaves() {
		p := l.EToP[e]
		for _, n := range adj[e] {
			if q := l.EToP[n]; q != p {
				ghostSets[p][n] = true
			}
		}
	}

	for p := 0; p < l.NumParts; p++ {
		for e := range ghostSets[p] {
			gl.Ghosts[p] = append(gl.Ghosts[p], e)
			owner := l.EToP[e]
			gl.Sends[owner][p] = append(gl.Sends[owner][p], e)
		}
	}
	for p := 0; p < l.NumParts; p++ {
		sortElems(gl.Ghosts[p])
		for q := 0; q < l.NumParts; q++ {
			sortElems(gl.Sends[p][q])
		}
	}
	return gl
}

// Validate checks communication symmetry: whatever rank q expects to ghost
// from rank p, p sends to q, with identical element lists.
func (gl *GhostLayer) Validate(l *Layout) error {
	for q := 0; q < gl.NumParts; q++ {
		byOwner := make(map[int][]mesh.ElemID)
		for _, e := range gl.Ghosts[q] {
			owner := l.EToP[e]
			byOwner[owner] = append(byOwner[owner], e)
		}
		for p := 0; p < gl.NumParts; p++ {
			want := byOwner[p]
			got := gl.Sends[p][q]
			if len(want) != len(got) {
				return fmt.Errorf("asymmetric ghost exchange: rank %d expects %d elements from %d, %d sends %d",
					q, len(want), p, p, len(got))
			}
			for i := range want {
				if want[i] != got[i] {
					return fmt.Errorf("ghost mismatch between ranks %d and %d at slot %d: %d vs %d",
						p, q, i, got[i], want[i])
				}
			}
		}
	}
	return nil
}

func sortElems(s []mesh.ElemID) {
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
}
