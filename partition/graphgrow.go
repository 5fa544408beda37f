package partition

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/simple"

	"github.com/notargets/goamr/mesh"
)

// growRegions partitions by greedy breadth-first growth over the element
// dual graph: each part grows from a seed through unassigned neighbors
// until it reaches its quota, so parts stay contiguous where the mesh
// allows. Quotas differ by at most one element.
func growRegions(m *mesh.Mesh, leaves []mesh.ElemID, nparts int) (map[mesh.ElemID]int, error) {
	adj := m.LeafAdjacency()

	g := simple.NewUndirectedGraph()
	for _, e := range leaves {
		g.AddNode(simple.Node(int64(e)))
	}
	for _, e := range leaves {
		for _, n := range adj[e] {
			if e < n {
				g.SetEdge(g.NewEdge(simple.Node(int64(e)), simple.Node(int64(n))))
			}
		}
	}

	eToP := make(map[mesh.ElemID]int, len(leaves))
	assigned := make(map[mesh.ElemID]bool, len(leaves))

	q, r := len(leaves)/nparts, len(leaves)%nparts

	for p := 0; p < nparts; p++ {
		quota := q
		if p < r {
			quota++
		}
		next := 0 // scan position into leaves for fresh seeds

		var frontier []mesh.ElemID
		for quota > 0 {
			if len(frontier) == 0 {
				// Seed (or re-seed after exhausting a component)
				// with the lowest unassigned handle.
				for next < len(leaves) && assigned[leaves[next]] {
					next++
				}
				if next >= len(leaves) {
					return nil, fmt.Errorf("graph growth ran out of elements at part %d", p)
				}
				frontier = append(frontier, leaves[next])
				assigned[leaves[next]] = true
			}

			e := frontier[0]
			frontier = frontier[1:]
			eToP[e] = p
			quota--

			var nbrs []mesh.ElemID
			it := g.From(int64(e))
			for it.Next() {
				n := mesh.ElemID(it.Node().ID())
				if !assigned[n] {
					nbrs = append(nbrs, n)
				}
			}
			sort.Slice(nbrs, func(i, j int) bool { return nbrs[i] < nbrs[j] })
			for _, n := range nbrs {
				assigned[n] = true
				frontier = append(frontier, n)
			}
		}

		// Elements pulled into the frontier but over quota go back to
		// the pool for the next part.
		for _, e := range frontier {
			assigned[e] = false
		}
	}

	return eToP, nil
}
