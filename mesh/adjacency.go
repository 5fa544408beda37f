package mesh

import "sort"

// LeafAdjacency returns, for each leaf, the leaves it touches. Hanging
// vertices are resolved to their free masters first, so coarse-fine
// neighbors across a nonconforming interface are detected even when they
// share no vertex handle directly. Neighbor lists are sorted and exclude
// the element itself.
func (m *Mesh) LeafAdjacency() map[ElemID][]ElemID {
	ct := m.Constraints()
	incident := make(map[VertID][]ElemID)

	for _, id := range m.Leaves() {
		for _, v := range m.elems[id].Verts {
			if c, ok := ct.Lookup(v); ok {
				for _, fm := range c.Masters {
					incident[fm] = append(incident[fm], id)
				}
			} else {
				incident[v] = append(incident[v], id)
			}
		}
	}

	adj := make(map[ElemID]map[ElemID]bool)
	for _, ids := range incident {
		for _, a := range ids {
			for _, b := range ids {
				if a == b {
					continue
				}
				if adj[a] == nil {
					adj[a] = make(map[ElemID]bool)
				}
				adj[a][b] = true
			}
		}
	}

	out := make(map[ElemID][]ElemID, len(m.Leaves()))
	for _, id := range m.Leaves() {
		set := adj[id]
		nbrs := make([]ElemID, 0, len(set))
		for n := range set {
			nbrs = append(nbrs, n)
		}
		sort.Slice(nbrs, func(i, j int) bool { return nbrs[i] < nbrs[j] })
		out[id] = nbrs
	}
	return out
}

// FaceNeighbors returns pairs of leaves sharing an identical codimension-1
// interface, i.e. conforming neighbors at equal refinement level.
// Nonconforming (coarse-fine) interfaces do not appear here; use
// LeafAdjacency for the full neighborhood.
func (m *Mesh) FaceNeighbors() [][2]ElemID {
	byFace := make(map[vertKey][]ElemID)
	for _, id := range m.Leaves() {
		e := &m.elems[id]
		for _, iface := range e.Geom.Interfaces() {
			fv := make([]VertID, len(iface))
			for i, li := range iface {
				fv[i] = e.Verts[li]
			}
			key := makeVertKey(fv)
			byFace[key] = append(byFace[key], id)
		}
	}

	var pairs [][2]ElemID
	for _, ids := range byFace {
		if len(ids) == 2 {
			a, b := ids[0], ids[1]
			if a > b {
				a, b = b, a
			}
			pairs = append(pairs, [2]ElemID{a, b})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	return pairs
}
