package mesh

import (
	"fmt"
	"sort"
)

// SplitRecord links a parent element to the children one refinement (or
// one derefinement, read in reverse) maps it to. Field transfer replays
// these records to move solution data between mesh states.
type SplitRecord struct {
	Parent   ElemID
	Children []ElemID
}

// RefineReport describes one Refine call: every split performed, including
// the level-balancing cascade beyond the requested set.
type RefineReport struct {
	Splits       []SplitRecord
	NumRequested int
	NumCascaded  int
}

// Refine subdivides each flagged leaf into its canonical children and
// records parent/child links. When ncLimit > 0, a level-balancing fixed
// point follows: any hanging-node constraint whose depth would exceed
// ncLimit cascades refinement to the coarse leaf owning the constraining
// entity, until every interface is within the limit. The iteration
// terminates because chain depth is bounded by the deepest flagged level.
// ncLimit <= 0 leaves hanging-node depth unrestricted.
//
// Flagging a non-leaf or dead element is an error; the mesh is not
// mutated in that case.
func (m *Mesh) Refine(flags []ElemID, ncLimit int) (*RefineReport, error) {
	rep := &RefineReport{}
	if len(flags) == 0 {
		return rep, nil
	}

	pending := make([]ElemID, 0, len(flags))
	seen := make(map[ElemID]bool, len(flags))
	for _, id := range flags {
		if id < 0 || int(id) >= len(m.elems) {
			return nil, fmt.Errorf("refine: element handle %d out of range", id)
		}
		if !m.elems[id].IsLeaf() {
			return nil, fmt.Errorf("refine: element %d is not a leaf", id)
		}
		if !seen[id] {
			seen[id] = true
			pending = append(pending, id)
		}
	}
	rep.NumRequested = len(pending)

	first := true
	for len(pending) > 0 {
		for _, id := range pending {
			rep.Splits = append(rep.Splits, m.split(id))
		}
		if !first {
			rep.NumCascaded += len(pending)
		}
		first = false
		m.bump()

		if ncLimit <= 0 {
			break
		}

		// Rebuild constraints and queue the owners of over-deep
		// interfaces for the next pass.
		ct := m.Constraints()
		next := make(map[ElemID]bool)
		for _, v := range ct.Dependents() {
			c := ct.byVert[v]
			if c.Depth > ncLimit {
				next[c.owner] = true
			}
		}
		pending = pending[:0]
		for id := range next {
			if m.elems[id].IsLeaf() {
				pending = append(pending, id)
			}
		}
		sort.Slice(pending, func(i, j int) bool { return pending[i] < pending[j] })
	}

	return rep, nil
}

// split subdivides one leaf per its geometry template. Refined vertices
// are shared with neighboring refinements through provenance dedup.
func (m *Mesh) split(id ElemID) SplitRecord {
	// Copy what we need before appending: the arena may reallocate.
	geom := m.elems[id].Geom
	verts := m.elems[id].Verts
	attr := m.elems[id].Attr
	level := m.elems[id].Level

	tmpl := templates[geom]
	local := make([]VertID, len(tmpl.nodes))
	for i, nd := range tmpl.nodes {
		if len(nd.corners) == 1 {
			local[i] = verts[nd.corners[0]]
			continue
		}
		parents := make([]VertID, len(nd.corners))
		for j, c := range nd.corners {
			parents[j] = verts[c]
		}
		local[i] = m.vertexFor(parents)
	}

	children := make([]ElemID, len(tmpl.children))
	for ci, def := range tmpl.children {
		cv := make([]VertID, len(def))
		for j, n := range def {
			cv[j] = local[n]
		}
		children[ci] = ElemID(len(m.elems))
		m.elems = append(m.elems, Element{
			Geom:   geom,
			Verts:  cv,
			Attr:   attr,
			Parent: id,
			Level:  level + 1,
		})
	}
	m.elems[id].Children = children

	return SplitRecord{Parent: id, Children: children}
}
