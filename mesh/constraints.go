package mesh

import (
	"fmt"
	"sort"
)

// Constraint expresses a hanging (dependent) vertex as a weighted
// combination of free master vertices on a coarser neighboring element.
// Weights sum to one. Depth counts the chain length through intermediate
// hanging vertices; a depth-d constraint corresponds to a level difference
// of d across the interface.
type Constraint struct {
	Dependent VertID
	Masters   []VertID
	Weights   []float64
	Depth     int

	// owner is the coarse leaf whose unsplit edge/face generated the
	// constraint; refining it removes the dependency (level balancing).
	owner ElemID
}

// ConstraintTable holds all hanging-node constraints of one mesh state.
// The constraint graph is acyclic: a dependent vertex only references
// vertices created before it.
type ConstraintTable struct {
	byVert   map[VertID]*Constraint
	maxDepth int
}

// Lookup returns the constraint for a vertex, if it is dependent.
func (ct *ConstraintTable) Lookup(v VertID) (*Constraint, bool) {
	c, ok := ct.byVert[v]
	return c, ok
}

// Len returns the number of dependent vertices.
func (ct *ConstraintTable) Len() int { return len(ct.byVert) }

// MaxDepth returns the deepest constraint chain, 0 for a conforming mesh.
func (ct *ConstraintTable) MaxDepth() int { return ct.maxDepth }

// Dependents returns all dependent vertices in ascending order.
func (ct *ConstraintTable) Dependents() []VertID {
	out := make([]VertID, 0, len(ct.byVert))
	for v := range ct.byVert {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ScanInterfaces exhaustively verifies that no constraint exceeds the
// given hanging-node depth limit. A limit of 0 means unlimited.
func (m *Mesh) ScanInterfaces(limit int) error {
	if limit <= 0 {
		return nil
	}
	ct := m.Constraints()
	for _, v := range ct.Dependents() {
		c := ct.byVert[v]
		if c.Depth > limit {
			return fmt.Errorf("vertex %d: constraint depth %d exceeds limit %d", v, c.Depth, limit)
		}
	}
	return nil
}

// immConstraint records a dependent vertex with its immediate (possibly
// themselves dependent) masters, before flattening.
type immConstraint struct {
	masters []VertID
	owner   ElemID
}

type constraintBuilder struct {
	m       *Mesh
	used    map[VertID]bool
	imm     map[VertID]*immConstraint
	visited map[vertKey]bool
}

// buildConstraints rebuilds the hanging-node constraint table from scratch
// by traversing every unsplit leaf edge and face whose midpoint structure
// exists: any vertex interior to such an entity is dependent on the
// entity's corners.
func (m *Mesh) buildConstraints() *ConstraintTable {
	b := &constraintBuilder{
		m:       m,
		used:    make(map[VertID]bool),
		imm:     make(map[VertID]*immConstraint),
		visited: make(map[vertKey]bool),
	}

	leaves := m.Leaves()
	for _, id := range leaves {
		for _, v := range m.elems[id].Verts {
			b.used[v] = true
		}
	}

	for _, id := range leaves {
		e := &m.elems[id]
		verts := e.Verts
		for _, ed := range e.Geom.Edges() {
			b.traverseEdge(verts[ed[0]], verts[ed[1]], id)
		}
		for _, f := range e.Geom.TriFaces() {
			b.traverseTriFace(verts[f[0]], verts[f[1]], verts[f[2]], id)
		}
		for _, f := range e.Geom.QuadFaces() {
			b.traverseQuadFace(verts[f[0]], verts[f[1]], verts[f[2]], verts[f[3]], id)
		}
	}

	return b.resolve()
}

func (b *constraintBuilder) traverseEdge(a, c VertID, owner ElemID) {
	key := makeVertKey([]VertID{a, c})
	if b.visited[key] {
		return
	}
	b.visited[key] = true

	v, ok := b.m.refined[key]
	if !ok || !b.used[v] {
		return
	}
	if b.imm[v] == nil {
		b.imm[v] = &immConstraint{masters: []VertID{a, c}, owner: owner}
	}
	b.traverseEdge(a, v, owner)
	b.traverseEdge(v, c, owner)
}

func (b *constraintBuilder) traverseTriFace(a, c, d VertID, owner ElemID) {
	key := makeVertKey([]VertID{a, c, d})
	if b.visited[key] {
		return
	}
	b.visited[key] = true

	// The face is split from the finer side only if all three edge
	// midpoints exist; boundary edge midpoints are handled by the edge
	// traversal of the owning leaf.
	mac, ok1 := b.m.lookupRefined(a, c)
	mcd, ok2 := b.m.lookupRefined(c, d)
	mda, ok3 := b.m.lookupRefined(d, a)
	if !ok1 || !ok2 || !ok3 {
		return
	}

	// Edges interior to the master face.
	b.traverseEdge(mac, mcd, owner)
	b.traverseEdge(mcd, mda, owner)
	b.traverseEdge(mda, mac, owner)

	b.traverseTriFace(a, mac, mda, owner)
	b.traverseTriFace(mac, c, mcd, owner)
	b.traverseTriFace(mda, mcd, d, owner)
	b.traverseTriFace(mac, mcd, mda, owner)
}

func (b *constraintBuilder) traverseQuadFace(a, c, d, e VertID, owner ElemID) {
	key := makeVertKey([]VertID{a, c, d, e})
	if b.visited[key] {
		return
	}
	b.visited[key] = true

	vc, ok := b.m.lookupRefined(a, c, d, e)
	if !ok || !b.used[vc] {
		return
	}
	if b.imm[vc] == nil {
		b.imm[vc] = &immConstraint{masters: []VertID{a, c, d, e}, owner: owner}
	}

	mac, ok1 := b.m.lookupRefined(a, c)
	mcd, ok2 := b.m.lookupRefined(c, d)
	mde, ok3 := b.m.lookupRefined(d, e)
	mea, ok4 := b.m.lookupRefined(e, a)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return
	}

	// Boundary edges of the face are edges of the owning leaf and are
	// traversed from the leaf entry; the spokes to the center are
	// interior to the master face.
	b.traverseEdge(mac, vc, owner)
	b.traverseEdge(mcd, vc, owner)
	b.traverseEdge(mde, vc, owner)
	b.traverseEdge(mea, vc, owner)

	b.traverseQuadFace(a, mac, vc, mea, owner)
	b.traverseQuadFace(mac, c, mcd, vc, owner)
	b.traverseQuadFace(vc, mcd, d, mde, owner)
	b.traverseQuadFace(mea, vc, mde, e, owner)
}

// resolve flattens immediate constraints to free masters with combined
// weights and computes chain depths. Terminates because a vertex only
// depends on vertices created before it.
func (b *constraintBuilder) resolve() *ConstraintTable {
	ct := &ConstraintTable{byVert: make(map[VertID]*Constraint, len(b.imm))}
	resolved := make(map[VertID]*Constraint, len(b.imm))

	var resolveVert func(v VertID) *Constraint
	resolveVert = func(v VertID) *Constraint {
		if c, ok := resolved[v]; ok {
			return c
		}
		ic := b.imm[v]
		if ic == nil {
			return nil // free vertex
		}

		weights := make(map[VertID]float64)
		w := 1.0 / float64(len(ic.masters))
		depth := 1
		for _, mv := range ic.masters {
			mc := resolveVert(mv)
			if mc == nil {
				weights[mv] += w
				continue
			}
			for j, fm := range mc.Masters {
				weights[fm] += w * mc.Weights[j]
			}
			if mc.Depth+1 > depth {
				depth = mc.Depth + 1
			}
		}

		masters := make([]VertID, 0, len(weights))
		for fm := range weights {
			masters = append(masters, fm)
		}
		sort.Slice(masters, func(i, j int) bool { return masters[i] < masters[j] })
		ws := make([]float64, len(masters))
		for i, fm := range masters {
			ws[i] = weights[fm]
		}

		c := &Constraint{
			Dependent: v,
			Masters:   masters,
			Weights:   ws,
			Depth:     depth,
			owner:     ic.owner,
		}
		resolved[v] = c
		return c
	}

	for v := range b.imm {
		c := resolveVert(v)
		ct.byVert[v] = c
		if c.Depth > ct.maxDepth {
			ct.maxDepth = c.Depth
		}
	}
	return ct
}
