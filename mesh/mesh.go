package mesh

import (
	"fmt"
	"sort"
)

// ElemID is a stable handle into the element arena. Handles stay valid
// across refinement and derefinement; elements are never moved or reused.
type ElemID int32

// VertID is a stable handle into the vertex arena.
type VertID int32

// NoElem marks an absent element reference (e.g. the parent of a root).
const NoElem ElemID = -1

// Element is one entry of the mesh arena. Parent/child relations are
// handle-indexed lookups, never pointers.
type Element struct {
	Geom     GeometryType
	Verts    []VertID // ordered per geometry convention
	Attr     int      // attribute tag, inherited by children
	Parent   ElemID
	Children []ElemID // nil for a leaf
	Level    int      // subdivision depth relative to the root mesh

	dead bool // removed by derefinement
}

// IsLeaf reports whether the element is live and unrefined.
func (e *Element) IsLeaf() bool { return !e.dead && len(e.Children) == 0 }

// IsLive reports whether the element has not been removed by derefinement.
func (e *Element) IsLive() bool { return !e.dead }

// Vertex carries coordinates and provenance: a refined vertex records the
// vertices it is the average of (2 for an edge midpoint, 4 for a face
// center, 8 for a hex cell center). Root vertices have no parents.
type Vertex struct {
	Coord   [3]float64
	Parents []VertID
}

type vertKey struct {
	n uint8
	p [8]VertID
}

func makeVertKey(parents []VertID) vertKey {
	var k vertKey
	k.n = uint8(len(parents))
	copy(k.p[:], parents)
	sort.Slice(k.p[:k.n], func(i, j int) bool { return k.p[i] < k.p[j] })
	return k
}

// Mesh is the topology store: an arena of elements and vertices plus the
// refinement hierarchy and the hanging-node constraint table. It is created
// once from an initial mesh and mutated by Refine/Derefine.
type Mesh struct {
	elems []Element
	verts []Vertex

	// refined maps the sorted parent set of a refined vertex to its
	// handle, so neighboring refinements share midpoints.
	refined map[vertKey]VertID

	version            uint64
	constraints        *ConstraintTable
	constraintsVersion uint64

	leaves        []ElemID
	leavesVersion uint64
}

// NewFromArrays builds a mesh from externally supplied topology: vertex
// coordinates and per-element vertex index lists all of one geometry type.
// attrs may be nil (all elements get attribute 1).
func NewFromArrays(geom GeometryType, coords [][3]float64, elems [][]int, attrs []int) (*Mesh, error) {
	nv := geom.NumVerts()
	if nv == 0 {
		return nil, fmt.Errorf("unsupported geometry %v", geom)
	}
	if len(elems) == 0 {
		return nil, fmt.Errorf("mesh has no elements")
	}
	if attrs != nil && len(attrs) != len(elems) {
		return nil, fmt.Errorf("attrs length %d does not match %d elements", len(attrs), len(elems))
	}

	m := &Mesh{
		refined: make(map[vertKey]VertID),
		version: 1,
	}
	m.verts = make([]Vertex, len(coords))
	for i, c := range coords {
		m.verts[i] = Vertex{Coord: c}
	}
	for ei, conn := range elems {
		if len(conn) != nv {
			return nil, fmt.Errorf("element %d: %d vertices, %v requires %d", ei, len(conn), geom, nv)
		}
		verts := make([]VertID, nv)
		for i, v := range conn {
			if v < 0 || v >= len(coords) {
				return nil, fmt.Errorf("element %d: vertex index %d out of range", ei, v)
			}
			verts[i] = VertID(v)
		}
		attr := 1
		if attrs != nil {
			attr = attrs[ei]
		}
		m.elems = append(m.elems, Element{
			Geom:   geom,
			Verts:  verts,
			Attr:   attr,
			Parent: NoElem,
		})
	}
	return m, nil
}

// NewCartesian2D builds an nx by ny quadrilateral mesh of the unit square.
func NewCartesian2D(nx, ny int) (*Mesh, error) {
	if nx < 1 || ny < 1 {
		return nil, fmt.Errorf("invalid grid %dx%d", nx, ny)
	}
	coords := make([][3]float64, 0, (nx+1)*(ny+1))
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			coords = append(coords, [3]float64{float64(i) / float64(nx), float64(j) / float64(ny), 0})
		}
	}
	node := func(i, j int) int { return j*(nx+1) + i }
	elems := make([][]int, 0, nx*ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			elems = append(elems, []int{node(i, j), node(i+1, j), node(i+1, j+1), node(i, j+1)})
		}
	}
	return NewFromArrays(Quad, coords, elems, nil)
}

// NewCartesian3D builds an nx by ny by nz hexahedral mesh of the unit cube.
func NewCartesian3D(nx, ny, nz int) (*Mesh, error) {
	if nx < 1 || ny < 1 || nz < 1 {
		return nil, fmt.Errorf("invalid grid %dx%dx%d", nx, ny, nz)
	}
	coords := make([][3]float64, 0, (nx+1)*(ny+1)*(nz+1))
	for k := 0; k <= nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i <= nx; i++ {
				coords = append(coords, [3]float64{
					float64(i) / float64(nx), float64(j) / float64(ny), float64(k) / float64(nz),
				})
			}
		}
	}
	node := func(i, j, k int) int { return k*(ny+1)*(nx+1) + j*(nx+1) + i }
	elems := make([][]int, 0, nx*ny*nz)
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				elems = append(elems, []int{
					node(i, j, k), node(i+1, j, k), node(i+1, j+1, k), node(i, j+1, k),
					node(i, j, k+1), node(i+1, j, k+1), node(i+1, j+1, k+1), node(i, j+1, k+1),
				})
			}
		}
	}
	return NewFromArrays(Hex, coords, elems, nil)
}

// Elem returns the element for a handle. The pointer stays valid until the
// next topology mutation.
func (m *Mesh) Elem(id ElemID) *Element {
	return &m.elems[id]
}

// Coord returns the coordinates of a vertex.
func (m *Mesh) Coord(v VertID) [3]float64 {
	return m.verts[v].Coord
}

// VertexParents returns the provenance of a vertex, nil for root vertices.
func (m *Mesh) VertexParents(v VertID) []VertID {
	return m.verts[v].Parents
}

// NumVerts returns the total vertex arena size (including vertices only
// used by interior tree levels).
func (m *Mesh) NumVerts() int { return len(m.verts) }

// NumElems returns the total element arena size, live and dead.
func (m *Mesh) NumElems() int { return len(m.elems) }

// NumLeaves returns the current number of leaf elements.
func (m *Mesh) NumLeaves() int { return len(m.Leaves()) }

// Leaves returns the handles of all leaf elements in ascending order. The
// slice is owned by the mesh and must not be mutated.
func (m *Mesh) Leaves() []ElemID {
	if m.leavesVersion == m.version && m.leaves != nil {
		return m.leaves
	}
	m.leaves = m.leaves[:0]
	for i := range m.elems {
		if m.elems[i].IsLeaf() {
			m.leaves = append(m.leaves, ElemID(i))
		}
	}
	m.leavesVersion = m.version
	return m.leaves
}

// Version is a counter bumped on every topology mutation. Callers caching
// derived geometry key it by this value.
func (m *Mesh) Version() uint64 { return m.version }

// Dim returns the topological dimension of the mesh.
func (m *Mesh) Dim() int {
	if len(m.elems) == 0 {
		return 0
	}
	return m.elems[0].Geom.Dim()
}

// MaxLevel returns the deepest refinement level among leaves.
func (m *Mesh) MaxLevel() int {
	max := 0
	for _, id := range m.Leaves() {
		if l := m.elems[id].Level; l > max {
			max = l
		}
	}
	return max
}

// Conforming reports whether the mesh has no hanging nodes.
func (m *Mesh) Conforming() bool {
	return m.Constraints().Len() == 0
}

// Constraints returns the hanging-node constraint table for the current
// topology. The table is rebuilt from scratch after every mutation, never
// patched incrementally.
func (m *Mesh) Constraints() *ConstraintTable {
	if m.constraintsVersion != m.version || m.constraints == nil {
		m.constraints = m.buildConstraints()
		m.constraintsVersion = m.version
	}
	return m.constraints
}

func (m *Mesh) bump() {
	m.version++
}

// vertexFor returns the refined vertex averaging the given parents,
// creating it on first use. Neighboring refinements deduplicate through
// the provenance key, which is what keeps shared interfaces consistent.
func (m *Mesh) vertexFor(parents []VertID) VertID {
	key := makeVertKey(parents)
	if v, ok := m.refined[key]; ok {
		return v
	}
	var c [3]float64
	for _, p := range parents {
		pc := m.verts[p].Coord
		c[0] += pc[0]
		c[1] += pc[1]
		c[2] += pc[2]
	}
	inv := 1.0 / float64(len(parents))
	c[0], c[1], c[2] = c[0]*inv, c[1]*inv, c[2]*inv

	v := VertID(len(m.verts))
	stored := make([]VertID, len(parents))
	copy(stored, parents)
	m.verts = append(m.verts, Vertex{Coord: c, Parents: stored})
	m.refined[key] = v
	return v
}

// lookupRefined reports whether the refined vertex averaging the given
// parents already exists, without creating it.
func (m *Mesh) lookupRefined(parents ...VertID) (VertID, bool) {
	v, ok := m.refined[makeVertKey(parents)]
	return v, ok
}
