package mesh

// GeometryType identifies the shape of an element
type GeometryType uint8

const (
	// 3D element types
	Tet GeometryType = iota // Tetrahedron
	Hex                     // Hexahedron

	// 2D element types
	Tri  // Triangle
	Quad // Quadrilateral

	// 1D element type
	Line // Line segment
)

func (g GeometryType) String() string {
	switch g {
	case Tet:
		return "Tet"
	case Hex:
		return "Hex"
	case Tri:
		return "Tri"
	case Quad:
		return "Quad"
	case Line:
		return "Line"
	}
	return "Unknown"
}

// NumVerts returns the number of defining vertices for the geometry
func (g GeometryType) NumVerts() int {
	switch g {
	case Tet:
		return 4
	case Hex:
		return 8
	case Tri:
		return 3
	case Quad:
		return 4
	case Line:
		return 2
	}
	return 0
}

// NumChildren returns the number of children produced by one
// isotropic refinement of the geometry
func (g GeometryType) NumChildren() int {
	switch g {
	case Tet, Hex:
		return 8
	case Tri, Quad:
		return 4
	case Line:
		return 2
	}
	return 0
}

// Dim returns the topological dimension
func (g GeometryType) Dim() int {
	switch g {
	case Tet, Hex:
		return 3
	case Tri, Quad:
		return 2
	case Line:
		return 1
	}
	return 0
}

// Edges returns the local vertex pairs forming each edge of the geometry.
// 1D elements have no edges in this sense; their interfaces are vertices.
func (g GeometryType) Edges() [][2]int {
	switch g {
	case Tri:
		return [][2]int{{0, 1}, {1, 2}, {2, 0}}
	case Quad:
		return [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}}
	case Tet:
		return [][2]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}
	case Hex:
		return [][2]int{
			{0, 1}, {1, 2}, {2, 3}, {3, 0},
			{4, 5}, {5, 6}, {6, 7}, {7, 4},
			{0, 4}, {1, 5}, {2, 6}, {3, 7},
		}
	}
	return nil
}

// TriFaces returns the local vertex triples forming each triangular face.
// Only tetrahedra have them.
func (g GeometryType) TriFaces() [][3]int {
	if g != Tet {
		return nil
	}
	return [][3]int{{0, 1, 2}, {0, 1, 3}, {1, 2, 3}, {0, 2, 3}}
}

// QuadFaces returns the local vertex quadruples forming each quadrilateral
// face. Only hexahedra have them.
func (g GeometryType) QuadFaces() [][4]int {
	if g != Hex {
		return nil
	}
	return [][4]int{
		{0, 1, 2, 3}, {4, 5, 6, 7},
		{0, 1, 5, 4}, {1, 2, 6, 5},
		{2, 3, 7, 6}, {3, 0, 4, 7},
	}
}

// Interfaces returns the codimension-1 entities of the geometry as local
// vertex index lists: vertices in 1D, edges in 2D, faces in 3D.
func (g GeometryType) Interfaces() [][]int {
	switch g {
	case Line:
		return [][]int{{0}, {1}}
	case Tri, Quad:
		edges := g.Edges()
		out := make([][]int, len(edges))
		for i, e := range edges {
			out[i] = []int{e[0], e[1]}
		}
		return out
	case Tet:
		faces := g.TriFaces()
		out := make([][]int, len(faces))
		for i, f := range faces {
			out[i] = []int{f[0], f[1], f[2]}
		}
		return out
	case Hex:
		faces := g.QuadFaces()
		out := make([][]int, len(faces))
		for i, f := range faces {
			out[i] = []int{f[0], f[1], f[2], f[3]}
		}
		return out
	}
	return nil
}
