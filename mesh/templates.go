package mesh

// Refinement templates describe one isotropic subdivision of each geometry
// in terms of local node indices. The defining corners of the parent come
// first; refined nodes (edge midpoints, face centers, cell centers) follow,
// each recorded as the set of parent corners it is the average of. Children
// are vertex lists into this local node space.

type nodeDef struct {
	// Parent corner locals this node averages. A single entry means the
	// node is that corner itself.
	corners []int
}

type refineTemplate struct {
	geom     GeometryType
	nodes    []nodeDef
	children [][]int
}

var templates map[GeometryType]*refineTemplate

// ChildWeights returns the interpolation weights of one refinement of g:
// entry [c][i][k] is the weight of parent corner k in corner i of child c.
// Rows are exact for multilinear (nodal-interpolatory) bases: every child
// corner is the average of the parent corners in its provenance. Each call
// returns a fresh copy.
func ChildWeights(g GeometryType) [][][]float64 {
	t := templates[g]
	if t == nil {
		return nil
	}
	nc := g.NumVerts()
	out := make([][][]float64, len(t.children))
	for c, def := range t.children {
		rows := make([][]float64, len(def))
		for i, n := range def {
			row := make([]float64, nc)
			nd := t.nodes[n]
			w := 1.0 / float64(len(nd.corners))
			for _, k := range nd.corners {
				row[k] = w
			}
			rows[i] = row
		}
		out[c] = rows
	}
	return out
}

func init() {
	templates = map[GeometryType]*refineTemplate{
		Line: lineTemplate(),
		Tri:  triTemplate(),
		Quad: quadTemplate(),
		Tet:  tetTemplate(),
		Hex:  hexTemplate(),
	}
}

func lineTemplate() *refineTemplate {
	return &refineTemplate{
		geom: Line,
		nodes: []nodeDef{
			{[]int{0}}, {[]int{1}},
			{[]int{0, 1}},
		},
		children: [][]int{
			{0, 2},
			{2, 1},
		},
	}
}

func triTemplate() *refineTemplate {
	// Midpoints: 3=mid(0,1), 4=mid(1,2), 5=mid(2,0)
	return &refineTemplate{
		geom: Tri,
		nodes: []nodeDef{
			{[]int{0}}, {[]int{1}}, {[]int{2}},
			{[]int{0, 1}}, {[]int{1, 2}}, {[]int{2, 0}},
		},
		children: [][]int{
			{0, 3, 5},
			{3, 1, 4},
			{5, 4, 2},
			{3, 4, 5}, // inner
		},
	}
}

func quadTemplate() *refineTemplate {
	// Midpoints: 4=mid(0,1), 5=mid(1,2), 6=mid(2,3), 7=mid(3,0), 8=center
	return &refineTemplate{
		geom: Quad,
		nodes: []nodeDef{
			{[]int{0}}, {[]int{1}}, {[]int{2}}, {[]int{3}},
			{[]int{0, 1}}, {[]int{1, 2}}, {[]int{2, 3}}, {[]int{3, 0}},
			{[]int{0, 1, 2, 3}},
		},
		children: [][]int{
			{0, 4, 8, 7},
			{4, 1, 5, 8},
			{8, 5, 2, 6},
			{7, 8, 6, 3},
		},
	}
}

func tetTemplate() *refineTemplate {
	// Bey red refinement. Midpoints: 4=mid(0,1), 5=mid(0,2), 6=mid(0,3),
	// 7=mid(1,2), 8=mid(1,3), 9=mid(2,3). The four inner tets share the
	// 5-8 diagonal of the central octahedron.
	return &refineTemplate{
		geom: Tet,
		nodes: []nodeDef{
			{[]int{0}}, {[]int{1}}, {[]int{2}}, {[]int{3}},
			{[]int{0, 1}}, {[]int{0, 2}}, {[]int{0, 3}},
			{[]int{1, 2}}, {[]int{1, 3}}, {[]int{2, 3}},
		},
		children: [][]int{
			{0, 4, 5, 6},
			{4, 1, 7, 8},
			{5, 7, 2, 9},
			{6, 8, 9, 3},
			{4, 5, 6, 8},
			{4, 5, 7, 8},
			{5, 6, 8, 9},
			{5, 7, 8, 9},
		},
	}
}

func hexTemplate() *refineTemplate {
	// Generated over the 3x3x3 node grid of the trilinear subdivision.
	// Corner locals follow the hex convention: bottom 0,1,2,3 ccw, top
	// 4,5,6,7 stacked above them.
	cornerGrid := [8][3]int{
		{0, 0, 0}, {2, 0, 0}, {2, 2, 0}, {0, 2, 0},
		{0, 0, 2}, {2, 0, 2}, {2, 2, 2}, {0, 2, 2},
	}

	cornerAt := make(map[[3]int]int, 8)
	for c, g := range cornerGrid {
		cornerAt[g] = c
	}

	t := &refineTemplate{geom: Hex}
	local := make(map[[3]int]int, 27)

	// Corners first so child lists can reference parents directly.
	for c, g := range cornerGrid {
		local[g] = c
		t.nodes = append(t.nodes, nodeDef{[]int{c}})
	}

	// Remaining grid nodes: each averages the corners of the smallest
	// edge/face/cell containing it (odd coordinates span both extremes).
	for k := 0; k <= 2; k++ {
		for j := 0; j <= 2; j++ {
			for i := 0; i <= 2; i++ {
				g := [3]int{i, j, k}
				if _, ok := local[g]; ok {
					continue
				}
				var corners []int
				spans := [3][]int{axisSpan(i), axisSpan(j), axisSpan(k)}
				for _, ci := range spans[0] {
					for _, cj := range spans[1] {
						for _, ck := range spans[2] {
							corners = append(corners, cornerAt[[3]int{ci, cj, ck}])
						}
					}
				}
				local[g] = len(t.nodes)
				t.nodes = append(t.nodes, nodeDef{corners})
			}
		}
	}

	// Eight subcubes, each a properly oriented hex.
	for ck := 0; ck < 2; ck++ {
		for cj := 0; cj < 2; cj++ {
			for ci := 0; ci < 2; ci++ {
				child := []int{
					local[[3]int{ci, cj, ck}],
					local[[3]int{ci + 1, cj, ck}],
					local[[3]int{ci + 1, cj + 1, ck}],
					local[[3]int{ci, cj + 1, ck}],
					local[[3]int{ci, cj, ck + 1}],
					local[[3]int{ci + 1, cj, ck + 1}],
					local[[3]int{ci + 1, cj + 1, ck + 1}],
					local[[3]int{ci, cj + 1, ck + 1}],
				}
				t.children = append(t.children, child)
			}
		}
	}

	return t
}

func axisSpan(x int) []int {
	if x == 1 {
		return []int{0, 2}
	}
	return []int{x}
}
