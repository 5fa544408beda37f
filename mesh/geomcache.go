package mesh

import "math"

// GeomCache holds derived element geometry (measures, centroids) keyed by
// the mesh version. Any topology mutation invalidates the cache wholesale
// on the next access; entries are recomputed lazily. Components that need
// geometry own their cache instance rather than sharing global state.
type GeomCache struct {
	m       *Mesh
	version uint64
	vols    map[ElemID]float64
	cents   map[ElemID][3]float64
}

// NewGeomCache creates a cache bound to a mesh.
func NewGeomCache(m *Mesh) *GeomCache {
	return &GeomCache{
		m:     m,
		vols:  make(map[ElemID]float64),
		cents: make(map[ElemID][3]float64),
	}
}

func (c *GeomCache) refresh() {
	if c.version == c.m.Version() {
		return
	}
	c.vols = make(map[ElemID]float64)
	c.cents = make(map[ElemID][3]float64)
	c.version = c.m.Version()
}

// Volume returns the measure of an element: length in 1D, area in 2D,
// volume in 3D.
func (c *GeomCache) Volume(id ElemID) float64 {
	c.refresh()
	if v, ok := c.vols[id]; ok {
		return v
	}
	v := c.m.elemVolume(id)
	c.vols[id] = v
	return v
}

// Centroid returns the vertex average of an element.
func (c *GeomCache) Centroid(id ElemID) [3]float64 {
	c.refresh()
	if p, ok := c.cents[id]; ok {
		return p
	}
	e := &c.m.elems[id]
	var p [3]float64
	for _, v := range e.Verts {
		vc := c.m.verts[v].Coord
		p[0] += vc[0]
		p[1] += vc[1]
		p[2] += vc[2]
	}
	inv := 1.0 / float64(len(e.Verts))
	p[0], p[1], p[2] = p[0]*inv, p[1]*inv, p[2]*inv
	c.cents[id] = p
	return p
}

func (m *Mesh) elemVolume(id ElemID) float64 {
	e := &m.elems[id]
	v := func(i int) [3]float64 { return m.verts[e.Verts[i]].Coord }

	switch e.Geom {
	case Line:
		return dist(v(0), v(1))
	case Tri:
		return triArea(v(0), v(1), v(2))
	case Quad:
		return triArea(v(0), v(1), v(2)) + triArea(v(0), v(2), v(3))
	case Tet:
		return tetVolume(v(0), v(1), v(2), v(3))
	case Hex:
		// Decomposition into six tets along the 0-6 diagonal; exact for
		// hexes with planar faces.
		vol := tetVolume(v(0), v(1), v(2), v(6))
		vol += tetVolume(v(0), v(2), v(3), v(6))
		vol += tetVolume(v(0), v(3), v(7), v(6))
		vol += tetVolume(v(0), v(7), v(4), v(6))
		vol += tetVolume(v(0), v(4), v(5), v(6))
		vol += tetVolume(v(0), v(5), v(1), v(6))
		return vol
	}
	return 0
}

func dist(a, b [3]float64) float64 {
	d := [3]float64{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
	return math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
}

func triArea(a, b, c [3]float64) float64 {
	u := [3]float64{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
	w := [3]float64{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
	x := u[1]*w[2] - u[2]*w[1]
	y := u[2]*w[0] - u[0]*w[2]
	z := u[0]*w[1] - u[1]*w[0]
	return 0.5 * math.Sqrt(x*x+y*y+z*z)
}

func tetVolume(a, b, c, d [3]float64) float64 {
	u := [3]float64{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
	w := [3]float64{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
	e := [3]float64{d[0] - a[0], d[1] - a[1], d[2] - a[2]}
	det := u[0]*(w[1]*e[2]-w[2]*e[1]) - u[1]*(w[0]*e[2]-w[2]*e[0]) + u[2]*(w[0]*e[1]-w[1]*e[0])
	return math.Abs(det) / 6.0
}
