package partition

import (
	"sort"

	"github.com/notargets/goamr/mesh"
)

// mortonOrder sorts leaves by the Morton (Z-order) code of their centroid,
// quantized against the bounding box of all centroids. Elements close on
// the curve are close in space, so block-splitting the order yields
// compact parts with small boundaries.
func mortonOrder(m *mesh.Mesh, leaves []mesh.ElemID) []mesh.ElemID {
	geom := mesh.NewGeomCache(m)

	lo := [3]float64{1e300, 1e300, 1e300}
	hi := [3]float64{-1e300, -1e300, -1e300}
	cents := make([][3]float64, len(leaves))
	for i, e := range leaves {
		c := geom.Centroid(e)
		cents[i] = c
		for d := 0; d < 3; d++ {
			if c[d] < lo[d] {
				lo[d] = c[d]
			}
			if c[d] > hi[d] {
				hi[d] = c[d]
			}
		}
	}

	var scale [3]float64
	for d := 0; d < 3; d++ {
		if hi[d] > lo[d] {
			scale[d] = float64(mortonRange-1) / (hi[d] - lo[d])
		}
	}

	type keyed struct {
		e    mesh.ElemID
		code uint64
	}
	codes := make([]keyed, len(leaves))
	for i, e := range leaves {
		var q [3]uint32
		for d := 0; d < 3; d++ {
			q[d] = uint32((cents[i][d] - lo[d]) * scale[d])
		}
		codes[i] = keyed{e: e, code: mortonEncode(q[0], q[1], q[2])}
	}

	sort.Slice(codes, func(i, j int) bool {
		if codes[i].code != codes[j].code {
			return codes[i].code < codes[j].code
		}
		return codes[i].e < codes[j].e
	})

	order := make([]mesh.ElemID, len(codes))
	for i, k := range codes {
		order[i] = k.e
	}
	return order
}

// 21 bits per axis interleave into 63 bits.
const mortonBits = 21
const mortonRange = 1 << mortonBits

func mortonEncode(x, y, z uint32) uint64 {
	return spread(x) | spread(y)<<1 | spread(z)<<2
}

// spread inserts two zero bits between each of the low 21 bits.
func spread(v uint32) uint64 {
	x := uint64(v) & 0x1fffff
	x = (x | x<<32) & 0x1f00000000ffff
	x = (x | x<<16) & 0x1f0000ff0000ff
	x = (x | x<<8) & 0x100f00f00f00f00f
	x = (x | x<<4) & 0x10c30c30c30c30c3
	x = (x | x<<2) & 0x1249249249249249
	return x
}
