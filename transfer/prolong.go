package transfer

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/goamr/mesh"
)

// cornerRef locates the child corner that coincides with a parent corner.
type cornerRef struct {
	child  int
	corner int
}

// prolongOp holds the per-child prolongation matrices of one geometry and
// the coincidence map used for nodal restriction. Rows are exact for
// multilinear bases, so prolong-then-restrict is the identity.
type prolongOp struct {
	children []*mat.Dense
	sources  []cornerRef // indexed by parent corner
}

var prolongOps = map[mesh.GeometryType]*prolongOp{}

func init() {
	for _, g := range []mesh.GeometryType{mesh.Line, mesh.Tri, mesh.Quad, mesh.Tet, mesh.Hex} {
		prolongOps[g] = buildProlongOp(g)
	}
}

func buildProlongOp(g mesh.GeometryType) *prolongOp {
	weights := mesh.ChildWeights(g)
	nv := g.NumVerts()

	op := &prolongOp{sources: make([]cornerRef, nv)}
	located := make([]bool, nv)

	for c, rows := range weights {
		data := make([]float64, 0, len(rows)*nv)
		for i, row := range rows {
			data = append(data, row...)

			// A row that is a unit vector at parent corner k means
			// this child corner coincides with it.
			for k, w := range row {
				if w == 1.0 && !located[k] {
					op.sources[k] = cornerRef{child: c, corner: i}
					located[k] = true
				}
			}
		}
		op.children = append(op.children, mat.NewDense(len(rows), nv, data))
	}

	for k, ok := range located {
		if !ok {
			panic(fmt.Sprintf("geometry %v: parent corner %d not present in any child", g, k))
		}
	}
	return op
}

// Prolong transfers the field onto the children of every split in the
// report by applying the prolongation operator of the parent geometry,
// then drops the parent values. Exact for nodal-interpolatory data.
func (f *NodalField) Prolong(rep *mesh.RefineReport) error {
	for _, sp := range rep.Splits {
		pv := f.vals[sp.Parent]
		if pv == nil {
			return fmt.Errorf("prolong: no values on parent element %d", sp.Parent)
		}
		op := prolongOps[f.m.Elem(sp.Parent).Geom]
		vin := mat.NewVecDense(len(pv), pv)

		for ci, child := range sp.Children {
			p := op.children[ci]
			var out mat.VecDense
			out.MulVec(p, vin)
			f.vals[child] = append([]float64(nil), out.RawVector().Data...)
		}
		delete(f.vals, sp.Parent)
	}
	return nil
}

// Restrict transfers the field onto the parents of every merge in the
// report by reading the coinciding child corner for each parent corner,
// then drops the child values. Inverse of Prolong on unchanged data.
func (f *NodalField) Restrict(rep *mesh.DerefineReport) error {
	for _, mg := range rep.Merges {
		geom := f.m.Elem(mg.Parent).Geom
		op := prolongOps[geom]

		pv := make([]float64, geom.NumVerts())
		for k, src := range op.sources {
			cv := f.vals[mg.Children[src.child]]
			if cv == nil {
				return fmt.Errorf("restrict: no values on child element %d", mg.Children[src.child])
			}
			pv[k] = cv[src.corner]
		}
		for _, c := range mg.Children {
			delete(f.vals, c)
		}
		f.vals[mg.Parent] = pv
	}
	return nil
}

// Prolong copies the parent density to every child: the per-volume
// density is unchanged by splitting, so the integral is conserved.
func (f *ElementField) Prolong(rep *mesh.RefineReport) error {
	for _, sp := range rep.Splits {
		v, ok := f.vals[sp.Parent]
		if !ok {
			return fmt.Errorf("prolong: no value on parent element %d", sp.Parent)
		}
		for _, c := range sp.Children {
			f.vals[c] = v
		}
		delete(f.vals, sp.Parent)
	}
	return nil
}

// Restrict replaces each merged group by the volume-weighted average of
// the children, conserving the integral.
func (f *ElementField) Restrict(rep *mesh.DerefineReport) error {
	for _, mg := range rep.Merges {
		sum, vol := 0.0, 0.0
		for _, c := range mg.Children {
			v, ok := f.vals[c]
			if !ok {
				return fmt.Errorf("restrict: no value on child element %d", c)
			}
			cv := f.geom.Volume(c)
			sum += v * cv
			vol += cv
			delete(f.vals, c)
		}
		if vol == 0 {
			return fmt.Errorf("restrict: zero total volume for group %d", mg.Parent)
		}
		f.vals[mg.Parent] = sum / vol
	}
	return nil
}
