package transfer

import (
	"fmt"

	"github.com/notargets/goamr/comm"
	"github.com/notargets/goamr/mesh"
	"github.com/notargets/goamr/partition"
)

// Redistribute moves per-element value blocks between rank-local stores
// following a migration plan. Pure data movement: no interpolation. Every
// rank of the group must call it with the same plan (collective). Moves
// with From == -1 (initial distribution, data not yet resident anywhere)
// are skipped.
func Redistribute(g *comm.Group, rank int, local map[mesh.ElemID][]float64, plan *partition.MigrationPlan) error {
	outI := make([][]int, g.Size())
	outF := make([][]float64, g.Size())

	for _, mv := range plan.Moves {
		if mv.From != rank {
			continue
		}
		blk, ok := local[mv.Elem]
		if !ok {
			return fmt.Errorf("redistribute: rank %d has no data for element %d", rank, mv.Elem)
		}
		outI[mv.To] = append(outI[mv.To], int(mv.Elem), len(blk))
		outF[mv.To] = append(outF[mv.To], blk...)
		delete(local, mv.Elem)
	}

	inI := g.AlltoallInt(rank, outI)
	inF := g.AlltoallFloat64(rank, outF)

	for src := range inI {
		off := 0
		for i := 0; i+1 < len(inI[src]); i += 2 {
			e := mesh.ElemID(inI[src][i])
			n := inI[src][i+1]
			local[e] = append([]float64(nil), inF[src][off:off+n]...)
			off += n
		}
	}
	return nil
}

// ExchangeGhosts collectively fills each rank's ghost copies: every owned
// element block listed in the layer's send lists is delivered to the
// ranks that ghost it. Returns the received ghost blocks.
func ExchangeGhosts(g *comm.Group, rank int, local map[mesh.ElemID][]float64, gl *partition.GhostLayer) (map[mesh.ElemID][]float64, error) {
	outI := make([][]int, g.Size())
	outF := make([][]float64, g.Size())

	for q := 0; q < g.Size(); q++ {
		for _, e := range gl.Sends[rank][q] {
			blk, ok := local[e]
			if !ok {
				return nil, fmt.Errorf("ghost exchange: rank %d has no data for owned element %d", rank, e)
			}
			outI[q] = append(outI[q], int(e), len(blk))
			outF[q] = append(outF[q], blk...)
		}
	}

	inI := g.AlltoallInt(rank, outI)
	inF := g.AlltoallFloat64(rank, outF)

	ghosts := make(map[mesh.ElemID][]float64)
	for src := range inI {
		off := 0
		for i := 0; i+1 < len(inI[src]); i += 2 {
			e := mesh.ElemID(inI[src][i])
			n := inI[src][i+1]
			ghosts[e] = append([]float64(nil), inF[src][off:off+n]...)
			off += n
		}
	}
	return ghosts, nil
}
