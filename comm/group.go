// Package comm provides synchronous collective communication between
// logical ranks running in one process, one task per rank. Every
// operation is a collective: no rank proceeds until all ranks have posted
// their contribution. There is no cancellation or timeout concept; a rank
// that never arrives at a collective stalls the group, which is treated
// as an operational concern, not an error path.
package comm

import "sync"

// Group is a set of logical ranks with collective operations. All methods
// must be called by every rank of the group, with the caller's rank id.
type Group struct {
	n int

	bar *barrier

	sums  []float64
	maxes []int
	ints  []int
	f64s  [][]float64
	allF  [][][]float64 // [src][dst]
	allI  [][][]int
}

// NewGroup creates a group of n ranks.
func NewGroup(n int) *Group {
	if n < 1 {
		panic("comm: group size must be at least 1")
	}
	g := &Group{
		n:     n,
		bar:   newBarrier(n),
		sums:  make([]float64, n),
		maxes: make([]int, n),
		ints:  make([]int, n),
		f64s:  make([][]float64, n),
		allF:  make([][][]float64, n),
		allI:  make([][][]int, n),
	}
	for i := 0; i < n; i++ {
		g.allF[i] = make([][]float64, n)
		g.allI[i] = make([][]int, n)
	}
	return g
}

// Self returns a single-rank group, for serial execution.
func Self() *Group { return NewGroup(1) }

// Size returns the number of ranks.
func (g *Group) Size() int { return g.n }

// Barrier blocks until every rank has entered it.
func (g *Group) Barrier(rank int) { g.bar.wait() }

// AllreduceSum returns the sum of every rank's contribution.
func (g *Group) AllreduceSum(rank int, x float64) float64 {
	g.sums[rank] = x
	g.bar.wait()
	total := 0.0
	for _, v := range g.sums {
		total += v
	}
	g.bar.wait()
	return total
}

// AllreduceMaxInt returns the maximum of every rank's contribution.
func (g *Group) AllreduceMaxInt(rank int, x int) int {
	g.maxes[rank] = x
	g.bar.wait()
	max := g.maxes[0]
	for _, v := range g.maxes[1:] {
		if v > max {
			max = v
		}
	}
	g.bar.wait()
	return max
}

// AllgatherInt returns every rank's contribution, indexed by rank.
func (g *Group) AllgatherInt(rank int, x int) []int {
	g.ints[rank] = x
	g.bar.wait()
	out := make([]int, g.n)
	copy(out, g.ints)
	g.bar.wait()
	return out
}

// AllgatherFloat64 concatenates every rank's (variable-length) slice in
// rank order. Contributed slices must not be mutated during the call.
func (g *Group) AllgatherFloat64(rank int, x []float64) [][]float64 {
	g.f64s[rank] = x
	g.bar.wait()
	out := make([][]float64, g.n)
	copy(out, g.f64s)
	g.bar.wait()
	return out
}

// AlltoallFloat64 delivers out[q] from this rank to rank q and returns
// what every rank addressed to this one, indexed by source rank. Nil
// entries mean no traffic for that pair.
func (g *Group) AlltoallFloat64(rank int, out [][]float64) [][]float64 {
	if len(out) != g.n {
		panic("comm: alltoall buffer count must equal group size")
	}
	for q := 0; q < g.n; q++ {
		g.allF[rank][q] = out[q]
	}
	g.bar.wait()
	in := make([][]float64, g.n)
	for p := 0; p < g.n; p++ {
		in[p] = g.allF[p][rank]
	}
	g.bar.wait()
	return in
}

// AlltoallInt is AlltoallFloat64 for integer payloads.
func (g *Group) AlltoallInt(rank int, out [][]int) [][]int {
	if len(out) != g.n {
		panic("comm: alltoall buffer count must equal group size")
	}
	for q := 0; q < g.n; q++ {
		g.allI[rank][q] = out[q]
	}
	g.bar.wait()
	in := make([][]int, g.n)
	for p := 0; p < g.n; p++ {
		in[p] = g.allI[p][rank]
	}
	g.bar.wait()
	return in
}

// barrier is a reusable synchronization point for n participants.
type barrier struct {
	mu    sync.Mutex
	cond  *sync.Cond
	n     int
	count int
	gen   uint64
}

func newBarrier(n int) *barrier {
	b := &barrier{n: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *barrier) wait() {
	b.mu.Lock()
	gen := b.gen
	b.count++
	if b.count == b.n {
		b.count = 0
		b.gen++
		b.cond.Broadcast()
		b.mu.Unlock()
		return
	}
	for b.gen == gen {
		b.cond.Wait()
	}
	b.mu.Unlock()
}
