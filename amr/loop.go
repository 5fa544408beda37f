package amr

import (
	"fmt"
	"sync"

	"github.com/notargets/goamr/comm"
	"github.com/notargets/goamr/mesh"
	"github.com/notargets/goamr/partition"
	"github.com/notargets/goamr/transfer"
)

// SolveFunc recomputes the solution on the current mesh. The field has
// already been transferred from the previous mesh, so implementations may
// use it as an initial guess or overwrite it entirely.
type SolveFunc func(m *mesh.Mesh, u *transfer.NodalField) error

// Loop runs outer AMR iterations over a mesh, a nodal solution field and
// a partition layout. Each Step refines until no element exceeds the
// error threshold, then attempts one round of derefinement, rebalancing
// the layout after every mesh mutation.
//
// The loop carries one shard of per-element field data per logical rank.
// Refinement and derefinement mutate shards locally on the owning rank;
// every rebalance moves shard blocks between ranks with the migration
// plan and refreshes the ghost copies, so the communication path runs on
// every mutation, not just the topology bookkeeping.
type Loop struct {
	Cfg      Config
	Mesh     *mesh.Mesh
	U        *transfer.NodalField
	Solve    SolveFunc
	Est      Estimator
	NumParts int
	Strategy partition.Strategy

	// MaxInner caps refinement passes within one Step; 0 means iterate
	// until no element is flagged.
	MaxInner int

	Layout *partition.Layout
	Ghosts *partition.GhostLayer

	// Group connects the logical ranks; Shards[r] holds rank r's owned
	// element blocks and GhostData[r] its received ghost copies.
	Group     *comm.Group
	Shards    []map[mesh.ElemID][]float64
	GhostData []map[mesh.ElemID][]float64
}

// StepReport summarizes one outer AMR iteration.
type StepReport struct {
	InnerIterations int
	TotalError      float64 // allreduced sum of indicators at the last estimate
	Refined         int     // elements split, cascades included
	Derefined       int     // sibling groups merged
	Rebalances      int
	Leaves          int
	Imbalance       float64
}

// NewLoop validates the configuration and builds the initial layout,
// ghost layer and rank shards.
func NewLoop(cfg Config, m *mesh.Mesh, u *transfer.NodalField, solve SolveFunc, est Estimator, nparts int, strategy partition.Strategy) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("loop requires a solution field")
	}
	if solve == nil || est == nil {
		return nil, fmt.Errorf("loop requires a solver and an estimator")
	}
	layout, err := partition.NewLayout(m, nparts, strategy)
	if err != nil {
		return nil, fmt.Errorf("initial partition: %w", err)
	}
	ghosts := partition.BuildGhostLayer(m, layout)
	if err := ghosts.Validate(layout); err != nil {
		return nil, err
	}

	l := &Loop{
		Cfg:      cfg,
		Mesh:     m,
		U:        u,
		Solve:    solve,
		Est:      est,
		NumParts: nparts,
		Strategy: strategy,
		Layout:   layout,
		Ghosts:   ghosts,
		Group:    comm.NewGroup(nparts),
	}
	l.Shards = make([]map[mesh.ElemID][]float64, nparts)
	for r := 0; r < nparts; r++ {
		l.Shards[r] = make(map[mesh.ElemID][]float64)
		for _, e := range layout.Parts[r] {
			l.Shards[r][e] = append([]float64(nil), u.Values(e)...)
		}
	}
	if err := l.exchangeGhostData(); err != nil {
		return nil, err
	}
	return l, nil
}

// Step performs one outer AMR iteration: solve and estimate, refine until
// every indicator is at or below the threshold, then derefine sibling
// groups whose combined error dropped below the hysteresis threshold.
// Partition errors are fatal; the caller should not continue after one.
func (l *Loop) Step() (*StepReport, error) {
	rep := &StepReport{}

	var errs []float64
	for it := 1; ; it++ {
		rep.InnerIterations = it

		if err := l.Solve(l.Mesh, l.U); err != nil {
			return rep, fmt.Errorf("solve: %w", err)
		}
		var err error
		errs, err = l.Est.Estimate(l.Mesh, l.U)
		if err != nil {
			return rep, fmt.Errorf("estimate: %w", err)
		}
		rep.TotalError = l.reduceTotal(errs)

		flags, any, err := l.Cfg.FlagForRefinement(l.Mesh, errs)
		if err != nil {
			return rep, err
		}
		if !any {
			break
		}
		if l.MaxInner > 0 && it >= l.MaxInner {
			break
		}

		rref, err := l.Mesh.Refine(flags, l.Cfg.NCLimit)
		if err != nil {
			return rep, fmt.Errorf("refine: %w", err)
		}
		rep.Refined += len(rref.Splits)
		if err := l.U.Prolong(rref); err != nil {
			return rep, fmt.Errorf("prolong: %w", err)
		}
		if err := l.U.ApplyConstraints(); err != nil {
			return rep, err
		}
		l.applySplits(rref)
		if err := l.rebalance(rep); err != nil {
			return rep, err
		}
	}

	// errs is still aligned with the leaves: the loop above exits only
	// when the last estimate produced no flags, before any mutation.
	cands, err := l.Cfg.FlagForDerefinement(l.Mesh, errs)
	if err != nil {
		return rep, err
	}
	if len(cands) > 0 {
		drep, err := l.Mesh.Derefine(cands)
		if err != nil {
			return rep, fmt.Errorf("derefine: %w", err)
		}
		if drep.Occurred() {
			rep.Derefined = len(drep.Merges)
			if err := l.U.Restrict(drep); err != nil {
				return rep, fmt.Errorf("restrict: %w", err)
			}
			if err := l.U.ApplyConstraints(); err != nil {
				return rep, err
			}
			l.applyMerges(drep)
			if err := l.rebalance(rep); err != nil {
				return rep, err
			}
		}
	}

	rep.Leaves = l.Mesh.NumLeaves()
	rep.Imbalance = l.Layout.Statistics().Imbalance
	return rep, nil
}

func (l *Loop) rebalance(rep *StepReport) error {
	layout, plan, err := partition.Rebalance(l.Mesh, l.Layout, l.NumParts, l.Strategy)
	if err != nil {
		return fmt.Errorf("rebalance: %w", err)
	}

	// Refresh owned blocks from the field, then move them with the plan.
	l.syncShards()
	if err := l.eachRank(func(rank int) error {
		return transfer.Redistribute(l.Group, rank, l.Shards[rank], plan)
	}); err != nil {
		return fmt.Errorf("redistribute: %w", err)
	}

	ghosts := partition.BuildGhostLayer(l.Mesh, layout)
	if err := ghosts.Validate(layout); err != nil {
		return err
	}
	l.Layout, l.Ghosts = layout, ghosts
	if err := l.exchangeGhostData(); err != nil {
		return err
	}
	rep.Rebalances++
	return nil
}

// reduceTotal sums the indicators of each rank's owned leaves and
// allreduces the partial sums across the group.
func (l *Loop) reduceTotal(errs []float64) float64 {
	leaves := l.Mesh.Leaves()
	partial := make([]float64, l.NumParts)
	for i, e := range leaves {
		if r := l.Layout.PartOf(e); r >= 0 {
			partial[r] += errs[i]
		}
	}

	totals := make([]float64, l.NumParts)
	var wg sync.WaitGroup
	for r := 0; r < l.NumParts; r++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			totals[rank] = l.Group.AllreduceSum(rank, partial[rank])
		}(r)
	}
	wg.Wait()
	return totals[0]
}

// applySplits replays a refinement on the shards: the rank holding the
// parent block replaces it with the children's, a local operation on the
// owning rank like refinement itself.
func (l *Loop) applySplits(rep *mesh.RefineReport) {
	for _, sp := range rep.Splits {
		r := l.shardOwner(sp.Parent)
		if r < 0 {
			continue
		}
		delete(l.Shards[r], sp.Parent)
		for _, c := range sp.Children {
			l.Shards[r][c] = append([]float64(nil), l.U.Values(c)...)
		}
	}
}

// applyMerges replays a derefinement on the shards: every child block is
// dropped where it lives and the restricted parent block lands on the
// rank owning the lowest-handle child, the same rank the next migration
// plan resolves the parent's data to.
func (l *Loop) applyMerges(rep *mesh.DerefineReport) {
	for _, mg := range rep.Merges {
		home := l.Layout.PartOf(mg.Children[0])
		for _, c := range mg.Children {
			if r := l.Layout.PartOf(c); r >= 0 {
				delete(l.Shards[r], c)
			}
		}
		if home < 0 {
			continue
		}
		l.Shards[home][mg.Parent] = append([]float64(nil), l.U.Values(mg.Parent)...)
	}
}

// shardOwner resolves which rank currently holds an element's block: its
// own layout entry, or the nearest ancestor's for elements created after
// the layout was built (cascade splits within one refine call).
func (l *Loop) shardOwner(e mesh.ElemID) int {
	for id := e; id != mesh.NoElem; id = l.Mesh.Elem(id).Parent {
		if r := l.Layout.PartOf(id); r >= 0 {
			return r
		}
	}
	return -1
}

// syncShards refreshes every owned block from the field; membership is
// maintained by applySplits/applyMerges and Redistribute.
func (l *Loop) syncShards() {
	for r := range l.Shards {
		for e := range l.Shards[r] {
			l.Shards[r][e] = append([]float64(nil), l.U.Values(e)...)
		}
	}
}

// exchangeGhostData runs the collective ghost exchange against the
// current layer and stores each rank's received copies.
func (l *Loop) exchangeGhostData() error {
	data := make([]map[mesh.ElemID][]float64, l.NumParts)
	if err := l.eachRank(func(rank int) error {
		got, err := transfer.ExchangeGhosts(l.Group, rank, l.Shards[rank], l.Ghosts)
		data[rank] = got
		return err
	}); err != nil {
		return fmt.Errorf("ghost exchange: %w", err)
	}
	l.GhostData = data
	return nil
}

// eachRank runs a collective body once per rank and returns the first
// rank error.
func (l *Loop) eachRank(body func(rank int) error) error {
	errs := make([]error, l.NumParts)
	var wg sync.WaitGroup
	for r := 0; r < l.NumParts; r++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			errs[rank] = body(rank)
		}(r)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
