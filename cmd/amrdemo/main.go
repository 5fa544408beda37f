// Package main provides the amrdemo CLI: a moving-front adaptation demo
// that drives the refinement loop over a Cartesian mesh and prints the
// mesh and partition evolution per outer step.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/goamr/amr"
	"github.com/notargets/goamr/mesh"
	"github.com/notargets/goamr/partition"
	"github.com/notargets/goamr/transfer"
)

const (
	cfgKeyMaxErr     = "max_err"
	cfgKeyHysteresis = "hysteresis"
	cfgKeyNCLimit    = "nc_limit"
	cfgKeyNumParts   = "nparts"
	cfgKeyStrategy   = "strategy"
	cfgKeyOuter      = "outer"
	cfgKeyDim        = "dim"
	cfgKeyGridN      = "n"
)

var v = viper.New()

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "amrdemo",
	Short: "Adapt a mesh to a moving spherical front",
	Long: `amrdemo projects an expanding spherical front onto a Cartesian mesh
and runs outer adaptation steps: refine where the front is under-resolved,
derefine behind it, rebalancing the partition after every change.`,
	RunE: runDemo,
}

func init() {
	f := rootCmd.Flags()
	f.Float64("max-err", 1e-4, "refine elements whose error exceeds this")
	f.Float64("hysteresis", 0.25, "derefinement threshold as a fraction of max-err")
	f.Int("nc-limit", 3, "maximum hanging-node depth (0 = unlimited)")
	f.Int("nparts", 4, "number of partitions")
	f.String("strategy", "sfc", "partition strategy: block, roundrobin, sfc, graph")
	f.Int("outer", 10, "number of outer adaptation steps")
	f.Int("dim", 2, "mesh dimension (2 or 3)")
	f.Int("n", 8, "initial Cartesian grid resolution per axis")

	must(v.BindPFlag(cfgKeyMaxErr, f.Lookup("max-err")))
	must(v.BindPFlag(cfgKeyHysteresis, f.Lookup("hysteresis")))
	must(v.BindPFlag(cfgKeyNCLimit, f.Lookup("nc-limit")))
	must(v.BindPFlag(cfgKeyNumParts, f.Lookup("nparts")))
	must(v.BindPFlag(cfgKeyStrategy, f.Lookup("strategy")))
	must(v.BindPFlag(cfgKeyOuter, f.Lookup("outer")))
	must(v.BindPFlag(cfgKeyDim, f.Lookup("dim")))
	must(v.BindPFlag(cfgKeyGridN, f.Lookup("n")))

	v.SetConfigName("amrdemo")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func parseStrategy(s string) (partition.Strategy, error) {
	switch s {
	case "block":
		return partition.Block, nil
	case "roundrobin":
		return partition.RoundRobin, nil
	case "sfc":
		return partition.SpaceFillingCurve, nil
	case "graph":
		return partition.GraphGrowth, nil
	}
	return 0, fmt.Errorf("unknown partition strategy %q", s)
}

func runDemo(cmd *cobra.Command, args []string) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}

	cfg := amr.Config{
		MaxElemError: v.GetFloat64(cfgKeyMaxErr),
		Hysteresis:   v.GetFloat64(cfgKeyHysteresis),
		NCLimit:      v.GetInt(cfgKeyNCLimit),
	}
	strategy, err := parseStrategy(v.GetString(cfgKeyStrategy))
	if err != nil {
		return err
	}

	n := v.GetInt(cfgKeyGridN)
	var (
		m       *mesh.Mesh
		meshErr error
	)
	switch v.GetInt(cfgKeyDim) {
	case 2:
		m, meshErr = mesh.NewCartesian2D(n, n)
	case 3:
		m, meshErr = mesh.NewCartesian3D(n, n, n)
	default:
		return fmt.Errorf("dim must be 2 or 3, got %d", v.GetInt(cfgKeyDim))
	}
	if meshErr != nil {
		return meshErr
	}

	prob := newFrontProblem(v.GetInt(cfgKeyDim))
	u := transfer.NewNodalField(m, prob.exact)

	loop, err := amr.NewLoop(cfg, m, u, prob.solve, amr.EstimatorFunc(prob.estimate),
		v.GetInt(cfgKeyNumParts), strategy)
	if err != nil {
		return err
	}

	fmt.Printf("initial mesh: %d leaves, %d parts, strategy %s\n",
		m.NumLeaves(), loop.NumParts, strategy)

	outer := v.GetInt(cfgKeyOuter)
	for step := 0; step < outer; step++ {
		prob.advance()
		rep, err := loop.Step()
		if err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
		stats := loop.Layout.Statistics()
		fmt.Printf("step %2d  t=%.3f  leaves=%-6d refined=%-5d derefined=%-4d "+
			"inner=%d  err=%.3e  imbalance=%.3f\n",
			step, prob.t, rep.Leaves, rep.Refined, rep.Derefined,
			rep.InnerIterations, rep.TotalError, stats.Imbalance)
	}

	fmt.Printf("final mesh: %d leaves, max level %d, conforming=%v\n",
		m.NumLeaves(), m.MaxLevel(), m.Conforming())
	return nil
}
