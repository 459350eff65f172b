package main

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/fwojciec/cdbf"
	"github.com/fwojciec/cdbf/countdown"
	cdbfslog "github.com/fwojciec/cdbf/slog"
	"github.com/fwojciec/cdbf/ttl"
)

// defaultSimulatedExpiration applies to simulations when neither --window
// nor --expiration is set.
const defaultSimulatedExpiration = 10 * time.Second

// SimulationResult summarizes a simulated stream.
type SimulationResult struct {
	Events         int
	Fresh          int // events whose key had not been seen within the expiration
	FalsePositives int // fresh keys reported as seen
	FalseNegatives int // repeated keys reported as fresh
	Generations    int
	Capacity       uint
	Count          uint
	Estimated      float64
	Live           uint // keys held by the exact filter at the end
}

// Run executes the simulate command.
func (c *SimulateCmd) Run(deps *Dependencies) error {
	res, err := c.simulate(deps)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", cdbf.ErrorMessage(err))
		return err
	}

	w := tabwriter.NewWriter(deps.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "events\t%d\n", res.Events)
	fmt.Fprintf(w, "fresh\t%d\n", res.Fresh)
	fmt.Fprintf(w, "false positives\t%d\t(%s of fresh)\n", res.FalsePositives, percent(res.FalsePositives, res.Fresh))
	fmt.Fprintf(w, "false negatives\t%d\t(%s of repeats)\n", res.FalseNegatives, percent(res.FalseNegatives, res.Events-res.Fresh))
	fmt.Fprintf(w, "generations\t%d\n", res.Generations)
	fmt.Fprintf(w, "capacity\t%d\n", res.Capacity)
	fmt.Fprintf(w, "count\t%d\n", res.Count)
	fmt.Fprintf(w, "estimated\t%.0f\t(exact %d)\n", res.Estimated, res.Live)
	return w.Flush()
}

// simulate streams keys drawn uniformly from c.Keys distinct values through
// a chain and an exact filter sharing one virtual clock.
func (c *SimulateCmd) simulate(deps *Dependencies) (SimulationResult, error) {
	var res SimulationResult
	if c.Events < 0 || c.Keys < 1 || c.PerTick < 1 || c.Tick <= 0 {
		return res, cdbf.Errorf(cdbf.EINVALID, "events, keys, per-tick and tick must be positive")
	}

	cfg, err := c.Config(defaultSimulatedExpiration)
	if err != nil {
		return res, err
	}
	if c.Tick > cfg.MaxElapsed() {
		return res, cdbf.Errorf(cdbf.EINVALID, "tick %s exceeds maximum %s", c.Tick, cfg.MaxElapsed())
	}
	indexer, err := newIndexer(c.Indexer)
	if err != nil {
		return res, err
	}
	chain, err := countdown.NewChain(cfg, indexer)
	if err != nil {
		return res, err
	}
	exact, err := ttl.NewFilter(cfg.Expiration)
	if err != nil {
		return res, err
	}

	filter := cdbfslog.NewLoggingFilter(chain, deps.Logger)
	rng := rand.New(rand.NewPCG(c.Seed, c.Seed))
	var key []byte
	for i := range c.Events {
		if i > 0 && i%c.PerTick == 0 {
			if err := filter.Maintain(c.Tick); err != nil {
				return res, err
			}
			if err := exact.Maintain(c.Tick); err != nil {
				return res, err
			}
		}

		key = strconv.AppendInt(key[:0], int64(rng.IntN(c.Keys)), 10)
		seen, err := exact.Insert(key)
		if err != nil {
			return res, err
		}
		existing, err := filter.Insert(key)
		if err != nil {
			return res, err
		}

		res.Events++
		if !seen {
			res.Fresh++
		}
		switch {
		case existing && !seen:
			res.FalsePositives++
		case !existing && seen:
			res.FalseNegatives++
		}
	}

	res.Generations = chain.Len()
	res.Capacity = chain.Capacity()
	res.Count = chain.Count()
	res.Estimated = chain.EstimatedCount()
	res.Live = exact.Count()
	return res, nil
}

func percent(n, total int) string {
	if total == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.3f%%", 100*float64(n)/float64(total))
}
