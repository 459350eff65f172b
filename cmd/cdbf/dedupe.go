package main

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/fwojciec/cdbf"
	"github.com/fwojciec/cdbf/clock"
	"github.com/fwojciec/cdbf/countdown"
	cdbfslog "github.com/fwojciec/cdbf/slog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// defaultExpiration applies when neither --window nor --expiration is set.
const defaultExpiration = time.Hour

// Run executes the dedupe command.
func (c *DedupeCmd) Run(deps *Dependencies) error {
	chain, indexerName, err := openChain(deps, &c.ChainFlags, c.Name)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", cdbf.ErrorMessage(err))
		return err
	}

	filter := clock.NewLocked(cdbfslog.NewLoggingFilter(chain, deps.Logger))
	maintainer := &clock.Maintainer{
		Filter:   filter,
		Interval: c.Interval,
		MaxStep:  chain.Config().Expiration,
	}

	var limiter *rate.Limiter
	if c.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.Rate), 1)
	}

	var lines, unique int
	g, ctx := errgroup.WithContext(deps.Ctx)
	maintainCtx, stopMaintainer := context.WithCancel(ctx)
	g.Go(func() error {
		return maintainer.Run(maintainCtx)
	})
	g.Go(func() error {
		defer stopMaintainer()

		out := bufio.NewWriter(deps.Stdout)
		defer out.Flush()

		scanner := bufio.NewScanner(deps.Stdin)
		for scanner.Scan() {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return err
				}
			} else if err := ctx.Err(); err != nil {
				return err
			}

			line := scanner.Bytes()
			lines++
			existing, err := filter.Insert(line)
			if err != nil {
				return err
			}
			if existing {
				continue
			}
			unique++
			if _, err := out.Write(line); err != nil {
				return err
			}
			if err := out.WriteByte('\n'); err != nil {
				return err
			}
		}
		return scanner.Err()
	})
	if err := g.Wait(); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", cdbf.ErrorMessage(err))
		return err
	}

	if c.Stats {
		fmt.Fprintf(deps.Stderr, "lines=%d unique=%d generations=%d capacity=%d count=%d estimated=%.0f\n",
			lines, unique, chain.Len(), chain.Capacity(), chain.Count(), chain.EstimatedCount())
	}

	return saveChain(deps, c.Name, indexerName, chain)
}

// openChain returns the chain to filter with: the latest snapshot called
// name, aged by the time since it was saved, or a new chain built from
// flags when name is empty or unknown.
func openChain(deps *Dependencies, flags *ChainFlags, name string) (*countdown.Chain, string, error) {
	if name != "" {
		snap, err := deps.Snapshots.FindSnapshotByName(deps.Ctx, name)
		switch {
		case err == nil:
			return restore(snap, time.Now())
		case cdbf.ErrorCode(err) != cdbf.ENOTFOUND:
			return nil, "", err
		}
	}

	cfg, err := flags.Config(defaultExpiration)
	if err != nil {
		return nil, "", err
	}
	indexer, err := newIndexer(flags.Indexer)
	if err != nil {
		return nil, "", err
	}
	chain, err := countdown.NewChain(cfg, indexer)
	if err != nil {
		return nil, "", err
	}
	return chain, flags.Indexer, nil
}

// saveChain stores chain as a new snapshot called name. An empty name
// saves nothing.
func saveChain(deps *Dependencies, name, indexerName string, chain *countdown.Chain) error {
	if name == "" {
		return nil
	}
	snap := &cdbf.Snapshot{Name: name, Indexer: indexerName, Chain: chain.State()}
	if err := deps.Snapshots.CreateSnapshot(deps.Ctx, snap); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", cdbf.ErrorMessage(err))
		return err
	}
	return nil
}

// restore rebuilds the chain in snap and applies the time that passed
// between saving it and now. Gaps longer than the chain accepts in one
// pass are clamped; the chain is fully decayed by then.
func restore(snap *cdbf.Snapshot, now time.Time) (*countdown.Chain, string, error) {
	indexer, err := newIndexer(snap.Indexer)
	if err != nil {
		return nil, "", err
	}
	chain, err := countdown.RestoreChain(snap.Chain, indexer)
	if err != nil {
		return nil, "", err
	}
	gap := min(max(now.Sub(snap.CreatedAt), 0), chain.Config().MaxElapsed())
	if err := chain.Maintain(gap); err != nil {
		return nil, "", err
	}
	return chain, snap.Indexer, nil
}
