package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fwojciec/cdbf"
)

// Run executes the list command.
func (c *ListCmd) Run(deps *Dependencies) error {
	filter := cdbf.SnapshotFilter{}
	if c.Name != "" {
		filter.Name = &c.Name
	}
	snaps, err := deps.Snapshots.FindSnapshots(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", cdbf.ErrorMessage(err))
		return err
	}

	if len(snaps) == 0 {
		fmt.Fprintln(deps.Stdout, "No snapshots found. Use 'cdbf dedupe --name' to save one.")
		return nil
	}

	w := tabwriter.NewWriter(deps.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tINDEXER\tGENERATIONS\tCOUNT\tCAPACITY\tCREATED")
	for _, s := range snaps {
		var count, capacity uint
		for _, g := range s.Chain.Generations {
			count += g.Count
			capacity += g.Config.Capacity
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			s.ID, s.Name, s.Indexer, len(s.Chain.Generations), count, capacity,
			s.CreatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}
