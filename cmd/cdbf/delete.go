package main

import (
	"fmt"

	"github.com/fwojciec/cdbf"
)

// Run executes the delete command.
func (c *DeleteCmd) Run(deps *Dependencies) error {
	if !c.Force {
		fmt.Fprintf(deps.Stderr, "error: use --force to confirm deletion\n")
		return cdbf.Errorf(cdbf.EINVALID, "use --force to confirm deletion")
	}

	snaps, err := deps.Snapshots.FindSnapshots(deps.Ctx, cdbf.SnapshotFilter{Name: &c.Name})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", cdbf.ErrorMessage(err))
		return err
	}

	if len(snaps) == 0 {
		fmt.Fprintf(deps.Stderr, "error: snapshot %q not found. Use 'cdbf list' to see saved snapshots.\n", c.Name)
		return cdbf.Errorf(cdbf.ENOTFOUND, "snapshot %q not found", c.Name)
	}

	for _, s := range snaps {
		if err := deps.Snapshots.DeleteSnapshot(deps.Ctx, s.ID); err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", cdbf.ErrorMessage(err))
			return err
		}
	}

	fmt.Fprintf(deps.Stdout, "Deleted %d snapshot(s) named %q\n", len(snaps), c.Name)
	return nil
}
