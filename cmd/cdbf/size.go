package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fwojciec/cdbf"
)

// Run executes the size command.
func (c *SizeCmd) Run(deps *Dependencies) error {
	flags := ChainFlags{Capacity: c.Capacity, ErrorRate: c.ErrorRate, Large: c.Large}
	cfg, err := flags.Config(defaultExpiration)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", cdbf.ErrorMessage(err))
		return err
	}
	if c.Generations < 1 {
		fmt.Fprintln(deps.Stderr, "error: --generations must be at least 1")
		return cdbf.Errorf(cdbf.EINVALID, "generations must be at least 1")
	}

	w := tabwriter.NewWriter(deps.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "GEN\tCAPACITY\tERROR RATE\tSLICES\tCELLS/SLICE\tBYTES\tTOTAL CAPACITY\tTOTAL BYTES\t")

	var totalCapacity, totalBytes uint
	gen := cfg.Generation(0)
	for i := range c.Generations {
		if i > 0 {
			gen = cfg.Next(gen)
		}
		totalCapacity += gen.Capacity
		totalBytes += gen.NumBits()
		fmt.Fprintf(w, "%d\t%d\t%.6g\t%d\t%d\t%d\t%d\t%d\t\n",
			i, gen.Capacity, gen.ErrorRate, gen.NumSlices(), gen.BitsPerSlice(), gen.NumBits(),
			totalCapacity, totalBytes)
	}
	return w.Flush()
}
