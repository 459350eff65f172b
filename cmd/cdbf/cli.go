package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/cdbf"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx       context.Context
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	Logger    *slog.Logger
	Snapshots cdbf.SnapshotService
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Verbose bool `short:"v" help:"Log maintenance passes and snapshot lookups"`

	Size     SizeCmd     `cmd:"" help:"Show the memory layout of a filter chain"`
	Dedupe   DedupeCmd   `cmd:"" help:"Print stdin lines not seen within the expiration window"`
	Simulate SimulateCmd `cmd:"" help:"Compare a filter chain against exact expiration on a synthetic stream"`
	Serve    ServeCmd    `cmd:"" help:"Serve a filter chain over HTTP"`
	List     ListCmd     `cmd:"" help:"List saved snapshots"`
	Delete   DeleteCmd   `cmd:"" help:"Delete saved snapshots by name"`
}

// ChainFlags configures a filter chain.
type ChainFlags struct {
	Capacity   uint          `default:"1000" help:"Capacity of the first generation"`
	ErrorRate  float64       `default:"0.001" help:"False positive rate of the first generation"`
	Window     string        `xor:"expiration" help:"Expiration as a period such as 10_Min (units: Sec, Min, Hour, Day)"`
	Expiration time.Duration `xor:"expiration" help:"Expiration as a duration such as 90s"`
	Large      bool          `help:"Grow each generation by four instead of two"`
	Indexer    string        `default:"murmur3" enum:"murmur3,xxhash" help:"Hash indexer (murmur3, xxhash)"`
}

// Config returns the chain configuration described by the flags. fallback
// is used when neither --window nor --expiration is given.
func (f *ChainFlags) Config(fallback time.Duration) (cdbf.ChainConfig, error) {
	exp := f.Expiration
	if f.Window != "" {
		d, err := cdbf.DefaultUnits().Parse(f.Window)
		if err != nil {
			return cdbf.ChainConfig{}, err
		}
		exp = d
	}
	if exp == 0 {
		exp = fallback
	}

	growth := cdbf.SmallSetGrowth
	if f.Large {
		growth = cdbf.LargeSetGrowth
	}

	cfg := cdbf.ChainConfig{
		InitialCapacity: f.Capacity,
		ErrorRate:       f.ErrorRate,
		Expiration:      exp,
		Growth:          growth,
	}
	return cfg, cfg.Validate()
}

// SizeCmd is the "size" subcommand.
type SizeCmd struct {
	Capacity    uint    `arg:"" help:"Capacity of the first generation"`
	ErrorRate   float64 `arg:"" help:"False positive rate of the first generation"`
	Generations int     `short:"g" default:"1" help:"Number of generations to show"`
	Large       bool    `help:"Grow each generation by four instead of two"`
}

// DedupeCmd is the "dedupe" subcommand.
type DedupeCmd struct {
	ChainFlags `embed:""`

	Rate     float64       `help:"Maximum lines per second, 0 for unlimited"`
	Interval time.Duration `default:"1s" help:"Time between maintenance passes"`
	Name     string        `short:"n" help:"Snapshot to restore on start and save on exit"`
	Stats    bool          `help:"Print filter statistics to stderr on exit"`
}

// SimulateCmd is the "simulate" subcommand.
type SimulateCmd struct {
	ChainFlags `embed:""`

	Events  int           `default:"100000" help:"Number of stream events"`
	Keys    int           `default:"5000" help:"Number of distinct keys in the stream"`
	Tick    time.Duration `default:"100ms" help:"Virtual time between maintenance passes"`
	PerTick int           `default:"10" help:"Events per tick"`
	Seed    uint64        `default:"1" help:"Random seed"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	ChainFlags `embed:""`

	Addr     string        `default:"127.0.0.1:7070" help:"Address to listen on"`
	Interval time.Duration `default:"1s" help:"Time between maintenance passes"`
	Name     string        `short:"n" help:"Snapshot to restore on start and save on shutdown"`
}

// ListCmd is the "list" subcommand.
type ListCmd struct {
	Name string `short:"n" help:"Only show snapshots with this name"`
}

// DeleteCmd is the "delete" subcommand.
type DeleteCmd struct {
	Name  string `arg:"" help:"Snapshot name"`
	Force bool   `help:"Confirm deletion"`
}
