package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/cdbf"
	"github.com/fwojciec/cdbf/bloom"
	cdbfslog "github.com/fwojciec/cdbf/slog"
	"github.com/fwojciec/cdbf/sqlite"
	"github.com/fwojciec/cdbf/xxhash"
)

func main() {
	ctx := context.Background()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path. Set before calling Run().
	DBPath string

	// Input for the dedupe command.
	Stdin io.Reader

	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	// Services for end-to-end testing.
	SnapshotService cdbf.SnapshotService
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
		Stdin:  os.Stdin,
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdin:  m.Stdin,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("cdbf"),
		kong.Description("Approximate \"seen recently\" filtering with countdown Bloom filters."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'cdbf --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	deps.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if needsDB(kongCtx.Command(), cli) {
		if m.SnapshotService == nil {
			m.DB = sqlite.NewDB(m.DBPath)
			if err := m.DB.Open(); err != nil {
				fmt.Fprintf(stderr, "Hint: Set CDBF_DB to use a different database path\n")
				return fmt.Errorf("failed to open database at %q: %w", m.DBPath, err)
			}
			defer m.Close()
			m.SnapshotService = sqlite.NewSnapshotService(m.DB)
		}
		deps.Snapshots = cdbfslog.NewLoggingSnapshotService(m.SnapshotService, deps.Logger)
	}

	return kongCtx.Run(deps)
}

// needsDB reports whether the parsed command reads or writes snapshots.
func needsDB(command string, cli *CLI) bool {
	switch command {
	case "list", "delete <name>":
		return true
	case "dedupe":
		return cli.Dedupe.Name != ""
	case "serve":
		return cli.Serve.Name != ""
	}
	return false
}

func defaultDBPath() string {
	if path := os.Getenv("CDBF_DB"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "cdbf.db"
	}
	dir := filepath.Join(home, ".cdbf")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "cdbf.db")
}

// newIndexer returns the indexer registered under name.
func newIndexer(name string) (cdbf.Indexer, error) {
	switch name {
	case bloom.Name:
		return bloom.NewIndexer(), nil
	case xxhash.Name:
		return xxhash.NewIndexer(), nil
	}
	return nil, cdbf.Errorf(cdbf.EINVALID, "unknown indexer %q", name)
}
