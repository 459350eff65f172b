package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fwojciec/cdbf"
	"github.com/fwojciec/cdbf/clock"
	cdbfhttp "github.com/fwojciec/cdbf/http"
	cdbfslog "github.com/fwojciec/cdbf/slog"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds the wait for in-flight requests on shutdown.
const shutdownTimeout = 5 * time.Second

// Run executes the serve command.
func (c *ServeCmd) Run(deps *Dependencies) error {
	ctx, stop := signal.NotifyContext(deps.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	ln, err := net.Listen("tcp", c.Addr)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", err)
		return err
	}
	srv := &http.Server{
		Handler:           cdbfhttp.NewServer(filter, deps.Logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	deps.Logger.Info("listening", "addr", ln.Addr().String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return maintainer.Run(gctx)
	})
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", cdbf.ErrorMessage(err))
		return err
	}

	return saveChain(deps, c.Name, indexerName, chain)
}
