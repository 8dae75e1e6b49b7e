package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Ratio1/bbc_cart_go/pkg/cartapi"
)

const shutdownTimeout = 5 * time.Second

func serveCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the cart HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address (default BBC_HTTP_ADDR or :8080)"},
		},
		Action: func(c *cli.Context) error {
			addr := s.cfg.HTTPAddr
			if c.IsSet("addr") {
				addr = c.String("addr")
			}
			return serve(c.Context, s, addr)
		},
	}
}

func serve(parent context.Context, s *session, addr string) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           cartapi.Router(s.store, s.flow, s.log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.WithField("addr", addr).WithField("mode", s.mode).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
