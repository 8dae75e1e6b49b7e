// Command cart-sandbox serves an in-memory key-value store over the CStore
// HTTP API (/get, /set, /get_status) so the cart can run in http mode on a
// workstation.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Ratio1/bbc_cart_go/internal/devseed"
	"github.com/Ratio1/bbc_cart_go/internal/logging"
	"github.com/Ratio1/bbc_cart_go/pkg/kv/cstore"
	"github.com/Ratio1/bbc_cart_go/pkg/kv/memory"
)

type failConfig struct {
	rate float64
	code int
}

const cstoreURLEnv = "EE_CHAINSTORE_API_URL"

func main() {
	app := &cli.App{
		Name:  "cart-sandbox",
		Usage: "serve an in-memory CStore for local cart development",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8787", Usage: "listen address"},
			&cli.StringFlag{Name: "seed", Usage: "YAML or JSON seed file"},
			&cli.DurationFlag{Name: "latency", Usage: "artificial latency to inject per request"},
			&cli.StringFlag{Name: "fail", Usage: "failure injection (rate=<float>,code=<httpStatus>)"},
			&cli.StringFlag{Name: "log-level", Value: "info", EnvVars: []string{"BBC_LOG_LEVEL"}},
			&cli.StringFlag{Name: "log-format", Value: "text", EnvVars: []string{"BBC_LOG_FORMAT"}},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "cart-sandbox: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger, err := logging.New(c.String("log-level"), c.String("log-format"))
	if err != nil {
		return err
	}

	store := memory.New()
	if path := c.String("seed"); path != "" {
		entries, err := devseed.Load(path)
		if err != nil {
			return errors.Wrap(err, "load seed")
		}
		if err := store.Seed(entries); err != nil {
			return errors.Wrap(err, "apply seed")
		}
		logger.WithField("entries", len(entries)).Info("seed applied")
	}

	failCfg, err := parseFailConfig(c.String("fail"))
	if err != nil {
		return errors.Wrap(err, "parse fail flag")
	}

	addr := c.String("addr")
	handler := withMiddleware(c.Duration("latency"), failCfg, newRand(), cstore.NewSandboxHandler(store, logger))
	server := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	logger.WithField("addr", addr).Info("cart-sandbox listening")
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	fmt.Fprintln(c.App.Writer)
	fmt.Fprintln(c.App.Writer, "export BBC_RUNTIME_MODE=http")
	fmt.Fprintf(c.App.Writer, "export %s=http://%s\n", cstoreURLEnv, host)
	fmt.Fprintln(c.App.Writer)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server failed")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newRand returns a float source that is safe to call from concurrent
// handlers.
func newRand() func() float64 {
	var mu sync.Mutex
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		return r.Float64()
	}
}

// withMiddleware delays every request and fails a random share of them.
// roll must return values in [0, 1).
func withMiddleware(delay time.Duration, failCfg failConfig, roll func() float64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if failCfg.rate > 0 && roll() < failCfg.rate {
			status := failCfg.code
			if status == 0 {
				status = http.StatusInternalServerError
			}
			http.Error(w, "failure injected", status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func parseFailConfig(raw string) (failConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return failConfig{}, nil
	}
	cfg := failConfig{code: http.StatusInternalServerError}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		keyVal := strings.SplitN(part, "=", 2)
		if len(keyVal) != 2 {
			return failConfig{}, errors.Errorf("invalid fail segment %q", part)
		}
		switch strings.TrimSpace(keyVal[0]) {
		case "rate":
			val, err := strconv.ParseFloat(strings.TrimSpace(keyVal[1]), 64)
			if err != nil {
				return failConfig{}, err
			}
			if val < 0 || val > 1 {
				return failConfig{}, errors.Errorf("fail rate %v outside [0,1]", val)
			}
			cfg.rate = val
		case "code":
			val, err := strconv.Atoi(strings.TrimSpace(keyVal[1]))
			if err != nil {
				return failConfig{}, err
			}
			cfg.code = val
		default:
			return failConfig{}, errors.Errorf("unknown fail key %q", keyVal[0])
		}
	}
	return cfg, nil
}
