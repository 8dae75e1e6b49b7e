// Command bbc-cart manages the storefront cart from a terminal and can serve
// the cart HTTP API.
//
//	bbc-cart add Latte --size Large --price 120 --addon "Extra Shot=20"
//	bbc-cart show
//	bbc-cart pay gcash
//	bbc-cart confirm
//
// By default the cart is kept under the user config directory, so
// consecutive invocations share it. Set EE_CHAINSTORE_API_URL (or
// --cstore-url) to keep it in CStore instead.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/Ratio1/bbc_cart_go/internal/logging"
	"github.com/Ratio1/bbc_cart_go/pkg/cart"
	"github.com/Ratio1/bbc_cart_go/pkg/checkout"
	"github.com/Ratio1/bbc_cart_go/pkg/kv"
	"github.com/Ratio1/bbc_cart_go/pkg/runtime"
)

// session is built once per invocation in the Before hook.
type session struct {
	cfg     runtime.Config
	mode    string
	log     *logrus.Logger
	backend kv.Backend
	store   *cart.Store
	flow    *checkout.Flow
}

func main() {
	s := &session{}
	app := &cli.App{
		Name:  "bbc-cart",
		Usage: "inspect and edit the BellyBelles cart",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Usage: "backend: auto, http, file or mock"},
			&cli.StringFlag{Name: "cstore-url", Usage: "CStore API base URL"},
			&cli.StringFlag{Name: "data-dir", Usage: "directory for the file backend"},
			&cli.StringFlag{Name: "seed", Usage: "seed file for the mock backend"},
			&cli.StringFlag{Name: "cart-key", Usage: "storage key of the cart"},
			&cli.StringFlag{Name: "payment-key", Usage: "storage key of the payment method"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-format", Usage: "text or json"},
		},
		Before: s.open,
		Commands: []*cli.Command{
			showCommand(s),
			addCommand(s),
			quantityCommand(s, "inc", "add one unit to a line", 1),
			quantityCommand(s, "dec", "remove one unit from a line", -1),
			clearCommand(s),
			payCommand(s),
			reviewCommand(s),
			confirmCommand(s),
			serveCommand(s),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "bbc-cart: %v\n", err)
		os.Exit(1)
	}
}

// open resolves configuration from the environment, lets flags override it
// and builds the backend, cart store and checkout flow.
func (s *session) open(c *cli.Context) error {
	cfg, err := runtime.LoadConfig()
	if err != nil {
		return err
	}
	overrides := map[string]*string{
		"mode":        &cfg.Mode,
		"cstore-url":  &cfg.CStoreURL,
		"data-dir":    &cfg.DataDir,
		"seed":        &cfg.MockSeed,
		"cart-key":    &cfg.CartKey,
		"payment-key": &cfg.PaymentKey,
		"log-level":   &cfg.LogLevel,
		"log-format":  &cfg.LogFormat,
	}
	for name, dst := range overrides {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	if err := applyDefaultDataDir(&cfg); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return errors.Wrap(err, "configure logging")
	}
	backend, mode, err := runtime.Open(cfg, logger)
	if err != nil {
		return errors.Wrap(err, "open backend")
	}
	store, err := cart.Open(c.Context, cart.NewKVStorage(backend, cfg.CartKey), cart.WithLogger(logger))
	if err != nil {
		return errors.Wrap(err, "load cart")
	}

	s.cfg = cfg
	s.mode = mode
	s.log = logger
	s.backend = backend
	s.store = store
	s.flow = checkout.New(backend,
		checkout.WithCartKey(cfg.CartKey),
		checkout.WithPaymentKey(cfg.PaymentKey),
		checkout.WithLogger(logger),
	)
	logger.WithFields(logrus.Fields{"mode": mode, "cart_key": cfg.CartKey}).Debug("session ready")
	return nil
}

// applyDefaultDataDir keeps the cart on disk when nothing else is configured,
// so separate invocations see the same cart.
func applyDefaultDataDir(cfg *runtime.Config) error {
	if (cfg.Mode != "" && cfg.Mode != runtime.ModeAuto) || cfg.CStoreURL != "" || cfg.DataDir != "" {
		return nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return errors.Wrap(err, "locate user config dir")
	}
	cfg.DataDir = filepath.Join(base, "bbc-cart")
	return nil
}
