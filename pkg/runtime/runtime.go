// Package runtime selects and opens the kv backend the cart runs on, based
// on environment variables. Inside a Ratio1 node EE_CHAINSTORE_API_URL is
// set and the CStore backend is used; on a workstation the cart lives in a
// data directory or, failing that, in memory.
package runtime

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"

	"github.com/Ratio1/bbc_cart_go/internal/devseed"
	"github.com/Ratio1/bbc_cart_go/internal/httpx"
	"github.com/Ratio1/bbc_cart_go/pkg/kv"
	"github.com/Ratio1/bbc_cart_go/pkg/kv/cstore"
	"github.com/Ratio1/bbc_cart_go/pkg/kv/file"
	"github.com/Ratio1/bbc_cart_go/pkg/kv/memory"
)

const (
	ModeAuto = "auto"
	ModeHTTP = "http"
	ModeFile = "file"
	ModeMock = "mock"
)

// Config is read from the environment by LoadConfig.
type Config struct {
	Mode       string `envconfig:"BBC_RUNTIME_MODE" default:"auto"`
	CStoreURL  string `envconfig:"EE_CHAINSTORE_API_URL"`
	DataDir    string `envconfig:"BBC_DATA_DIR"`
	MockSeed   string `envconfig:"BBC_MOCK_SEED"`
	CartKey    string `envconfig:"BBC_CART_KEY" default:"bbc_cart"`
	PaymentKey string `envconfig:"BBC_PAYMENT_KEY" default:"selectedPayment"`
	LogLevel   string `envconfig:"BBC_LOG_LEVEL" default:"info"`
	LogFormat  string `envconfig:"BBC_LOG_FORMAT" default:"text"`
	HTTPAddr   string `envconfig:"BBC_HTTP_ADDR" default:":8080"`
}

// LoadConfig reads Config from the process environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("runtime: read environment: %w", err)
	}
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	cfg.CStoreURL = strings.TrimSpace(cfg.CStoreURL)
	cfg.DataDir = strings.TrimSpace(cfg.DataDir)
	cfg.MockSeed = strings.TrimSpace(cfg.MockSeed)
	return cfg, nil
}

// ResolveMode reports the mode Open will use for cfg.
func (cfg Config) ResolveMode() (string, error) {
	switch mode := strings.ToLower(strings.TrimSpace(cfg.Mode)); mode {
	case "", ModeAuto:
		switch {
		case cfg.CStoreURL != "":
			return ModeHTTP, nil
		case cfg.DataDir != "":
			return ModeFile, nil
		default:
			return ModeMock, nil
		}
	case ModeHTTP:
		if cfg.CStoreURL == "" {
			return "", fmt.Errorf("runtime: HTTP mode requires EE_CHAINSTORE_API_URL")
		}
		return mode, nil
	case ModeFile:
		if cfg.DataDir == "" {
			return "", fmt.Errorf("runtime: file mode requires BBC_DATA_DIR")
		}
		return mode, nil
	case ModeMock:
		return mode, nil
	default:
		return "", fmt.Errorf("runtime: unsupported BBC_RUNTIME_MODE value %q", cfg.Mode)
	}
}

// Open builds the backend for cfg and returns it with the resolved mode.
func Open(cfg Config, logger logrus.FieldLogger) (kv.Backend, string, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	mode, err := cfg.ResolveMode()
	if err != nil {
		return nil, "", err
	}

	var backend kv.Backend
	switch mode {
	case ModeHTTP:
		backend, err = cstore.New(cfg.CStoreURL, httpx.WithLogger(logger))
		if err != nil {
			return nil, "", fmt.Errorf("runtime: init cstore HTTP client: %w", err)
		}
	case ModeFile:
		backend, err = file.New(cfg.DataDir)
		if err != nil {
			return nil, "", fmt.Errorf("runtime: open data dir: %w", err)
		}
	case ModeMock:
		backend, err = newMock(cfg.MockSeed)
		if err != nil {
			return nil, "", err
		}
	}
	logger.WithField("mode", mode).Debug("kv backend ready")
	return backend, mode, nil
}

// NewFromEnv is LoadConfig followed by Open.
func NewFromEnv(logger logrus.FieldLogger) (kv.Backend, string, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, "", err
	}
	return Open(cfg, logger)
}

func newMock(seedPath string) (*memory.Store, error) {
	store := memory.New()
	if seedPath == "" {
		return store, nil
	}
	entries, err := devseed.Load(seedPath)
	if err != nil {
		return nil, fmt.Errorf("runtime: load seed: %w", err)
	}
	if err := store.Seed(entries); err != nil {
		return nil, fmt.Errorf("runtime: apply seed: %w", err)
	}
	return store, nil
}
