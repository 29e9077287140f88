// Package app assembles the client: store, auth bus, backend and services.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/sehatin/internal/authbus"
	"github.com/and161185/sehatin/internal/backend/local"
	"github.com/and161185/sehatin/internal/backend/remote"
	"github.com/and161185/sehatin/internal/kvstore"
	"github.com/and161185/sehatin/internal/schema"
	"github.com/and161185/sehatin/internal/service"
)

// Backend kinds.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// MemoryPath keeps the store in process memory.
const MemoryPath = ":memory:"

// Config selects where data lives.
type Config struct {
	Backend  string // local or remote
	DataPath string // sqlite file for the client store; empty or MemoryPath means memory
	Prefix   string // key namespace, kvstore.DefaultPrefix when empty
	Remote   remote.Config
}

// FromEnv fills unset fields from SEHATIN_* variables.
func FromEnv(c Config) Config {
	if c.Backend == "" {
		c.Backend = getEnv("SEHATIN_BACKEND", BackendLocal)
	}
	if c.DataPath == "" {
		c.DataPath = getEnv("SEHATIN_DATA", "")
	}
	if c.Prefix == "" {
		c.Prefix = getEnv("SEHATIN_PREFIX", kvstore.DefaultPrefix)
	}
	if c.Remote.Addr == "" {
		c.Remote.Addr = getEnv("SEHATIN_ADDR", "")
	}
	if c.Remote.CAFile == "" {
		c.Remote.CAFile = getEnv("SEHATIN_CACERT", "")
	}
	if c.Remote.Timeout == 0 {
		c.Remote.Timeout = getEnvDuration("SEHATIN_TIMEOUT", 10*time.Second)
	}
	if !c.Remote.Plaintext {
		c.Remote.Plaintext = getEnvBool("SEHATIN_PLAINTEXT", false)
	}
	return c
}

// Validate fails fast on configurations that cannot start.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendLocal:
		return nil
	case BackendRemote:
		return c.Remote.Validate()
	default:
		return fmt.Errorf("app: unknown backend %q", c.Backend)
	}
}

// App is the running client.
type App struct {
	Auth    *service.AuthServiceImpl
	Records *service.RecordServiceImpl

	bus     *authbus.Bus
	sqlite  *kvstore.SQLiteBackend
	backend interface{ Close() error }
	log     *zap.Logger
}

// New wires the client. Close releases everything New opened.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{log: log}

	var kvb kvstore.Backend
	if cfg.DataPath == "" || cfg.DataPath == MemoryPath {
		kvb = kvstore.NewMemoryBackend()
	} else {
		sb, err := kvstore.OpenSQLite(ctx, cfg.DataPath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.sqlite = sb
		kvb = sb
	}
	var opts []kvstore.Option
	if cfg.Prefix != "" {
		opts = append(opts, kvstore.WithPrefix(cfg.Prefix))
	}
	store := kvstore.New(kvb, log.Named("kvstore"), opts...)

	var be service.Backend
	switch cfg.Backend {
	case BackendRemote:
		rb, err := remote.Dial(cfg.Remote)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.backend = rb
		be = rb
	default:
		be = local.New(store)
	}

	a.bus = authbus.New(log.Named("authbus"))
	a.Auth = service.NewAuthService(be, store, a.bus, log.Named("auth"))
	a.Records = service.NewRecordService(be, a.Auth, schema.Default(), log.Named("records"))

	log.Debug("client ready", zap.String("backend", cfg.Backend), zap.String("data", cfg.DataPath))
	return a, nil
}

// Close stops event delivery and releases the backend and store.
func (a *App) Close() error {
	if a.bus != nil {
		a.bus.Close()
	}
	var errList []error
	if a.backend != nil {
		errList = append(errList, a.backend.Close())
	}
	if a.sqlite != nil {
		errList = append(errList, a.sqlite.Close())
	}
	return errors.Join(errList...)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
