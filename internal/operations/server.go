package operations

import (
	"context"
	"time"

	"github.com/Maphikza/flow-wallet-state/internal/api"
	"github.com/Maphikza/flow-wallet-state/internal/config"
	walletstatedb "github.com/Maphikza/flow-wallet-state/internal/database"
	"github.com/Maphikza/flow-wallet-state/internal/indexer"
	"github.com/Maphikza/flow-wallet-state/internal/ipc"
	"github.com/Maphikza/flow-wallet-state/internal/permission"
	"github.com/Maphikza/flow-wallet-state/internal/persist"
	"github.com/Maphikza/flow-wallet-state/internal/transaction"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	initTimeout     = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

// NewWalletServer opens the store and loads both state services. The caller
// owns the returned server and must Close it.
func NewWalletServer(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*WalletServer, error) {
	store, err := walletstatedb.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	jwtKey, err := api.EnsureJWTKey(cfg.JWTKeysDir, cfg.JWTKeyName)
	if err != nil {
		store.Close()
		return nil, errors.Wrap(err, "failed to initialize JWT key")
	}

	s, err := newWalletServer(ctx, cfg, store, jwtKey, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

func newWalletServer(ctx context.Context, cfg config.Config, store *walletstatedb.SQLiteStore, jwtKey []byte, logger zerolog.Logger) (*WalletServer, error) {
	writer := persist.NewWriter(store, logger)

	var history transaction.TransferSource
	if cfg.IndexerURL != "" {
		history = indexer.NewCachedClient(
			indexer.NewClient(cfg.IndexerURL, cfg.IndexerTimeout),
			indexer.NewCache(cfg.IndexedCacheTTL),
			logger,
		)
	} else {
		logger.Warn().Msg("indexer_url not set, transaction history is disabled")
	}

	sites := permission.NewService(store, writer, permission.Options{
		InternalOrigin: cfg.InternalOrigin,
		MaxSites:       cfg.SiteCacheMax,
		TTL:            cfg.SiteCacheTTL,
	}, logger)
	ledger := transaction.NewLedger(store, writer, history, logger)

	initCtx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(initCtx)
	g.Go(func() error { return errors.Wrap(sites.Init(gctx), "connected sites") })
	g.Go(func() error { return errors.Wrap(ledger.Init(gctx), "pending transactions") })
	if err := g.Wait(); err != nil {
		writer.Close()
		return nil, errors.Wrap(err, "failed to load wallet state")
	}

	return &WalletServer{
		cfg:    cfg,
		store:  store,
		writer: writer,
		Sites:  sites,
		Ledger: ledger,
		API:    api.NewAPI(sites, ledger, cfg.AllowedOrigin, jwtKey, logger),
		logger: logger.With().Str("component", "server").Logger(),
	}, nil
}

// Run serves HTTP and IPC until ctx is cancelled or either surface fails.
func (s *WalletServer) Run(ctx context.Context) error {
	ipcServer, err := ipc.NewServer(s.cfg.IPCSocket, s.logger)
	if err != nil {
		return err
	}
	defer ipcServer.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.handleIPCCommands(gctx, ipcServer)
		return nil
	})
	g.Go(func() error {
		s.StartMaintenance(gctx, maintenanceInterval)
		return nil
	})
	g.Go(func() error {
		return s.API.Serve(gctx, s.cfg.APIPort)
	})

	s.logger.Info().Int("port", s.cfg.APIPort).Str("socket", s.cfg.IPCSocket).Msg("wallet state server running")
	return g.Wait()
}

// Close drains scheduled writes and closes the store.
func (s *WalletServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.writer.Flush(ctx); err != nil {
		s.logger.Error().Err(err).Msg("pending writes not flushed before shutdown")
	}
	s.writer.Close()
	return s.store.Close()
}
