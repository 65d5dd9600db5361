// Package permission keeps the registry of dApp origins the user has connected
// to the wallet. Reads are served from an in-memory LRU; every mutation
// schedules a background write of the full snapshot.
package permission

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	walletstatedb "github.com/Maphikza/flow-wallet-state/internal/database"
	"github.com/Maphikza/flow-wallet-state/internal/lrucache"
	"github.com/Maphikza/flow-wallet-state/internal/persist"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Options struct {
	InternalOrigin string
	MaxSites       int
	TTL            time.Duration
	// Now overrides the cache clock in tests.
	Now func() time.Time
}

// Service is the connected-site permission cache. Until Init succeeds it
// behaves as an empty, read-only registry in which only the internal origin
// is permitted.
type Service struct {
	mu     sync.Mutex
	cache  *lrucache.Cache[ConnectedSite]
	store  walletstatedb.Store
	writer *persist.Writer
	opts   Options
	logger zerolog.Logger
}

func NewService(store walletstatedb.Store, writer *persist.Writer, opts Options, logger zerolog.Logger) *Service {
	if opts.InternalOrigin == "" {
		opts.InternalOrigin = DefaultInternalOrigin
	}
	if opts.MaxSites <= 0 {
		opts.MaxSites = DefaultMaxSites
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultSiteTTL
	}
	return &Service{
		store:  store,
		writer: writer,
		opts:   opts,
		logger: logger.With().Str("component", "permission").Logger(),
	}
}

// Init loads the current snapshot, or migrates the legacy one when no current
// snapshot exists.
func (s *Service) Init(ctx context.Context) error {
	cache, err := lrucache.New[ConnectedSite](lrucache.Options{
		Max: s.opts.MaxSites,
		TTL: s.opts.TTL,
		Now: s.opts.Now,
	})
	if err != nil {
		return err
	}

	raw, err := s.store.Get(ctx, StorageKey)
	switch {
	case err == nil:
		var entries []lrucache.DumpEntry[ConnectedSite]
		if err := json.Unmarshal(raw, &entries); err != nil {
			s.logger.Error().Err(err).Msg("corrupt connected site snapshot, trying legacy data")
			break
		}
		cache.Load(entries)
		s.install(cache, false)
		return nil
	case !errors.Is(err, walletstatedb.ErrNotFound):
		return errors.Wrap(err, "failed to load connected sites")
	}

	migrated, err := s.loadLegacy(ctx, cache)
	if err != nil {
		return err
	}
	s.install(cache, migrated)
	return nil
}

func (s *Service) install(cache *lrucache.Cache[ConnectedSite], persistNow bool) {
	s.mu.Lock()
	s.cache = cache
	s.mu.Unlock()

	s.logger.Info().Int("sites", cache.Len()).Bool("migrated", persistNow).Msg("connected sites loaded")
	if persistNow {
		s.sync()
	}
}

// loadLegacy seeds cache from the legacy snapshot, dropping entries that
// lack a value or one of origin, name and icon.
func (s *Service) loadLegacy(ctx context.Context, cache *lrucache.Cache[ConnectedSite]) (bool, error) {
	raw, err := s.store.Get(ctx, LegacyStorageKey)
	if err != nil {
		if errors.Is(err, walletstatedb.ErrNotFound) {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to load legacy connected sites")
	}

	var entries []legacyEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.logger.Error().Err(err).Msg("unreadable legacy connected sites, skipping migration")
		return false, nil
	}

	// Oldest first so the most recent legacy entry ends up most recent.
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		site, ok := validLegacySite(e.V)
		if !ok {
			s.logger.Debug().Str("key", e.K).Msg("dropping invalid legacy connected site")
			continue
		}
		cache.Set(e.K, site)
	}
	return true, nil
}

func validLegacySite(raw json.RawMessage) (ConnectedSite, bool) {
	var site ConnectedSite
	if len(raw) == 0 || string(raw) == "null" {
		return site, false
	}
	if err := json.Unmarshal(raw, &site); err != nil {
		return site, false
	}
	if site.Origin == "" || site.Name == "" || site.Icon == "" {
		return site, false
	}
	return site, true
}

func (s *Service) ready() *lrucache.Cache[ConnectedSite] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache
}

// mutate runs fn against the cache and schedules a snapshot write, both under
// the service lock so snapshots are scheduled in mutation order. It is a no-op
// before Init.
func (s *Service) mutate(fn func(c *lrucache.Cache[ConnectedSite])) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache == nil {
		return
	}
	fn(s.cache)
	s.syncLocked()
}

// sync schedules a write of the full snapshot. It never blocks on storage.
func (s *Service) sync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncLocked()
}

func (s *Service) syncLocked() {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(s.cache.Dump())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode connected sites")
		return
	}
	s.writer.Schedule(StorageKey, raw)
}

// Sync is the exported form of sync for callers that need to force a write.
func (s *Service) Sync() {
	s.sync()
}

// Flush waits for scheduled writes to reach storage.
func (s *Service) Flush(ctx context.Context) error {
	return s.writer.Flush(ctx)
}

func (s *Service) isInternal(origin string) bool {
	return origin == s.opts.InternalOrigin
}

// PruneExpired drops expired sites and persists the snapshot when any were
// removed.
func (s *Service) PruneExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache == nil {
		return 0
	}
	removed := s.cache.PurgeExpired()
	if removed > 0 {
		s.syncLocked()
	}
	return removed
}
