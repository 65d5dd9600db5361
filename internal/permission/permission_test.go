package permission

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	walletstatedb "github.com/Maphikza/flow-wallet-state/internal/database"
	"github.com/Maphikza/flow-wallet-state/internal/lrucache"
	"github.com/Maphikza/flow-wallet-state/internal/persist"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const internalOrigin = "https://core.flow.com"

type harness struct {
	store  *walletstatedb.SQLiteStore
	writer *persist.Writer
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := walletstatedb.OpenInMemory()
	require.NoError(t, err)
	writer := persist.NewWriter(store, zerolog.Nop())
	t.Cleanup(func() {
		_ = writer.Close()
		_ = store.Close()
	})
	return &harness{store: store, writer: writer, now: time.Now()}
}

func (h *harness) clock() time.Time { return h.now }

func (h *harness) service(t *testing.T) *Service {
	t.Helper()
	s := NewService(h.store, h.writer, Options{InternalOrigin: internalOrigin, Now: h.clock}, zerolog.Nop())
	require.NoError(t, s.Init(context.Background()))
	return s
}

func origins(sites []ConnectedSite) []string {
	out := make([]string, 0, len(sites))
	for _, s := range sites {
		out = append(out, s.Origin)
	}
	return out
}

func TestAddConnectedSite_Defaults(t *testing.T) {
	s := newHarness(t).service(t)

	s.AddConnectedSite("o", "n", "i", 0, false)

	site, ok := s.GetConnectedSite("o")
	require.True(t, ok)
	assert.Equal(t, ConnectedSite{Origin: "o", Name: "n", Icon: "i", Chain: MainnetChainID}, site)
	assert.False(t, site.IsSigned)
	assert.False(t, site.IsTop)
}

func TestAddConnectedSite_OverwritesSameOrigin(t *testing.T) {
	s := newHarness(t).service(t)

	s.AddConnectedSite("https://a.io", "A", "a.png", 545, true)
	s.TopConnectedSite("https://a.io", 3)
	s.AddConnectedSite("https://a.io", "A2", "a2.png", 0, false)

	sites := s.GetConnectedSites()
	require.Len(t, sites, 1)
	assert.Equal(t, "A2", sites[0].Name)
	assert.Equal(t, MainnetChainID, sites[0].Chain)
	assert.False(t, sites[0].IsTop, "re-adding resets the pin")
}

func TestHasPermission(t *testing.T) {
	s := newHarness(t).service(t)

	assert.True(t, s.HasPermission(internalOrigin))
	assert.False(t, s.HasPermission("https://a.io"))

	s.AddConnectedSite("https://a.io", "A", "a.png", 0, false)
	assert.True(t, s.HasPermission("https://a.io"))

	s.RemoveConnectedSite("https://a.io")
	assert.False(t, s.HasPermission("https://a.io"))
}

func TestHasPermission_RefreshesRecencyButGetWithoutUpdateDoesNot(t *testing.T) {
	s := newHarness(t).service(t)
	s.AddConnectedSite("a", "A", "i", 0, false)
	s.AddConnectedSite("b", "B", "i", 0, false)

	_, ok := s.GetWithoutUpdate("a")
	require.True(t, ok)
	assert.Equal(t, []string{"b", "a"}, origins(s.GetConnectedSites()))

	require.True(t, s.HasPermission("a"))
	assert.Equal(t, []string{"a", "b"}, origins(s.GetConnectedSites()))
}

func TestTouchConnectedSite(t *testing.T) {
	s := newHarness(t).service(t)
	s.AddConnectedSite("a", "A", "i", 0, false)
	s.AddConnectedSite("b", "B", "i", 0, false)

	s.TouchConnectedSite("a")
	assert.Equal(t, []string{"a", "b"}, origins(s.GetConnectedSites()))

	site, _ := s.GetWithoutUpdate("a")
	assert.Equal(t, "A", site.Name, "touch does not change content")

	s.TouchConnectedSite("missing")
	assert.Len(t, s.GetConnectedSites(), 2, "touch never creates")
}

func TestInternalOriginIsExempt(t *testing.T) {
	s := newHarness(t).service(t)
	s.AddConnectedSite("a", "A", "i", 0, false)

	s.TouchConnectedSite(internalOrigin)
	s.UpdateConnectSite(internalOrigin, SitePatch{Name: strPtr("x")}, true)

	_, ok := s.GetWithoutUpdate(internalOrigin)
	assert.False(t, ok, "internal origin is never written by touch or update")
	assert.Equal(t, []string{"a"}, origins(s.GetConnectedSites()))
	assert.True(t, s.HasPermission(internalOrigin))
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestUpdateConnectSite(t *testing.T) {
	t.Run("partial merges", func(t *testing.T) {
		s := newHarness(t).service(t)
		s.AddConnectedSite("a", "A", "a.png", 545, true)

		s.UpdateConnectSite("a", SitePatch{Name: strPtr("Renamed")}, true)

		site, ok := s.GetWithoutUpdate("a")
		require.True(t, ok)
		assert.Equal(t, ConnectedSite{Origin: "a", Name: "Renamed", Icon: "a.png", Chain: 545, IsSigned: true}, site)
	})

	t.Run("full replaces everything but the origin", func(t *testing.T) {
		s := newHarness(t).service(t)
		s.AddConnectedSite("a", "A", "a.png", 545, true)

		s.UpdateConnectSite("a", SitePatch{Name: strPtr("Only"), IsTop: boolPtr(true)}, false)

		site, ok := s.GetWithoutUpdate("a")
		require.True(t, ok)
		assert.Equal(t, ConnectedSite{Origin: "a", Name: "Only", IsTop: true}, site)
	})

	t.Run("never creates", func(t *testing.T) {
		s := newHarness(t).service(t)

		s.UpdateConnectSite("ghost", SitePatch{Name: strPtr("G")}, true)

		_, ok := s.GetWithoutUpdate("ghost")
		assert.False(t, ok)
	})
}

func TestPinOrdering(t *testing.T) {
	s := newHarness(t).service(t)
	for _, o := range []string{"a", "b", "c", "d"} {
		s.AddConnectedSite(o, o, "i", 0, false)
	}

	s.TopConnectedSite("a", 2)
	s.TopConnectedSite("b", 1)

	recent := s.GetRecentConnectedSites()
	assert.Equal(t, []string{"b", "a", "d", "c"}, origins(recent))
	assert.True(t, recent[0].IsTop)
	assert.True(t, recent[1].IsTop)
	assert.False(t, recent[2].IsTop)
}

func TestTopConnectedSite_AutoOrder(t *testing.T) {
	s := newHarness(t).service(t)
	for _, o := range []string{"a", "b", "c"} {
		s.AddConnectedSite(o, o, "i", 0, false)
	}

	s.TopConnectedSite("a", 0)
	site, _ := s.GetWithoutUpdate("a")
	assert.Equal(t, 1, site.Order, "first pin starts at 1")

	s.TopConnectedSite("c", 5)
	s.TopConnectedSite("b", 0)
	site, _ = s.GetWithoutUpdate("b")
	assert.Equal(t, 6, site.Order)

	assert.Equal(t, []string{"a", "c", "b"}, origins(s.GetRecentConnectedSites()))

	s.TopConnectedSite("missing", 0)
	_, ok := s.GetWithoutUpdate("missing")
	assert.False(t, ok)
}

func TestUnpinKeepsOrder(t *testing.T) {
	s := newHarness(t).service(t)
	s.AddConnectedSite("a", "A", "i", 0, false)
	s.AddConnectedSite("b", "B", "i", 0, false)
	s.TopConnectedSite("a", 4)

	s.UnpinConnectedSite("a")

	site, _ := s.GetWithoutUpdate("a")
	assert.False(t, site.IsTop)
	assert.Equal(t, 4, site.Order)
	for _, r := range s.GetRecentConnectedSites() {
		assert.False(t, r.IsTop)
	}
}

func TestSetRecentConnectedSites(t *testing.T) {
	s := newHarness(t).service(t)
	s.AddConnectedSite("old", "Old", "i", 0, false)

	s.SetRecentConnectedSites([]ConnectedSite{
		{Origin: "x", Name: "X", Chain: 545},
		{Origin: "y", Name: "Y", Chain: 747, IsTop: true, Order: 1},
		{Name: "no origin"},
	})

	_, ok := s.GetWithoutUpdate("old")
	assert.False(t, ok)
	assert.Equal(t, []string{"x", "y"}, origins(s.GetConnectedSites()))
	assert.Equal(t, []string{"y", "x"}, origins(s.GetRecentConnectedSites()))
}

func TestUninitializedServiceIsSafe(t *testing.T) {
	h := newHarness(t)
	s := NewService(h.store, h.writer, Options{InternalOrigin: internalOrigin}, zerolog.Nop())

	require.NotPanics(t, func() {
		s.AddConnectedSite("a", "A", "i", 0, false)
		s.TouchConnectedSite("a")
		s.UpdateConnectSite("a", SitePatch{Name: strPtr("x")}, true)
		s.UpdateConnectSite("a", SitePatch{}, false)
		s.TopConnectedSite("a", 0)
		s.UnpinConnectedSite("a")
		s.RemoveConnectedSite("a")
		s.SetRecentConnectedSites([]ConnectedSite{{Origin: "b"}})
		s.Sync()
	})

	assert.False(t, s.HasPermission("a"))
	assert.True(t, s.HasPermission(internalOrigin))
	_, ok := s.GetConnectedSite("a")
	assert.False(t, ok)
	_, ok = s.GetWithoutUpdate("a")
	assert.False(t, ok)
	assert.Empty(t, s.GetConnectedSites())
	assert.Empty(t, s.GetRecentConnectedSites())

	require.NoError(t, s.Flush(context.Background()))
	_, err := h.store.Get(context.Background(), StorageKey)
	assert.ErrorIs(t, err, walletstatedb.ErrNotFound, "nothing is written before init")
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	s := h.service(t)
	s.AddConnectedSite("a", "A", "a.png", 545, true)
	s.AddConnectedSite("b", "B", "b.png", 0, false)
	s.TopConnectedSite("a", 1)
	require.NoError(t, s.Flush(ctx))

	restored := h.service(t)
	site, ok := restored.GetWithoutUpdate("a")
	require.True(t, ok)
	assert.Equal(t, ConnectedSite{Origin: "a", Name: "A", Icon: "a.png", Chain: 545, IsSigned: true, IsTop: true, Order: 1}, site)
	assert.Equal(t, origins(s.GetConnectedSites()), origins(restored.GetConnectedSites()))
}

func TestInitLoadsDumpedSnapshot(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	snapshot := []lrucache.DumpEntry[ConnectedSite]{
		{Key: "https://a.io", Value: ConnectedSite{Origin: "https://a.io", Name: "A", Icon: "a", Chain: 747}, TTL: DefaultSiteTTL.Milliseconds(), Size: 1},
		{Key: "https://b.io", Value: ConnectedSite{Origin: "https://b.io", Name: "B", Icon: "b", Chain: 545, IsSigned: true}, TTL: DefaultSiteTTL.Milliseconds(), Size: 1},
	}
	require.NoError(t, walletstatedb.SetLocalData(ctx, h.store, StorageKey, snapshot))

	s := h.service(t)
	for _, e := range snapshot {
		got, ok := s.GetConnectedSite(e.Key)
		require.True(t, ok)
		assert.Equal(t, e.Value, got)
	}
}

func TestInitExpiresOldEntries(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	old := h.now.Add(-31 * 24 * time.Hour).UnixMilli()
	snapshot := []lrucache.DumpEntry[ConnectedSite]{
		{Key: "stale", Value: ConnectedSite{Origin: "stale"}, TTL: DefaultSiteTTL.Milliseconds(), Size: 1, Start: old},
		{Key: "fresh", Value: ConnectedSite{Origin: "fresh"}, TTL: DefaultSiteTTL.Milliseconds(), Size: 1, Start: h.now.UnixMilli()},
	}
	require.NoError(t, walletstatedb.SetLocalData(ctx, h.store, StorageKey, snapshot))

	s := h.service(t)
	assert.False(t, s.HasPermission("stale"))
	assert.True(t, s.HasPermission("fresh"))
}

func TestLegacyMigration(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	legacy := `[
		{"k": "https://good.io", "v": {"origin": "https://good.io", "name": "Good", "icon": "g.png", "chain": 545, "isSigned": true}, "e": 0},
		{"k": "https://null.io", "v": null, "e": 0},
		{"k": "https://partial.io", "v": {"origin": "https://partial.io", "name": "Partial"}, "e": 0}
	]`
	require.NoError(t, h.store.Set(ctx, LegacyStorageKey, []byte(legacy)))

	s := h.service(t)
	sites := s.GetConnectedSites()
	require.Len(t, sites, 1)
	assert.Equal(t, "https://good.io", sites[0].Origin)
	assert.Equal(t, int64(545), sites[0].Chain)
	assert.True(t, sites[0].IsSigned)

	// migrated data is written in the new format straight away
	require.NoError(t, s.Flush(ctx))
	raw, err := h.store.Get(ctx, StorageKey)
	require.NoError(t, err)
	var entries []lrucache.DumpEntry[ConnectedSite]
	require.NoError(t, json.Unmarshal(raw, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "https://good.io", entries[0].Key)
	assert.Equal(t, 1, entries[0].Size)
	assert.Equal(t, DefaultSiteTTL.Milliseconds(), entries[0].TTL)

	// a second init reads the new snapshot, so a changed legacy blob is ignored
	require.NoError(t, h.store.Set(ctx, LegacyStorageKey, []byte(`[]`)))
	again := h.service(t)
	assert.True(t, again.HasPermission("https://good.io"))
}

func TestInitWithNothingStored(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	s := h.service(t)
	assert.Empty(t, s.GetConnectedSites())

	require.NoError(t, s.Flush(ctx))
	_, err := h.store.Get(ctx, StorageKey)
	assert.ErrorIs(t, err, walletstatedb.ErrNotFound, "no write without a migration or mutation")
}

func TestCapacityEvictsLeastRecentlyUsed(t *testing.T) {
	h := newHarness(t)
	s := NewService(h.store, h.writer, Options{InternalOrigin: internalOrigin, MaxSites: 2}, zerolog.Nop())
	require.NoError(t, s.Init(context.Background()))

	s.AddConnectedSite("a", "A", "i", 0, false)
	s.AddConnectedSite("b", "B", "i", 0, false)
	s.HasPermission("a")
	s.AddConnectedSite("c", "C", "i", 0, false)

	assert.False(t, s.HasPermission("b"))
	assert.True(t, s.HasPermission("a"))
	assert.True(t, s.HasPermission("c"))
}

func TestPruneExpired(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.service(t)

	s.AddConnectedSite("https://a.io", "A", "a.png", 0, false)
	assert.Equal(t, 0, s.PruneExpired())

	h.now = h.now.Add(DefaultSiteTTL + time.Minute)
	assert.Equal(t, 1, s.PruneExpired())
	require.NoError(t, s.Flush(ctx))

	stored, err := walletstatedb.GetLocalData[[]lrucache.DumpEntry[ConnectedSite]](ctx, h.store, StorageKey)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Empty(t, *stored)
}
