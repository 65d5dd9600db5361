package indexer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transferServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Path != "/v1/transfers" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("address") == "0xbroken" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		assert.Equal(t, "mainnet", q.Get("network"))
		assert.Equal(t, "0", q.Get("offset"))
		assert.Equal(t, "15", q.Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(TransferPage{
			Transactions: []Transfer{{TxID: "a1", Status: "Sealed"}, {TxID: "a2", Status: "Sealed"}},
			Total:        42,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_FetchTransferPage(t *testing.T) {
	var hits int32
	srv := transferServer(t, &hits)
	c := NewClient(srv.URL+"/", time.Second)

	page, err := c.FetchTransferPage(context.Background(), "mainnet", "0x01", 0, 15)
	require.NoError(t, err)
	assert.Equal(t, 42, page.Total)
	require.Len(t, page.Transactions, 2)
	assert.False(t, page.Transactions[0].Indexed, "the raw client does not tag items")

	_, err = c.FetchTransferPage(context.Background(), "mainnet", "0xbroken", 0, 15)
	require.ErrorContains(t, err, "status 500")
}

func TestCachedClient_ReadThrough(t *testing.T) {
	var hits int32
	srv := transferServer(t, &hits)
	cc := NewCachedClient(NewClient(srv.URL, time.Second), NewCache(time.Minute), zerolog.Nop())
	ctx := context.Background()

	page, err := cc.FetchTransferPage(ctx, "mainnet", "0x01", 0, 15)
	require.NoError(t, err)
	for _, tr := range page.Transactions {
		assert.True(t, tr.Indexed)
	}

	// mutate the returned page; the cached copy must not change
	page.Transactions[0].TxID = "changed"

	again, err := cc.FetchTransferPage(ctx, "mainnet", "0x01", 0, 15)
	require.NoError(t, err)
	assert.Equal(t, "a1", again.Transactions[0].TxID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "second read is served from cache")

	cc.InvalidateAddress("mainnet", "0x01")
	_, err = cc.FetchTransferPage(ctx, "mainnet", "0x01", 0, 15)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

type failingFetcher struct{}

func (failingFetcher) FetchTransferPage(context.Context, string, string, int, int) (*TransferPage, error) {
	return nil, errors.New("offline")
}

func TestCachedClient_ErrorsAreNotCached(t *testing.T) {
	c := NewCache(time.Minute)
	cc := NewCachedClient(failingFetcher{}, c, zerolog.Nop())

	_, err := cc.FetchTransferPage(context.Background(), "testnet", "0x02", 0, 10)
	require.ErrorContains(t, err, "offline")
	_, ok := c.GetValidData(TransferListKey("testnet", "0x02", 0, 10))
	assert.False(t, ok)
}

func TestCache_Listeners(t *testing.T) {
	c := NewCache(time.Minute)

	var mu sync.Mutex
	var seen []string
	c.AddListener("transfer_list:mainnet:0x01:", func(key string) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, key)
	})

	c.SetCachedData(TransferListKey("mainnet", "0x01", 0, 15), &TransferPage{})
	c.SetCachedData(TransferListKey("mainnet", "0x01", 15, 15), &TransferPage{})
	c.SetCachedData(TransferListKey("mainnet", "0x02", 0, 15), &TransferPage{})

	c.InvalidatePrefix("transfer_list:mainnet:0x01:")
	c.Invalidate(TransferListKey("mainnet", "0x02", 0, 15))

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{
		"transfer_list:mainnet:0x01:0:15",
		"transfer_list:mainnet:0x01:15:15",
	}, seen)

	_, ok := c.GetValidData(TransferListKey("mainnet", "0x02", 0, 15))
	assert.False(t, ok)
}
