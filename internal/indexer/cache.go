package indexer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// Cache holds indexed data for a limited time. Listeners registered for a key
// prefix are told whenever a matching key is invalidated or expires.
type Cache struct {
	cache *cache.Cache

	mu        sync.RWMutex
	listeners []listener
}

type listener struct {
	prefix string
	fn     func(key string)
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c := &Cache{cache: cache.New(ttl, 2*ttl)}
	c.cache.OnEvicted(func(key string, _ interface{}) {
		c.notify(key)
	})
	return c
}

// GetValidData returns the unexpired value stored under key.
func (c *Cache) GetValidData(key string) (interface{}, bool) {
	return c.cache.Get(key)
}

// SetCachedData stores value under key with the default TTL.
func (c *Cache) SetCachedData(key string, value interface{}) {
	c.cache.SetDefault(key, value)
}

func (c *Cache) Invalidate(key string) {
	c.cache.Delete(key)
}

// InvalidatePrefix drops every key starting with prefix.
func (c *Cache) InvalidatePrefix(prefix string) {
	for key := range c.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			c.cache.Delete(key)
		}
	}
}

// AddListener registers fn for keys starting with prefix.
func (c *Cache) AddListener(prefix string, fn func(key string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, listener{prefix: prefix, fn: fn})
}

func (c *Cache) notify(key string) {
	c.mu.RLock()
	matched := make([]func(string), 0, len(c.listeners))
	for _, l := range c.listeners {
		if strings.HasPrefix(key, l.prefix) {
			matched = append(matched, l.fn)
		}
	}
	c.mu.RUnlock()

	for _, fn := range matched {
		fn(key)
	}
}

// Fetcher loads a transfer page from the remote API.
type Fetcher interface {
	FetchTransferPage(ctx context.Context, network, address string, offset, limit int) (*TransferPage, error)
}

// CachedClient serves transfer pages from Cache, fetching on a miss.
type CachedClient struct {
	fetcher Fetcher
	cache   *Cache
	logger  zerolog.Logger
}

func NewCachedClient(fetcher Fetcher, c *Cache, logger zerolog.Logger) *CachedClient {
	return &CachedClient{
		fetcher: fetcher,
		cache:   c,
		logger:  logger.With().Str("component", "indexer").Logger(),
	}
}

func TransferListKey(network, address string, offset, limit int) string {
	return fmt.Sprintf("%s%d:%d", transferListPrefix(network, address), offset, limit)
}

func transferListPrefix(network, address string) string {
	return fmt.Sprintf("transfer_list:%s:%s:", network, address)
}

// FetchTransferPage returns the cached page when valid. Every returned item is
// tagged as indexed.
func (c *CachedClient) FetchTransferPage(ctx context.Context, network, address string, offset, limit int) (*TransferPage, error) {
	key := TransferListKey(network, address, offset, limit)
	if v, ok := c.cache.GetValidData(key); ok {
		if page, ok := v.(*TransferPage); ok {
			return page.clone(), nil
		}
	}

	page, err := c.fetcher.FetchTransferPage(ctx, network, address, offset, limit)
	if err != nil {
		return nil, err
	}
	for i := range page.Transactions {
		page.Transactions[i].Indexed = true
	}
	c.cache.SetCachedData(key, page.clone())
	c.logger.Debug().Str("key", key).Int("items", len(page.Transactions)).Int("total", page.Total).Msg("cached transfer page")
	return page, nil
}

// InvalidateAddress drops every cached page for the account.
func (c *CachedClient) InvalidateAddress(network, address string) {
	c.cache.InvalidatePrefix(transferListPrefix(network, address))
}
