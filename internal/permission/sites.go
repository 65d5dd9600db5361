package permission

import (
	"github.com/Maphikza/flow-wallet-state/internal/lrucache"
	"golang.org/x/exp/slices"
)

// AddConnectedSite records a granted connection, replacing any existing entry
// for origin. A zero chain means MainnetChainID.
func (s *Service) AddConnectedSite(origin, name, icon string, chain int64, isSigned bool) {
	if origin == "" {
		return
	}
	if chain == 0 {
		chain = MainnetChainID
	}
	s.mutate(func(c *lrucache.Cache[ConnectedSite]) {
		c.Set(origin, ConnectedSite{
			Origin:   origin,
			Name:     name,
			Icon:     icon,
			Chain:    chain,
			IsSigned: isSigned,
			IsTop:    false,
		})
	})
}

// TouchConnectedSite marks origin as most recently used without changing it.
func (s *Service) TouchConnectedSite(origin string) {
	if origin == "" || s.isInternal(origin) {
		return
	}
	s.mutate(func(c *lrucache.Cache[ConnectedSite]) {
		if site, ok := c.Peek(origin); ok {
			c.Set(origin, site)
		}
	})
}

// UpdateConnectSite changes an existing entry. A partial update merges the
// non-nil patch fields; a full update replaces every field except the origin.
// Unknown origins are left alone.
func (s *Service) UpdateConnectSite(origin string, patch SitePatch, partial bool) {
	if origin == "" || s.isInternal(origin) {
		return
	}
	s.mutate(func(c *lrucache.Cache[ConnectedSite]) {
		site, ok := c.Peek(origin)
		if !ok {
			return
		}
		if !partial {
			site = ConnectedSite{}
		}
		patch.applyTo(&site)
		site.Origin = origin
		c.Set(origin, site)
	})
}

// HasPermission reports whether origin may talk to the wallet. The lookup
// refreshes the site's recency.
func (s *Service) HasPermission(origin string) bool {
	if s.isInternal(origin) {
		return true
	}
	c := s.ready()
	if c == nil || origin == "" {
		return false
	}
	_, ok := c.Get(origin)
	return ok
}

func (s *Service) GetConnectedSite(origin string) (ConnectedSite, bool) {
	c := s.ready()
	if c == nil || origin == "" {
		return ConnectedSite{}, false
	}
	return c.Get(origin)
}

// GetWithoutUpdate is GetConnectedSite without the recency side effect.
func (s *Service) GetWithoutUpdate(origin string) (ConnectedSite, bool) {
	c := s.ready()
	if c == nil || origin == "" {
		return ConnectedSite{}, false
	}
	return c.Peek(origin)
}

// TopConnectedSite pins origin. A zero order places it after every pinned
// site.
func (s *Service) TopConnectedSite(origin string, order int) {
	if origin == "" {
		return
	}
	s.mutate(func(c *lrucache.Cache[ConnectedSite]) {
		site, ok := c.Peek(origin)
		if !ok {
			return
		}
		if order <= 0 {
			order = maxPinnedOrder(c.Values()) + 1
		}
		site.IsTop = true
		site.Order = order
		c.Set(origin, site)
	})
}

func maxPinnedOrder(sites []ConnectedSite) int {
	highest := 0
	for _, site := range sites {
		if site.IsTop && site.Order > highest {
			highest = site.Order
		}
	}
	return highest
}

// UnpinConnectedSite clears the pin. The old order is kept on the entry.
func (s *Service) UnpinConnectedSite(origin string) {
	if origin == "" {
		return
	}
	s.mutate(func(c *lrucache.Cache[ConnectedSite]) {
		site, ok := c.Peek(origin)
		if !ok {
			return
		}
		site.IsTop = false
		c.Set(origin, site)
	})
}

// GetRecentConnectedSites lists pinned sites by ascending order, then the
// remaining sites most recently used first.
func (s *Service) GetRecentConnectedSites() []ConnectedSite {
	c := s.ready()
	if c == nil {
		return []ConnectedSite{}
	}
	sites := c.Values()
	slices.SortStableFunc(sites, func(a, b ConnectedSite) int {
		switch {
		case a.IsTop && b.IsTop:
			return a.Order - b.Order
		case a.IsTop:
			return -1
		case b.IsTop:
			return 1
		default:
			return 0
		}
	})
	return sites
}

// GetConnectedSites lists every live site, most recently used first.
func (s *Service) GetConnectedSites() []ConnectedSite {
	c := s.ready()
	if c == nil {
		return []ConnectedSite{}
	}
	return c.Values()
}

func (s *Service) RemoveConnectedSite(origin string) {
	if origin == "" {
		return
	}
	s.mutate(func(c *lrucache.Cache[ConnectedSite]) {
		c.Delete(origin)
	})
}

// SetRecentConnectedSites replaces the whole registry with sites. The first
// element ends up most recently used.
func (s *Service) SetRecentConnectedSites(sites []ConnectedSite) {
	s.mutate(func(c *lrucache.Cache[ConnectedSite]) {
		c.Clear()
		for i := len(sites) - 1; i >= 0; i-- {
			if sites[i].Origin == "" {
				continue
			}
			c.Set(sites[i].Origin, sites[i])
		}
	})
}
