package permission

import (
	"encoding/json"
	"time"
)

const (
	// StorageKey holds the current snapshot: a list of [origin, entry] pairs.
	StorageKey = "permissionV2"
	// LegacyStorageKey holds the pre-v2 snapshot of {k, v, e} triples.
	LegacyStorageKey = "permission"

	// MainnetChainID is the Flow EVM mainnet chain id, used when a site
	// connects without naming a chain.
	MainnetChainID int64 = 747

	// DefaultInternalOrigin identifies the wallet's own UI.
	DefaultInternalOrigin = "https://core.flow.com"

	DefaultMaxSites = 1000
	DefaultSiteTTL  = 30 * 24 * time.Hour
)

// ConnectedSite is a dApp origin that has been granted a connection.
type ConnectedSite struct {
	Origin   string `json:"origin"`
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Chain    int64  `json:"chain"`
	IsSigned bool   `json:"isSigned"`
	IsTop    bool   `json:"isTop"`
	// Order ranks pinned sites, lowest first. Zero means unset.
	Order int `json:"order,omitempty"`
}

// SitePatch carries the fields of an update. Nil fields are left alone by a
// partial update and zeroed by a full one.
type SitePatch struct {
	Name     *string `json:"name,omitempty"`
	Icon     *string `json:"icon,omitempty"`
	Chain    *int64  `json:"chain,omitempty"`
	IsSigned *bool   `json:"isSigned,omitempty"`
	IsTop    *bool   `json:"isTop,omitempty"`
	Order    *int    `json:"order,omitempty"`
}

func (p SitePatch) applyTo(site *ConnectedSite) {
	if p.Name != nil {
		site.Name = *p.Name
	}
	if p.Icon != nil {
		site.Icon = *p.Icon
	}
	if p.Chain != nil {
		site.Chain = *p.Chain
	}
	if p.IsSigned != nil {
		site.IsSigned = *p.IsSigned
	}
	if p.IsTop != nil {
		site.IsTop = *p.IsTop
	}
	if p.Order != nil {
		site.Order = *p.Order
	}
}

// legacyEntry is one element of the old lru dump format.
type legacyEntry struct {
	K string          `json:"k"`
	V json.RawMessage `json:"v"`
	E int64           `json:"e"`
}
