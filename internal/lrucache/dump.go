package lrucache

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// DumpEntry is one persisted cache entry. It encodes as the pair
// [key, {"value": ..., "ttl": ms, "size": n, "start": unixms}].
type DumpEntry[V any] struct {
	Key   string
	Value V
	TTL   int64
	Size  int
	Start int64
}

type dumpMeta[V any] struct {
	Value V     `json:"value"`
	TTL   int64 `json:"ttl,omitempty"`
	Size  int   `json:"size,omitempty"`
	Start int64 `json:"start,omitempty"`
}

func (e DumpEntry[V]) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Key, dumpMeta[V]{
		Value: e.Value,
		TTL:   e.TTL,
		Size:  e.Size,
		Start: e.Start,
	}})
}

func (e *DumpEntry[V]) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.Wrap(err, "dump entry is not a pair")
	}
	if len(pair) != 2 {
		return errors.Errorf("dump entry has %d elements, want 2", len(pair))
	}

	var key string
	if err := json.Unmarshal(pair[0], &key); err != nil {
		return errors.Wrap(err, "dump entry key")
	}
	var meta dumpMeta[V]
	if err := json.Unmarshal(pair[1], &meta); err != nil {
		return errors.Wrapf(err, "dump entry %q", key)
	}

	*e = DumpEntry[V]{Key: key, Value: meta.Value, TTL: meta.TTL, Size: meta.Size, Start: meta.Start}
	return nil
}
