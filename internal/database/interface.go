package walletstatedb

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by Store.Get when the key has no value.
var ErrNotFound = errors.New("local data not found")

// Store is the durable key-value primitive shared by the permission cache and
// the pending transaction ledger.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// GetLocalData decodes the JSON value stored under key. A missing key yields
// (nil, nil).
func GetLocalData[T any](ctx context.Context, s Store, key string) (*T, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrapf(err, "failed to decode local data %q", key)
	}
	return &out, nil
}

// SetLocalData stores value under key as JSON.
func SetLocalData[T any](ctx context.Context, s Store, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "failed to encode local data %q", key)
	}
	return s.Set(ctx, key, raw)
}

func RemoveLocalData(ctx context.Context, s Store, key string) error {
	return s.Remove(ctx, key)
}
