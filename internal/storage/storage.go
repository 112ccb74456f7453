// Package storage is the key/value contract shared by the background
// process's settings and price cache. Keys hold opaque JSON-encoded values.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// Persisted keys.
const (
	KeyAPIKey          = "apiKey"
	KeyCurrency        = "currency"
	KeyAllPrices       = "allPrices"
	KeyPricesTimestamp = "pricesTimestamp"
	KeyPricesCurrency  = "pricesCurrency"

	// Per-item cache keys from older releases. Only ever removed.
	KeyLegacyPriceCache     = "priceCache"
	KeyLegacyCacheTimestamp = "cacheTimestamp"
)

// Store is implemented by the memory, redis and mysql backends.
//
// Get returns only the keys that exist. Set writes all pairs as one unit:
// a concurrent Get observes either none or all of them.
type Store interface {
	Get(ctx context.Context, keys ...string) (map[string][]byte, error)
	Set(ctx context.Context, values map[string][]byte) error
	Remove(ctx context.Context, keys ...string) error
	Close() error
}

// Encode marshals each value to JSON.
func Encode(values map[string]any) (map[string][]byte, error) {
	out := make(map[string][]byte, len(values))
	for k, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		out[k] = raw
	}
	return out, nil
}

// Decode unmarshals the value stored under key into dst. It reports false
// when the key is absent.
func Decode(values map[string][]byte, key string, dst any) (bool, error) {
	raw, ok := values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}
