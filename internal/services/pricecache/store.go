package pricecache

import (
	"context"
	"sync"
	"time"

	"csgo-pricecheck/internal/errx"
	"csgo-pricecheck/internal/storage"
)

// StalenessWindow is how long a fetched payload stays usable. The payload
// expires as a whole; there is no per-key TTL.
const StalenessWindow = 30 * time.Minute

// Payload is one bulk fetch: market_hash_name -> price in major units.
type Payload struct {
	Prices    map[string]float64
	FetchedAt time.Time
	// Currency the prices are denominated in; empty for payloads stored
	// before it was recorded.
	Currency string
}

// Status summarises the cached payload for the API and CLI.
type Status struct {
	Entries   int       `json:"entries"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
	Fresh     bool      `json:"fresh"`
}

// Store is the background process's price cache. It persists through a
// storage.Store and keeps the decoded payload in memory; it is the only
// writer of the price keys.
type Store struct {
	kv  storage.Store
	now func() time.Time

	mu      sync.RWMutex
	loaded  bool
	payload *Payload
}

type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(kv storage.Store, opts ...Option) *Store {
	s := &Store{kv: kv, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the price for key. ok is false when nothing was fetched yet,
// when the payload is older than StalenessWindow, or when key is unknown.
func (s *Store) Get(ctx context.Context, key string) (price float64, ok bool, err error) {
	p, err := s.current(ctx)
	if err != nil {
		return 0, false, err
	}
	if p == nil || s.now().Sub(p.FetchedAt) > StalenessWindow {
		return 0, false, nil
	}
	price, ok = p.Prices[key]
	return price, ok, nil
}

// ReplaceAll swaps in a new payload. Readers see either the old or the new
// payload in full.
func (s *Store) ReplaceAll(ctx context.Context, prices map[string]float64, fetchedAt time.Time) error {
	return s.ReplaceAllIn(ctx, prices, "", fetchedAt)
}

// ReplaceAllIn is ReplaceAll recording the currency of the prices in the
// same write.
func (s *Store) ReplaceAllIn(ctx context.Context, prices map[string]float64, currency string, fetchedAt time.Time) error {
	next := &Payload{
		Prices:    make(map[string]float64, len(prices)),
		FetchedAt: time.UnixMilli(fetchedAt.UnixMilli()),
		Currency:  currency,
	}
	for k, v := range prices {
		next.Prices[k] = v
	}
	values, err := storage.Encode(map[string]any{
		storage.KeyAllPrices:       next.Prices,
		storage.KeyPricesTimestamp: next.FetchedAt.UnixMilli(),
		storage.KeyPricesCurrency:  next.Currency,
	})
	if err != nil {
		return errx.Storage(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Set(ctx, values); err != nil {
		return errx.Storage(err)
	}
	s.payload = next
	s.loaded = true
	return nil
}

// Clear drops the payload and the legacy per-item cache keys.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.kv.Remove(ctx,
		storage.KeyAllPrices,
		storage.KeyPricesTimestamp,
		storage.KeyPricesCurrency,
		storage.KeyLegacyPriceCache,
		storage.KeyLegacyCacheTimestamp,
	)
	if err != nil {
		return errx.Storage(err)
	}
	s.payload = nil
	s.loaded = true
	return nil
}

// Snapshot returns a copy of the payload regardless of its age.
func (s *Store) Snapshot(ctx context.Context) (Payload, bool, error) {
	p, err := s.current(ctx)
	if err != nil || p == nil {
		return Payload{}, false, err
	}
	out := Payload{Prices: make(map[string]float64, len(p.Prices)), FetchedAt: p.FetchedAt, Currency: p.Currency}
	for k, v := range p.Prices {
		out.Prices[k] = v
	}
	return out, true, nil
}

func (s *Store) Status(ctx context.Context) (Status, error) {
	p, err := s.current(ctx)
	if err != nil || p == nil {
		return Status{}, err
	}
	return Status{
		Entries:   len(p.Prices),
		FetchedAt: p.FetchedAt,
		Fresh:     s.now().Sub(p.FetchedAt) <= StalenessWindow,
	}, nil
}

// current returns the in-memory payload, loading it from storage once.
// The returned payload is never mutated, only replaced.
func (s *Store) current(ctx context.Context) (*Payload, error) {
	s.mu.RLock()
	if s.loaded {
		p := s.payload
		s.mu.RUnlock()
		return p, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.payload, nil
	}

	values, err := s.kv.Get(ctx, storage.KeyAllPrices, storage.KeyPricesTimestamp, storage.KeyPricesCurrency)
	if err != nil {
		return nil, errx.Storage(err)
	}
	var (
		prices   map[string]float64
		millis   int64
		currency string
	)
	hasPrices, err := storage.Decode(values, storage.KeyAllPrices, &prices)
	if err != nil {
		return nil, errx.Storage(err)
	}
	hasStamp, err := storage.Decode(values, storage.KeyPricesTimestamp, &millis)
	if err != nil {
		return nil, errx.Storage(err)
	}

	if _, err := storage.Decode(values, storage.KeyPricesCurrency, &currency); err != nil {
		return nil, errx.Storage(err)
	}

	s.loaded = true
	if hasPrices && hasStamp && millis > 0 {
		s.payload = &Payload{Prices: prices, FetchedAt: time.UnixMilli(millis), Currency: currency}
	}
	return s.payload, nil
}
