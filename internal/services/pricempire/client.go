package pricempire

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"csgo-pricecheck/internal/errx"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	DefaultBaseURL = "https://api.pricempire.com/v4/paid/items/prices"
	// SourceBuff163 is the only price source requested.
	SourceBuff163 = "buff163"
	// MinRequestInterval spaces consecutive upstream requests.
	MinRequestInterval = time.Second
)

// Item is one entry of the bulk price response.
type Item struct {
	MarketHashName string          `json:"market_hash_name"`
	Prices         []ProviderPrice `json:"prices"`
}

// ProviderPrice carries a price in minor units (cents); nil when the
// provider has no listing.
type ProviderPrice struct {
	ProviderKey string   `json:"provider_key"`
	Price       *float64 `json:"price"`
}

// Price returns the provider's price in minor units.
func (it Item) Price(provider string) (float64, bool) {
	for _, p := range it.Prices {
		if p.ProviderKey == provider && p.Price != nil {
			return *p.Price, true
		}
	}
	return 0, false
}

// MajorUnits converts cents to dollars (or the currency's equivalent).
func MajorUnits(minor float64) float64 {
	f, _ := decimal.NewFromFloat(minor).Shift(-2).Float64()
	return f
}

type Service struct {
	baseURL     string
	client      *resty.Client
	minInterval time.Duration

	mu          sync.Mutex
	lastRequest time.Time
	now         func() time.Time
	sleep       func(context.Context, time.Duration) error
}

func NewService(baseURL string, timeout time.Duration) *Service {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")

	return &Service{
		baseURL:     baseURL,
		client:      client,
		minInterval: MinRequestInterval,
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

// GetPrices requests buff163 prices in the given currency. An empty search
// returns the whole catalog.
func (s *Service) GetPrices(ctx context.Context, apiKey, currency, search string) ([]Item, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	params := map[string]string{
		"currency": currency,
		"sources":  SourceBuff163,
	}
	if search != "" {
		params["search"] = search
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(apiKey).
		SetQueryParams(params).
		Get(s.baseURL)
	if err != nil {
		return nil, errx.Upstream(err)
	}
	if !resp.IsSuccess() {
		return nil, errx.Upstream(fmt.Errorf("API request failed: %s", resp.Status()))
	}

	var items []Item
	if err := json.Unmarshal(resp.Body(), &items); err != nil {
		return nil, errx.Upstream(fmt.Errorf("decode prices: %w", err))
	}
	// `null` decodes without error; only an array is a price list.
	if items == nil {
		return nil, errx.Upstream(fmt.Errorf("decode prices: body is not an array"))
	}
	return items, nil
}

// wait blocks until MinRequestInterval has passed since the previous
// request slot. Each caller reserves the next free slot, so overlapping
// callers go out one interval apart, in the order they reached the lock.
func (s *Service) wait(ctx context.Context) error {
	s.mu.Lock()
	now := s.now()
	delay := s.lastRequest.Add(s.minInterval).Sub(now)
	if delay < 0 {
		delay = 0
	}
	s.lastRequest = now.Add(delay)
	s.mu.Unlock()

	if delay == 0 {
		return nil
	}
	return s.sleep(ctx, delay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
