package fetcher

import (
	"context"
	"fmt"
	"time"

	"csgo-pricecheck/internal/errx"
	"csgo-pricecheck/internal/logx"
	"csgo-pricecheck/internal/models"
	"csgo-pricecheck/internal/services/pricempire"
	"csgo-pricecheck/internal/services/settings"

	"github.com/rs/zerolog"
)

// PriceSource is the bulk price endpoint.
type PriceSource interface {
	GetPrices(ctx context.Context, apiKey, currency, search string) ([]pricempire.Item, error)
}

// SettingsReader provides the API key and currency.
type SettingsReader interface {
	Get(ctx context.Context) (models.Settings, error)
}

// Cache receives the fetched payload.
type Cache interface {
	ReplaceAllIn(ctx context.Context, prices map[string]float64, currency string, fetchedAt time.Time) error
}

// Orchestrator refreshes the price cache from the upstream in one bulk call.
type Orchestrator struct {
	source   PriceSource
	settings SettingsReader
	cache    Cache
	now      func() time.Time
	log      zerolog.Logger
}

func NewOrchestrator(source PriceSource, settings SettingsReader, cache Cache) *Orchestrator {
	return &Orchestrator{
		source:   source,
		settings: settings,
		cache:    cache,
		now:      time.Now,
		log:      logx.With("fetcher"),
	}
}

// FetchAll downloads every buff163 price and replaces the cache with it.
// On any failure the cache keeps its previous payload.
func (o *Orchestrator) FetchAll(ctx context.Context) (map[string]float64, error) {
	st, err := o.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if st.APIKey == "" {
		return nil, errx.Config("API key not configured")
	}
	// Keys can reach storage without going through settings.Save.
	if err := settings.ValidateAPIKey(st.APIKey); err != nil {
		return nil, err
	}

	o.log.Info().Str("currency", st.Currency).Msg("Fetching all prices from PriceEmpire...")
	items, err := o.source.GetPrices(ctx, st.APIKey, st.Currency, "")
	if err != nil {
		o.log.Error().Err(err).Msg("bulk price request failed")
		return nil, err
	}

	prices := make(map[string]float64, len(items))
	for _, it := range items {
		minor, ok := it.Price(pricempire.SourceBuff163)
		if !ok || minor <= 0 || it.MarketHashName == "" {
			continue
		}
		prices[it.MarketHashName] = pricempire.MajorUnits(minor)
	}

	if err := o.cache.ReplaceAllIn(ctx, prices, st.Currency, o.now()); err != nil {
		return nil, fmt.Errorf("store prices: %w", err)
	}
	o.log.Info().Int("stored", len(prices)).Int("received", len(items)).Msg("Stored prices")
	return prices, nil
}

// Run fetches once immediately and then on every tick until ctx is done.
// Failures are logged and wait for the next tick.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) {
	o.log.Info().Dur("interval", interval).Msg("scheduled fetch started")
	o.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			o.log.Info().Msg("scheduled fetch stopped")
			return
		case <-ticker.C:
			o.runOnce(ctx)
		}
	}
}

func (o *Orchestrator) runOnce(ctx context.Context) {
	start := time.Now()
	prices, err := o.FetchAll(ctx)
	if err != nil {
		o.log.Warn().Err(err).Msg("scheduled fetch failed")
		return
	}
	o.log.Debug().Int("prices", len(prices)).Dur("took", time.Since(start)).Msg("scheduled fetch done")
}
