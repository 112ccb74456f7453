// Package background answers the message protocol on behalf of the price
// cache, the settings and the fetch orchestrator.
package background

import (
	"context"

	"csgo-pricecheck/internal/errx"
	"csgo-pricecheck/internal/logx"
	"csgo-pricecheck/internal/messaging"
	"csgo-pricecheck/internal/models"

	"github.com/rs/zerolog"
)

type PriceCache interface {
	Get(ctx context.Context, key string) (float64, bool, error)
	Clear(ctx context.Context) error
}

type Settings interface {
	Get(ctx context.Context) (models.Settings, error)
	Save(ctx context.Context, apiKey, currency string) error
}

type Fetcher interface {
	FetchAll(ctx context.Context) (map[string]float64, error)
}

type Handler struct {
	cache    PriceCache
	settings Settings
	fetcher  Fetcher
	log      zerolog.Logger
}

func NewHandler(cache PriceCache, settings Settings, fetcher Fetcher) *Handler {
	return &Handler{
		cache:    cache,
		settings: settings,
		fetcher:  fetcher,
		log:      logx.With("background"),
	}
}

func (h *Handler) Handle(ctx context.Context, req messaging.Request) messaging.Response {
	switch req.Action {
	case messaging.ActionGetPrice:
		return h.getPrice(ctx, req)
	case messaging.ActionFetchAllPrices:
		if _, err := h.fetcher.FetchAll(ctx); err != nil {
			return failure(err)
		}
		return messaging.Response{Success: true}
	case messaging.ActionSaveSettings:
		if err := h.settings.Save(ctx, req.APIKey, req.Currency); err != nil {
			return failure(err)
		}
		return messaging.Response{Success: true}
	case messaging.ActionGetSettings:
		st, err := h.settings.Get(ctx)
		if err != nil {
			return failure(err)
		}
		return messaging.Response{APIKey: st.APIKey, Currency: st.Currency}
	case messaging.ActionClearCache:
		if err := h.cache.Clear(ctx); err != nil {
			return failure(err)
		}
		h.log.Info().Msg("cache cleared")
		return messaging.Response{Success: true}
	}
	return messaging.Unsupported(req)
}

// getPrice answers a miss, a stale payload and a storage error alike with a
// null price; the scanner never annotates in any of those cases.
func (h *Handler) getPrice(ctx context.Context, req messaging.Request) messaging.Response {
	price, ok, err := h.cache.Get(ctx, req.MarketHashName)
	if err != nil {
		h.log.Warn().Err(err).Str("key", req.MarketHashName).Msg("price lookup failed")
		return failure(err)
	}
	if !ok || price <= 0 {
		return messaging.Response{}
	}
	return messaging.Response{Price: &price}
}

func failure(err error) messaging.Response {
	return messaging.Response{Error: errx.Message(err), Status: errx.Status(err)}
}
