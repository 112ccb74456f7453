package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"csgo-pricecheck/internal/errx"
	"csgo-pricecheck/internal/messaging"
	"csgo-pricecheck/internal/services/export"
	"csgo-pricecheck/internal/services/pricecache"

	"github.com/gin-gonic/gin"
)

// PriceCache is the part of the price cache the API reads directly.
type PriceCache interface {
	Snapshot(ctx context.Context) (pricecache.Payload, bool, error)
	Status(ctx context.Context) (pricecache.Status, error)
}

type APIHandler struct {
	messages messaging.Handler
	cache    PriceCache
}

// SetupRoutes registers the background routes. Every state change goes
// through the message handler so HTTP and WebSocket clients behave alike.
func SetupRoutes(r *gin.RouterGroup, messages messaging.Handler, cache PriceCache) *APIHandler {
	handler := &APIHandler{
		messages: messages,
		cache:    cache,
	}

	r.GET("/health", handler.Health)
	r.POST("/messages", handler.PostMessage)
	r.GET("/ws", gin.WrapH(messaging.WSHandler(messages)))
	r.GET("/price", handler.GetPrice)

	settings := r.Group("/settings")
	{
		settings.GET("", handler.GetSettings)
		settings.PUT("", handler.SaveSettings)
	}

	prices := r.Group("/prices")
	{
		prices.POST("/fetch", handler.FetchPrices)
		prices.DELETE("/cache", handler.ClearCache)
		prices.GET("/status", handler.CacheStatus)
		prices.GET("/export", handler.ExportPrices)
	}

	return handler
}

func (h *APIHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

// PostMessage accepts any protocol request and answers with its response.
func (h *APIHandler) PostMessage(c *gin.Context) {
	var req messaging.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message: " + err.Error()})
		return
	}
	if req.Action == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action is required"})
		return
	}
	c.JSON(http.StatusOK, h.messages.Handle(c.Request.Context(), req))
}

func (h *APIHandler) GetPrice(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}
	h.reply(c, messaging.Request{Action: messaging.ActionGetPrice, MarketHashName: key})
}

func (h *APIHandler) GetSettings(c *gin.Context) {
	h.reply(c, messaging.Request{Action: messaging.ActionGetSettings})
}

type saveSettingsRequest struct {
	APIKey   string `json:"apiKey"`
	Currency string `json:"currency"`
}

func (h *APIHandler) SaveSettings(c *gin.Context) {
	var body saveSettingsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	h.reply(c, messaging.Request{Action: messaging.ActionSaveSettings, APIKey: body.APIKey, Currency: body.Currency})
}

func (h *APIHandler) FetchPrices(c *gin.Context) {
	h.reply(c, messaging.Request{Action: messaging.ActionFetchAllPrices})
}

func (h *APIHandler) ClearCache(c *gin.Context) {
	h.reply(c, messaging.Request{Action: messaging.ActionClearCache})
}

func (h *APIHandler) CacheStatus(c *gin.Context) {
	st, err := h.cache.Status(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// ExportPrices streams the cached payload as an xlsx workbook. The payload
// is exported even when stale.
func (h *APIHandler) ExportPrices(c *gin.Context) {
	ctx := c.Request.Context()
	payload, ok, err := h.cache.Snapshot(ctx)
	if err != nil {
		abort(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no prices cached"})
		return
	}

	// Label with the currency the prices were fetched in. Older payloads
	// did not record it and fall back to the saved setting.
	currency := payload.Currency
	if currency == "" {
		currency = "USD"
		if resp := h.messages.Handle(ctx, messaging.Request{Action: messaging.ActionGetSettings}); resp.Currency != "" {
			currency = resp.Currency
		}
	}

	name := fmt.Sprintf("prices-%s.xlsx", payload.FetchedAt.UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := export.WriteXLSX(c.Writer, payload, currency); err != nil {
		_ = c.Error(err)
	}
}

// reply runs a request through the message handler and maps an error
// response to its HTTP status.
func (h *APIHandler) reply(c *gin.Context, req messaging.Request) {
	resp := h.messages.Handle(c.Request.Context(), req)
	if resp.Error != "" {
		status := resp.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		c.JSON(status, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func abort(c *gin.Context, err error) {
	c.JSON(errx.Status(err), gin.H{"error": errx.Message(err)})
}
