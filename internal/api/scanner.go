package api

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"csgo-pricecheck/internal/messaging"
	"csgo-pricecheck/internal/scanner"

	"github.com/gin-gonic/gin"
)

// Page is the document the scanner watches.
type Page interface {
	Insert(ctx context.Context, fragment io.Reader) (int, error)
	Render(w io.Writer) error
}

type ScannerHandler struct {
	page    Page
	scanner *scanner.Scanner
}

// SetupScannerRoutes registers the foreground routes: fragments are fed to
// the page, refreshPrices reaches the scanner.
func SetupScannerRoutes(r *gin.RouterGroup, page Page, s *scanner.Scanner) *ScannerHandler {
	handler := &ScannerHandler{page: page, scanner: s}

	r.GET("/health", handler.Health)
	r.GET("/page", handler.RenderPage)
	r.POST("/page/fragments", handler.InsertFragment)
	r.POST("/messages", handler.PostMessage)
	r.GET("/stats", handler.Stats)

	return handler
}

func (h *ScannerHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *ScannerHandler) RenderPage(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.page.Render(&buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// InsertFragment appends the request body to the page as rendered HTML.
func (h *ScannerHandler) InsertFragment(c *gin.Context) {
	n, err := h.page.Insert(c.Request.Context(), c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"inserted": n})
}

func (h *ScannerHandler) PostMessage(c *gin.Context) {
	var req messaging.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message: " + err.Error()})
		return
	}
	resp := h.scanner.Handle(c.Request.Context(), req)
	resp.ID = req.ID
	if resp.Error != "" {
		status := resp.Status
		if status == 0 {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ScannerHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.scanner.Stats())
}
