package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"csgo-pricecheck/internal/api"
	"csgo-pricecheck/internal/config"
	"csgo-pricecheck/internal/logx"
	"csgo-pricecheck/internal/messaging"
	"csgo-pricecheck/internal/page"
	"csgo-pricecheck/internal/scanner"
	"csgo-pricecheck/internal/services/identity"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const blankPage = `<!doctype html><html><head></head><body></body></html>`

var pageFile = flag.String("page", "", "HTML listing page to start from (empty page if unset)")

func main() {
	flag.Parse()
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logx.Init(logx.Options{Environment: cfg.Environment})
	if envErr != nil {
		logx.Debug().Msg("No .env file found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	doc, err := loadPage(*pageFile)
	if err != nil {
		logx.Fatal().Err(err).Str("file", *pageFile).Msg("Failed to load page")
	}
	defer doc.Close()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	client, err := messaging.DialWS(dialCtx, cfg.BackgroundURL)
	cancel()
	if err != nil {
		logx.Fatal().Err(err).Str("url", cfg.BackgroundURL).Msg("Failed to reach background")
	}
	defer client.Close()

	s := scanner.New(doc, client, identity.NewResolver())
	go func() {
		if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logx.Error().Err(err).Msg("Scanner stopped")
		}
	}()
	go func() {
		select {
		case <-client.Done():
			logx.Error().Msg("Background connection lost")
			stop()
		case <-ctx.Done():
		}
	}()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	api.SetupScannerRoutes(r.Group("/api/v1"), doc, s)

	srv := &http.Server{Addr: cfg.ScannerAddr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logx.Info().Str("addr", cfg.ScannerAddr).Str("background", cfg.BackgroundURL).Msg("Scanner starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logx.Fatal().Err(err).Msg("Server failed")
	}
}

func loadPage(path string) (*page.Document, error) {
	var r io.Reader = strings.NewReader(blankPage)
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return page.Parse(r)
}
