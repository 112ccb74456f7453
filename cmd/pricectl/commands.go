package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"csgo-pricecheck/internal/messaging"
	"csgo-pricecheck/internal/services/settings"

	"github.com/go-resty/resty/v2"
	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "pricectl",
		Usage: "Manage PriceEmpire settings and the cached price list",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "background",
				Value:   "http://localhost:8080/api/v1",
				Usage:   "Background API base URL",
				EnvVars: []string{"PRICECHECK_BACKGROUND_API"},
			},
			&cli.StringFlag{
				Name:    "scanner",
				Value:   "http://localhost:8090/api/v1",
				Usage:   "Scanner API base URL",
				EnvVars: []string{"PRICECHECK_SCANNER_API"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 90 * time.Second,
				Usage: "Request timeout",
			},
		},
		Commands: []*cli.Command{
			saveSettingsCommand(),
			settingsCommand(),
			refreshCommand(),
			clearCacheCommand(),
			getPriceCommand(),
			statusCommand(),
			exportCommand(),
		},
	}
}

func background(c *cli.Context) messaging.Sender {
	return messaging.NewHTTPSender(strings.TrimRight(c.String("background"), "/")+"/messages", c.Duration("timeout"))
}

func scanner(c *cli.Context) messaging.Sender {
	return messaging.NewHTTPSender(strings.TrimRight(c.String("scanner"), "/")+"/messages", c.Duration("timeout"))
}

// send delivers one request and folds an error response into the error.
func send(ctx context.Context, s messaging.Sender, req messaging.Request) (messaging.Response, error) {
	resp, err := s.Send(ctx, req)
	if err != nil {
		return resp, err
	}
	return resp, resp.Err()
}

func saveSettingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "save-settings",
		Usage: "Save the API key and currency, fetch all prices and refresh the scanner",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api-key", Aliases: []string{"k"}, Usage: "PriceEmpire API key", EnvVars: []string{"PRICEEMPIRE_API_KEY"}},
			&cli.StringFlag{Name: "currency", Aliases: []string{"c"}, Value: "USD", Usage: "Display currency (ISO 4217)"},
			&cli.BoolFlag{Name: "no-fetch", Usage: "Skip the price fetch after saving"},
		},
		Action: func(c *cli.Context) error {
			apiKey := strings.TrimSpace(c.String("api-key"))
			if err := settings.ValidateAPIKey(apiKey); err != nil {
				return err
			}
			code, err := settings.NormalizeCurrency(c.String("currency"))
			if err != nil {
				return err
			}

			bg := background(c)
			if _, err := send(c.Context, bg, messaging.Request{Action: messaging.ActionSaveSettings, APIKey: apiKey, Currency: code}); err != nil {
				return fmt.Errorf("save settings: %w", err)
			}
			fmt.Fprintln(c.App.Writer, "Settings saved")
			if c.Bool("no-fetch") {
				return nil
			}

			if _, err := send(c.Context, bg, messaging.Request{Action: messaging.ActionFetchAllPrices}); err != nil {
				return fmt.Errorf("fetch prices: %w", err)
			}
			fmt.Fprintln(c.App.Writer, "Prices fetched")

			// Badges already on the page carry the old currency's ratios.
			if _, err := send(c.Context, scanner(c), messaging.Request{Action: messaging.ActionRefreshPrices}); err != nil {
				fmt.Fprintf(c.App.ErrWriter, "Warning: scanner not refreshed: %v\n", err)
				return nil
			}
			fmt.Fprintln(c.App.Writer, "Scanner refreshed")
			return nil
		},
	}
}

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show the saved settings",
		Action: func(c *cli.Context) error {
			resp, err := send(c.Context, background(c), messaging.Request{Action: messaging.ActionGetSettings})
			if err != nil {
				return err
			}
			key := resp.APIKey
			if len(key) > 8 {
				key = key[:8] + "..."
			}
			if key == "" {
				key = "(not set)"
			}
			fmt.Fprintf(c.App.Writer, "API key:  %s\nCurrency: %s\n", key, resp.Currency)
			return nil
		},
	}
}

// refreshCommand fetches fresh prices and then asks the scanner to redo its
// badges. Without a saved key nothing is sent.
func refreshCommand() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Fetch all prices and re-annotate the scanned page",
		Action: func(c *cli.Context) error {
			bg := background(c)
			st, err := send(c.Context, bg, messaging.Request{Action: messaging.ActionGetSettings})
			if err != nil {
				return err
			}
			if st.APIKey == "" {
				return errors.New("please set your API key first")
			}
			if _, err := send(c.Context, bg, messaging.Request{Action: messaging.ActionFetchAllPrices}); err != nil {
				return fmt.Errorf("fetch prices: %w", err)
			}
			if _, err := send(c.Context, scanner(c), messaging.Request{Action: messaging.ActionRefreshPrices}); err != nil {
				return fmt.Errorf("refresh scanner: %w", err)
			}
			fmt.Fprintln(c.App.Writer, "Prices refreshed")
			return nil
		},
	}
}

func clearCacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear-cache",
		Usage: "Drop every cached price",
		Action: func(c *cli.Context) error {
			if _, err := send(c.Context, background(c), messaging.Request{Action: messaging.ActionClearCache}); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "Cache cleared")
			return nil
		},
	}
}

func getPriceCommand() *cli.Command {
	return &cli.Command{
		Name:      "get-price",
		Usage:     "Look up one cached price by market hash name",
		ArgsUsage: "<market hash name>",
		Action: func(c *cli.Context) error {
			name := strings.Join(c.Args().Slice(), " ")
			if name == "" {
				return errors.New("market hash name is required")
			}
			resp, err := send(c.Context, background(c), messaging.Request{Action: messaging.ActionGetPrice, MarketHashName: name})
			if err != nil {
				return err
			}
			if resp.Price == nil {
				fmt.Fprintf(c.App.Writer, "%s: no price\n", name)
				return nil
			}
			fmt.Fprintf(c.App.Writer, "%s: %.2f\n", name, *resp.Price)
			return nil
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show cache size and age",
		Action: func(c *cli.Context) error {
			var st struct {
				Entries   int       `json:"entries"`
				FetchedAt time.Time `json:"fetched_at"`
				Fresh     bool      `json:"fresh"`
			}
			resp, err := client(c).R().
				SetContext(c.Context).
				SetResult(&st).
				Get(strings.TrimRight(c.String("background"), "/") + "/prices/status")
			if err != nil {
				return err
			}
			if resp.IsError() {
				return fmt.Errorf("status: %s", resp.Status())
			}
			if st.Entries == 0 && st.FetchedAt.IsZero() {
				fmt.Fprintln(c.App.Writer, "No prices cached")
				return nil
			}
			fmt.Fprintf(c.App.Writer, "Entries: %d\nFetched: %s\nFresh:   %t\n", st.Entries, st.FetchedAt.Local().Format(time.RFC3339), st.Fresh)
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Download the cached prices as an xlsx workbook",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "prices.xlsx", Usage: "Output file"},
		},
		Action: func(c *cli.Context) error {
			out := c.String("out")
			resp, err := client(c).R().
				SetContext(c.Context).
				SetOutput(out).
				Get(strings.TrimRight(c.String("background"), "/") + "/prices/export")
			if err != nil {
				return err
			}
			if resp.IsError() {
				_ = os.Remove(out)
				return fmt.Errorf("export: %s", resp.Status())
			}
			fmt.Fprintf(c.App.Writer, "Wrote %s\n", out)
			return nil
		},
	}
}

func client(c *cli.Context) *resty.Client {
	return resty.New().SetTimeout(c.Duration("timeout"))
}
