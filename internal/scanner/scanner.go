// Package scanner watches a listing page and annotates every item card with
// the reference price per displayed coin.
package scanner

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"

	"csgo-pricecheck/internal/logx"
	"csgo-pricecheck/internal/messaging"
	"csgo-pricecheck/internal/models"
	"csgo-pricecheck/internal/page"
	"csgo-pricecheck/internal/services/identity"

	"github.com/rs/zerolog"
)

// Stats are cumulative since start.
type Stats struct {
	Seen      int64 `json:"seen"`
	Annotated int64 `json:"annotated"`
	Skipped   int64 `json:"skipped"`
	Misses    int64 `json:"misses"`
	Refreshes int64 `json:"refreshes"`
}

// Scanner owns the processed side-table. Everything that touches it runs on
// the Run goroutine, one card at a time.
type Scanner struct {
	page     page.Source
	sender   messaging.Sender
	resolver *identity.Resolver
	renderer Renderer
	log      zerolog.Logger

	processed map[page.Card]struct{}
	symbol    string
	refreshes chan chan struct{}

	seen, annotated, skipped, misses, refreshed atomic.Int64
}

func New(src page.Source, sender messaging.Sender, resolver *identity.Resolver) *Scanner {
	return &Scanner{
		page:      src,
		sender:    sender,
		resolver:  resolver,
		log:       logx.With("scanner"),
		processed: make(map[page.Card]struct{}),
		symbol:    CurrencySymbol(models.DefaultCurrency),
		refreshes: make(chan chan struct{}),
	}
}

// Run scans what is already rendered, then follows the change stream until
// ctx is done or the stream closes.
func (s *Scanner) Run(ctx context.Context) error {
	s.scanAll(ctx)

	changes := s.page.Changes()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-changes:
			if !ok {
				s.log.Info().Msg("change stream closed")
				return nil
			}
			for _, sub := range m.Added {
				for _, card := range sub.Cards() {
					s.process(ctx, card)
				}
			}
		case done := <-s.refreshes:
			s.refresh(ctx)
			close(done)
		}
	}
}

// Refresh forgets every processed card, strips all badges and scans again.
// It blocks until the Run loop has finished the rescan.
func (s *Scanner) Refresh(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case s.refreshes <- done:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handle answers refreshPrices, the one action sent to the scanner.
func (s *Scanner) Handle(ctx context.Context, req messaging.Request) messaging.Response {
	if req.Action != messaging.ActionRefreshPrices {
		return messaging.Unsupported(req)
	}
	if err := s.Refresh(ctx); err != nil {
		return messaging.Response{Error: err.Error()}
	}
	return messaging.Response{Success: true}
}

func (s *Scanner) Stats() Stats {
	return Stats{
		Seen:      s.seen.Load(),
		Annotated: s.annotated.Load(),
		Skipped:   s.skipped.Load(),
		Misses:    s.misses.Load(),
		Refreshes: s.refreshed.Load(),
	}
}

func (s *Scanner) refresh(ctx context.Context) {
	s.processed = make(map[page.Card]struct{})
	removed := s.page.ClearAnnotations()
	s.refreshed.Add(1)
	s.log.Info().Int("removed", removed).Msg("refreshing prices")

	s.scanAll(ctx)
}

func (s *Scanner) scanAll(ctx context.Context) {
	cards := s.page.Cards()
	s.log.Debug().Int("cards", len(cards)).Msg("scanning rendered cards")
	for _, card := range cards {
		s.process(ctx, card)
	}
}

// process handles one card at most once between refreshes. The marker is
// set before any work so a card reported twice is never looked up twice.
func (s *Scanner) process(ctx context.Context, card page.Card) {
	if _, done := s.processed[card]; done {
		return
	}
	s.processed[card] = struct{}{}
	s.seen.Add(1)

	text, ok := card.PriceText()
	if !ok {
		s.skipped.Add(1)
		return
	}
	displayed, ok := ParsePrice(text)
	if !ok || displayed <= 0 {
		s.skipped.Add(1)
		return
	}

	name, okName := card.ItemName()
	sub, okSub := card.Subcategory()
	if !okName || !okSub || name == "" || sub == "" {
		s.skipped.Add(1)
		return
	}

	key := s.resolver.Resolve(models.ItemVariant{
		DisplayName: name,
		Subcategory: sub,
		Wear:        identity.ParseWearClass(card.WearClasses()),
	})

	resp, err := s.sender.Send(ctx, messaging.Request{Action: messaging.ActionGetPrice, MarketHashName: key})
	if err != nil {
		s.log.Debug().Err(err).Str("key", key).Msg("price lookup failed")
		s.misses.Add(1)
		return
	}
	if resp.Price == nil || *resp.Price <= 0 {
		s.misses.Add(1)
		return
	}

	// Prices are fetched in the saved currency, so the label follows the
	// setting as of this lookup.
	s.loadCurrency(ctx)
	if s.renderer.Render(card, displayed, *resp.Price, s.symbol) {
		s.annotated.Add(1)
	}
}

func (s *Scanner) loadCurrency(ctx context.Context) {
	resp, err := s.sender.Send(ctx, messaging.Request{Action: messaging.ActionGetSettings})
	if err != nil || resp.Err() != nil || resp.Currency == "" {
		s.log.Debug().Err(err).Str("symbol", s.symbol).Msg("currency lookup failed, keeping symbol")
		return
	}
	s.symbol = CurrencySymbol(resp.Currency)
}

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParsePrice reads the leading number of a rendered price, ignoring
// thousands separators. "1,234.50" is 1234.5.
func ParsePrice(text string) (float64, bool) {
	text = strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	m := leadingNumber.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
