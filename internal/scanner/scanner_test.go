package scanner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"csgo-pricecheck/internal/messaging"
	"csgo-pricecheck/internal/models"
	"csgo-pricecheck/internal/page"
	"csgo-pricecheck/internal/services/identity"
)

type fakeCard struct {
	name, sub, price, wear string
	noName, noPrice        bool

	annotation    *page.Annotation
	annotateCalls int
}

func (c *fakeCard) ItemName() (string, bool)    { return c.name, !c.noName }
func (c *fakeCard) Subcategory() (string, bool) { return c.sub, c.sub != "" }
func (c *fakeCard) PriceText() (string, bool)   { return c.price, !c.noPrice }
func (c *fakeCard) WearClasses() string         { return c.wear }
func (c *fakeCard) HasAnnotation() bool         { return c.annotation != nil }
func (c *fakeCard) Annotate(a page.Annotation) {
	c.annotateCalls++
	if c.annotation == nil {
		c.annotation = &a
	}
}
func (c *fakeCard) RemoveAnnotation() bool {
	had := c.annotation != nil
	c.annotation = nil
	return had
}

type fakeSubtree []page.Card

func (s fakeSubtree) Cards() []page.Card { return s }

type fakePage struct {
	cards   []page.Card
	changes chan page.Mutation
}

func newFakePage(cards ...page.Card) *fakePage {
	return &fakePage{cards: cards, changes: make(chan page.Mutation)}
}

func (p *fakePage) Cards() []page.Card            { return p.cards }
func (p *fakePage) Changes() <-chan page.Mutation { return p.changes }
func (p *fakePage) ClearAnnotations() int {
	n := 0
	for _, c := range p.cards {
		if c.RemoveAnnotation() {
			n++
		}
	}
	return n
}

type fakeBackend struct {
	mu       sync.Mutex
	prices   map[string]float64
	currency string
	lookups  map[string]int
}

func newBackend(prices map[string]float64) *fakeBackend {
	return &fakeBackend{prices: prices, currency: "USD", lookups: make(map[string]int)}
}

func (b *fakeBackend) Send(_ context.Context, req messaging.Request) (messaging.Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch req.Action {
	case messaging.ActionGetSettings:
		return messaging.Response{Currency: b.currency}, nil
	case messaging.ActionGetPrice:
		b.lookups[req.MarketHashName]++
		if p, ok := b.prices[req.MarketHashName]; ok {
			return messaging.Response{Price: &p}, nil
		}
		return messaging.Response{}, nil
	}
	return messaging.Unsupported(req), nil
}

func (b *fakeBackend) lookupCount(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lookups[key]
}

func (b *fakeBackend) setCurrency(code string) {
	b.mu.Lock()
	b.currency = code
	b.mu.Unlock()
}

func (b *fakeBackend) setPrices(prices map[string]float64) {
	b.mu.Lock()
	b.prices = prices
	b.mu.Unlock()
}

const redlineFT = "AK-47 | Redline (Field-Tested)"

func startScanner(t *testing.T, p *fakePage, b messaging.Sender) (*Scanner, context.CancelFunc, chan error) {
	t.Helper()
	s := New(p, b, identity.NewResolver())
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	return s, cancel, errc
}

// drain returns once the Run loop has handled everything queued before it.
func drain(p *fakePage) {
	p.changes <- page.Mutation{}
}

func TestInitialScanAnnotates(t *testing.T) {
	redline := &fakeCard{name: "Redline", sub: "AK-47", price: "50", wear: "wear-bar wear-bar-ft"}
	unknown := &fakeCard{name: "Sand Dune", sub: "P250", price: "1"}
	p := newFakePage(redline, unknown)
	b := newBackend(map[string]float64{redlineFT: 1})

	s, cancel, _ := startScanner(t, p, b)
	defer cancel()
	drain(p)

	if redline.annotation == nil || redline.annotation.Label != "$0.02" || redline.annotation.Tier != models.Fair {
		t.Fatalf("badge mismatch: %+v", redline.annotation)
	}
	if unknown.annotation != nil {
		t.Fatal("cache miss must not annotate")
	}
	st := s.Stats()
	if st.Seen != 2 || st.Annotated != 1 || st.Misses != 1 {
		t.Fatalf("stats mismatch: %+v", st)
	}
}

func TestCardProcessedAtMostOnce(t *testing.T) {
	redline := &fakeCard{name: "Redline", sub: "AK-47", price: "50", wear: "wear-bar-ft"}
	p := newFakePage(redline)
	b := newBackend(map[string]float64{redlineFT: 1})

	_, cancel, _ := startScanner(t, p, b)
	defer cancel()

	// Two overlapping notifications carrying the same card.
	p.changes <- page.Mutation{Added: []page.Subtree{fakeSubtree{redline}, fakeSubtree{redline}}}
	p.changes <- page.Mutation{Added: []page.Subtree{fakeSubtree{redline}}}
	drain(p)

	if got := b.lookupCount(redlineFT); got != 1 {
		t.Fatalf("expected 1 cache query, got %d", got)
	}
	if redline.annotateCalls != 1 {
		t.Fatalf("expected 1 annotation, got %d", redline.annotateCalls)
	}
}

func TestSkipsUnreadableCards(t *testing.T) {
	cards := []*fakeCard{
		{name: "Redline", sub: "AK-47", noPrice: true},
		{name: "Redline", sub: "AK-47", price: "abc"},
		{name: "Redline", sub: "AK-47", price: "0"},
		{name: "Redline", sub: "AK-47", price: "-5"},
		{noName: true, sub: "AK-47", price: "50"},
		{name: "Redline", sub: "", price: "50"},
	}
	var pc []page.Card
	for _, c := range cards {
		pc = append(pc, c)
	}
	p := newFakePage(pc...)
	b := newBackend(map[string]float64{redlineFT: 1, "AK-47 | Redline (Factory New)": 1})

	s, cancel, _ := startScanner(t, p, b)
	defer cancel()
	drain(p)

	for i, c := range cards {
		if c.annotation != nil {
			t.Fatalf("card %d should not be annotated", i)
		}
	}
	if st := s.Stats(); st.Skipped != int64(len(cards)) || st.Seen != int64(len(cards)) {
		t.Fatalf("stats mismatch: %+v", st)
	}
	if b.lookupCount("AK-47 | Redline (Factory New)") != 0 {
		t.Fatal("skipped cards must not query the cache")
	}
}

func TestRefreshReannotates(t *testing.T) {
	redline := &fakeCard{name: "Redline", sub: "AK-47", price: "1,000", wear: "wear-bar-ft"}
	p := newFakePage(redline)
	b := newBackend(map[string]float64{redlineFT: 1})

	s, cancel, _ := startScanner(t, p, b)
	defer cancel()
	drain(p)
	if redline.annotation == nil || redline.annotation.Tier != models.Underpriced {
		t.Fatalf("first badge mismatch: %+v", redline.annotation)
	}

	b.setPrices(map[string]float64{redlineFT: 500})
	b.setCurrency("GBP")
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if redline.annotation == nil || redline.annotation.Label != "£0.50" || redline.annotation.Tier != models.Overpriced {
		t.Fatalf("refreshed badge mismatch: %+v", redline.annotation)
	}
	if got := b.lookupCount(redlineFT); got != 2 {
		t.Fatalf("expected 2 lookups across refresh, got %d", got)
	}
}

func TestLabelFollowsCurrencyChange(t *testing.T) {
	first := &fakeCard{name: "Redline", sub: "AK-47", price: "50", wear: "wear-bar-ft"}
	p := newFakePage(first)
	b := newBackend(map[string]float64{redlineFT: 1})

	_, cancel, _ := startScanner(t, p, b)
	defer cancel()
	drain(p)
	if first.annotation == nil || first.annotation.Label != "$0.02" {
		t.Fatalf("first badge mismatch: %+v", first.annotation)
	}

	b.setCurrency("EUR")
	later := &fakeCard{name: "Redline", sub: "AK-47", price: "50", wear: "wear-bar-ft"}
	p.changes <- page.Mutation{Added: []page.Subtree{fakeSubtree{later}}}
	drain(p)

	if later.annotation == nil || later.annotation.Label != "€0.02" {
		t.Fatalf("badge after currency change: %+v", later.annotation)
	}
	if first.annotation.Label != "$0.02" {
		t.Fatalf("existing badge must stay until refresh, got %q", first.annotation.Label)
	}
}

func TestHandleRefreshPrices(t *testing.T) {
	p := newFakePage()
	s, cancel, _ := startScanner(t, p, newBackend(nil))
	defer cancel()

	resp := s.Handle(context.Background(), messaging.Request{Action: messaging.ActionRefreshPrices})
	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	resp = s.Handle(context.Background(), messaging.Request{Action: messaging.ActionGetPrice})
	if resp.Err() == nil {
		t.Fatal("expected unsupported action")
	}
}

func TestRunEndsWithStream(t *testing.T) {
	p := newFakePage()
	_, cancel, errc := startScanner(t, p, newBackend(nil))
	defer cancel()
	close(p.changes)

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

type failingSender struct{}

func (failingSender) Send(context.Context, messaging.Request) (messaging.Response, error) {
	return messaging.Response{}, errors.New("background unavailable")
}

func TestBackendFailureIsAMiss(t *testing.T) {
	redline := &fakeCard{name: "Redline", sub: "AK-47", price: "50"}
	p := newFakePage(redline)
	s, cancel, _ := startScanner(t, p, failingSender{})
	defer cancel()
	drain(p)

	if redline.annotation != nil {
		t.Fatal("no badge without a price")
	}
	if st := s.Stats(); st.Misses != 1 {
		t.Fatalf("stats mismatch: %+v", st)
	}
}

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"50", 50, true},
		{" 1,234.50 ", 1234.5, true},
		{"12.5 coins", 12.5, true},
		{".5", 0.5, true},
		{"0", 0, true},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParsePrice(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%q: got %v ok=%v", tc.in, got, ok)
		}
	}
}
