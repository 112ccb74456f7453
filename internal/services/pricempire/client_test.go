package pricempire

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"csgo-pricecheck/internal/errx"
)

const apiKey = "3f2504e0-4f89-11d3-9a0c-0305e82c3301"

func TestGetPricesRequestShape(t *testing.T) {
	var gotAuth, gotCurrency, gotSources, gotSearch string
	var hasSearch bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		q := r.URL.Query()
		gotCurrency = q.Get("currency")
		gotSources = q.Get("sources")
		gotSearch = q.Get("search")
		_, hasSearch = q["search"]
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"market_hash_name":"AK-47 | Redline (Field-Tested)","prices":[{"provider_key":"buff163","price":1250}]},
			{"market_hash_name":"AWP | Asiimov (Battle-Scarred)","prices":[{"provider_key":"buff163","price":null}]}
		]`))
	}))
	defer srv.Close()

	s := NewService(srv.URL, 5*time.Second)
	items, err := s.GetPrices(context.Background(), apiKey, "EUR", "")
	if err != nil {
		t.Fatalf("get prices: %v", err)
	}
	if gotAuth != "Bearer "+apiKey {
		t.Fatalf("auth mismatch: %q", gotAuth)
	}
	if gotCurrency != "EUR" || gotSources != "buff163" {
		t.Fatalf("query mismatch: currency=%q sources=%q", gotCurrency, gotSources)
	}
	if hasSearch {
		t.Fatalf("search should be omitted, got %q", gotSearch)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if p, ok := items[0].Price(SourceBuff163); !ok || p != 1250 {
		t.Fatalf("price mismatch: %v ok=%v", p, ok)
	}
	if _, ok := items[1].Price(SourceBuff163); ok {
		t.Fatal("null price must be absent")
	}
}

func TestGetPricesSearch(t *testing.T) {
	var gotSearch string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSearch = r.URL.Query().Get("search")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	s := NewService(srv.URL, 5*time.Second)
	if _, err := s.GetPrices(context.Background(), apiKey, "USD", "AK-47 | Redline (Field-Tested)"); err != nil {
		t.Fatalf("get prices: %v", err)
	}
	if gotSearch != "AK-47 | Redline (Field-Tested)" {
		t.Fatalf("search mismatch: %q", gotSearch)
	}
}

func TestGetPricesFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		},
		"malformed": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"items":`))
		},
		"null body": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`null`))
		},
		"object body": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"items":[]}`))
		},
	}
	for name, h := range cases {
		srv := httptest.NewServer(h)
		s := NewService(srv.URL, 5*time.Second)
		_, err := s.GetPrices(context.Background(), apiKey, "USD", "")
		srv.Close()
		if !errors.Is(err, errx.ErrUpstream) {
			t.Fatalf("%s: expected upstream error, got %v", name, err)
		}
	}
}

func TestGetPricesTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	s := NewService(url, time.Second)
	if _, err := s.GetPrices(context.Background(), apiKey, "USD", ""); !errors.Is(err, errx.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestRequestSpacing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	base := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	var (
		mu     sync.Mutex
		now    = base
		sleeps []time.Duration
	)
	s := NewService(srv.URL, time.Second)
	s.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	s.sleep = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		sleeps = append(sleeps, d)
		now = now.Add(d)
		return nil
	}

	ctx := context.Background()
	_, _ = s.GetPrices(ctx, apiKey, "USD", "")
	mu.Lock()
	now = now.Add(300 * time.Millisecond)
	mu.Unlock()
	_, _ = s.GetPrices(ctx, apiKey, "USD", "")
	mu.Lock()
	now = now.Add(2 * time.Second)
	mu.Unlock()
	_, _ = s.GetPrices(ctx, apiKey, "USD", "")

	if len(sleeps) != 1 {
		t.Fatalf("expected exactly one wait, got %v", sleeps)
	}
	if sleeps[0] != 700*time.Millisecond {
		t.Fatalf("wait mismatch: %v", sleeps[0])
	}
}

func TestMajorUnits(t *testing.T) {
	cases := map[float64]float64{1250: 12.5, 1: 0.01, 0: 0, 123456: 1234.56, 7: 0.07}
	for in, want := range cases {
		if got := MajorUnits(in); got != want {
			t.Fatalf("MajorUnits(%v) = %v, want %v", in, got, want)
		}
	}
}
