// Package messaging carries the request/response protocol between the
// scanner, the background process and pricectl.
package messaging

import (
	"context"
	"errors"
	"net/http"
)

type Action string

const (
	ActionGetPrice       Action = "getPrice"
	ActionFetchAllPrices Action = "fetchAllPrices"
	ActionSaveSettings   Action = "saveSettings"
	ActionGetSettings    Action = "getSettings"
	ActionClearCache     Action = "clearCache"
	// ActionRefreshPrices is only understood by the scanner.
	ActionRefreshPrices Action = "refreshPrices"
)

type Request struct {
	ID             uint64 `json:"id,omitempty"`
	Action         Action `json:"action"`
	MarketHashName string `json:"marketHashName,omitempty"`
	APIKey         string `json:"apiKey,omitempty"`
	Currency       string `json:"currency,omitempty"`
}

// Response fields are filled per action; Price is nil on a cache miss.
type Response struct {
	ID       uint64   `json:"id,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Success  bool     `json:"success,omitempty"`
	APIKey   string   `json:"apiKey,omitempty"`
	Currency string   `json:"currency,omitempty"`
	Error    string   `json:"error,omitempty"`

	// Status is the HTTP status of an error response. It is not sent over
	// the wire; in-process callers use it to answer HTTP requests.
	Status int `json:"-"`
}

// Err turns an error response into a Go error.
func (r Response) Err() error {
	if r.Error == "" {
		return nil
	}
	return errors.New(r.Error)
}

// Handler answers one request. It must always return a response.
type Handler interface {
	Handle(ctx context.Context, req Request) Response
}

type HandlerFunc func(ctx context.Context, req Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Sender delivers a request and waits for its response.
type Sender interface {
	Send(ctx context.Context, req Request) (Response, error)
}

// Local calls a handler in process.
type Local struct {
	Handler Handler
}

func (l Local) Send(ctx context.Context, req Request) (Response, error) {
	resp := l.Handler.Handle(ctx, req)
	resp.ID = req.ID
	return resp, nil
}

// Unsupported answers actions a handler does not know.
func Unsupported(req Request) Response {
	return Response{ID: req.ID, Error: "unsupported action: " + string(req.Action), Status: http.StatusBadRequest}
}
