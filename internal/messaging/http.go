package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPSender posts requests to a `/messages` endpoint.
type HTTPSender struct {
	url    string
	client *resty.Client
}

func NewHTTPSender(url string, timeout time.Duration) *HTTPSender {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")
	return &HTTPSender{url: url, client: client}
}

func (s *HTTPSender) Send(ctx context.Context, req Request) (Response, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		Post(s.url)
	if err != nil {
		return Response{}, fmt.Errorf("post %s: %w", req.Action, err)
	}

	var out Response
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return Response{}, fmt.Errorf("decode %s response (%s): %w", req.Action, resp.Status(), err)
	}
	return out, nil
}
