package messaging

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"csgo-pricecheck/internal/logx"

	"github.com/gorilla/websocket"
)

// ErrClosed completes requests still pending when the connection drops.
var ErrClosed = errors.New("messaging: connection closed")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSHandler serves the protocol over a WebSocket. Each request is answered
// on its own goroutine; responses carry the request ID.
func WSHandler(h Handler) http.Handler {
	log := logx.With("ws")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("upgrade failed")
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		var (
			writeMu sync.Mutex
			wg      sync.WaitGroup
		)
		for {
			var req Request
			if err := conn.ReadJSON(&req); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Debug().Err(err).Msg("read failed")
				}
				break
			}
			wg.Add(1)
			go func(req Request) {
				defer wg.Done()
				resp := h.Handle(ctx, req)
				resp.ID = req.ID
				writeMu.Lock()
				defer writeMu.Unlock()
				if err := conn.WriteJSON(resp); err != nil {
					log.Debug().Err(err).Uint64("id", req.ID).Msg("write failed")
				}
			}(req)
		}
		cancel()
		wg.Wait()
	})
}

// WSClient sends requests over one WebSocket connection and matches
// responses by ID. Every Send completes exactly once.
type WSClient struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan Response
	closed  bool
	done    chan struct{}
}

func DialWS(ctx context.Context, url string) (*WSClient, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &WSClient{
		conn:    conn,
		pending: make(map[uint64]chan Response),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *WSClient) Send(ctx context.Context, req Request) (Response, error) {
	ch := make(chan Response, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Response{}, ErrClosed
	}
	c.nextID++
	req.ID = c.nextID
	c.pending[req.ID] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	err := c.conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(req.ID)
		return Response{}, fmt.Errorf("send %s: %w", req.Action, err)
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-c.done:
		// readLoop may have delivered just before closing.
		select {
		case resp := <-ch:
			return resp, nil
		default:
			return Response{}, ErrClosed
		}
	case <-ctx.Done():
		c.forget(req.ID)
		return Response{}, ctx.Err()
	}
}

// Done is closed once the connection is gone.
func (c *WSClient) Done() <-chan struct{} {
	return c.done
}

func (c *WSClient) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.conn.Close()
}

func (c *WSClient) readLoop() {
	defer c.shutdown()
	for {
		var resp Response
		if err := c.conn.ReadJSON(&resp); err != nil {
			return
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

func (c *WSClient) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *WSClient) shutdown() {
	c.mu.Lock()
	c.closed = true
	c.pending = make(map[uint64]chan Response)
	c.mu.Unlock()
	close(c.done)
}
