// Package live pushes product list changes to browsers over WebSocket.
package live

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/product"
)

// EventProductsChange names the message sent after a catalog mutation.
const EventProductsChange = "productsChange"

// Options configures a Hub.
type Options struct {
	// Buffer is the number of pending messages kept per client. A client
	// whose buffer is full misses the message.
	Buffer int
	// WriteTimeout bounds a single message write.
	WriteTimeout time.Duration
	// OriginPatterns lists extra origins allowed to connect besides the
	// request host.
	OriginPatterns []string
}

func (o *Options) setDefaults() {
	if o.Buffer <= 0 {
		o.Buffer = 8
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
}

type client struct {
	send chan []byte
}

var _ product.Notifier = (*Hub)(nil)

// Hub tracks connected clients and broadcasts product lists to them. It
// implements product.Notifier and serves the WebSocket endpoint.
type Hub struct {
	opts Options

	mu      sync.Mutex
	clients map[*client]struct{}
	done    chan struct{}
	closed  bool

	broadcasts metric.Int64Counter
	dropped    metric.Int64Counter
	connected  metric.Int64UpDownCounter
}

// NewHub creates a Hub reporting its metrics to mp.
func NewHub(mp metric.MeterProvider, opts Options) (*Hub, error) {
	opts.setDefaults()
	meter := mp.Meter("github.com/xenking/storefront/internal/live")

	broadcasts, err := meter.Int64Counter("live.broadcasts",
		metric.WithDescription("Product list broadcasts sent to the hub"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "broadcasts counter")
	}
	dropped, err := meter.Int64Counter("live.messages.dropped",
		metric.WithDescription("Messages dropped because a client buffer was full"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "dropped counter")
	}
	connected, err := meter.Int64UpDownCounter("live.clients",
		metric.WithDescription("Connected WebSocket clients"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "clients counter")
	}

	return &Hub{
		opts:       opts,
		clients:    make(map[*client]struct{}),
		done:       make(chan struct{}),
		broadcasts: broadcasts,
		dropped:    dropped,
		connected:  connected,
	}, nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ProductsChanged sends the full product list to every connected client
// without blocking on slow ones.
func (h *Hub) ProductsChanged(ctx context.Context, products []product.Product) {
	msg := encodeChange(products)

	h.mu.Lock()
	var sent, dropped int
	for c := range h.clients {
		select {
		case c.send <- msg:
			sent++
		default:
			dropped++
		}
	}
	h.mu.Unlock()

	h.broadcasts.Add(ctx, 1)
	if dropped > 0 {
		h.dropped.Add(ctx, int64(dropped))
		zctx.From(ctx).Warn("Dropped product change for slow clients", zap.Int("clients", dropped))
	}
	zctx.From(ctx).Debug("Broadcast products change",
		zap.Int("products", len(products)),
		zap.Int("clients", sent),
	)
}

func encodeChange(products []product.Product) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("event")
	e.Str(EventProductsChange)
	e.FieldStart("products")
	product.EncodeList(e, products)
	e.ObjEnd()

	// The encoder is pooled, so the bytes must be copied out.
	return append([]byte(nil), e.Bytes()...)
}

func (h *Hub) register() (*client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	c := &client{send: make(chan []byte, h.opts.Buffer)}
	h.clients[c] = struct{}{}
	return c, true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// ServeHTTP upgrades the request and streams broadcasts to the client until
// it disconnects or the hub is closed. Messages from the client are ignored.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lg := zctx.From(r.Context())

	// The live connection outlives the server's per-request deadlines.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	// Registering before the handshake completes means a client sees every
	// change made after its dial returns.
	c, ok := h.register()
	if !ok {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.unregister(c)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.opts.OriginPatterns,
	})
	if err != nil {
		lg.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.CloseNow() }()

	ctx := conn.CloseRead(context.WithoutCancel(r.Context()))
	h.connected.Add(ctx, 1)
	defer h.connected.Add(context.WithoutCancel(ctx), -1)
	lg.Info("Live client connected")

	for {
		select {
		case <-ctx.Done():
			lg.Info("Live client disconnected")
			return
		case <-h.done:
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case msg := <-c.send:
			if err := h.write(ctx, conn, msg); err != nil {
				lg.Debug("Live write failed", zap.Error(err))
				return
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, h.opts.WriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, msg)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.done)
}
