package live

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/storefront/internal/domain/product"
)

func newTestHub(t *testing.T, opts Options) *Hub {
	t.Helper()
	h, err := NewHub(noop.NewMeterProvider(), opts)
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h
}

func jersey() product.Product {
	return product.Product{
		ID:          "p1",
		Title:       "Jersey",
		Description: "Home kit",
		Code:        "J1",
		Price:       decimal.NewFromInt(50),
		Status:      true,
		Stock:       10,
		Category:    product.CategoryHome,
	}
}

func TestHub_Broadcast(t *testing.T) {
	h := newTestHub(t, Options{})
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer func() { _ = conn.CloseNow() }()

	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 10*time.Millisecond)

	h.ProductsChanged(ctx, []product.Product{jersey()})

	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, typ)

	var (
		event    string
		products []product.Product
	)
	err = jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "event":
			v, err := d.Str()
			event = v
			return err
		case "products":
			v, err := product.DecodeList(d)
			products = v
			return err
		default:
			return d.Skip()
		}
	})
	require.NoError(t, err)
	assert.Equal(t, EventProductsChange, event)
	require.Len(t, products, 1)
	assert.Equal(t, "J1", products[0].Code)
	assert.True(t, products[0].Price.Equal(decimal.NewFromInt(50)))
}

func TestHub_ClientDisconnect(t *testing.T) {
	h := newTestHub(t, Options{})
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	assert.Eventually(t, func() bool { return h.Clients() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_DropsForFullBuffer(t *testing.T) {
	h := newTestHub(t, Options{Buffer: 1})
	c, ok := h.register()
	require.True(t, ok)

	ctx := context.Background()
	h.ProductsChanged(ctx, []product.Product{jersey()})
	h.ProductsChanged(ctx, nil)

	require.Len(t, c.send, 1)
	first := <-c.send
	assert.Contains(t, string(first), `"code":"J1"`, "the queued message is the first one")
}

func TestHub_NoClients(t *testing.T) {
	h := newTestHub(t, Options{})
	assert.NotPanics(t, func() {
		h.ProductsChanged(context.Background(), []product.Product{jersey()})
	})
}

func TestHub_Close(t *testing.T) {
	h := newTestHub(t, Options{})
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer func() { _ = conn.CloseNow() }()
	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 10*time.Millisecond)

	h.Close()

	_, _, err = conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))

	_, ok := h.register()
	assert.False(t, ok, "a closed hub refuses clients")
}

func TestEncodeChange_Empty(t *testing.T) {
	assert.Equal(t, `{"event":"productsChange","products":[]}`, string(encodeChange(nil)))
}
