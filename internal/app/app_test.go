package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xenking/storefront/pkg/httpmiddleware"
)

func TestBaseContext(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	base := baseContext(ctx, zap.New(core))(nil)
	require.NoError(t, base.Err(), "requests must survive root cancellation")

	zctx.From(base).Info("hello")
	require.Equal(t, 1, logs.Len())
}

func TestBaseContext_PanicLoggedOutsideInjectLogger(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	base := baseContext(context.Background(), zap.New(core))(nil)

	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	h := httpmiddleware.Wrap(panicking,
		httpmiddleware.Recovery(),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zap.NewNop()),
	)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil).WithContext(base)
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Panic recovered", entry.Message)
	assert.Contains(t, entry.ContextMap(), "stack")
}
