// Package handler serves the REST API and the server-rendered pages.
package handler

import (
	"html/template"
	"io/fs"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/web"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// PublicURL is the scheme and host used in pagination links. When empty,
	// links are built from the incoming request.
	PublicURL string
}

// Handler serves the product, cart and page routes.
type Handler struct {
	products  *product.Service
	carts     *cart.Service
	live      http.Handler
	pages     *template.Template
	static    fs.FS
	publicURL *url.URL
}

// New constructs a Handler. live serves the WebSocket channel.
func New(cfg Config, products *product.Service, carts *cart.Service, live http.Handler) (*Handler, error) {
	h := &Handler{
		products: products,
		carts:    carts,
		live:     live,
	}
	if cfg.PublicURL != "" {
		u, err := url.Parse(cfg.PublicURL)
		if err != nil {
			return nil, errors.Wrap(err, "parse public url")
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.Errorf("public url %q must be absolute", cfg.PublicURL)
		}
		h.publicURL = u
	}

	pages, err := template.ParseFS(web.Templates, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "parse templates")
	}
	h.pages = pages

	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		return nil, errors.Wrap(err, "static assets")
	}
	h.static = static
	return h, nil
}

// Register adds every route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("GET /api/products", h.handle(h.listProducts))
	mux.Handle("GET /api/products/{pid}", h.handle(h.getProduct))
	mux.Handle("POST /api/products", h.handle(h.createProduct))
	mux.Handle("PUT /api/products/{pid}", h.handle(h.updateProduct))
	mux.Handle("DELETE /api/products/{pid}", h.handle(h.deleteProduct))

	mux.Handle("POST /api/carts", h.handle(h.createCart))
	mux.Handle("GET /api/carts/{cid}", h.handle(h.getCart))
	mux.Handle("POST /api/carts/{cid}/products/{pid}", h.handle(h.addToCart))

	mux.Handle("/api/", h.handle(func(http.ResponseWriter, *http.Request) error {
		return errRouteNotFound
	}))

	mux.Handle("GET /{$}", h.handle(h.home))
	mux.Handle("GET /realtimeproducts", h.handle(h.realtimeProducts))
	mux.Handle("POST /realtimeproducts", h.handle(h.createFromForm))
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(h.static)))
	if h.live != nil {
		mux.Handle("GET /ws", h.live)
	}
}

// handlerFunc is an HTTP handler whose errors are answered by handle.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (h *Handler) handle(fn handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			writeAPIError(w, r, err)
		}
	})
}

// baseURL returns the absolute URL of the current request path.
func (h *Handler) baseURL(r *http.Request) url.URL {
	if h.publicURL != nil {
		u := *h.publicURL
		u.Path = r.URL.Path
		u.RawQuery = ""
		return u
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path}
}
