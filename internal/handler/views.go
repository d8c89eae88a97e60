package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/product"
)

// pageData is the template context of both pages.
type pageData struct {
	Title      string
	Products   []product.Product
	Categories []product.Category
	Error      string
	Form       formValues
}

// formValues echoes the submitted form back after a rejected submission.
type formValues struct {
	Title, Description, Code, Price, Stock, Category string
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) error {
	products, err := h.products.All(r.Context())
	if err != nil {
		return err
	}
	return h.render(w, http.StatusOK, "home.html", pageData{
		Title:    "Productos",
		Products: products,
	})
}

func (h *Handler) realtimeProducts(w http.ResponseWriter, r *http.Request) error {
	products, err := h.products.All(r.Context())
	if err != nil {
		return err
	}
	return h.render(w, http.StatusOK, "realtimeproducts.html", pageData{
		Title:      "Productos en tiempo real",
		Products:   products,
		Categories: product.Categories,
	})
}

// createFromForm creates an active product from the live page form and
// redirects back to the page. A rejected form is rendered again with 400.
func (h *Handler) createFromForm(w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return errors.Wrap(err, "parse form")
	}
	form := formValues{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Code:        r.PostFormValue("code"),
		Price:       r.PostFormValue("price"),
		Stock:       r.PostFormValue("stock"),
		Category:    r.PostFormValue("category"),
	}

	_, err := h.products.Create(r.Context(), form.patch())
	if err == nil {
		http.Redirect(w, r, "/realtimeproducts", http.StatusSeeOther)
		return nil
	}

	ae := classify(err)
	if ae.status != http.StatusBadRequest {
		return err
	}
	zctx.From(r.Context()).Debug("Product form rejected", zap.Error(err))

	products, listErr := h.products.All(r.Context())
	if listErr != nil {
		return listErr
	}
	return h.render(w, http.StatusBadRequest, "realtimeproducts.html", pageData{
		Title:      "Productos en tiempo real",
		Products:   products,
		Categories: product.Categories,
		Error:      ae.message,
		Form:       form,
	})
}

// patch converts the form to a creation patch with status forced on.
// Unparseable numbers are left out so validation reports them.
func (f formValues) patch() product.Patch {
	status := true
	p := product.Patch{Status: &status}
	if f.Title != "" {
		p.Title = &f.Title
	}
	if f.Description != "" {
		p.Description = &f.Description
	}
	if f.Code != "" {
		p.Code = &f.Code
	}
	if price, err := decimal.NewFromString(strings.TrimSpace(f.Price)); err == nil {
		p.Price = &price
	}
	if stock, err := strconv.Atoi(strings.TrimSpace(f.Stock)); err == nil {
		p.Stock = &stock
	}
	if f.Category != "" {
		c := product.Category(f.Category)
		p.Category = &c
	}
	return p
}

// render executes the template into a buffer first so a failing template
// still produces a clean 500.
func (h *Handler) render(w http.ResponseWriter, status int, name string, data pageData) error {
	var buf bytes.Buffer
	if err := h.pages.ExecuteTemplate(&buf, name, data); err != nil {
		return errors.Wrapf(err, "render %s", name)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}
