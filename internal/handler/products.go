package handler

import (
	"io"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) error {
	req, err := product.ParsePageRequest(r.URL.Query())
	if err != nil {
		return err
	}
	page, err := h.products.List(r.Context(), req)
	if err != nil {
		return err
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	base := h.baseURL(r)
	if req.Mode == product.ModePage {
		encodePage(e, page, base)
	} else {
		encodeWindow(e, page, base)
	}
	writeJSON(w, http.StatusOK, e)
	return nil
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) error {
	p, err := h.products.Get(r.Context(), r.PathValue("pid"))
	if err != nil {
		return err
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	p.Encode(e)
	writeJSON(w, http.StatusOK, e)
	return nil
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}
	patch, err := product.DecodeCreate(body)
	if err != nil {
		return err
	}
	created, err := h.products.Create(r.Context(), patch)
	if err != nil {
		return err
	}
	writeProductMessage(w, "Product added to list successfully", created)
	return nil
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}
	patch, err := product.DecodeUpdate(body)
	if err != nil {
		return err
	}
	updated, err := h.products.Update(r.Context(), r.PathValue("pid"), patch)
	if err != nil {
		return err
	}
	writeProductMessage(w, "Product updated successfully", updated)
	return nil
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) error {
	if err := h.products.Delete(r.Context(), r.PathValue("pid")); err != nil {
		return err
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.ObjStart()
	e.FieldStart("message")
	e.Str("Product deleted successfully")
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e)
	return nil
}

func writeProductMessage(w http.ResponseWriter, msg string, p *product.Product) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("message")
	e.Str(msg)
	e.FieldStart("product")
	p.Encode(e)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e)
}

// encodeWindow writes the offset mode listing.
func encodeWindow(e *jx.Encoder, page *product.Page, base url.URL) {
	e.ObjStart()
	e.FieldStart("products")
	product.EncodeList(e, page.Products)
	e.FieldStart("next")
	strOrNull(e, page.NextLink(base))
	e.FieldStart("previous")
	strOrNull(e, page.PreviousLink(base))
	e.ObjEnd()
}

// encodePage writes the page mode listing.
func encodePage(e *jx.Encoder, page *product.Page, base url.URL) {
	current := page.Request.Page

	e.ObjStart()
	e.FieldStart("status")
	e.Str("success")
	e.FieldStart("payload")
	product.EncodeList(e, page.Products)
	e.FieldStart("totalPages")
	e.Int(page.TotalPages())
	e.FieldStart("prevPage")
	if page.HasPrevious() {
		e.Int(current - 1)
	} else {
		e.Null()
	}
	e.FieldStart("nextPage")
	if page.HasNext() {
		e.Int(current + 1)
	} else {
		e.Null()
	}
	e.FieldStart("page")
	e.Int(current)
	e.FieldStart("hasPrevPage")
	e.Bool(page.HasPrevious())
	e.FieldStart("hasNextPage")
	e.Bool(page.HasNext())
	e.FieldStart("prevLink")
	strOrNull(e, page.PreviousLink(base))
	e.FieldStart("nextLink")
	strOrNull(e, page.NextLink(base))
	e.ObjEnd()
}

func strOrNull(e *jx.Encoder, s string) {
	if s == "" {
		e.Null()
		return
	}
	e.Str(s)
}

// readBody returns the request body. ValidateJSON has already bounded its
// size and checked its syntax.
func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, httpmiddleware.MaxJSONBody))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return body, nil
}
