package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

var (
	errRouteNotFound   = errors.New("route not found")
	errInvalidQuantity = errors.New("invalid quantity")
)

// apiError is the client-facing form of an error.
type apiError struct {
	status  int
	message string
	fields  []product.FieldError
}

// classify maps domain errors to responses. Anything unrecognized is a 500
// whose cause stays in the logs.
func classify(err error) apiError {
	var (
		validation *product.ValidationError
		query      *product.QueryError
	)
	switch {
	case errors.As(err, &validation):
		return apiError{status: http.StatusBadRequest, message: validation.Error(), fields: validation.Fields}
	case errors.As(err, &query):
		return apiError{status: http.StatusBadRequest, message: query.Error()}
	case errors.Is(err, product.ErrMalformedPayload):
		return apiError{status: http.StatusBadRequest, message: "Invalid JSON format"}
	case errors.Is(err, product.ErrMissingPayload):
		return apiError{status: http.StatusBadRequest, message: "Missing the product information"}
	case errors.Is(err, product.ErrDuplicateCode):
		return apiError{status: http.StatusBadRequest, message: "Product already exists"}
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, errInvalidQuantity):
		return apiError{status: http.StatusBadRequest, message: "Invalid quantity"}
	case errors.Is(err, cart.ErrQuantityLimit):
		return apiError{status: http.StatusBadRequest, message: "Quantity limit exceeded"}
	case errors.Is(err, product.ErrNotFound):
		return apiError{status: http.StatusNotFound, message: "Product not found"}
	case errors.Is(err, cart.ErrNotFound):
		return apiError{status: http.StatusNotFound, message: "Cart not found"}
	case errors.Is(err, product.ErrUnknownCategory):
		return apiError{status: http.StatusNotFound, message: "Category not found"}
	case errors.Is(err, errRouteNotFound):
		return apiError{status: http.StatusNotFound, message: "Not found"}
	default:
		return apiError{status: http.StatusInternalServerError, message: httpmiddleware.InternalErrorMessage}
	}
}

func writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	ae := classify(err)
	lg := zctx.From(r.Context())
	if ae.status >= http.StatusInternalServerError {
		lg.Error("Request failed", zap.Error(err), zap.String("path", r.URL.Path))
	} else {
		lg.Debug("Request rejected", zap.Error(err), zap.Int("status", ae.status))
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("error")
	e.Str(ae.message)
	if len(ae.fields) > 0 {
		e.FieldStart("fields")
		e.ArrStart()
		for _, f := range ae.fields {
			e.ObjStart()
			e.FieldStart("field")
			e.Str(f.Field)
			e.FieldStart("reason")
			e.Str(f.Reason)
			e.ObjEnd()
		}
		e.ArrEnd()
	}
	e.ObjEnd()

	writeJSON(w, ae.status, e)
}

// writeJSON writes the encoded document with status.
func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
