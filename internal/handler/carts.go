package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/cart"
)

func (h *Handler) createCart(w http.ResponseWriter, r *http.Request) error {
	c, err := h.carts.Create(r.Context())
	if err != nil {
		return err
	}
	writeCartMessage(w, fmt.Sprintf("Cart created with id: %s", c.ID), c)
	return nil
}

// getCart responds with the cart's line items only.
func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) error {
	c, err := h.carts.Get(r.Context(), r.PathValue("cid"))
	if err != nil {
		return err
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	cart.EncodeItems(e, c.Products)
	writeJSON(w, http.StatusOK, e)
	return nil
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}
	quantity, err := decodeQuantity(body)
	if err != nil {
		return err
	}

	cid, pid := r.PathValue("cid"), r.PathValue("pid")
	c, err := h.carts.AddProduct(r.Context(), cid, pid, quantity)
	if err != nil {
		return err
	}
	writeCartMessage(w, fmt.Sprintf("Product with id %s added to cart with id %s successfully", pid, cid), c)
	return nil
}

// decodeQuantity reads the optional {"quantity": n} body. An empty body or
// an absent field means one unit; n must lie in [1, cart.MaxQuantity].
func decodeQuantity(body []byte) (int, error) {
	quantity := 1
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return quantity, nil
	}

	d := jx.DecodeBytes(body)
	if d.Next() != jx.Object {
		return 0, errInvalidQuantity
	}
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "quantity" {
			return d.Skip()
		}
		if d.Next() != jx.Number {
			return errInvalidQuantity
		}
		n, err := d.Int()
		if err != nil || n < 1 || n > cart.MaxQuantity {
			return errInvalidQuantity
		}
		quantity = n
		return nil
	})
	if err != nil {
		return 0, errInvalidQuantity
	}
	return quantity, nil
}

func writeCartMessage(w http.ResponseWriter, msg string, c *cart.Cart) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("message")
	e.Str(msg)
	e.FieldStart("cart")
	c.Encode(e)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e)
}
