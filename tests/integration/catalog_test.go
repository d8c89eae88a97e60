//go:build integration

package integration

import (
	"net/http"
	"net/url"
	"testing"
)

func TestListProducts_FirstWindow(t *testing.T) {
	resp := doGet(t, "/api/products?limit=1&offset=0")
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusOK)
	body := decodeJSON[windowResponse](t, resp)
	if len(body.Products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(body.Products))
	}
	if body.Products[0].Code != seedProducts[0].Code {
		t.Errorf("first product: got %q, want %q", body.Products[0].Code, seedProducts[0].Code)
	}
	if body.Previous != nil {
		t.Errorf("previous: got %q, want null", *body.Previous)
	}
	if body.Next == nil {
		t.Fatal("next: got null")
	}
	next, err := url.Parse(*body.Next)
	if err != nil {
		t.Fatalf("parse next link: %v", err)
	}
	if got := next.Query().Get("offset"); got != "1" {
		t.Errorf("next offset: got %q, want 1", got)
	}
}

func TestListProducts_Category(t *testing.T) {
	resp := doGet(t, "/api/products?category=retro")
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusOK)
	body := decodeJSON[windowResponse](t, resp)
	if len(body.Products) != 1 || body.Products[0].Code != "SEED-URU" {
		t.Fatalf("unexpected products: %+v", body.Products)
	}
}

func TestListProducts_UnknownCategory(t *testing.T) {
	resp := doGet(t, "/api/products?category=pelotas")
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusNotFound)
	if body := decodeJSON[errorResponse](t, resp); body.Error != "Category not found" {
		t.Errorf("error: got %q", body.Error)
	}
}

func TestProductLifecycle(t *testing.T) {
	created := createProduct(t, 1500)
	if created.ID == "" {
		t.Fatal("created product has no id")
	}

	resp := doGet(t, "/api/products/"+created.ID)
	got := decodeJSON[productResponse](t, resp)
	resp.Body.Close()
	if got.Price != 1500 || got.Category != "Ropa de entrenamiento" {
		t.Errorf("stored product: %+v", got)
	}

	resp = do(t, http.MethodPut, "/api/products/"+created.ID, map[string]any{"stock": 0, "status": false})
	expectStatus(t, resp, http.StatusOK)
	updated := decodeJSON[productMessage](t, resp)
	resp.Body.Close()
	if updated.Product.Stock != 0 || updated.Product.Status {
		t.Errorf("update not applied: %+v", updated.Product)
	}
	if updated.Product.Title != created.Title {
		t.Errorf("absent field changed: %q", updated.Product.Title)
	}

	resp = do(t, http.MethodPut, "/api/products/"+created.ID, map[string]any{"code": "SEED-NAC"})
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = do(t, http.MethodDelete, "/api/products/"+created.ID, nil)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = doGet(t, "/api/products/"+created.ID)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusNotFound)
}

func TestCreateProduct_Duplicate(t *testing.T) {
	p := seedProducts[0]
	resp := doPost(t, "/api/products", p)
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusBadRequest)
	if body := decodeJSON[errorResponse](t, resp); body.Error != "Product already exists" {
		t.Errorf("error: got %q", body.Error)
	}
}

func TestCreateProduct_Invalid(t *testing.T) {
	resp := doPost(t, "/api/products", map[string]any{"title": "Sin precio", "price": 0})
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusBadRequest)
}
