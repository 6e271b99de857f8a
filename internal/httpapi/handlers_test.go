package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dukkan/backend/internal/cache"
	"dukkan/backend/internal/service"
	"dukkan/backend/internal/store/memory"
)

func newTestHandler() http.Handler {
	svc := service.New(memory.New(), cache.NoopDashboardCache{}, 5, 15*time.Second)
	return New(svc, "http://127.0.0.1:3000").Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dest); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func createProduct(t *testing.T, handler http.Handler, name string, stock int, purchaseCents, sellingCents int64) string {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/products", map[string]any{
		"name":                 name,
		"category":             "honey",
		"stock":                stock,
		"purchase_price_cents": purchaseCents,
		"selling_price_cents":  sellingCents,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Product struct {
			ID string `json:"id"`
		} `json:"product"`
	}
	decodeBody(t, rec, &resp)
	if resp.Product.ID == "" {
		t.Fatalf("expected product id in response")
	}
	return resp.Product.ID
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestHandler()

	rec := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCheckoutFlowThroughAPI(t *testing.T) {
	handler := newTestHandler()
	productID := createProduct(t, handler, "Sidr Honey 1kg", 10, 500, 800)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/sales", map[string]any{
		"customer_name": "Ahmed",
		"items": []map[string]any{
			{"product_id": productID, "quantity": 3},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	var saleResp struct {
		Sale struct {
			ID            string `json:"id"`
			TotalCents    int64  `json:"total_cents"`
			ProfitCents   int64  `json:"profit_cents"`
			PaymentStatus string `json:"payment_status"`
		} `json:"sale"`
	}
	decodeBody(t, rec, &saleResp)
	if saleResp.Sale.TotalCents != 2400 || saleResp.Sale.ProfitCents != 900 {
		t.Fatalf("unexpected sale amounts: %+v", saleResp.Sale)
	}
	if saleResp.Sale.PaymentStatus != "paid" {
		t.Fatalf("expected paid status, got %s", saleResp.Sale.PaymentStatus)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/products/"+productID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var productResp struct {
		Product struct {
			Stock int `json:"stock"`
		} `json:"product"`
	}
	decodeBody(t, rec, &productResp)
	if productResp.Product.Stock != 7 {
		t.Fatalf("expected stock 7, got %d", productResp.Product.Stock)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/dashboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var stats struct {
		TodaySalesCents int64 `json:"today_sales_cents"`
	}
	decodeBody(t, rec, &stats)
	if stats.TodaySalesCents != 2400 {
		t.Fatalf("expected today sales 2400, got %d", stats.TodaySalesCents)
	}
}

func TestSaleAgainstUnknownProductReturns404(t *testing.T) {
	handler := newTestHandler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/sales", map[string]any{
		"items": []map[string]any{
			{"product_id": "prod-missing", "quantity": 1},
		},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestOversellReturns409(t *testing.T) {
	handler := newTestHandler()
	productID := createProduct(t, handler, "Honeycomb Slab", 2, 700, 1200)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/sales", map[string]any{
		"items": []map[string]any{
			{"product_id": productID, "quantity": 5},
		},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestUnknownJSONFieldReturns400(t *testing.T) {
	handler := newTestHandler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/products", map[string]any{
		"name":     "Sidr Honey 1kg",
		"surprise": true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestSettleDebtThroughPatch(t *testing.T) {
	handler := newTestHandler()
	productID := createProduct(t, handler, "Olive Oil 1L", 20, 600, 1000)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/sales", map[string]any{
		"customer_name": "Yusuf",
		"items": []map[string]any{
			{"product_id": productID, "quantity": 2},
		},
		"paid_cents": 500,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var saleResp struct {
		Sale struct {
			ID            string `json:"id"`
			PaymentStatus string `json:"payment_status"`
		} `json:"sale"`
	}
	decodeBody(t, rec, &saleResp)
	if saleResp.Sale.PaymentStatus != "partial" {
		t.Fatalf("expected partial, got %s", saleResp.Sale.PaymentStatus)
	}

	rec = doJSON(t, handler, http.MethodPatch, "/api/v1/sales/"+saleResp.Sale.ID, map[string]any{
		"paid_cents": 2000,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var updated struct {
		Sale struct {
			PaymentStatus string `json:"payment_status"`
		} `json:"sale"`
	}
	decodeBody(t, rec, &updated)
	if updated.Sale.PaymentStatus != "paid" {
		t.Fatalf("expected paid after settling, got %s", updated.Sale.PaymentStatus)
	}
}

func TestDeleteSaleRestoresStockThroughAPI(t *testing.T) {
	handler := newTestHandler()
	productID := createProduct(t, handler, "Sesame Oil 500ml", 10, 400, 700)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/sales", map[string]any{
		"items": []map[string]any{
			{"product_id": productID, "quantity": 4},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var saleResp struct {
		Sale struct {
			ID string `json:"id"`
		} `json:"sale"`
	}
	decodeBody(t, rec, &saleResp)

	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/sales/"+saleResp.Sale.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/products/"+productID, nil)
	var productResp struct {
		Product struct {
			Stock int `json:"stock"`
		} `json:"product"`
	}
	decodeBody(t, rec, &productResp)
	if productResp.Product.Stock != 10 {
		t.Fatalf("expected stock restored to 10, got %d", productResp.Product.Stock)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/sales/"+saleResp.Sale.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted sale, got %d", rec.Code)
	}
}

func TestPurchaseIntakeThroughAPI(t *testing.T) {
	handler := newTestHandler()
	productID := createProduct(t, handler, "Flaxseed Oil 250ml", 4, 350, 600)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/purchases", map[string]any{
		"supplier_name": "Al Noor Apiary",
		"items": []map[string]any{
			{"product_id": productID, "quantity": 20},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/products/"+productID, nil)
	var productResp struct {
		Product struct {
			Stock int `json:"stock"`
		} `json:"product"`
	}
	decodeBody(t, rec, &productResp)
	if productResp.Product.Stock != 24 {
		t.Fatalf("expected stock 24 after intake, got %d", productResp.Product.Stock)
	}
}

func TestMigrateEndpoint(t *testing.T) {
	handler := newTestHandler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/migrate", map[string]any{
		"products": []map[string]any{
			{"legacy_id": "17", "name": "Sidr Honey 1kg", "stock": 30, "purchase_price_cents": 500, "selling_price_cents": 800},
		},
		"sales": []map[string]any{
			{
				"customer_name": "Ahmed",
				"items":         []map[string]any{{"legacy_product_id": "17", "quantity": 3, "price_cents": 750}},
			},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		ProductsMigrated int `json:"products_migrated"`
		SalesMigrated    int `json:"sales_migrated"`
	}
	decodeBody(t, rec, &resp)
	if resp.ProductsMigrated != 1 || resp.SalesMigrated != 1 {
		t.Fatalf("unexpected migrate counts: %+v", resp)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestHandler()

	rec := doJSON(t, handler, http.MethodPut, "/api/v1/sales", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestSecurityHeadersAndCORS(t *testing.T) {
	handler := newTestHandler()

	rec := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	headers := map[string]string{
		"X-Content-Type-Options":      "nosniff",
		"X-Frame-Options":             "DENY",
		"Access-Control-Allow-Origin": "http://127.0.0.1:3000",
	}
	for key, want := range headers {
		if got := rec.Header().Get(key); got != want {
			t.Fatalf("header %s: expected %q, got %q", key, want, got)
		}
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/products", nil)
	preflight := httptest.NewRecorder()
	handler.ServeHTTP(preflight, req)
	if preflight.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", preflight.Code)
	}
}

func TestOversizedBodyRejected(t *testing.T) {
	handler := newTestHandler()

	huge := fmt.Sprintf(`{"name": %q}`, strings.Repeat("x", 2<<20))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(huge))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized body, got %d", rec.Code)
	}
}

func TestMigrateAcceptsLargeDataset(t *testing.T) {
	handler := newTestHandler()

	// Larger than the regular body cap; a full legacy export routinely is.
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/migrate", map[string]any{
		"products": []map[string]any{
			{
				"legacy_id":            "17",
				"name":                 "Sidr Honey 1kg",
				"stock":                30,
				"purchase_price_cents": 500,
				"selling_price_cents":  800,
				"description":          strings.Repeat("x", 2<<20),
			},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for large migrate payload, got %d", rec.Code)
	}

	var resp struct {
		ProductsMigrated int `json:"products_migrated"`
	}
	decodeBody(t, rec, &resp)
	if resp.ProductsMigrated != 1 {
		t.Fatalf("expected one migrated product, got %d", resp.ProductsMigrated)
	}
}
