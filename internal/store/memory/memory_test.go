package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"dukkan/backend/internal/domain"
	"dukkan/backend/internal/store"
)

func TestAdjustStockGuardsNegative(t *testing.T) {
	s := New()
	ctx := context.Background()

	product := domain.Product{ID: "prod-1", Name: "Sidr Honey 1kg", Stock: 3}
	if _, err := s.CreateProduct(ctx, product); err != nil {
		t.Fatalf("create product: %v", err)
	}

	if err := s.AdjustStock(ctx, "prod-1", -3); err != nil {
		t.Fatalf("adjust to zero should succeed: %v", err)
	}
	err := s.AdjustStock(ctx, "prod-1", -1)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	got, err := s.GetProductByID(ctx, "prod-1")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.Stock != 0 {
		t.Fatalf("failed adjustment must not change stock, got %d", got.Stock)
	}

	if err := s.AdjustStock(ctx, "missing", 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing product, got %v", err)
	}
}

func TestListSalesOrderedByDateDesc(t *testing.T) {
	s := New()
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"sale-a", "sale-b", "sale-c"} {
		sale := domain.Sale{
			ID:    id,
			Items: []domain.LineItem{{ProductID: "prod-1", Quantity: 1}},
			Date:  base.Add(time.Duration(i) * time.Hour),
		}
		if _, err := s.CreateSale(ctx, sale); err != nil {
			t.Fatalf("create sale %s: %v", id, err)
		}
	}

	sales, err := s.ListSales(ctx)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 3 {
		t.Fatalf("expected 3 sales, got %d", len(sales))
	}
	if sales[0].ID != "sale-c" || sales[2].ID != "sale-a" {
		t.Fatalf("expected newest first, got %s,%s,%s", sales[0].ID, sales[1].ID, sales[2].ID)
	}
}

func TestSaleCloneIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()

	paid := int64(100)
	sale := domain.Sale{
		ID:        "sale-1",
		Items:     []domain.LineItem{{ProductID: "prod-1", Quantity: 2}},
		PaidCents: &paid,
		Date:      time.Now().UTC(),
	}
	created, err := s.CreateSale(ctx, sale)
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	created.Items[0].Quantity = 99
	*created.PaidCents = 0

	stored, err := s.GetSaleByID(ctx, "sale-1")
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if stored.Items[0].Quantity != 2 {
		t.Fatalf("mutating the returned sale leaked into the store: qty %d", stored.Items[0].Quantity)
	}
	if *stored.PaidCents != 100 {
		t.Fatalf("mutating the returned paid amount leaked into the store: %d", *stored.PaidCents)
	}
}

func TestNewSeededHasCatalog(t *testing.T) {
	s := NewSeeded()
	products, err := s.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) == 0 {
		t.Fatal("seeded store should not be empty")
	}
	for _, p := range products {
		if p.ID == "" || p.Name == "" {
			t.Fatalf("seeded product missing id or name: %+v", p)
		}
	}
}
