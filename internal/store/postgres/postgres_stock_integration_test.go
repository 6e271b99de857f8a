package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"dukkan/backend/internal/domain"
	"dukkan/backend/internal/store"
)

func TestAdjustStockGuardsNegativeAgainstRealDatabase(t *testing.T) {
	databaseURL := os.Getenv("DUKKAN_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set DUKKAN_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	productID := fmt.Sprintf("prod-it-%d", stamp)
	saleID := fmt.Sprintf("sale-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, saleID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	})

	now := time.Now().UTC()
	if _, err := s.CreateProduct(ctx, domain.Product{
		ID:                 productID,
		Name:               "Integration Honey 1kg",
		Category:           "honey",
		Stock:              10,
		PurchasePriceCents: 500,
		SellingPriceCents:  800,
		Unit:               "jar",
		CreatedAt:          now,
		UpdatedAt:          now,
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	if err := s.AdjustStock(ctx, productID, -10); err != nil {
		t.Fatalf("adjust stock to zero: %v", err)
	}
	if err := s.AdjustStock(ctx, productID, -1); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	product, err := s.GetProductByID(ctx, productID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Stock != 0 {
		t.Fatalf("expected stock 0 after guarded decrement, got %d", product.Stock)
	}

	paid := int64(1600)
	if _, err := s.CreateSale(ctx, domain.Sale{
		ID:           saleID,
		CustomerName: "Integration Customer",
		Items: []domain.LineItem{
			{ProductID: productID, ProductName: "Integration Honey 1kg", Quantity: 2, PriceCents: 800, SubtotalCents: 1600},
		},
		TotalCents:    1600,
		PaidCents:     &paid,
		PaymentStatus: domain.PaymentStatusPaid,
		ProfitCents:   600,
		Date:          now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	sale, err := s.GetSaleByID(ctx, saleID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if len(sale.Items) != 1 || sale.Items[0].SubtotalCents != 1600 {
		t.Fatalf("unexpected sale items round-trip: %+v", sale.Items)
	}
	if sale.PaidCents == nil || *sale.PaidCents != 1600 {
		t.Fatalf("expected paid amount 1600, got %+v", sale.PaidCents)
	}
}
