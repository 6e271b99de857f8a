package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"dukkan/backend/internal/domain"
	"dukkan/backend/internal/store"
	"dukkan/backend/internal/xid"
)

type Store struct {
	mu        sync.RWMutex
	products  map[string]domain.Product
	sales     map[string]domain.Sale
	purchases map[string]domain.Purchase
}

func New() *Store {
	return &Store{
		products:  make(map[string]domain.Product),
		sales:     make(map[string]domain.Sale),
		purchases: make(map[string]domain.Purchase),
	}
}

// NewSeeded returns a store preloaded with a small catalog for dev/demo mode.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	seed := []domain.Product{
		{Name: "Sidr Honey 1kg", Category: "honey", Stock: 40, PurchasePriceCents: 180000, SellingPriceCents: 250000, Unit: "jar"},
		{Name: "Mountain Honey 1kg", Category: "honey", Stock: 55, PurchasePriceCents: 90000, SellingPriceCents: 130000, Unit: "jar"},
		{Name: "Wildflower Honey 500g", Category: "honey", Stock: 80, PurchasePriceCents: 40000, SellingPriceCents: 60000, Unit: "jar"},
		{Name: "Black Seed Oil 250ml", Category: "oil", Stock: 35, PurchasePriceCents: 50000, SellingPriceCents: 75000, Unit: "bottle"},
		{Name: "Sesame Oil 500ml", Category: "oil", Stock: 25, PurchasePriceCents: 30000, SellingPriceCents: 45000, Unit: "bottle"},
		{Name: "Olive Oil 1L", Category: "oil", Stock: 60, PurchasePriceCents: 70000, SellingPriceCents: 95000, Unit: "bottle"},
		{Name: "Honeycomb Slab", Category: "honey", Stock: 12, PurchasePriceCents: 25000, SellingPriceCents: 40000, Unit: "piece"},
		{Name: "Flaxseed Oil 250ml", Category: "oil", Stock: 4, PurchasePriceCents: 28000, SellingPriceCents: 42000, Unit: "bottle"},
	}
	for _, p := range seed {
		p.ID = xid.New("prod")
		p.CreatedAt = now
		p.UpdatedAt = now
		s.products[p.ID] = p
	}
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})

	return products, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" || product.Name == "" {
		return nil, store.ErrValidation
	}
	if product.Stock < 0 || product.PurchasePriceCents < 0 || product.SellingPriceCents < 0 {
		return nil, store.ErrValidation
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrValidation
	}

	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" || product.Name == "" {
		return nil, store.ErrValidation
	}
	if product.Stock < 0 || product.PurchasePriceCents < 0 || product.SellingPriceCents < 0 {
		return nil, store.ErrValidation
	}
	if _, exists := s.products[product.ID]; !exists {
		return nil, store.ErrNotFound
	}

	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) AdjustStock(_ context.Context, id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[id]
	if !exists {
		return store.ErrNotFound
	}
	next := product.Stock + delta
	if next < 0 {
		return store.ErrInsufficientStock
	}
	product.Stock = next
	product.UpdatedAt = time.Now().UTC()
	s.products[id] = product
	return nil
}

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		sales = append(sales, cloneSale(sale))
	}

	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if a.Date.Equal(b.Date) {
			return cmpString(b.ID, a.ID)
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})

	return sales, nil
}

func (s *Store) GetSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.sales[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copySale := cloneSale(sale)
	return &copySale, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.ID == "" || len(sale.Items) == 0 {
		return nil, store.ErrValidation
	}
	if _, exists := s.sales[sale.ID]; exists {
		return nil, store.ErrValidation
	}

	s.sales[sale.ID] = cloneSale(sale)
	created := cloneSale(s.sales[sale.ID])
	return &created, nil
}

func (s *Store) SaveSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sales[sale.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.sales[sale.ID] = cloneSale(sale)
	saved := cloneSale(s.sales[sale.ID])
	return &saved, nil
}

func (s *Store) DeleteSale(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sales[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.sales, id)
	return nil
}

func (s *Store) ListPurchases(_ context.Context) ([]domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	purchases := make([]domain.Purchase, 0, len(s.purchases))
	for _, purchase := range s.purchases {
		purchases = append(purchases, clonePurchase(purchase))
	}

	slices.SortFunc(purchases, func(a, b domain.Purchase) int {
		if a.Date.Equal(b.Date) {
			return cmpString(b.ID, a.ID)
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})

	return purchases, nil
}

func (s *Store) GetPurchaseByID(_ context.Context, id string) (*domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	purchase, exists := s.purchases[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyPurchase := clonePurchase(purchase)
	return &copyPurchase, nil
}

func (s *Store) CreatePurchase(_ context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if purchase.ID == "" || len(purchase.Items) == 0 {
		return nil, store.ErrValidation
	}
	if _, exists := s.purchases[purchase.ID]; exists {
		return nil, store.ErrValidation
	}

	s.purchases[purchase.ID] = clonePurchase(purchase)
	created := clonePurchase(s.purchases[purchase.ID])
	return &created, nil
}

func (s *Store) SavePurchase(_ context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.purchases[purchase.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.purchases[purchase.ID] = clonePurchase(purchase)
	saved := clonePurchase(s.purchases[purchase.ID])
	return &saved, nil
}

func (s *Store) DeletePurchase(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.purchases[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.purchases, id)
	return nil
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneSale(src domain.Sale) domain.Sale {
	dup := src
	items := make([]domain.LineItem, len(src.Items))
	copy(items, src.Items)
	dup.Items = items
	if src.PaidCents != nil {
		paid := *src.PaidCents
		dup.PaidCents = &paid
	}
	return dup
}

func clonePurchase(src domain.Purchase) domain.Purchase {
	dup := src
	items := make([]domain.LineItem, len(src.Items))
	copy(items, src.Items)
	dup.Items = items
	if src.PaidCents != nil {
		paid := *src.PaidCents
		dup.PaidCents = &paid
	}
	return dup
}
