// Package service implements the shop's business rules over a storage
// backend: catalog management, checkout, purchase intake, payment
// tracking, the dashboard and the legacy data import.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"dukkan/backend/internal/cache"
	"dukkan/backend/internal/domain"
	"dukkan/backend/internal/store"
	"dukkan/backend/internal/validate"
	"dukkan/backend/internal/xid"
)

type Service struct {
	repo     store.Repository
	cache    cache.DashboardCache
	lowStock int
	cacheTTL time.Duration
}

func New(repo store.Repository, dashCache cache.DashboardCache, lowStockThreshold int, cacheTTL time.Duration) *Service {
	if dashCache == nil {
		dashCache = cache.NoopDashboardCache{}
	}
	if lowStockThreshold < 0 {
		lowStockThreshold = 0
	}
	return &Service{
		repo:     repo,
		cache:    dashCache,
		lowStock: lowStockThreshold,
		cacheTTL: cacheTTL,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: product id is required", store.ErrValidation)
	}
	return s.repo.GetProductByID(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrValidation, err)
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:                 xid.New("prod"),
		Name:               req.Name,
		Category:           req.Category,
		Stock:              req.Stock,
		PurchasePriceCents: req.PurchasePriceCents,
		SellingPriceCents:  req.SellingPriceCents,
		Unit:               strings.TrimSpace(req.Unit),
		Description:        strings.TrimSpace(req.Description),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return nil, err
	}
	s.invalidateDashboard(ctx)
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (*domain.Product, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrValidation, err)
	}

	current, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: product name cannot be empty", store.ErrValidation)
		}
		current.Name = name
	}
	if req.Category != nil {
		current.Category = strings.TrimSpace(*req.Category)
	}
	if req.Stock != nil {
		current.Stock = *req.Stock
	}
	if req.PurchasePriceCents != nil {
		current.PurchasePriceCents = *req.PurchasePriceCents
	}
	if req.SellingPriceCents != nil {
		current.SellingPriceCents = *req.SellingPriceCents
	}
	if req.Unit != nil {
		current.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.Description != nil {
		current.Description = strings.TrimSpace(*req.Description)
	}
	current.UpdatedAt = time.Now().UTC()

	updated, err := s.repo.UpdateProduct(ctx, *current)
	if err != nil {
		return nil, err
	}
	s.invalidateDashboard(ctx)
	return updated, nil
}

// DeleteProduct removes a product from the catalog. Historical sales and
// purchases keep their snapshot line items and are not touched.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: product id is required", store.ErrValidation)
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.invalidateDashboard(ctx)
	return nil
}

func (s *Service) ListSales(ctx context.Context) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx)
}

func (s *Service) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: sale id is required", store.ErrValidation)
	}
	return s.repo.GetSaleByID(ctx, id)
}

// CreateSale records a checkout. Every line is validated against the
// current catalog before any stock moves; the decrements are then applied
// one by one, and already-applied decrements are rolled back if a later
// one fails, so a sale either lands whole or not at all.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (*domain.Sale, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrValidation, err)
	}

	items, totalCents, profitCents, err := s.buildLineItems(ctx, req.Items, true)
	if err != nil {
		return nil, err
	}

	if err := s.applyStockDeltas(ctx, items, -1); err != nil {
		return nil, err
	}

	paid := totalCents
	if req.PaidCents != nil {
		paid = *req.PaidCents
	}
	date := time.Now().UTC()
	if req.Date != nil {
		date = req.Date.UTC()
	}

	now := time.Now().UTC()
	sale := domain.Sale{
		ID:            xid.New("sale"),
		CustomerName:  req.CustomerName,
		Items:         items,
		TotalCents:    totalCents,
		PaidCents:     &paid,
		PaymentStatus: domain.ResolvePaymentStatus(paid, totalCents),
		ProfitCents:   profitCents,
		Date:          date,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		s.revertStockDeltas(ctx, items, +1)
		return nil, err
	}
	s.invalidateDashboard(ctx)
	return created, nil
}

// UpdateSale merges the provided fields into an existing sale. Line items
// and the total are frozen at creation; only the customer, the paid amount
// and the date can change. The payment status is recomputed against the
// stored total whenever the paid amount moves.
func (s *Service) UpdateSale(ctx context.Context, id string, req domain.SaleUpdateRequest) (*domain.Sale, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrValidation, err)
	}

	sale, err := s.repo.GetSaleByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.CustomerName != nil {
		sale.CustomerName = strings.TrimSpace(*req.CustomerName)
	}
	if req.Date != nil {
		sale.Date = req.Date.UTC()
	}
	if req.PaidCents != nil {
		paid := *req.PaidCents
		sale.PaidCents = &paid
		sale.PaymentStatus = domain.ResolvePaymentStatus(paid, sale.TotalCents)
	}
	sale.UpdatedAt = time.Now().UTC()

	saved, err := s.repo.SaveSale(ctx, *sale)
	if err != nil {
		return nil, err
	}
	s.invalidateDashboard(ctx)
	return saved, nil
}

// DeleteSale removes a sale and returns its quantities to stock. Products
// that have since been deleted are skipped without error.
func (s *Service) DeleteSale(ctx context.Context, id string) error {
	sale, err := s.repo.GetSaleByID(ctx, id)
	if err != nil {
		return err
	}

	for _, item := range sale.Items {
		err := s.repo.AdjustStock(ctx, item.ProductID, item.Quantity)
		switch {
		case err == nil:
		case errors.Is(err, store.ErrNotFound):
			// Product deleted since the sale; nothing to restore.
		default:
			log.Printf("[service] WARN: restore stock for %s on sale delete: %v", item.ProductID, err)
		}
	}

	if err := s.repo.DeleteSale(ctx, id); err != nil {
		return err
	}
	s.invalidateDashboard(ctx)
	return nil
}

func (s *Service) ListPurchases(ctx context.Context) ([]domain.Purchase, error) {
	return s.repo.ListPurchases(ctx)
}

func (s *Service) GetPurchase(ctx context.Context, id string) (*domain.Purchase, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: purchase id is required", store.ErrValidation)
	}
	return s.repo.GetPurchaseByID(ctx, id)
}

// CreatePurchase records a stock intake. Mirrors CreateSale with stock
// increments instead of decrements; line prices default to the product's
// recorded purchase price.
func (s *Service) CreatePurchase(ctx context.Context, req domain.PurchaseCreateRequest) (*domain.Purchase, error) {
	req.SupplierName = strings.TrimSpace(req.SupplierName)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrValidation, err)
	}

	items, totalCents, _, err := s.buildLineItems(ctx, req.Items, false)
	if err != nil {
		return nil, err
	}

	if err := s.applyStockDeltas(ctx, items, +1); err != nil {
		return nil, err
	}

	paid := totalCents
	if req.PaidCents != nil {
		paid = *req.PaidCents
	}
	date := time.Now().UTC()
	if req.Date != nil {
		date = req.Date.UTC()
	}

	now := time.Now().UTC()
	purchase := domain.Purchase{
		ID:            xid.New("purch"),
		SupplierName:  req.SupplierName,
		Items:         items,
		TotalCents:    totalCents,
		PaidCents:     &paid,
		PaymentStatus: domain.ResolvePaymentStatus(paid, totalCents),
		Date:          date,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	created, err := s.repo.CreatePurchase(ctx, purchase)
	if err != nil {
		s.revertStockDeltas(ctx, items, -1)
		return nil, err
	}
	s.invalidateDashboard(ctx)
	return created, nil
}

func (s *Service) UpdatePurchase(ctx context.Context, id string, req domain.PurchaseUpdateRequest) (*domain.Purchase, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrValidation, err)
	}

	purchase, err := s.repo.GetPurchaseByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.SupplierName != nil {
		purchase.SupplierName = strings.TrimSpace(*req.SupplierName)
	}
	if req.Date != nil {
		purchase.Date = req.Date.UTC()
	}
	if req.PaidCents != nil {
		paid := *req.PaidCents
		purchase.PaidCents = &paid
		purchase.PaymentStatus = domain.ResolvePaymentStatus(paid, purchase.TotalCents)
	}
	purchase.UpdatedAt = time.Now().UTC()

	saved, err := s.repo.SavePurchase(ctx, *purchase)
	if err != nil {
		return nil, err
	}
	s.invalidateDashboard(ctx)
	return saved, nil
}

// DeletePurchase removes a purchase and takes its quantities back out of
// stock. A line whose reversal would push stock negative is skipped with a
// warning rather than clamped below zero.
func (s *Service) DeletePurchase(ctx context.Context, id string) error {
	purchase, err := s.repo.GetPurchaseByID(ctx, id)
	if err != nil {
		return err
	}

	for _, item := range purchase.Items {
		err := s.repo.AdjustStock(ctx, item.ProductID, -item.Quantity)
		switch {
		case err == nil:
		case errors.Is(err, store.ErrNotFound):
		case errors.Is(err, store.ErrInsufficientStock):
			log.Printf("[service] WARN: purchase delete would drive %s negative, leaving stock as-is", item.ProductID)
		default:
			log.Printf("[service] WARN: revert stock for %s on purchase delete: %v", item.ProductID, err)
		}
	}

	if err := s.repo.DeletePurchase(ctx, id); err != nil {
		return err
	}
	s.invalidateDashboard(ctx)
	return nil
}

// buildLineItems resolves every requested line against the catalog and
// freezes the snapshots. For sales it also enforces available stock and
// accumulates profit; purchases skip both.
func (s *Service) buildLineItems(ctx context.Context, reqs []domain.LineItemRequest, sale bool) ([]domain.LineItem, int64, int64, error) {
	items := make([]domain.LineItem, 0, len(reqs))
	var totalCents, profitCents int64

	for _, line := range reqs {
		product, err := s.repo.GetProductByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, 0, 0, fmt.Errorf("%w: product not found: %s", store.ErrNotFound, lineLabel(line))
			}
			return nil, 0, 0, err
		}
		if sale && line.Quantity > product.Stock {
			return nil, 0, 0, fmt.Errorf("%w: %s (available %d, requested %d)",
				store.ErrInsufficientStock, product.Name, product.Stock, line.Quantity)
		}

		price := product.SellingPriceCents
		if !sale {
			price = product.PurchasePriceCents
		}
		if line.PriceCents != nil {
			price = *line.PriceCents
		}

		subtotal := int64(line.Quantity) * price
		totalCents += subtotal
		if sale {
			profitCents += int64(line.Quantity) * (price - product.PurchasePriceCents)
		}

		items = append(items, domain.LineItem{
			ProductID:     product.ID,
			ProductName:   product.Name,
			Quantity:      line.Quantity,
			PriceCents:    price,
			Unit:          product.Unit,
			SubtotalCents: subtotal,
		})
	}

	return items, totalCents, profitCents, nil
}

// applyStockDeltas moves stock for every line in direction sign. On
// failure the already-applied lines are reverted before the error is
// returned.
func (s *Service) applyStockDeltas(ctx context.Context, items []domain.LineItem, sign int) error {
	for i, item := range items {
		if err := s.repo.AdjustStock(ctx, item.ProductID, sign*item.Quantity); err != nil {
			s.revertStockDeltas(ctx, items[:i], -sign)
			if errors.Is(err, store.ErrInsufficientStock) {
				return fmt.Errorf("%w: %s", store.ErrInsufficientStock, item.ProductName)
			}
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: product not found: %s", store.ErrNotFound, item.ProductName)
			}
			return err
		}
	}
	return nil
}

func (s *Service) revertStockDeltas(ctx context.Context, items []domain.LineItem, sign int) {
	for _, item := range items {
		if err := s.repo.AdjustStock(ctx, item.ProductID, sign*item.Quantity); err != nil {
			log.Printf("[service] WARN: revert stock for %s failed: %v", item.ProductID, err)
		}
	}
}

const topListSize = 5

// Dashboard aggregates today's and all-time figures. Results are served
// from the cache when present; every mutation invalidates it, so a hit is
// never stale.
func (s *Service) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	if cached, ok, err := s.cache.Get(ctx); err != nil {
		log.Printf("[service] WARN: dashboard cache read: %v", err)
	} else if ok {
		return cached, nil
	}

	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	stats := &domain.DashboardStats{
		LowStock:     make([]domain.Product, 0),
		TopCustomers: make([]domain.CustomerTotal, 0),
		BestSellers:  make([]domain.BestSeller, 0),
	}

	customerTotals := make(map[string]int64)
	customerOrder := make([]string, 0)
	soldQuantities := make(map[string]int)
	productOrder := make([]string, 0)

	for _, sale := range sales {
		stats.AllTimeSalesCents += sale.TotalCents
		stats.AllTimeProfitCents += sale.ProfitCents
		if !sale.Date.Before(midnight) {
			stats.TodaySalesCents += sale.TotalCents
			stats.TodayProfitCents += sale.ProfitCents
		}

		stats.OutstandingDebtCents += sale.TotalCents - sale.EffectivePaidCents()

		if name := sale.CustomerName; name != "" {
			if _, seen := customerTotals[name]; !seen {
				customerOrder = append(customerOrder, name)
			}
			customerTotals[name] += sale.TotalCents
		}

		for _, item := range sale.Items {
			if _, seen := soldQuantities[item.ProductID]; !seen {
				productOrder = append(productOrder, item.ProductID)
			}
			soldQuantities[item.ProductID] += item.Quantity
		}
	}

	byID := make(map[string]domain.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
		if product.Stock < s.lowStock {
			stats.LowStock = append(stats.LowStock, product)
		}
	}

	for _, name := range customerOrder {
		stats.TopCustomers = append(stats.TopCustomers, domain.CustomerTotal{
			CustomerName: name,
			TotalCents:   customerTotals[name],
		})
	}
	sort.SliceStable(stats.TopCustomers, func(i, j int) bool {
		return stats.TopCustomers[i].TotalCents > stats.TopCustomers[j].TotalCents
	})
	if len(stats.TopCustomers) > topListSize {
		stats.TopCustomers = stats.TopCustomers[:topListSize]
	}

	// Ranking happens before the catalog join: a deleted product leaves a
	// gap in the top list instead of promoting the next seller.
	ranked := make([]string, len(productOrder))
	copy(ranked, productOrder)
	sort.SliceStable(ranked, func(i, j int) bool {
		return soldQuantities[ranked[i]] > soldQuantities[ranked[j]]
	})
	if len(ranked) > topListSize {
		ranked = ranked[:topListSize]
	}
	for _, id := range ranked {
		product, ok := byID[id]
		if !ok {
			continue
		}
		stats.BestSellers = append(stats.BestSellers, domain.BestSeller{
			Product:   product,
			TotalSold: soldQuantities[id],
		})
	}

	if err := s.cache.Set(ctx, stats, s.cacheTTL); err != nil {
		log.Printf("[service] WARN: dashboard cache write: %v", err)
	}
	return stats, nil
}

// Migrate replays an exported legacy dataset through the normal create
// paths. Products come first so sale and purchase lines can be remapped
// from legacy ids to the freshly assigned ones; records that cannot be
// replayed are counted as skipped rather than aborting the import.
func (s *Service) Migrate(ctx context.Context, req domain.MigrateRequest) (*domain.MigrateResponse, error) {
	resp := &domain.MigrateResponse{}
	idMap := make(map[string]string, len(req.Products))

	for _, p := range req.Products {
		created, err := s.CreateProduct(ctx, domain.ProductCreateRequest{
			Name:               p.Name,
			Category:           p.Category,
			Stock:              p.Stock,
			PurchasePriceCents: p.PurchasePriceCents,
			SellingPriceCents:  p.SellingPriceCents,
			Unit:               p.Unit,
			Description:        p.Description,
		})
		if err != nil {
			log.Printf("[service] WARN: migrate product %q: %v", p.Name, err)
			resp.Skipped++
			continue
		}
		if p.LegacyID != "" {
			idMap[p.LegacyID] = created.ID
		}
		resp.ProductsMigrated++
	}

	for _, record := range req.Sales {
		items := remapItems(record.Items, idMap)
		if len(items) == 0 {
			resp.Skipped++
			continue
		}
		_, err := s.CreateSale(ctx, domain.SaleCreateRequest{
			CustomerName: record.CustomerName,
			Items:        items,
			PaidCents:    record.PaidCents,
			Date:         record.Date,
		})
		if err != nil {
			log.Printf("[service] WARN: migrate sale for %q: %v", record.CustomerName, err)
			resp.Skipped++
			continue
		}
		resp.SalesMigrated++
	}

	for _, record := range req.Purchases {
		items := remapItems(record.Items, idMap)
		if len(items) == 0 {
			resp.Skipped++
			continue
		}
		_, err := s.CreatePurchase(ctx, domain.PurchaseCreateRequest{
			SupplierName: record.SupplierName,
			Items:        items,
			PaidCents:    record.PaidCents,
			Date:         record.Date,
		})
		if err != nil {
			log.Printf("[service] WARN: migrate purchase from %q: %v", record.SupplierName, err)
			resp.Skipped++
			continue
		}
		resp.PurchasesMigrated++
	}

	return resp, nil
}

func remapItems(items []domain.MigrateLineItem, idMap map[string]string) []domain.LineItemRequest {
	reqs := make([]domain.LineItemRequest, 0, len(items))
	for _, item := range items {
		newID, ok := idMap[item.LegacyProductID]
		if !ok {
			continue
		}
		price := item.PriceCents
		reqs = append(reqs, domain.LineItemRequest{
			ProductID:  newID,
			Quantity:   item.Quantity,
			PriceCents: &price,
		})
	}
	return reqs
}

func (s *Service) invalidateDashboard(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Printf("[service] WARN: dashboard cache invalidate: %v", err)
	}
}

func lineLabel(line domain.LineItemRequest) string {
	if line.ProductName != "" {
		return line.ProductName
	}
	return line.ProductID
}
