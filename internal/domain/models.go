package domain

import "time"

type Product struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Category           string    `json:"category,omitempty"`
	Stock              int       `json:"stock"`
	PurchasePriceCents int64     `json:"purchase_price_cents"`
	SellingPriceCents  int64     `json:"selling_price_cents"`
	Unit               string    `json:"unit,omitempty"`
	Description        string    `json:"description,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type ProductCreateRequest struct {
	Name               string `json:"name" validate:"required"`
	Category           string `json:"category"`
	Stock              int    `json:"stock" validate:"gte=0"`
	PurchasePriceCents int64  `json:"purchase_price_cents" validate:"gte=0"`
	SellingPriceCents  int64  `json:"selling_price_cents" validate:"gte=0"`
	Unit               string `json:"unit"`
	Description        string `json:"description"`
}

type ProductUpdateRequest struct {
	Name               *string `json:"name,omitempty"`
	Category           *string `json:"category,omitempty"`
	Stock              *int    `json:"stock,omitempty" validate:"omitempty,gte=0"`
	PurchasePriceCents *int64  `json:"purchase_price_cents,omitempty" validate:"omitempty,gte=0"`
	SellingPriceCents  *int64  `json:"selling_price_cents,omitempty" validate:"omitempty,gte=0"`
	Unit               *string `json:"unit,omitempty"`
	Description        *string `json:"description,omitempty"`
}

// LineItem is a snapshot taken at transaction time. ProductName, PriceCents
// and Unit are frozen copies so later product edits or deletes never rewrite
// recorded history.
type LineItem struct {
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	Quantity      int    `json:"quantity"`
	PriceCents    int64  `json:"price_cents"`
	Unit          string `json:"unit,omitempty"`
	SubtotalCents int64  `json:"subtotal_cents"`
}

type Sale struct {
	ID            string     `json:"id"`
	CustomerName  string     `json:"customer_name,omitempty"`
	Items         []LineItem `json:"items"`
	TotalCents    int64      `json:"total_cents"`
	PaidCents     *int64     `json:"paid_cents,omitempty"`
	PaymentStatus string     `json:"payment_status"`
	ProfitCents   int64      `json:"profit_cents"`
	Date          time.Time  `json:"date"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// EffectivePaidCents treats a record without an explicit paid amount as fully
// settled; such records predate partial-payment tracking.
func (s Sale) EffectivePaidCents() int64 {
	if s.PaidCents == nil {
		return s.TotalCents
	}
	return *s.PaidCents
}

type Purchase struct {
	ID            string     `json:"id"`
	SupplierName  string     `json:"supplier_name,omitempty"`
	Items         []LineItem `json:"items"`
	TotalCents    int64      `json:"total_cents"`
	PaidCents     *int64     `json:"paid_cents,omitempty"`
	PaymentStatus string     `json:"payment_status"`
	Date          time.Time  `json:"date"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (p Purchase) EffectivePaidCents() int64 {
	if p.PaidCents == nil {
		return p.TotalCents
	}
	return *p.PaidCents
}

type LineItemRequest struct {
	ProductID   string `json:"product_id" validate:"required"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity" validate:"gt=0"`
	PriceCents  *int64 `json:"price_cents,omitempty" validate:"omitempty,gte=0"`
}

type SaleCreateRequest struct {
	CustomerName string            `json:"customer_name"`
	Items        []LineItemRequest `json:"items" validate:"required,min=1,dive"`
	PaidCents    *int64            `json:"paid_cents,omitempty" validate:"omitempty,gte=0"`
	Date         *time.Time        `json:"date,omitempty"`
}

type SaleUpdateRequest struct {
	CustomerName *string    `json:"customer_name,omitempty"`
	PaidCents    *int64     `json:"paid_cents,omitempty" validate:"omitempty,gte=0"`
	Date         *time.Time `json:"date,omitempty"`
}

type PurchaseCreateRequest struct {
	SupplierName string            `json:"supplier_name"`
	Items        []LineItemRequest `json:"items" validate:"required,min=1,dive"`
	PaidCents    *int64            `json:"paid_cents,omitempty" validate:"omitempty,gte=0"`
	Date         *time.Time        `json:"date,omitempty"`
}

type PurchaseUpdateRequest struct {
	SupplierName *string    `json:"supplier_name,omitempty"`
	PaidCents    *int64     `json:"paid_cents,omitempty" validate:"omitempty,gte=0"`
	Date         *time.Time `json:"date,omitempty"`
}

type CustomerTotal struct {
	CustomerName string `json:"customer_name"`
	TotalCents   int64  `json:"total_cents"`
}

type BestSeller struct {
	Product
	TotalSold int `json:"total_sold"`
}

type DashboardStats struct {
	TodaySalesCents      int64           `json:"today_sales_cents"`
	TodayProfitCents     int64           `json:"today_profit_cents"`
	AllTimeSalesCents    int64           `json:"all_time_sales_cents"`
	AllTimeProfitCents   int64           `json:"all_time_profit_cents"`
	OutstandingDebtCents int64           `json:"outstanding_debt_cents"`
	LowStock             []Product       `json:"low_stock"`
	TopCustomers         []CustomerTotal `json:"top_customers"`
	BestSellers          []BestSeller    `json:"best_sellers"`
}

type MigrateProduct struct {
	LegacyID           string `json:"legacy_id" validate:"required"`
	Name               string `json:"name" validate:"required"`
	Category           string `json:"category"`
	Stock              int    `json:"stock" validate:"gte=0"`
	PurchasePriceCents int64  `json:"purchase_price_cents" validate:"gte=0"`
	SellingPriceCents  int64  `json:"selling_price_cents" validate:"gte=0"`
	Unit               string `json:"unit"`
	Description        string `json:"description"`
}

type MigrateLineItem struct {
	LegacyProductID string `json:"legacy_product_id"`
	Quantity        int    `json:"quantity"`
	PriceCents      int64  `json:"price_cents"`
}

type MigrateRecord struct {
	CustomerName string            `json:"customer_name,omitempty"`
	SupplierName string            `json:"supplier_name,omitempty"`
	Items        []MigrateLineItem `json:"items"`
	PaidCents    *int64            `json:"paid_cents,omitempty"`
	Date         *time.Time        `json:"date,omitempty"`
}

type MigrateRequest struct {
	Products  []MigrateProduct `json:"products"`
	Sales     []MigrateRecord  `json:"sales"`
	Purchases []MigrateRecord  `json:"purchases"`
}

type MigrateResponse struct {
	ProductsMigrated  int `json:"products_migrated"`
	SalesMigrated     int `json:"sales_migrated"`
	PurchasesMigrated int `json:"purchases_migrated"`
	Skipped           int `json:"skipped"`
}

const (
	PaymentStatusPaid    = "paid"
	PaymentStatusPartial = "partial"
	PaymentStatusUnpaid  = "unpaid"
)

// ResolvePaymentStatus derives the payment status from a paid amount and the
// stored total. A zero paid amount is always unpaid, even for a zero total.
func ResolvePaymentStatus(paidCents int64, totalCents int64) string {
	switch {
	case paidCents == 0:
		return PaymentStatusUnpaid
	case paidCents < totalCents:
		return PaymentStatusPartial
	default:
		return PaymentStatusPaid
	}
}
