package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dukkan/backend/internal/domain"
	"dukkan/backend/internal/store"
)

type Store struct {
	client    *mongo.Client
	products  *mongo.Collection
	sales     *mongo.Collection
	purchases *mongo.Collection
}

func New(ctx context.Context, uri string, database string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	db := client.Database(database)
	return &Store{
		client:    client,
		products:  db.Collection("products"),
		sales:     db.Collection("sales"),
		purchases: db.Collection("purchases"),
	}, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

type productDoc struct {
	ID                 string    `bson:"_id"`
	Name               string    `bson:"name"`
	Category           string    `bson:"category"`
	Stock              int       `bson:"stock"`
	PurchasePriceCents int64     `bson:"purchase_price_cents"`
	SellingPriceCents  int64     `bson:"selling_price_cents"`
	Unit               string    `bson:"unit"`
	Description        string    `bson:"description"`
	CreatedAt          time.Time `bson:"created_at"`
	UpdatedAt          time.Time `bson:"updated_at"`
}

type lineItemDoc struct {
	ProductID     string `bson:"product_id"`
	ProductName   string `bson:"product_name"`
	Quantity      int    `bson:"quantity"`
	PriceCents    int64  `bson:"price_cents"`
	Unit          string `bson:"unit"`
	SubtotalCents int64  `bson:"subtotal_cents"`
}

type saleDoc struct {
	ID            string        `bson:"_id"`
	CustomerName  string        `bson:"customer_name"`
	Items         []lineItemDoc `bson:"items"`
	TotalCents    int64         `bson:"total_cents"`
	PaidCents     *int64        `bson:"paid_cents,omitempty"`
	PaymentStatus string        `bson:"payment_status"`
	ProfitCents   int64         `bson:"profit_cents"`
	Date          time.Time     `bson:"date"`
	CreatedAt     time.Time     `bson:"created_at"`
	UpdatedAt     time.Time     `bson:"updated_at"`
}

type purchaseDoc struct {
	ID            string        `bson:"_id"`
	SupplierName  string        `bson:"supplier_name"`
	Items         []lineItemDoc `bson:"items"`
	TotalCents    int64         `bson:"total_cents"`
	PaidCents     *int64        `bson:"paid_cents,omitempty"`
	PaymentStatus string        `bson:"payment_status"`
	Date          time.Time     `bson:"date"`
	CreatedAt     time.Time     `bson:"created_at"`
	UpdatedAt     time.Time     `bson:"updated_at"`
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := s.products.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	products := make([]domain.Product, 0, 128)
	for cursor.Next(ctx) {
		var doc productDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		products = append(products, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var doc productDoc
	err := s.products.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	product := doc.toDomain()
	return &product, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" {
		return nil, store.ErrValidation
	}
	if product.Stock < 0 || product.PurchasePriceCents < 0 || product.SellingPriceCents < 0 {
		return nil, store.ErrValidation
	}

	if _, err := s.products.InsertOne(ctx, productToDoc(product)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" {
		return nil, store.ErrValidation
	}
	if product.Stock < 0 || product.PurchasePriceCents < 0 || product.SellingPriceCents < 0 {
		return nil, store.ErrValidation
	}

	res, err := s.products.ReplaceOne(ctx, bson.M{"_id": product.ID}, productToDoc(product))
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, store.ErrNotFound
	}
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.products.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AdjustStock(ctx context.Context, id string, delta int) error {
	filter := bson.M{"_id": id}
	if delta < 0 {
		// Guard inside the filter so the decrement is atomic.
		filter["stock"] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{"stock": delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	res, err := s.products.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	count, err := s.products.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if count == 0 {
		return store.ErrNotFound
	}
	return store.ErrInsufficientStock
}

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.sales.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	sales := make([]domain.Sale, 0, 128)
	for cursor.Next(ctx) {
		var doc saleDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		sales = append(sales, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) GetSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	var doc saleDoc
	err := s.sales.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sale := doc.toDomain()
	return &sale, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ID == "" || len(sale.Items) == 0 {
		return nil, store.ErrValidation
	}
	if _, err := s.sales.InsertOne(ctx, saleToDoc(sale)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}
	created := sale
	return &created, nil
}

func (s *Store) SaveSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	res, err := s.sales.ReplaceOne(ctx, bson.M{"_id": sale.ID}, saleToDoc(sale))
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, store.ErrNotFound
	}
	saved := sale
	return &saved, nil
}

func (s *Store) DeleteSale(ctx context.Context, id string) error {
	res, err := s.sales.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListPurchases(ctx context.Context) ([]domain.Purchase, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.purchases.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	purchases := make([]domain.Purchase, 0, 64)
	for cursor.Next(ctx) {
		var doc purchaseDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		purchases = append(purchases, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return purchases, nil
}

func (s *Store) GetPurchaseByID(ctx context.Context, id string) (*domain.Purchase, error) {
	var doc purchaseDoc
	err := s.purchases.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	purchase := doc.toDomain()
	return &purchase, nil
}

func (s *Store) CreatePurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	if purchase.ID == "" || len(purchase.Items) == 0 {
		return nil, store.ErrValidation
	}
	if _, err := s.purchases.InsertOne(ctx, purchaseToDoc(purchase)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}
	created := purchase
	return &created, nil
}

func (s *Store) SavePurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	res, err := s.purchases.ReplaceOne(ctx, bson.M{"_id": purchase.ID}, purchaseToDoc(purchase))
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, store.ErrNotFound
	}
	saved := purchase
	return &saved, nil
}

func (s *Store) DeletePurchase(ctx context.Context, id string) error {
	res, err := s.purchases.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func productToDoc(p domain.Product) productDoc {
	return productDoc{
		ID:                 p.ID,
		Name:               p.Name,
		Category:           p.Category,
		Stock:              p.Stock,
		PurchasePriceCents: p.PurchasePriceCents,
		SellingPriceCents:  p.SellingPriceCents,
		Unit:               p.Unit,
		Description:        p.Description,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func (d productDoc) toDomain() domain.Product {
	return domain.Product{
		ID:                 d.ID,
		Name:               d.Name,
		Category:           d.Category,
		Stock:              d.Stock,
		PurchasePriceCents: d.PurchasePriceCents,
		SellingPriceCents:  d.SellingPriceCents,
		Unit:               d.Unit,
		Description:        d.Description,
		CreatedAt:          d.CreatedAt.UTC(),
		UpdatedAt:          d.UpdatedAt.UTC(),
	}
}

func itemsToDocs(items []domain.LineItem) []lineItemDoc {
	docs := make([]lineItemDoc, 0, len(items))
	for _, item := range items {
		docs = append(docs, lineItemDoc(item))
	}
	return docs
}

func docsToItems(docs []lineItemDoc) []domain.LineItem {
	items := make([]domain.LineItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, domain.LineItem(doc))
	}
	return items
}

func saleToDoc(s domain.Sale) saleDoc {
	return saleDoc{
		ID:            s.ID,
		CustomerName:  s.CustomerName,
		Items:         itemsToDocs(s.Items),
		TotalCents:    s.TotalCents,
		PaidCents:     s.PaidCents,
		PaymentStatus: s.PaymentStatus,
		ProfitCents:   s.ProfitCents,
		Date:          s.Date,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func (d saleDoc) toDomain() domain.Sale {
	return domain.Sale{
		ID:            d.ID,
		CustomerName:  d.CustomerName,
		Items:         docsToItems(d.Items),
		TotalCents:    d.TotalCents,
		PaidCents:     d.PaidCents,
		PaymentStatus: d.PaymentStatus,
		ProfitCents:   d.ProfitCents,
		Date:          d.Date.UTC(),
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

func purchaseToDoc(p domain.Purchase) purchaseDoc {
	return purchaseDoc{
		ID:            p.ID,
		SupplierName:  p.SupplierName,
		Items:         itemsToDocs(p.Items),
		TotalCents:    p.TotalCents,
		PaidCents:     p.PaidCents,
		PaymentStatus: p.PaymentStatus,
		Date:          p.Date,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func (d purchaseDoc) toDomain() domain.Purchase {
	return domain.Purchase{
		ID:            d.ID,
		SupplierName:  d.SupplierName,
		Items:         docsToItems(d.Items),
		TotalCents:    d.TotalCents,
		PaidCents:     d.PaidCents,
		PaymentStatus: d.PaymentStatus,
		Date:          d.Date.UTC(),
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}
