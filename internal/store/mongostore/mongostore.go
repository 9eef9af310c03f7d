// Package mongostore is the MongoDB Store.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/DFBlok/market-link-app/internal/db"
	"github.com/DFBlok/market-link-app/internal/models"
	"github.com/DFBlok/market-link-app/internal/store"
	"github.com/DFBlok/market-link-app/internal/utils"
)

const (
	usersCollection     = "users"
	suppliersCollection = "suppliers"
	productsCollection  = "products"
	inquiriesCollection = "inquiries"
	ordersCollection    = "orders"
	countersCollection  = "counters"
)

type Store struct {
	db *mongo.Database
}

var _ store.Store = (*Store)(nil)

// New wraps a database handle. Call EnsureIndexes once at startup.
func New(database *mongo.Database) *Store {
	return &Store{db: database}
}

// EnsureIndexes creates the unique and sort indexes the store relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		suppliersCollection: {
			{Keys: bson.D{{Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "category", Value: 1}}},
		},
		productsCollection: {
			{Keys: bson.D{{Key: "supplier_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "seq", Value: -1}}},
		},
		inquiriesCollection: {
			{Keys: bson.D{{Key: "supplier_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "manufacturer_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "seq", Value: 1}}},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "supplier_id", Value: 1}, {Key: "order_date", Value: -1}}},
		},
	}
	for coll, idx := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return db.DisconnectDB(s.db.Client())
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case db.IsMongoDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return fmt.Errorf("mongostore: %w", err)
}

// insert stores doc, generating base's id (with collision retries) when it is empty.
func (s *Store) insert(ctx context.Context, coll string, base *models.Base, doc func() interface{}) error {
	c := s.db.Collection(coll)
	if !base.ID.IsZero() {
		_, err := c.InsertOne(ctx, doc())
		return translate(err)
	}
	return translate(db.Try(func() error {
		base.GenID()
		_, err := c.InsertOne(ctx, doc())
		return err
	}, db.IsMongoDuplicateIDError))
}

// nextSeq allocates the next insertion sequence number for name.
func (s *Store) nextSeq(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("mongostore: allocate %s sequence: %w", name, err)
	}
	return counter.Seq, nil
}

func (s *Store) findOne(ctx context.Context, coll string, filter bson.M, out interface{}) error {
	return translate(s.db.Collection(coll).FindOne(ctx, filter).Decode(out))
}

func (s *Store) findAll(ctx context.Context, coll string, filter interface{}, opts *options.FindOptions, out interface{}) error {
	cursor, err := s.db.Collection(coll).Find(ctx, filter, opts)
	if err != nil {
		return translate(err)
	}
	defer cursor.Close(ctx)
	return translate(cursor.All(ctx, out))
}

func matched(res *mongo.UpdateResult, err error) error {
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ---- users

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.insert(ctx, usersCollection, &user.Base, func() interface{} { return user })
}

func (s *Store) FindUserByID(ctx context.Context, id utils.SixID) (*models.User, error) {
	var u models.User
	if err := s.findOne(ctx, usersCollection, bson.M{"_id": id}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.findOne(ctx, usersCollection, bson.M{"email": email}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ---- suppliers

func (s *Store) CreateSupplier(ctx context.Context, supplier *models.Supplier) error {
	seq, err := s.nextSeq(ctx, suppliersCollection)
	if err != nil {
		return err
	}
	supplier.Seq = seq
	return s.insert(ctx, suppliersCollection, &supplier.Base, func() interface{} { return supplier })
}

func (s *Store) FindSupplierByID(ctx context.Context, id utils.SixID) (*models.Supplier, error) {
	var sp models.Supplier
	if err := s.findOne(ctx, suppliersCollection, bson.M{"_id": id}, &sp); err != nil {
		return nil, err
	}
	return &sp, nil
}

func supplierFilterDoc(f models.SupplierFilter) bson.M {
	filter := bson.M{}
	if f.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"description": re},
			bson.M{"specialties": re},
		}
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Location != "" {
		filter["location"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Location)}
	}
	return filter
}

func (s *Store) SearchSuppliers(ctx context.Context, filter models.SupplierFilter, offset, limit int) ([]models.Supplier, int64, error) {
	doc := supplierFilterDoc(filter)
	total, err := s.db.Collection(suppliersCollection).CountDocuments(ctx, doc)
	if err != nil {
		return nil, 0, translate(err)
	}

	out := []models.Supplier{}
	if int64(offset) >= total {
		return out, total, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "seq", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	if err := s.findAll(ctx, suppliersCollection, doc, opts, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) UpdateSupplier(ctx context.Context, supplier *models.Supplier) error {
	res, err := s.db.Collection(suppliersCollection).UpdateOne(ctx,
		bson.M{"_id": supplier.ID},
		bson.M{"$set": bson.M{
			"name":           supplier.Name,
			"category":       supplier.Category,
			"location":       supplier.Location,
			"description":    supplier.Description,
			"specialties":    []string(supplier.Specialties),
			"certifications": []string(supplier.Certifications),
			"image":          supplier.Image,
			"response_time":  supplier.ResponseTime,
			"established":    supplier.Established,
			"employees":      supplier.Employees,
			"phone":          supplier.Phone,
			"email":          supplier.Email,
			"website":        supplier.Website,
			"updated_at":     supplier.UpdatedAt,
		}},
	)
	return matched(res, err)
}

func (s *Store) CountSuppliers(ctx context.Context) (int64, error) {
	n, err := s.db.Collection(suppliersCollection).CountDocuments(ctx, bson.M{})
	return n, translate(err)
}

// ---- products

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	seq, err := s.nextSeq(ctx, productsCollection)
	if err != nil {
		return err
	}
	product.Seq = seq
	return s.insert(ctx, productsCollection, &product.Base, func() interface{} { return product })
}

func (s *Store) ListProductsBySupplier(ctx context.Context, supplierID utils.SixID) ([]models.Product, error) {
	out := []models.Product{}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: -1}})
	if err := s.findAll(ctx, productsCollection, bson.M{"supplier_id": supplierID}, opts, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) FindOwnedProduct(ctx context.Context, id, supplierID utils.SixID) (*models.Product, error) {
	var p models.Product
	if err := s.findOne(ctx, productsCollection, bson.M{"_id": id, "supplier_id": supplierID}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdateOwnedProduct(ctx context.Context, product *models.Product) error {
	res, err := s.db.Collection(productsCollection).UpdateOne(ctx,
		bson.M{"_id": product.ID, "supplier_id": product.SupplierID},
		bson.M{"$set": bson.M{
			"name":               product.Name,
			"description":        product.Description,
			"category":           product.Category,
			"price":              product.Price,
			"lead_time":          product.LeadTime,
			"min_order_quantity": product.MinOrderQuantity,
			"image_key":          product.ImageKey,
			"updated_at":         product.UpdatedAt,
		}},
	)
	return matched(res, err)
}

func (s *Store) DeleteOwnedProduct(ctx context.Context, id, supplierID utils.SixID) error {
	res, err := s.db.Collection(productsCollection).DeleteOne(ctx, bson.M{"_id": id, "supplier_id": supplierID})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ---- inquiries

func (s *Store) CreateInquiry(ctx context.Context, inquiry *models.Inquiry) error {
	seq, err := s.nextSeq(ctx, inquiriesCollection)
	if err != nil {
		return err
	}
	inquiry.Seq = seq
	return s.insert(ctx, inquiriesCollection, &inquiry.Base, func() interface{} { return inquiry })
}

func (s *Store) ListInquiries(ctx context.Context, filter models.InquiryFilter) ([]models.Inquiry, error) {
	doc := bson.M{}
	if filter.ManufacturerID != nil {
		doc["manufacturer_id"] = *filter.ManufacturerID
	}
	if filter.SupplierID != nil {
		doc["supplier_id"] = *filter.SupplierID
	}
	if filter.Status != nil {
		doc["status"] = string(*filter.Status)
	}

	out := []models.Inquiry{}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: 1}})
	if err := s.findAll(ctx, inquiriesCollection, doc, opts, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) FindInquiry(ctx context.Context, id utils.SixID) (*models.Inquiry, error) {
	var inq models.Inquiry
	if err := s.findOne(ctx, inquiriesCollection, bson.M{"_id": id}, &inq); err != nil {
		return nil, err
	}
	return &inq, nil
}

func (s *Store) FindOwnedInquiry(ctx context.Context, id, supplierID utils.SixID) (*models.Inquiry, error) {
	var inq models.Inquiry
	if err := s.findOne(ctx, inquiriesCollection, bson.M{"_id": id, "supplier_id": supplierID}, &inq); err != nil {
		return nil, err
	}
	return &inq, nil
}

func (s *Store) SaveInquiry(ctx context.Context, inquiry *models.Inquiry) error {
	res, err := s.db.Collection(inquiriesCollection).UpdateOne(ctx,
		bson.M{"_id": inquiry.ID, "supplier_id": inquiry.SupplierID},
		bson.M{"$set": bson.M{
			"status":        string(inquiry.Status),
			"response":      inquiry.Response,
			"quoted_price":  inquiry.QuotedPrice,
			"delivery_time": inquiry.DeliveryTime,
			"notes":         inquiry.Notes,
			"responded_at":  inquiry.RespondedAt,
		}},
	)
	return matched(res, err)
}

// ---- orders

// Orders and their items live in one document, so a single insert is atomic.
type orderDoc struct {
	ID              utils.SixID          `bson:"_id"`
	SupplierID      utils.SixID          `bson:"supplier_id"`
	BuyerID         utils.SixID          `bson:"buyer_id"`
	ShippingAddress string               `bson:"shipping_address"`
	TotalAmount     primitive.Decimal128 `bson:"total_amount"`
	OrderDate       time.Time            `bson:"order_date"`
	Items           []orderItemDoc       `bson:"items"`
}

type orderItemDoc struct {
	ProductID utils.SixID          `bson:"product_id"`
	Quantity  int                  `bson:"quantity"`
	Price     primitive.Decimal128 `bson:"price"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

func fromDecimal128(d primitive.Decimal128) (decimal.Decimal, error) {
	return decimal.NewFromString(d.String())
}

func newOrderDoc(o *models.Order) (*orderDoc, error) {
	total, err := toDecimal128(o.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("mongostore: order total: %w", err)
	}
	doc := &orderDoc{
		ID:              o.ID,
		SupplierID:      o.SupplierID,
		BuyerID:         o.BuyerID,
		ShippingAddress: o.ShippingAddress,
		TotalAmount:     total,
		OrderDate:       o.OrderDate,
		Items:           make([]orderItemDoc, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		price, err := toDecimal128(it.Price)
		if err != nil {
			return nil, fmt.Errorf("mongostore: item price: %w", err)
		}
		doc.Items = append(doc.Items, orderItemDoc{ProductID: it.ProductID, Quantity: it.Quantity, Price: price})
	}
	return doc, nil
}

func (d *orderDoc) toModel() (models.Order, error) {
	total, err := fromDecimal128(d.TotalAmount)
	if err != nil {
		return models.Order{}, fmt.Errorf("mongostore: order total: %w", err)
	}
	o := models.Order{
		Base:            models.Base{ID: d.ID},
		SupplierID:      d.SupplierID,
		BuyerID:         d.BuyerID,
		ShippingAddress: d.ShippingAddress,
		TotalAmount:     total,
		OrderDate:       d.OrderDate,
		Items:           make([]models.OrderItem, 0, len(d.Items)),
	}
	for i, it := range d.Items {
		price, err := fromDecimal128(it.Price)
		if err != nil {
			return models.Order{}, fmt.Errorf("mongostore: item price: %w", err)
		}
		o.Items = append(o.Items, models.OrderItem{
			ID:        uint(i + 1),
			OrderID:   d.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     price,
		})
	}
	return o, nil
}

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	doc, err := newOrderDoc(order)
	if err != nil {
		return err
	}
	err = s.insert(ctx, ordersCollection, &order.Base, func() interface{} {
		doc.ID = order.ID
		return doc
	})
	if err != nil {
		return err
	}
	for i := range order.Items {
		order.Items[i].ID = uint(i + 1)
		order.Items[i].OrderID = order.ID
	}
	return nil
}

func (s *Store) ListOrdersBySupplier(ctx context.Context, supplierID utils.SixID) ([]models.Order, error) {
	var docs []orderDoc
	opts := options.Find().SetSort(bson.D{{Key: "order_date", Value: -1}})
	if err := s.findAll(ctx, ordersCollection, bson.M{"supplier_id": supplierID}, opts, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Order, 0, len(docs))
	for i := range docs {
		o, err := docs[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
