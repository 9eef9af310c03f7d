// Package sqlstore is the relational Store, backed by PostgreSQL through gorm.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/DFBlok/market-link-app/internal/db"
	"github.com/DFBlok/market-link-app/internal/models"
	"github.com/DFBlok/market-link-app/internal/store"
	"github.com/DFBlok/market-link-app/internal/utils"
)

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// New wraps an open connection. Run AutoMigrate with Models() first.
func New(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

// Models lists the tables this store needs migrated.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Supplier{},
		&models.Product{},
		&models.Inquiry{},
		&models.Order{},
		&models.OrderItem{},
	}
}

func (s *Store) Close(ctx context.Context) error {
	return db.DisconnectPostgres(s.db)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case db.IsPostgresDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return fmt.Errorf("sqlstore: %w", err)
}

// create inserts value, generating base's id (with collision retries) when it is empty.
func (s *Store) create(ctx context.Context, base *models.Base, value interface{}) error {
	if !base.ID.IsZero() {
		return translate(s.db.WithContext(ctx).Create(value).Error)
	}
	return translate(db.Try(func() error {
		base.GenID()
		return s.db.WithContext(ctx).Create(value).Error
	}, db.IsPostgresDuplicateIDError))
}

func affected(tx *gorm.DB) error {
	if tx.Error != nil {
		return translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// ---- users

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.create(ctx, &user.Base, user)
}

func (s *Store) FindUserByID(ctx context.Context, id utils.SixID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// ---- suppliers

func (s *Store) CreateSupplier(ctx context.Context, supplier *models.Supplier) error {
	return s.create(ctx, &supplier.Base, supplier)
}

func (s *Store) FindSupplierByID(ctx context.Context, id utils.SixID) (*models.Supplier, error) {
	var sp models.Supplier
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&sp).Error; err != nil {
		return nil, translate(err)
	}
	return &sp, nil
}

func supplierFilterScope(f models.SupplierFilter) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if f.Search != "" {
			p := containsPattern(f.Search)
			tx = tx.Where("(name ILIKE ? OR description ILIKE ? OR EXISTS (SELECT 1 FROM unnest(specialties) AS sp WHERE sp ILIKE ?))", p, p, p)
		}
		if f.Category != "" {
			tx = tx.Where("category = ?", f.Category)
		}
		if f.Location != "" {
			tx = tx.Where("location LIKE ?", containsPattern(f.Location))
		}
		return tx
	}
}

func (s *Store) SearchSuppliers(ctx context.Context, filter models.SupplierFilter, offset, limit int) ([]models.Supplier, int64, error) {
	scope := supplierFilterScope(filter)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Supplier{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	out := []models.Supplier{}
	if int64(offset) >= total {
		return out, total, nil
	}
	err := s.db.WithContext(ctx).Scopes(scope).
		Order("seq ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	return out, total, nil
}

func (s *Store) UpdateSupplier(ctx context.Context, supplier *models.Supplier) error {
	tx := s.db.WithContext(ctx).Model(&models.Supplier{}).
		Where("id = ?", supplier.ID).
		Updates(map[string]interface{}{
			"name":           supplier.Name,
			"category":       supplier.Category,
			"location":       supplier.Location,
			"description":    supplier.Description,
			"specialties":    supplier.Specialties,
			"certifications": supplier.Certifications,
			"image":          supplier.Image,
			"response_time":  supplier.ResponseTime,
			"established":    supplier.Established,
			"employees":      supplier.Employees,
			"phone":          supplier.Phone,
			"email":          supplier.Email,
			"website":        supplier.Website,
			"updated_at":     supplier.UpdatedAt,
		})
	return affected(tx)
}

func (s *Store) CountSuppliers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Supplier{}).Count(&n).Error
	return n, translate(err)
}

// ---- products

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	return s.create(ctx, &product.Base, product)
}

func (s *Store) ListProductsBySupplier(ctx context.Context, supplierID utils.SixID) ([]models.Product, error) {
	out := []models.Product{}
	err := s.db.WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		Order("created_at DESC").
		Order("seq DESC").
		Find(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) FindOwnedProduct(ctx context.Context, id, supplierID utils.SixID) (*models.Product, error) {
	var p models.Product
	err := s.db.WithContext(ctx).Where("id = ? AND supplier_id = ?", id, supplierID).First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) UpdateOwnedProduct(ctx context.Context, product *models.Product) error {
	tx := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND supplier_id = ?", product.ID, product.SupplierID).
		Updates(map[string]interface{}{
			"name":               product.Name,
			"description":        product.Description,
			"category":           product.Category,
			"price":              product.Price,
			"lead_time":          product.LeadTime,
			"min_order_quantity": product.MinOrderQuantity,
			"image_key":          product.ImageKey,
			"updated_at":         product.UpdatedAt,
		})
	return affected(tx)
}

func (s *Store) DeleteOwnedProduct(ctx context.Context, id, supplierID utils.SixID) error {
	tx := s.db.WithContext(ctx).
		Where("id = ? AND supplier_id = ?", id, supplierID).
		Delete(&models.Product{})
	return affected(tx)
}

// ---- inquiries

func (s *Store) CreateInquiry(ctx context.Context, inquiry *models.Inquiry) error {
	return s.create(ctx, &inquiry.Base, inquiry)
}

func (s *Store) ListInquiries(ctx context.Context, filter models.InquiryFilter) ([]models.Inquiry, error) {
	tx := s.db.WithContext(ctx).Model(&models.Inquiry{})
	if filter.ManufacturerID != nil {
		tx = tx.Where("manufacturer_id = ?", *filter.ManufacturerID)
	}
	if filter.SupplierID != nil {
		tx = tx.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.Status != nil {
		tx = tx.Where("status = ?", string(*filter.Status))
	}

	out := []models.Inquiry{}
	if err := tx.Order("created_at DESC").Order("seq ASC").Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) FindInquiry(ctx context.Context, id utils.SixID) (*models.Inquiry, error) {
	var inq models.Inquiry
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&inq).Error; err != nil {
		return nil, translate(err)
	}
	return &inq, nil
}

func (s *Store) FindOwnedInquiry(ctx context.Context, id, supplierID utils.SixID) (*models.Inquiry, error) {
	var inq models.Inquiry
	err := s.db.WithContext(ctx).Where("id = ? AND supplier_id = ?", id, supplierID).First(&inq).Error
	if err != nil {
		return nil, translate(err)
	}
	return &inq, nil
}

func (s *Store) SaveInquiry(ctx context.Context, inquiry *models.Inquiry) error {
	tx := s.db.WithContext(ctx).Model(&models.Inquiry{}).
		Where("id = ? AND supplier_id = ?", inquiry.ID, inquiry.SupplierID).
		Updates(map[string]interface{}{
			"status":        string(inquiry.Status),
			"response":      inquiry.Response,
			"quoted_price":  inquiry.QuotedPrice,
			"delivery_time": inquiry.DeliveryTime,
			"notes":         inquiry.Notes,
			"responded_at":  inquiry.RespondedAt,
		})
	return affected(tx)
}

// ---- orders

// CreateOrder writes the order row and its items in one transaction. The whole
// transaction is retried when the generated order id collides.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	insert := func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Omit("Items").Create(order).Error; err != nil {
				return err
			}
			for i := range order.Items {
				order.Items[i].ID = 0
				order.Items[i].OrderID = order.ID
			}
			if len(order.Items) == 0 {
				return nil
			}
			return tx.Create(&order.Items).Error
		})
	}

	if !order.ID.IsZero() {
		return translate(insert())
	}
	return translate(db.Try(func() error {
		order.GenID()
		return insert()
	}, db.IsPostgresDuplicateIDError))
}

func (s *Store) ListOrdersBySupplier(ctx context.Context, supplierID utils.SixID) ([]models.Order, error) {
	out := []models.Order{}
	err := s.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Where("supplier_id = ?", supplierID).
		Order("order_date DESC").
		Find(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}
