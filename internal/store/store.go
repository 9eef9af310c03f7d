// Package store defines the persistence boundary. Every backend (postgres via
// gorm, mongo, memory) implements the same interfaces and error values.
package store

import (
	"context"
	"errors"

	"github.com/DFBlok/market-link-app/internal/models"
	"github.com/DFBlok/market-link-app/internal/utils"
)

var (
	// ErrNotFound is returned when no row matches the lookup predicate,
	// including ownership predicates.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint other than a generated id collides.
	ErrDuplicate = errors.New("duplicate record")
)

type UserStore interface {
	// CreateUser assigns an id when empty. ErrDuplicate when the email is taken.
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id utils.SixID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type SupplierStore interface {
	// CreateSupplier assigns an id when empty. ErrDuplicate when a preset id exists.
	CreateSupplier(ctx context.Context, supplier *models.Supplier) error
	FindSupplierByID(ctx context.Context, id utils.SixID) (*models.Supplier, error)
	// SearchSuppliers returns one window of matches in registration order and the total match count.
	SearchSuppliers(ctx context.Context, filter models.SupplierFilter, offset, limit int) ([]models.Supplier, int64, error)
	UpdateSupplier(ctx context.Context, supplier *models.Supplier) error
	CountSuppliers(ctx context.Context) (int64, error)
}

type ProductStore interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	// ListProductsBySupplier returns newest first.
	ListProductsBySupplier(ctx context.Context, supplierID utils.SixID) ([]models.Product, error)
	FindOwnedProduct(ctx context.Context, id, supplierID utils.SixID) (*models.Product, error)
	// UpdateOwnedProduct writes product where both id and supplier id match; ErrNotFound otherwise.
	UpdateOwnedProduct(ctx context.Context, product *models.Product) error
	DeleteOwnedProduct(ctx context.Context, id, supplierID utils.SixID) error
}

type InquiryStore interface {
	// CreateInquiry assigns the id and the insertion sequence.
	CreateInquiry(ctx context.Context, inquiry *models.Inquiry) error
	// ListInquiries returns matches newest first, ties in insertion order.
	ListInquiries(ctx context.Context, filter models.InquiryFilter) ([]models.Inquiry, error)
	FindInquiry(ctx context.Context, id utils.SixID) (*models.Inquiry, error)
	FindOwnedInquiry(ctx context.Context, id, supplierID utils.SixID) (*models.Inquiry, error)
	// SaveInquiry writes the mutable fields where id and supplier id match; ErrNotFound otherwise.
	SaveInquiry(ctx context.Context, inquiry *models.Inquiry) error
}

type OrderStore interface {
	// CreateOrder persists the order and all of its items atomically.
	CreateOrder(ctx context.Context, order *models.Order) error
	// ListOrdersBySupplier returns newest first.
	ListOrdersBySupplier(ctx context.Context, supplierID utils.SixID) ([]models.Order, error)
}

// Store is a complete backend.
type Store interface {
	UserStore
	SupplierStore
	ProductStore
	InquiryStore
	OrderStore
	Close(ctx context.Context) error
}
