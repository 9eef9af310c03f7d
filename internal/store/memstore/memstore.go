// Package memstore is a process-local, non-durable Store. It backs tests and
// the "memory" store driver.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/DFBlok/market-link-app/internal/db"
	"github.com/DFBlok/market-link-app/internal/models"
	"github.com/DFBlok/market-link-app/internal/store"
	"github.com/DFBlok/market-link-app/internal/utils"
)

var errDuplicateID = errors.New("memstore: duplicate id")

func isDuplicateID(err error) bool {
	return errors.Is(err, errDuplicateID)
}

// Store keeps every collection in insertion-ordered slices guarded by one lock.
type Store struct {
	mu sync.RWMutex

	users       []models.User
	usersByID   map[utils.SixID]int
	usersByMail map[string]int

	suppliers     []models.Supplier
	suppliersByID map[utils.SixID]int
	supplierSeq   int64

	products   []models.Product
	productSeq int64

	inquiries  []models.Inquiry
	inquirySeq int64

	orders []models.Order
}

// Verify interface compliance
var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		usersByID:     make(map[utils.SixID]int),
		usersByMail:   make(map[string]int),
		suppliersByID: make(map[utils.SixID]int),
	}
}

func (s *Store) Close(ctx context.Context) error { return nil }

// withNewID runs insert with a freshly generated id when base has none,
// retrying on collision the way database backends do.
func withNewID(base *models.Base, insert func() error) error {
	if !base.ID.IsZero() {
		return insert()
	}
	return db.Try(func() error {
		base.GenID()
		return insert()
	}, isDuplicateID)
}

// ---- users

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usersByMail[user.Email]; taken {
		return store.ErrDuplicate
	}
	preset := !user.ID.IsZero()
	err := withNewID(&user.Base, func() error {
		if _, exists := s.usersByID[user.ID]; exists {
			if preset {
				return store.ErrDuplicate
			}
			return errDuplicateID
		}
		s.usersByID[user.ID] = len(s.users)
		s.usersByMail[user.Email] = len(s.users)
		s.users = append(s.users, *user)
		return nil
	})
	return err
}

func (s *Store) FindUserByID(ctx context.Context, id utils.SixID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.usersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := s.users[idx]
	return &u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.usersByMail[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := s.users[idx]
	return &u, nil
}

// ---- suppliers

func cloneSupplier(sp models.Supplier) models.Supplier {
	sp.Specialties = append(models.CleanTags(nil), sp.Specialties...)
	sp.Certifications = append(models.CleanTags(nil), sp.Certifications...)
	return sp
}

func (s *Store) CreateSupplier(ctx context.Context, supplier *models.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	preset := !supplier.ID.IsZero()
	return withNewID(&supplier.Base, func() error {
		if _, exists := s.suppliersByID[supplier.ID]; exists {
			if preset {
				return store.ErrDuplicate
			}
			return errDuplicateID
		}
		s.supplierSeq++
		supplier.Seq = s.supplierSeq
		s.suppliersByID[supplier.ID] = len(s.suppliers)
		s.suppliers = append(s.suppliers, cloneSupplier(*supplier))
		return nil
	})
}

func (s *Store) FindSupplierByID(ctx context.Context, id utils.SixID) (*models.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.suppliersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	sp := cloneSupplier(s.suppliers[idx])
	return &sp, nil
}

func (s *Store) SearchSuppliers(ctx context.Context, filter models.SupplierFilter, offset, limit int) ([]models.Supplier, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	page := []models.Supplier{}
	var total int64
	for i := range s.suppliers {
		if !filter.Matches(&s.suppliers[i]) {
			continue
		}
		if total >= int64(offset) && len(page) < limit {
			page = append(page, cloneSupplier(s.suppliers[i]))
		}
		total++
	}
	return page, total, nil
}

func (s *Store) UpdateSupplier(ctx context.Context, supplier *models.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.suppliersByID[supplier.ID]
	if !ok {
		return store.ErrNotFound
	}
	updated := cloneSupplier(*supplier)
	updated.Seq = s.suppliers[idx].Seq
	updated.CreatedAt = s.suppliers[idx].CreatedAt
	s.suppliers[idx] = updated
	return nil
}

func (s *Store) CountSuppliers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.suppliers)), nil
}

// ---- products

func (s *Store) productIndex(id, supplierID utils.SixID) int {
	for i := range s.products {
		if s.products[i].ID == id && s.products[i].SupplierID == supplierID {
			return i
		}
	}
	return -1
}

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return withNewID(&product.Base, func() error {
		for i := range s.products {
			if s.products[i].ID == product.ID {
				return errDuplicateID
			}
		}
		s.productSeq++
		product.Seq = s.productSeq
		s.products = append(s.products, *product)
		return nil
	})
}

func (s *Store) ListProductsBySupplier(ctx context.Context, supplierID utils.SixID) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Product{}
	for i := range s.products {
		if s.products[i].SupplierID == supplierID {
			out = append(out, s.products[i])
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.After(out[b].CreatedAt)
		}
		return out[a].Seq > out[b].Seq
	})
	return out, nil
}

func (s *Store) FindOwnedProduct(ctx context.Context, id, supplierID utils.SixID) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.productIndex(id, supplierID)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	p := s.products[idx]
	return &p, nil
}

func (s *Store) UpdateOwnedProduct(ctx context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.productIndex(product.ID, product.SupplierID)
	if idx < 0 {
		return store.ErrNotFound
	}
	updated := *product
	updated.CreatedAt = s.products[idx].CreatedAt
	updated.Seq = s.products[idx].Seq
	s.products[idx] = updated
	return nil
}

func (s *Store) DeleteOwnedProduct(ctx context.Context, id, supplierID utils.SixID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.productIndex(id, supplierID)
	if idx < 0 {
		return store.ErrNotFound
	}
	s.products = append(s.products[:idx], s.products[idx+1:]...)
	return nil
}

// ---- inquiries

func (s *Store) inquiryIndex(id utils.SixID) int {
	for i := range s.inquiries {
		if s.inquiries[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) CreateInquiry(ctx context.Context, inquiry *models.Inquiry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return withNewID(&inquiry.Base, func() error {
		if s.inquiryIndex(inquiry.ID) >= 0 {
			return errDuplicateID
		}
		s.inquirySeq++
		inquiry.Seq = s.inquirySeq
		s.inquiries = append(s.inquiries, *inquiry)
		return nil
	})
}

func (s *Store) ListInquiries(ctx context.Context, filter models.InquiryFilter) ([]models.Inquiry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Inquiry{}
	for i := range s.inquiries {
		if filter.Matches(&s.inquiries[i]) {
			out = append(out, s.inquiries[i])
		}
	}
	// Stable: equal timestamps keep insertion order.
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out, nil
}

func (s *Store) FindInquiry(ctx context.Context, id utils.SixID) (*models.Inquiry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.inquiryIndex(id)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	inq := s.inquiries[idx]
	return &inq, nil
}

func (s *Store) FindOwnedInquiry(ctx context.Context, id, supplierID utils.SixID) (*models.Inquiry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.inquiryIndex(id)
	if idx < 0 || s.inquiries[idx].SupplierID != supplierID {
		return nil, store.ErrNotFound
	}
	inq := s.inquiries[idx]
	return &inq, nil
}

func (s *Store) SaveInquiry(ctx context.Context, inquiry *models.Inquiry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.inquiryIndex(inquiry.ID)
	if idx < 0 || s.inquiries[idx].SupplierID != inquiry.SupplierID {
		return store.ErrNotFound
	}
	current := &s.inquiries[idx]
	current.Status = inquiry.Status
	current.Response = inquiry.Response
	current.QuotedPrice = inquiry.QuotedPrice
	current.DeliveryTime = inquiry.DeliveryTime
	current.Notes = inquiry.Notes
	current.RespondedAt = inquiry.RespondedAt
	return nil
}

// ---- orders

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return o
}

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return withNewID(&order.Base, func() error {
		for i := range s.orders {
			if s.orders[i].ID == order.ID {
				return errDuplicateID
			}
		}
		for i := range order.Items {
			order.Items[i].ID = uint(i + 1)
			order.Items[i].OrderID = order.ID
		}
		s.orders = append(s.orders, cloneOrder(*order))
		return nil
	})
}

func (s *Store) ListOrdersBySupplier(ctx context.Context, supplierID utils.SixID) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Order{}
	for i := len(s.orders) - 1; i >= 0; i-- {
		if s.orders[i].SupplierID == supplierID {
			out = append(out, cloneOrder(s.orders[i]))
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].OrderDate.After(out[b].OrderDate)
	})
	return out, nil
}
