package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/DFBlok/market-link-app/internal/cache"
	"github.com/DFBlok/market-link-app/internal/config"
	"github.com/DFBlok/market-link-app/internal/logger"
	"github.com/DFBlok/market-link-app/internal/metrics"
	"github.com/DFBlok/market-link-app/internal/models"
	"github.com/DFBlok/market-link-app/internal/store"
	"github.com/DFBlok/market-link-app/internal/utils"
	"go.uber.org/zap"
)

// Defaults for directory entries created through registration.
const (
	DefaultSupplierImage        = "/placeholder-logo.png"
	DefaultSupplierEmployees    = "1-10"
	DefaultSupplierResponseTime = "< 24 hours"
)

// RegisterSupplierInput is the payload of a directory registration.
type RegisterSupplierInput struct {
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	Location       string   `json:"location"`
	Description    string   `json:"description"`
	Specialties    []string `json:"specialties"`
	Certifications []string `json:"certifications"`
	Image          string   `json:"image"`
	ResponseTime   string   `json:"responseTime"`
	Established    string   `json:"established"`
	Employees      string   `json:"employees"`
	Phone          string   `json:"phone"`
	Email          string   `json:"email"`
	Website        string   `json:"website"`
}

// ISupplierService defines directory operations.
type ISupplierService interface {
	SearchSuppliers(ctx context.Context, query models.SupplierQuery) (*models.SupplierPage, error)
	// RegisterSupplier creates a directory entry. An authenticated supplier's entry
	// takes the account id; anonymous entries get a fresh one.
	RegisterSupplier(ctx context.Context, caller *models.Caller, input RegisterSupplierInput) (*models.Supplier, error)
	GetSupplier(ctx context.Context, id utils.SixID) (*models.SupplierDetail, error)
	UpdateSupplier(ctx context.Context, id utils.SixID, caller models.Caller, update models.SupplierUpdate) (*models.Supplier, error)
	// SeedDefaultSuppliers fills an empty directory with the built-in entries.
	SeedDefaultSuppliers(ctx context.Context) (int, error)
}

type supplierService struct {
	suppliers store.SupplierStore
	products  store.ProductStore
	cache     cache.Cache
	cacheTTL  time.Duration
}

// NewSupplierService creates a new supplier service. A nil cache disables caching.
func NewSupplierService(suppliers store.SupplierStore, products store.ProductStore, c cache.Cache, cfg *config.Config) ISupplierService {
	if c == nil {
		c = cache.Nop{}
	}
	return &supplierService{suppliers: suppliers, products: products, cache: c, cacheTTL: cfg.SupplierCacheTTL}
}

// SupplierCacheKey is the cache key of a supplier detail.
func SupplierCacheKey(id utils.SixID) string {
	return "supplier:" + id.String()
}

func (s *supplierService) SearchSuppliers(ctx context.Context, query models.SupplierQuery) (*models.SupplierPage, error) {
	filter, page, limit := query.Normalize()
	suppliers, total, err := s.suppliers.SearchSuppliers(ctx, filter, models.PageOffset(page, limit), limit)
	if err != nil {
		return nil, internalError("search suppliers", err)
	}
	if suppliers == nil {
		suppliers = []models.Supplier{}
	}
	return &models.SupplierPage{
		Suppliers:  suppliers,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: models.TotalPages(total, limit),
	}, nil
}

func (s *supplierService) RegisterSupplier(ctx context.Context, caller *models.Caller, input RegisterSupplierInput) (*models.Supplier, error) {
	required := map[string]string{
		"name":        input.Name,
		"category":    input.Category,
		"location":    input.Location,
		"description": input.Description,
	}
	var missing []string
	for _, field := range []string{"name", "category", "location", "description"} {
		if strings.TrimSpace(required[field]) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, missingFieldsError(missing)
	}

	now := models.Now()
	supplier := &models.Supplier{
		Name:           strings.TrimSpace(input.Name),
		Category:       strings.TrimSpace(input.Category),
		Location:       strings.TrimSpace(input.Location),
		Description:    strings.TrimSpace(input.Description),
		Specialties:    models.CleanTags(input.Specialties),
		Certifications: models.CleanTags(input.Certifications),
		Image:          orDefault(input.Image, DefaultSupplierImage),
		ResponseTime:   orDefault(input.ResponseTime, DefaultSupplierResponseTime),
		Established:    orDefault(input.Established, strconv.Itoa(now.Year())),
		Employees:      orDefault(input.Employees, DefaultSupplierEmployees),
		Phone:          strings.TrimSpace(input.Phone),
		Email:          strings.TrimSpace(input.Email),
		Website:        strings.TrimSpace(input.Website),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if caller != nil && caller.IsSupplier() {
		supplier.ID = caller.ID
	}

	if err := s.suppliers.CreateSupplier(ctx, supplier); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, &Error{Kind: KindConflict, Message: "Supplier profile already exists", Err: err}
		}
		return nil, internalError("create supplier", err)
	}

	metrics.RecordEvent(metrics.EventSupplierRegistered)
	logger.FromContext(ctx).Info("Supplier registered", zap.String("supplier_id", supplier.ID.String()))
	return supplier, nil
}

func (s *supplierService) GetSupplier(ctx context.Context, id utils.SixID) (*models.SupplierDetail, error) {
	log := logger.FromContext(ctx)
	key := SupplierCacheKey(id)

	var cached models.SupplierDetail
	if found, err := s.cache.Get(ctx, key, &cached); err != nil {
		log.Warn("Supplier cache read failed", zap.String("key", key), zap.Error(err))
	} else if found {
		return &cached, nil
	}

	supplier, err := s.suppliers.FindSupplierByID(ctx, id)
	if err != nil {
		return nil, storeError("find supplier", "Supplier", err)
	}
	products, err := s.products.ListProductsBySupplier(ctx, id)
	if err != nil {
		return nil, internalError("list supplier products", err)
	}
	if products == nil {
		products = []models.Product{}
	}

	detail := &models.SupplierDetail{Supplier: *supplier, Products: products}
	if err := s.cache.Set(ctx, key, detail, s.cacheTTL); err != nil {
		log.Warn("Supplier cache write failed", zap.String("key", key), zap.Error(err))
	}
	return detail, nil
}

func (s *supplierService) UpdateSupplier(ctx context.Context, id utils.SixID, caller models.Caller, update models.SupplierUpdate) (*models.Supplier, error) {
	if !caller.Owns(id) {
		return nil, notFound("Supplier")
	}
	supplier, err := s.suppliers.FindSupplierByID(ctx, id)
	if err != nil {
		return nil, storeError("find supplier", "Supplier", err)
	}
	if blanked := update.Apply(supplier); len(blanked) > 0 {
		return nil, validationError("Fields cannot be empty: %s", strings.Join(blanked, ", "))
	}
	supplier.UpdatedAt = models.Now()
	if err := s.suppliers.UpdateSupplier(ctx, supplier); err != nil {
		return nil, storeError("update supplier", "Supplier", err)
	}
	invalidateSupplier(ctx, s.cache, id)
	return supplier, nil
}

func (s *supplierService) SeedDefaultSuppliers(ctx context.Context) (int, error) {
	count, err := s.suppliers.CountSuppliers(ctx)
	if err != nil {
		return 0, internalError("count suppliers", err)
	}
	if count > 0 {
		logger.FromContext(ctx).Info("Supplier directory already populated, skipping seed", zap.Int64("count", count))
		return 0, nil
	}

	created := 0
	for _, seed := range DefaultSuppliers() {
		now := models.Now()
		seed.CreatedAt, seed.UpdatedAt = now, now
		if err := s.suppliers.CreateSupplier(ctx, &seed); err != nil {
			return created, internalError("seed supplier "+seed.Name, err)
		}
		created++
	}
	logger.FromContext(ctx).Info("Seeded supplier directory", zap.Int("count", created))
	return created, nil
}

// invalidateSupplier drops the cached detail of a supplier. Failures are logged only;
// the entry expires on its own.
func invalidateSupplier(ctx context.Context, c cache.Cache, id utils.SixID) {
	if err := c.Delete(ctx, SupplierCacheKey(id)); err != nil {
		logger.FromContext(ctx).Warn("Supplier cache invalidation failed",
			zap.String("supplier_id", id.String()), zap.Error(err))
	}
}

func orDefault(v, def string) string {
	if t := strings.TrimSpace(v); t != "" {
		return t
	}
	return def
}
