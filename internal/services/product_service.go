package services

import (
	"context"
	"strings"

	"github.com/DFBlok/market-link-app/internal/cache"
	"github.com/DFBlok/market-link-app/internal/logger"
	"github.com/DFBlok/market-link-app/internal/metrics"
	"github.com/DFBlok/market-link-app/internal/models"
	"github.com/DFBlok/market-link-app/internal/storage"
	"github.com/DFBlok/market-link-app/internal/store"
	"github.com/DFBlok/market-link-app/internal/tasks"
	"github.com/DFBlok/market-link-app/internal/utils"
	"go.uber.org/zap"
)

// ErrImagesDisabled is returned by the image operations when no bucket is configured.
var ErrImagesDisabled = &Error{Kind: KindValidation, Message: "Image uploads are not enabled"}

// ImageUpload is a presigned upload slot for a product image.
type ImageUpload struct {
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key"`
}

// IProductService defines catalog operations. Every mutation is scoped to the owning supplier.
type IProductService interface {
	ListProducts(ctx context.Context, supplierID utils.SixID) ([]models.Product, error)
	CreateProduct(ctx context.Context, supplierID utils.SixID, fields models.ProductFields) (*models.Product, error)
	UpdateProduct(ctx context.Context, id, supplierID utils.SixID, fields models.ProductFields) (*models.Product, error)
	DeleteProduct(ctx context.Context, id, supplierID utils.SixID) error
	RequestImageUpload(ctx context.Context, id, supplierID utils.SixID, filename, contentType string) (*ImageUpload, error)
	// ConfirmImageUpload queues processing of an uploaded object; the key is recorded once it is processed.
	ConfirmImageUpload(ctx context.Context, id, supplierID utils.SixID, key string) error
	SetProductImage(ctx context.Context, id, supplierID utils.SixID, key string) error
}

// Verify interface compliance
var _ tasks.ProductImageSetter = (*productService)(nil)

type productService struct {
	products store.ProductStore
	storage  storage.IS3Storage
	tasks    tasks.TaskClient
	cache    cache.Cache
}

// NewProductService creates a new product service. objects and queue may be nil,
// which disables image uploads.
func NewProductService(products store.ProductStore, objects storage.IS3Storage, queue tasks.TaskClient, c cache.Cache) IProductService {
	if c == nil {
		c = cache.Nop{}
	}
	return &productService{products: products, storage: objects, tasks: queue, cache: c}
}

func (s *productService) ListProducts(ctx context.Context, supplierID utils.SixID) ([]models.Product, error) {
	if supplierID.IsZero() {
		return nil, validationError("Supplier ID is required")
	}
	products, err := s.products.ListProductsBySupplier(ctx, supplierID)
	if err != nil {
		return nil, internalError("list products", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

func (s *productService) CreateProduct(ctx context.Context, supplierID utils.SixID, fields models.ProductFields) (*models.Product, error) {
	fields = fields.Trimmed()
	if len(fields.Missing()) > 0 {
		return nil, validationError("All fields are required")
	}

	now := models.Now()
	product := &models.Product{SupplierID: supplierID, CreatedAt: now, UpdatedAt: now}
	product.Apply(fields)
	if err := s.products.CreateProduct(ctx, product); err != nil {
		return nil, internalError("create product", err)
	}

	invalidateSupplier(ctx, s.cache, supplierID)
	metrics.RecordEvent(metrics.EventProductCreated)
	logger.FromContext(ctx).Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("supplier_id", supplierID.String()))
	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id, supplierID utils.SixID, fields models.ProductFields) (*models.Product, error) {
	fields = fields.Trimmed()
	if len(fields.Missing()) > 0 {
		return nil, validationError("All fields are required")
	}

	product, err := s.products.FindOwnedProduct(ctx, id, supplierID)
	if err != nil {
		return nil, storeError("find product", "Product", err)
	}
	product.Apply(fields)
	product.UpdatedAt = models.Now()
	if err := s.products.UpdateOwnedProduct(ctx, product); err != nil {
		return nil, storeError("update product", "Product", err)
	}
	invalidateSupplier(ctx, s.cache, supplierID)
	return product, nil
}

func (s *productService) DeleteProduct(ctx context.Context, id, supplierID utils.SixID) error {
	if err := s.products.DeleteOwnedProduct(ctx, id, supplierID); err != nil {
		return storeError("delete product", "Product", err)
	}
	invalidateSupplier(ctx, s.cache, supplierID)
	logger.FromContext(ctx).Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}

func (s *productService) RequestImageUpload(ctx context.Context, id, supplierID utils.SixID, filename, contentType string) (*ImageUpload, error) {
	if s.storage == nil || s.tasks == nil {
		return nil, ErrImagesDisabled
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if !storage.AllowedImageTypes[contentType] {
		return nil, validationError("Unsupported image type: %s", contentType)
	}
	if strings.TrimSpace(filename) == "" {
		return nil, validationError("Filename is required")
	}
	if _, err := s.products.FindOwnedProduct(ctx, id, supplierID); err != nil {
		return nil, storeError("find product", "Product", err)
	}

	url, key, err := s.storage.GeneratePresignedPutURL(ctx, supplierID.String(), id.String(), filename, contentType)
	if err != nil {
		return nil, internalError("presign image upload", err)
	}
	return &ImageUpload{UploadURL: url, Key: key}, nil
}

func (s *productService) ConfirmImageUpload(ctx context.Context, id, supplierID utils.SixID, key string) error {
	if s.storage == nil || s.tasks == nil {
		return ErrImagesDisabled
	}
	if !strings.HasPrefix(key, storage.ProductImagePrefix(supplierID.String(), id.String())) {
		return validationError("Image key does not belong to this product")
	}
	if _, err := s.products.FindOwnedProduct(ctx, id, supplierID); err != nil {
		return storeError("find product", "Product", err)
	}

	task, err := tasks.NewImageProcessTask(tasks.ImageTaskPayload{
		S3Key:      key,
		ProductID:  id.String(),
		SupplierID: supplierID.String(),
	})
	if err != nil {
		return internalError("build image task", err)
	}
	if _, err := s.tasks.EnqueueContext(ctx, task); err != nil {
		return internalError("enqueue image task", err)
	}
	return nil
}

func (s *productService) SetProductImage(ctx context.Context, id, supplierID utils.SixID, key string) error {
	product, err := s.products.FindOwnedProduct(ctx, id, supplierID)
	if err != nil {
		return storeError("find product", "Product", err)
	}
	product.ImageKey = &key
	product.UpdatedAt = models.Now()
	if err := s.products.UpdateOwnedProduct(ctx, product); err != nil {
		return storeError("set product image", "Product", err)
	}
	invalidateSupplier(ctx, s.cache, supplierID)
	return nil
}
