package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/DFBlok/market-link-app/internal/models"
	"github.com/DFBlok/market-link-app/internal/services"
	"github.com/DFBlok/market-link-app/internal/utils"
)

// --- Mocks ---

// MockUserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, input services.RegisterInput) (*models.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByID(ctx context.Context, id utils.SixID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockProductService
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) ListProducts(ctx context.Context, supplierID utils.SixID) ([]models.Product, error) {
	args := m.Called(ctx, supplierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductService) CreateProduct(ctx context.Context, supplierID utils.SixID, fields models.ProductFields) (*models.Product, error) {
	args := m.Called(ctx, supplierID, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductService) UpdateProduct(ctx context.Context, id, supplierID utils.SixID, fields models.ProductFields) (*models.Product, error) {
	args := m.Called(ctx, id, supplierID, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductService) DeleteProduct(ctx context.Context, id, supplierID utils.SixID) error {
	return m.Called(ctx, id, supplierID).Error(0)
}

func (m *MockProductService) RequestImageUpload(ctx context.Context, id, supplierID utils.SixID, filename, contentType string) (*services.ImageUpload, error) {
	args := m.Called(ctx, id, supplierID, filename, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ImageUpload), args.Error(1)
}

func (m *MockProductService) ConfirmImageUpload(ctx context.Context, id, supplierID utils.SixID, key string) error {
	return m.Called(ctx, id, supplierID, key).Error(0)
}

func (m *MockProductService) SetProductImage(ctx context.Context, id, supplierID utils.SixID, key string) error {
	return m.Called(ctx, id, supplierID, key).Error(0)
}

// MockInquiryService
type MockInquiryService struct {
	mock.Mock
}

func (m *MockInquiryService) SubmitInquiry(ctx context.Context, input services.SubmitInquiryInput) (*models.Inquiry, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) ListInquiries(ctx context.Context, filter models.InquiryFilter) ([]models.Inquiry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) GetInquiry(ctx context.Context, id utils.SixID, caller models.Caller) (*models.Inquiry, error) {
	args := m.Called(ctx, id, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) RespondToInquiry(ctx context.Context, input services.RespondInput) (*models.Inquiry, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) UpdateInquiryStatus(ctx context.Context, id, supplierID utils.SixID, status string) (*models.Inquiry, error) {
	args := m.Called(ctx, id, supplierID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

// MockSupplierService
type MockSupplierService struct {
	mock.Mock
}

func (m *MockSupplierService) SearchSuppliers(ctx context.Context, query models.SupplierQuery) (*models.SupplierPage, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SupplierPage), args.Error(1)
}

func (m *MockSupplierService) RegisterSupplier(ctx context.Context, caller *models.Caller, input services.RegisterSupplierInput) (*models.Supplier, error) {
	args := m.Called(ctx, caller, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Supplier), args.Error(1)
}

func (m *MockSupplierService) GetSupplier(ctx context.Context, id utils.SixID) (*models.SupplierDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SupplierDetail), args.Error(1)
}

func (m *MockSupplierService) UpdateSupplier(ctx context.Context, id utils.SixID, caller models.Caller, update models.SupplierUpdate) (*models.Supplier, error) {
	args := m.Called(ctx, id, caller, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Supplier), args.Error(1)
}

func (m *MockSupplierService) SeedDefaultSuppliers(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockOrderService
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, input services.CreateOrderInput) (*models.Order, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) ListOrdersBySupplier(ctx context.Context, supplierID utils.SixID) ([]models.Order, error) {
	args := m.Called(ctx, supplierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}
