package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DFBlok/market-link-app/internal/logger"
	"github.com/DFBlok/market-link-app/internal/metrics"
	"github.com/DFBlok/market-link-app/internal/models"
	"github.com/DFBlok/market-link-app/internal/store"
	"github.com/DFBlok/market-link-app/internal/tasks"
	"github.com/DFBlok/market-link-app/internal/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderItemInput is one requested line. Price is the unit price.
type OrderItemInput struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// CreateOrderInput is the payload of a new order. An empty BuyerID means the caller.
type CreateOrderInput struct {
	SupplierID      string           `json:"supplierId"`
	BuyerID         string           `json:"buyerId"`
	ShippingAddress string           `json:"shippingAddress"`
	Items           []OrderItemInput `json:"items"`

	Caller models.Caller `json:"-"`
}

// IOrderService defines order operations.
type IOrderService interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	ListOrdersBySupplier(ctx context.Context, supplierID utils.SixID) ([]models.Order, error)
}

type orderService struct {
	orders   store.OrderStore
	users    store.UserStore
	products store.ProductStore
	tasks    tasks.TaskClient
}

// NewOrderService creates a new order service. queue may be nil, which disables notifications.
func NewOrderService(s store.Store, queue tasks.TaskClient) IOrderService {
	return &orderService{orders: s, users: s, products: s, tasks: queue}
}

func (s *orderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if strings.TrimSpace(input.BuyerID) == "" && !input.Caller.ID.IsZero() {
		input.BuyerID = input.Caller.ID.String()
	}
	var missing []string
	if strings.TrimSpace(input.SupplierID) == "" {
		missing = append(missing, "supplierId")
	}
	if strings.TrimSpace(input.BuyerID) == "" {
		missing = append(missing, "buyerId")
	}
	if strings.TrimSpace(input.ShippingAddress) == "" {
		missing = append(missing, "shippingAddress")
	}
	if len(input.Items) == 0 {
		missing = append(missing, "items")
	}
	if len(missing) > 0 {
		return nil, missingFieldsError(missing)
	}

	supplierID, err := utils.ParseSixID(strings.TrimSpace(input.SupplierID))
	if err != nil {
		return nil, validationError("Invalid supplierId")
	}
	buyerID, err := utils.ParseSixID(strings.TrimSpace(input.BuyerID))
	if err != nil {
		return nil, validationError("Invalid buyerId")
	}
	if !input.Caller.Owns(buyerID) {
		return nil, validationError("buyerId does not match the signed in user")
	}

	if err := s.requireUser(ctx, buyerID, "Buyer"); err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, supplierID, "Supplier"); err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(input.Items))
	for i, in := range input.Items {
		item, err := s.validateItem(ctx, i, in, supplierID)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	order := &models.Order{
		SupplierID:      supplierID,
		BuyerID:         buyerID,
		ShippingAddress: strings.TrimSpace(input.ShippingAddress),
		TotalAmount:     models.Total(items),
		OrderDate:       models.Now(),
		Items:           items,
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, internalError("create order", err)
	}

	metrics.RecordEvent(metrics.EventOrderCreated)
	logger.FromContext(ctx).Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("supplier_id", supplierID.String()),
		zap.Int("items", len(items)))

	if supplier, err := s.users.FindUserByID(ctx, supplierID); err == nil {
		enqueueEmail(ctx, s.tasks, supplier.Email, models.TemplateOrderReceived, map[string]interface{}{
			"orderId":         order.ID.String(),
			"supplierName":    supplier.Name,
			"itemCount":       len(items),
			"totalAmount":     order.TotalAmount.StringFixed(2),
			"shippingAddress": order.ShippingAddress,
		})
	}
	return order, nil
}

func (s *orderService) requireUser(ctx context.Context, id utils.SixID, role string) error {
	if _, err := s.users.FindUserByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return validationError("%s with ID %s does not exist", role, id)
		}
		return internalError("find "+strings.ToLower(role), err)
	}
	return nil
}

func (s *orderService) validateItem(ctx context.Context, i int, in OrderItemInput, supplierID utils.SixID) (models.OrderItem, error) {
	label := fmt.Sprintf("Item %d", i+1)
	if strings.TrimSpace(in.ProductID) == "" {
		return models.OrderItem{}, validationError("%s: productId is required", label)
	}
	productID, err := utils.ParseSixID(strings.TrimSpace(in.ProductID))
	if err != nil {
		return models.OrderItem{}, validationError("%s: invalid productId", label)
	}
	if in.Quantity <= 0 {
		return models.OrderItem{}, validationError("%s: quantity must be greater than 0", label)
	}
	if !in.Price.IsPositive() {
		return models.OrderItem{}, validationError("%s: price must be greater than 0", label)
	}
	if !in.Price.Equal(in.Price.Round(2)) {
		return models.OrderItem{}, validationError("%s: price must have at most 2 decimal places", label)
	}

	if _, err := s.products.FindOwnedProduct(ctx, productID, supplierID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.OrderItem{}, validationError("%s: product %s is not offered by this supplier", label, productID)
		}
		return models.OrderItem{}, internalError("find product", err)
	}
	return models.OrderItem{ProductID: productID, Quantity: in.Quantity, Price: in.Price}, nil
}

func (s *orderService) ListOrdersBySupplier(ctx context.Context, supplierID utils.SixID) ([]models.Order, error) {
	orders, err := s.orders.ListOrdersBySupplier(ctx, supplierID)
	if err != nil {
		return nil, internalError("list orders", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}
