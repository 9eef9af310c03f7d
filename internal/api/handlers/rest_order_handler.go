package handlers

import (
	"net/http"
	"strings"

	"github.com/DFBlok/market-link-app/internal/services"
	"github.com/DFBlok/market-link-app/internal/utils"
	"github.com/gin-gonic/gin"
)

// RestOrderHandler handles order placement and the supplier order book.
type RestOrderHandler struct {
	orderService services.IOrderService
}

// NewRestOrderHandler creates a new RestOrderHandler.
func NewRestOrderHandler(orderService services.IOrderService) *RestOrderHandler {
	return &RestOrderHandler{orderService: orderService}
}

// CreateOrder handles POST /orders
func (h *RestOrderHandler) CreateOrder(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	var req services.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	req.Caller = caller

	order, err := h.orderService.CreateOrder(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Order created", "orderId": order.ID, "order": order})
}

// ListOrders handles GET /orders?supplierId=. Suppliers only see their own orders.
func (h *RestOrderHandler) ListOrders(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	supplierID := caller.ID
	if raw := strings.TrimSpace(c.Query("supplierId")); raw != "" {
		id, err := utils.ParseSixID(raw)
		if err != nil {
			badRequest(c, "Invalid supplier ID")
			return
		}
		if !caller.Owns(id) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Orders not found or unauthorized"})
			return
		}
		supplierID = id
	}

	orders, err := h.orderService.ListOrdersBySupplier(c.Request.Context(), supplierID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": len(orders)})
}
