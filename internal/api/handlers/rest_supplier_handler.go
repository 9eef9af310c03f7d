package handlers

import (
	"net/http"
	"strconv"

	"github.com/DFBlok/market-link-app/internal/models"
	"github.com/DFBlok/market-link-app/internal/services"
	"github.com/gin-gonic/gin"
)

// RestSupplierHandler handles the supplier directory.
type RestSupplierHandler struct {
	supplierService services.ISupplierService
}

// NewRestSupplierHandler creates a new RestSupplierHandler.
func NewRestSupplierHandler(supplierService services.ISupplierService) *RestSupplierHandler {
	return &RestSupplierHandler{supplierService: supplierService}
}

// SearchSuppliers handles GET /suppliers?search=&category=&location=&page=&limit=
// Unparsable page and limit values fall back to their defaults.
func (h *RestSupplierHandler) SearchSuppliers(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	query := models.SupplierQuery{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Location: c.Query("location"),
		Page:     page,
		Limit:    limit,
	}

	result, err := h.supplierService.SearchSuppliers(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RegisterSupplier handles POST /suppliers
func (h *RestSupplierHandler) RegisterSupplier(c *gin.Context) {
	var req services.RegisterSupplierInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	supplier, err := h.supplierService.RegisterSupplier(c.Request.Context(), callerPtr(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Supplier created successfully", "supplier": supplier})
}

// GetSupplier handles GET /suppliers/:id
func (h *RestSupplierHandler) GetSupplier(c *gin.Context) {
	id, ok := pathID(c, "Supplier")
	if !ok {
		return
	}
	detail, err := h.supplierService.GetSupplier(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"supplier": detail})
}

// UpdateSupplier handles PUT /suppliers/:id
func (h *RestSupplierHandler) UpdateSupplier(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "Supplier")
	if !ok {
		return
	}
	var req models.SupplierUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	supplier, err := h.supplierService.UpdateSupplier(c.Request.Context(), id, caller, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Supplier updated successfully", "supplier": supplier})
}
