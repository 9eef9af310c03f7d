package handlers

import (
	"net/http"
	"strings"

	"github.com/DFBlok/market-link-app/internal/models"
	"github.com/DFBlok/market-link-app/internal/services"
	"github.com/DFBlok/market-link-app/internal/utils"
	"github.com/gin-gonic/gin"
)

// RestProductHandler handles the product catalog. Mutations act for the
// authenticated supplier.
type RestProductHandler struct {
	productService services.IProductService
}

// NewRestProductHandler creates a new RestProductHandler.
func NewRestProductHandler(productService services.IProductService) *RestProductHandler {
	return &RestProductHandler{productService: productService}
}

type productRequest struct {
	models.ProductFields
	SupplierID string `json:"supplierId"`
}

type imageUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

type imageConfirmRequest struct {
	Key string `json:"key"`
}

// ownSupplier resolves the supplier a mutation acts for. A supplierId in the
// body or query that names anyone but the caller is reported like a missing product.
func ownSupplier(c *gin.Context, claimed string) (utils.SixID, bool) {
	caller, ok := mustCaller(c)
	if !ok {
		return utils.SixID{}, false
	}
	if claimed == "" {
		claimed = c.Query("supplierId")
	}
	if claimed = strings.TrimSpace(claimed); claimed != "" {
		id, err := utils.ParseSixID(claimed)
		if err != nil || id != caller.ID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found or unauthorized"})
			return utils.SixID{}, false
		}
	}
	return caller.ID, true
}

// ListProducts handles GET /products?supplierId=
func (h *RestProductHandler) ListProducts(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("supplierId"))
	if raw == "" {
		badRequest(c, "Supplier ID is required")
		return
	}
	supplierID, err := utils.ParseSixID(raw)
	if err != nil {
		badRequest(c, "Invalid supplier ID")
		return
	}

	products, err := h.productService.ListProducts(c.Request.Context(), supplierID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// CreateProduct handles POST /products
func (h *RestProductHandler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	supplierID, ok := ownSupplier(c, req.SupplierID)
	if !ok {
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), supplierID, req.ProductFields)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Product created successfully", "product": product})
}

// UpdateProduct handles PUT /products/:id
func (h *RestProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c, "Product")
	if !ok {
		return
	}
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	supplierID, ok := ownSupplier(c, req.SupplierID)
	if !ok {
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), id, supplierID, req.ProductFields)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product updated successfully", "product": product})
}

// DeleteProduct handles DELETE /products/:id
func (h *RestProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "Product")
	if !ok {
		return
	}
	supplierID, ok := ownSupplier(c, "")
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), id, supplierID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// RequestImageUpload handles POST /products/:id/image-upload
func (h *RestProductHandler) RequestImageUpload(c *gin.Context) {
	id, ok := pathID(c, "Product")
	if !ok {
		return
	}
	var req imageUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	supplierID, ok := ownSupplier(c, "")
	if !ok {
		return
	}

	upload, err := h.productService.RequestImageUpload(c.Request.Context(), id, supplierID, req.Filename, req.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, upload)
}

// ConfirmImageUpload handles POST /products/:id/image-confirm
func (h *RestProductHandler) ConfirmImageUpload(c *gin.Context) {
	id, ok := pathID(c, "Product")
	if !ok {
		return
	}
	var req imageConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	supplierID, ok := ownSupplier(c, "")
	if !ok {
		return
	}

	if err := h.productService.ConfirmImageUpload(c.Request.Context(), id, supplierID, req.Key); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Image queued for processing"})
}
