package handlers

import (
	"net/http"

	"github.com/DFBlok/market-link-app/internal/services"
	"github.com/gin-gonic/gin"
)

// RestInquiryHandler handles the inquiry lifecycle.
type RestInquiryHandler struct {
	inquiryService services.IInquiryService
}

// NewRestInquiryHandler creates a new RestInquiryHandler.
func NewRestInquiryHandler(inquiryService services.IInquiryService) *RestInquiryHandler {
	return &RestInquiryHandler{inquiryService: inquiryService}
}

type statusRequest struct {
	Status string `json:"status"`
}

// SubmitInquiry handles POST /inquiries. Guests submit with manufacturerId "guest".
func (h *RestInquiryHandler) SubmitInquiry(c *gin.Context) {
	var req services.SubmitInquiryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	req.Caller = callerPtr(c)

	inquiry, err := h.inquiryService.SubmitInquiry(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Inquiry sent successfully", "inquiry": inquiry})
}

// ListInquiries handles GET /inquiries?manufacturerId=&supplierId=&status=
func (h *RestInquiryHandler) ListInquiries(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	filter, err := services.InquiryFilterFor(caller, services.InquiryQuery{
		ManufacturerID: c.Query("manufacturerId"),
		SupplierID:     c.Query("supplierId"),
		Status:         c.Query("status"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	inquiries, err := h.inquiryService.ListInquiries(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inquiries": inquiries, "total": len(inquiries)})
}

// GetInquiry handles GET /inquiries/:id
func (h *RestInquiryHandler) GetInquiry(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "Inquiry")
	if !ok {
		return
	}

	inquiry, err := h.inquiryService.GetInquiry(c.Request.Context(), id, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inquiry": inquiry})
}

// RespondToInquiry handles POST /inquiries/:id/respond
func (h *RestInquiryHandler) RespondToInquiry(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "Inquiry")
	if !ok {
		return
	}
	var req services.RespondInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	req.InquiryID = id
	req.SupplierID = caller.ID

	inquiry, err := h.inquiryService.RespondToInquiry(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Response sent successfully", "inquiry": inquiry})
}

// UpdateInquiryStatus handles PATCH /inquiries/:id/status
func (h *RestInquiryHandler) UpdateInquiryStatus(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "Inquiry")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	inquiry, err := h.inquiryService.UpdateInquiryStatus(c.Request.Context(), id, caller.ID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inquiry": inquiry})
}
