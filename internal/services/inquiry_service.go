package services

import (
	"context"
	"errors"
	"strings"

	"github.com/DFBlok/market-link-app/internal/config"
	"github.com/DFBlok/market-link-app/internal/logger"
	"github.com/DFBlok/market-link-app/internal/metrics"
	"github.com/DFBlok/market-link-app/internal/models"
	"github.com/DFBlok/market-link-app/internal/store"
	"github.com/DFBlok/market-link-app/internal/tasks"
	"github.com/DFBlok/market-link-app/internal/utils"
	"go.uber.org/zap"
)

// GuestManufacturerID is the manufacturerId anonymous submitters send.
const GuestManufacturerID = "guest"

// SubmitInquiryInput is the payload of a new inquiry. Caller is the
// authenticated user, nil for anonymous submissions.
type SubmitInquiryInput struct {
	ManufacturerID    string `json:"manufacturerId"`
	ManufacturerName  string `json:"manufacturerName"`
	ManufacturerEmail string `json:"manufacturerEmail"`
	SupplierID        string `json:"supplierId"`
	SupplierName      string `json:"supplierName"`
	Subject           string `json:"subject"`
	ProductName       string `json:"productName"`
	Message           string `json:"message"`
	Quantity          string `json:"quantity"`
	Priority          string `json:"priority"`
	ContactEmail      string `json:"contactEmail"`
	ContactPhone      string `json:"contactPhone"`

	Caller *models.Caller `json:"-"`
}

// RespondInput is a supplier's response to one of its inquiries.
type RespondInput struct {
	InquiryID    utils.SixID `json:"-"`
	SupplierID   utils.SixID `json:"-"`
	Message      string      `json:"message"`
	QuotedPrice  string      `json:"quotedPrice"`
	DeliveryTime string      `json:"deliveryTime"`
	Notes        string      `json:"notes"`
}

// InquiryQuery holds the raw list filters of a request.
type InquiryQuery struct {
	ManufacturerID string
	SupplierID     string
	Status         string
}

// IInquiryService defines the inquiry lifecycle operations.
type IInquiryService interface {
	SubmitInquiry(ctx context.Context, input SubmitInquiryInput) (*models.Inquiry, error)
	ListInquiries(ctx context.Context, filter models.InquiryFilter) ([]models.Inquiry, error)
	GetInquiry(ctx context.Context, id utils.SixID, caller models.Caller) (*models.Inquiry, error)
	RespondToInquiry(ctx context.Context, input RespondInput) (*models.Inquiry, error)
	UpdateInquiryStatus(ctx context.Context, id, supplierID utils.SixID, status string) (*models.Inquiry, error)
}

type inquiryService struct {
	inquiries      store.InquiryStore
	users          store.UserStore
	suppliers      store.SupplierStore
	tasks          tasks.TaskClient
	allowReRespond bool
	minResponseLen int
}

// NewInquiryService creates a new inquiry service. queue may be nil, which disables notifications.
func NewInquiryService(s store.Store, queue tasks.TaskClient, cfg *config.Config) IInquiryService {
	return &inquiryService{
		inquiries:      s,
		users:          s,
		suppliers:      s,
		tasks:          queue,
		allowReRespond: cfg.InquiryAllowReRespond,
		minResponseLen: cfg.InquiryResponseMinLength,
	}
}

// InquiryFilterFor builds the list filter for caller. Suppliers only see inquiries
// addressed to them and manufacturers only their own; admins are unrestricted.
// A filter naming someone else yields NotFoundOrUnauthorized.
func InquiryFilterFor(caller models.Caller, q InquiryQuery) (models.InquiryFilter, error) {
	var f models.InquiryFilter

	parseID := func(name, raw string) (*utils.SixID, error) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, nil
		}
		id, err := utils.ParseSixID(raw)
		if err != nil {
			return nil, validationError("Invalid %s", name)
		}
		return &id, nil
	}

	var err error
	if f.ManufacturerID, err = parseID("manufacturerId", q.ManufacturerID); err != nil {
		return f, err
	}
	if f.SupplierID, err = parseID("supplierId", q.SupplierID); err != nil {
		return f, err
	}
	if s := strings.TrimSpace(q.Status); s != "" {
		status, ok := models.ParseInquiryStatus(s)
		if !ok {
			return f, validationError("Invalid status: %s", s)
		}
		f.Status = &status
	}

	if caller.IsAdmin {
		return f, nil
	}
	scope := &f.ManufacturerID
	if caller.IsSupplier() {
		scope = &f.SupplierID
	}
	if *scope != nil && **scope != caller.ID {
		return f, notFound("Inquiries")
	}
	*scope = caller.ID.Ptr()
	return f, nil
}

func (s *inquiryService) SubmitInquiry(ctx context.Context, input SubmitInquiryInput) (*models.Inquiry, error) {
	var missing []string
	if strings.TrimSpace(input.ManufacturerID) == "" {
		missing = append(missing, "manufacturerId")
	}
	if strings.TrimSpace(input.SupplierID) == "" {
		missing = append(missing, "supplierId")
	}
	if strings.TrimSpace(input.ProductName) == "" {
		missing = append(missing, "productName")
	}
	if strings.TrimSpace(input.Message) == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return nil, missingFieldsError(missing)
	}

	priority, ok := models.ParsePriority(input.Priority)
	if !ok {
		return nil, validationError("Invalid priority: %s", input.Priority)
	}
	supplierID, err := utils.ParseSixID(strings.TrimSpace(input.SupplierID))
	if err != nil {
		return nil, validationError("Invalid supplierId")
	}

	inquiry := &models.Inquiry{
		ManufacturerName:  strings.TrimSpace(input.ManufacturerName),
		ManufacturerEmail: models.NormalizeEmail(input.ManufacturerEmail),
		SupplierID:        supplierID,
		SupplierName:      strings.TrimSpace(input.SupplierName),
		Subject:           strings.TrimSpace(input.Subject),
		ProductName:       strings.TrimSpace(input.ProductName),
		Message:           strings.TrimSpace(input.Message),
		Quantity:          models.StringPtr(input.Quantity),
		Priority:          priority,
		Status:            models.InquiryStatusNew,
		ContactEmail:      models.StringPtr(input.ContactEmail),
		ContactPhone:      models.StringPtr(input.ContactPhone),
		CreatedAt:         models.Now(),
	}
	if inquiry.Subject == "" {
		inquiry.Subject = inquiry.ProductName
	}

	if err := s.resolveManufacturer(ctx, inquiry, input); err != nil {
		return nil, err
	}
	supplierEmail, err := s.resolveSupplier(ctx, inquiry)
	if err != nil {
		return nil, err
	}

	if err := s.inquiries.CreateInquiry(ctx, inquiry); err != nil {
		return nil, internalError("create inquiry", err)
	}

	metrics.RecordEvent(metrics.EventInquirySubmitted)
	logger.FromContext(ctx).Info("Inquiry submitted",
		zap.String("inquiry_id", inquiry.ID.String()),
		zap.String("supplier_id", supplierID.String()))

	enqueueEmail(ctx, s.tasks, supplierEmail, models.TemplateInquiryReceived, map[string]interface{}{
		"inquiryId":        inquiry.ID.String(),
		"supplierName":     inquiry.SupplierName,
		"manufacturerName": inquiry.ManufacturerName,
		"productName":      inquiry.ProductName,
		"priority":         string(inquiry.Priority),
		"quantity":         derefOr(inquiry.Quantity, ""),
		"message":          inquiry.Message,
	})
	return inquiry, nil
}

// resolveManufacturer sets the manufacturer id and fills missing snapshots from the account.
func (s *inquiryService) resolveManufacturer(ctx context.Context, inquiry *models.Inquiry, input SubmitInquiryInput) error {
	rawID := strings.TrimSpace(input.ManufacturerID)
	if strings.EqualFold(rawID, GuestManufacturerID) {
		if input.Caller != nil && !input.Caller.IsAdmin {
			inquiry.ManufacturerID = input.Caller.ID.Ptr()
		}
	} else {
		id, err := utils.ParseSixID(rawID)
		if err != nil {
			return validationError("Invalid manufacturerId")
		}
		if input.Caller != nil && !input.Caller.Owns(id) {
			return validationError("manufacturerId does not match the signed in user")
		}
		inquiry.ManufacturerID = &id
	}

	if inquiry.ManufacturerID != nil {
		user, err := s.users.FindUserByID(ctx, *inquiry.ManufacturerID)
		switch {
		case err == nil:
			if inquiry.ManufacturerName == "" {
				inquiry.ManufacturerName = user.Name
			}
			if inquiry.ManufacturerEmail == "" {
				inquiry.ManufacturerEmail = user.Email
			}
		case !errors.Is(err, store.ErrNotFound):
			return internalError("find manufacturer", err)
		}
	}
	if inquiry.ManufacturerName == "" {
		inquiry.ManufacturerName = models.UnknownManufacturer
	}
	return nil
}

// resolveSupplier checks the addressee exists as a directory entry or a supplier
// account, fills the name snapshot and returns the address notifications go to.
func (s *inquiryService) resolveSupplier(ctx context.Context, inquiry *models.Inquiry) (string, error) {
	var name, email string

	entry, err := s.suppliers.FindSupplierByID(ctx, inquiry.SupplierID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", internalError("find supplier", err)
	}
	found := err == nil
	if found {
		name, email = entry.Name, entry.Email
	}

	user, err := s.users.FindUserByID(ctx, inquiry.SupplierID)
	switch {
	case err == nil && user.UserType == models.UserTypeSupplier:
		found = true
		if name == "" {
			name = user.Name
		}
		if email == "" {
			email = user.Email
		}
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return "", internalError("find supplier account", err)
	}
	if !found {
		return "", notFound("Supplier")
	}

	if inquiry.SupplierName == "" {
		inquiry.SupplierName = name
	}
	if inquiry.SupplierName == "" {
		inquiry.SupplierName = models.UnknownSupplier
	}
	return email, nil
}

func (s *inquiryService) ListInquiries(ctx context.Context, filter models.InquiryFilter) ([]models.Inquiry, error) {
	inquiries, err := s.inquiries.ListInquiries(ctx, filter)
	if err != nil {
		return nil, internalError("list inquiries", err)
	}
	if inquiries == nil {
		inquiries = []models.Inquiry{}
	}
	return inquiries, nil
}

func (s *inquiryService) GetInquiry(ctx context.Context, id utils.SixID, caller models.Caller) (*models.Inquiry, error) {
	inquiry, err := s.inquiries.FindInquiry(ctx, id)
	if err != nil {
		return nil, storeError("find inquiry", "Inquiry", err)
	}
	visible := caller.Owns(inquiry.SupplierID) ||
		(inquiry.ManufacturerID != nil && caller.Owns(*inquiry.ManufacturerID))
	if !visible {
		return nil, notFound("Inquiry")
	}
	return inquiry, nil
}

func (s *inquiryService) RespondToInquiry(ctx context.Context, input RespondInput) (*models.Inquiry, error) {
	if n := len([]rune(strings.TrimSpace(input.Message))); n < s.minResponseLen {
		return nil, validationError("Response message must be at least %d characters", s.minResponseLen)
	}

	inquiry, err := s.inquiries.FindOwnedInquiry(ctx, input.InquiryID, input.SupplierID)
	if err != nil {
		return nil, storeError("find inquiry", "Inquiry", err)
	}
	response := models.InquiryResponse{
		Message:      input.Message,
		QuotedPrice:  input.QuotedPrice,
		DeliveryTime: input.DeliveryTime,
		Notes:        input.Notes,
	}
	if err := inquiry.Respond(response, models.Now(), s.allowReRespond); err != nil {
		return nil, transitionError(err)
	}
	if err := s.inquiries.SaveInquiry(ctx, inquiry); err != nil {
		return nil, storeError("save inquiry", "Inquiry", err)
	}

	metrics.RecordEvent(metrics.EventInquiryResponded)
	logger.FromContext(ctx).Info("Inquiry responded", zap.String("inquiry_id", inquiry.ID.String()))

	to := inquiry.ManufacturerEmail
	if to == "" {
		to = derefOr(inquiry.ContactEmail, "")
	}
	enqueueEmail(ctx, s.tasks, to, models.TemplateInquiryResponded, map[string]interface{}{
		"inquiryId":        inquiry.ID.String(),
		"supplierName":     inquiry.SupplierName,
		"manufacturerName": inquiry.ManufacturerName,
		"productName":      inquiry.ProductName,
		"response":         derefOr(inquiry.Response, ""),
		"quotedPrice":      derefOr(inquiry.QuotedPrice, ""),
		"deliveryTime":     derefOr(inquiry.DeliveryTime, ""),
		"notes":            derefOr(inquiry.Notes, ""),
	})
	return inquiry, nil
}

func (s *inquiryService) UpdateInquiryStatus(ctx context.Context, id, supplierID utils.SixID, status string) (*models.Inquiry, error) {
	target, ok := models.ParseInquiryStatus(status)
	if !ok {
		return nil, validationError("Invalid status: %s", status)
	}
	inquiry, err := s.inquiries.FindOwnedInquiry(ctx, id, supplierID)
	if err != nil {
		return nil, storeError("find inquiry", "Inquiry", err)
	}
	if err := inquiry.TransitionTo(target, models.Now()); err != nil {
		return nil, transitionError(err)
	}
	if err := s.inquiries.SaveInquiry(ctx, inquiry); err != nil {
		return nil, storeError("save inquiry", "Inquiry", err)
	}
	if target == models.InquiryStatusClosed {
		metrics.RecordEvent(metrics.EventInquiryClosed)
	}
	return inquiry, nil
}
