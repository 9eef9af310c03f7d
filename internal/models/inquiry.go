package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DFBlok/market-link-app/internal/utils"
)

// InquiryStatus is the lifecycle state of an inquiry.
type InquiryStatus string

const (
	InquiryStatusNew        InquiryStatus = "New"
	InquiryStatusResponded  InquiryStatus = "Responded"
	InquiryStatusInProgress InquiryStatus = "In Progress"
	InquiryStatusClosed     InquiryStatus = "Closed"
)

var inquiryStatusAliases = map[string]InquiryStatus{
	"new":         InquiryStatusNew,
	"pending":     InquiryStatusNew,
	"responded":   InquiryStatusResponded,
	"quoted":      InquiryStatusResponded,
	"in progress": InquiryStatusInProgress,
	"in_progress": InquiryStatusInProgress,
	"in-progress": InquiryStatusInProgress,
	"inprogress":  InquiryStatusInProgress,
	"closed":      InquiryStatusClosed,
}

// ParseInquiryStatus resolves a status name or alias (pending, quoted, ...) case-insensitively.
func ParseInquiryStatus(s string) (InquiryStatus, bool) {
	st, ok := inquiryStatusAliases[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

// Priority of an inquiry.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

// ParsePriority resolves a priority case-insensitively. Empty means Medium.
func ParsePriority(s string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return PriorityMedium, true
	case "low":
		return PriorityLow, true
	case "medium":
		return PriorityMedium, true
	case "high":
		return PriorityHigh, true
	case "urgent":
		return PriorityUrgent, true
	}
	return "", false
}

// Snapshot defaults for names that could not be resolved at submission.
const (
	UnknownManufacturer = "Unknown Manufacturer"
	UnknownSupplier     = "Unknown Supplier"
)

// Transition errors returned by the Inquiry state machine.
var (
	ErrInquiryClosed     = errors.New("inquiry is closed")
	ErrAlreadyResponded  = errors.New("inquiry has already been responded to")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Inquiry is a manufacturer's request for pricing or availability sent to one supplier.
// ManufacturerName, ManufacturerEmail and SupplierName are snapshots taken at submission.
// A nil ManufacturerID marks a guest submission.
type Inquiry struct {
	Base              `bson:",inline"`
	Seq               int64         `bson:"seq" json:"-" gorm:"autoIncrement;uniqueIndex"`
	ManufacturerID    *utils.SixID  `bson:"manufacturer_id,omitempty" json:"manufacturerId" gorm:"type:varchar(10);index"`
	ManufacturerName  string        `bson:"manufacturer_name" json:"manufacturerName"`
	ManufacturerEmail string        `bson:"manufacturer_email" json:"manufacturerEmail"`
	SupplierID        utils.SixID   `bson:"supplier_id" json:"supplierId" gorm:"type:varchar(10);not null;index"`
	SupplierName      string        `bson:"supplier_name" json:"supplierName"`
	Subject           string        `bson:"subject" json:"subject"`
	ProductName       string        `bson:"product_name" json:"productName" gorm:"not null"`
	Message           string        `bson:"message" json:"message" gorm:"not null"`
	Quantity          *string       `bson:"quantity,omitempty" json:"quantity,omitempty"`
	Priority          Priority      `bson:"priority" json:"priority" gorm:"not null"`
	Status            InquiryStatus `bson:"status" json:"status" gorm:"not null;index"`
	Response          *string       `bson:"response,omitempty" json:"response,omitempty"`
	QuotedPrice       *string       `bson:"quoted_price,omitempty" json:"quotedPrice,omitempty"`
	DeliveryTime      *string       `bson:"delivery_time,omitempty" json:"deliveryTime,omitempty"`
	Notes             *string       `bson:"notes,omitempty" json:"notes,omitempty"`
	ContactEmail      *string       `bson:"contact_email,omitempty" json:"contactEmail,omitempty"`
	ContactPhone      *string       `bson:"contact_phone,omitempty" json:"contactPhone,omitempty"`
	CreatedAt         time.Time     `bson:"created_at" json:"createdAt" gorm:"not null;index"`
	RespondedAt       *time.Time    `bson:"responded_at,omitempty" json:"respondedAt,omitempty"`
}

// InquiryResponse is the supplier's reply. Empty optional fields are stored as absent.
type InquiryResponse struct {
	Message      string
	QuotedPrice  string
	DeliveryTime string
	Notes        string
}

// Respond records a response and moves the inquiry to Responded.
// A Closed inquiry never accepts a response. An already Responded inquiry is
// overwritten only when allowReRespond is set.
func (i *Inquiry) Respond(r InquiryResponse, now time.Time, allowReRespond bool) error {
	switch i.Status {
	case InquiryStatusClosed:
		return ErrInquiryClosed
	case InquiryStatusResponded:
		if !allowReRespond {
			return ErrAlreadyResponded
		}
	}

	msg := strings.TrimSpace(r.Message)
	i.Response = &msg
	i.QuotedPrice = StringPtr(r.QuotedPrice)
	i.DeliveryTime = StringPtr(r.DeliveryTime)
	i.Notes = StringPtr(r.Notes)
	i.Status = InquiryStatusResponded
	i.RespondedAt = &now
	return nil
}

// TransitionTo applies a manual status change. Only New/Responded -> In Progress
// and any non-Closed state -> Closed are permitted; Responded is reachable only via Respond.
func (i *Inquiry) TransitionTo(target InquiryStatus, now time.Time) error {
	if i.Status == InquiryStatusClosed {
		return ErrInquiryClosed
	}
	switch target {
	case InquiryStatusInProgress:
		if i.Status != InquiryStatusNew && i.Status != InquiryStatusResponded {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, i.Status, target)
		}
	case InquiryStatusClosed:
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, i.Status, target)
	}

	if i.Status == InquiryStatusNew && i.RespondedAt == nil {
		i.RespondedAt = &now
	}
	i.Status = target
	return nil
}

// CheckInvariants verifies the status and response bookkeeping of an inquiry.
// A response implies respondedAt, but not the reverse: a manual move out of New
// stamps respondedAt without a response.
func (i *Inquiry) CheckInvariants() error {
	if (i.Status == InquiryStatusNew) != (i.RespondedAt == nil) {
		return fmt.Errorf("respondedAt must be set exactly when status is not New (status %s)", i.Status)
	}
	if i.Response != nil && i.RespondedAt == nil {
		return errors.New("response recorded without respondedAt")
	}
	if i.Status == InquiryStatusResponded && i.Response == nil {
		return errors.New("status Responded without a response")
	}
	if i.RespondedAt != nil && i.RespondedAt.Before(i.CreatedAt) {
		return errors.New("respondedAt precedes createdAt")
	}
	return nil
}

// InquiryFilter selects inquiries by equality. Nil fields are not filtered.
type InquiryFilter struct {
	ManufacturerID *utils.SixID
	SupplierID     *utils.SixID
	Status         *InquiryStatus
}

// Matches reports whether the inquiry passes every set filter.
func (f InquiryFilter) Matches(i *Inquiry) bool {
	if f.ManufacturerID != nil && (i.ManufacturerID == nil || *i.ManufacturerID != *f.ManufacturerID) {
		return false
	}
	if f.SupplierID != nil && i.SupplierID != *f.SupplierID {
		return false
	}
	if f.Status != nil && i.Status != *f.Status {
		return false
	}
	return true
}
