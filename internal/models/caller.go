package models

import "github.com/DFBlok/market-link-app/internal/utils"

// Caller is the authenticated identity a request acts as.
type Caller struct {
	ID       utils.SixID
	UserType UserType
	IsAdmin  bool
}

// IsSupplier reports whether the caller is a supplier account.
func (c Caller) IsSupplier() bool {
	return c.UserType == UserTypeSupplier
}

// Owns reports whether the caller may act on a record owned by id.
func (c Caller) Owns(id utils.SixID) bool {
	return c.IsAdmin || (!c.ID.IsZero() && c.ID == id)
}
