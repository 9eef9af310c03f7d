package models

import (
	"strings"
	"time"
)

// UserType distinguishes the two sides of the marketplace.
type UserType string

const (
	UserTypeManufacturer UserType = "manufacturer"
	UserTypeSupplier     UserType = "supplier"
)

// ParseUserType accepts the user type case-insensitively.
func ParseUserType(s string) (UserType, bool) {
	switch UserType(strings.ToLower(strings.TrimSpace(s))) {
	case UserTypeManufacturer:
		return UserTypeManufacturer, true
	case UserTypeSupplier:
		return UserTypeSupplier, true
	}
	return "", false
}

// Role controls administrative access.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents a registered account.
type User struct {
	Base         `bson:",inline"`
	Name         string    `bson:"name" json:"name" gorm:"not null"`
	Email        string    `bson:"email" json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `bson:"password" json:"-" gorm:"column:password_hash;not null"` // Store hash, not plaintext
	UserType     UserType  `bson:"user_type" json:"userType" gorm:"not null"`
	Role         Role      `bson:"role" json:"role" gorm:"not null;default:user"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimSpace(s string) string {
	return strings.TrimSpace(s)
}
