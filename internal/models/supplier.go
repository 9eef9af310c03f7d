package models

import (
	"math"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Directory filter sentinels that disable their filter.
const (
	AllCategories = "All Categories"
	AllLocations  = "All Locations"
)

// Page size bounds for directory search.
const (
	DefaultSupplierPageSize = 10
	MaxSupplierPageSize     = 100
)

// Supplier is a directory entry. When registered by a supplier account the entry
// shares that account's id, so it doubles as the supplierId of inquiries and products.
type Supplier struct {
	Base           `bson:",inline"`
	Seq            int64          `bson:"seq" json:"-" gorm:"autoIncrement;uniqueIndex"`
	Name           string         `bson:"name" json:"name" gorm:"not null"`
	Category       string         `bson:"category" json:"category" gorm:"not null;index"`
	Location       string         `bson:"location" json:"location" gorm:"not null"`
	Description    string         `bson:"description" json:"description" gorm:"not null"`
	Rating         float64        `bson:"rating" json:"rating"`
	ReviewCount    int            `bson:"review_count" json:"reviewCount"`
	Specialties    pq.StringArray `bson:"specialties" json:"specialties" gorm:"type:text[]"`
	Certifications pq.StringArray `bson:"certifications" json:"certifications" gorm:"type:text[]"`
	Image          string         `bson:"image" json:"image"`
	Verified       bool           `bson:"verified" json:"verified"`
	ResponseTime   string         `bson:"response_time" json:"responseTime"`
	Established    string         `bson:"established" json:"established"`
	Employees      string         `bson:"employees" json:"employees"`
	Phone          string         `bson:"phone" json:"phone"`
	Email          string         `bson:"email" json:"email"`
	Website        string         `bson:"website" json:"website"`
	CreatedAt      time.Time      `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `bson:"updated_at" json:"updatedAt"`
}

// SupplierDetail is a supplier together with its catalog.
type SupplierDetail struct {
	Supplier
	Products []Product `json:"products"`
}

// SupplierPage is one page of a directory search.
type SupplierPage struct {
	Suppliers  []Supplier `json:"suppliers"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"totalPages"`
}

// SupplierQuery holds directory search parameters as received from callers.
type SupplierQuery struct {
	Search   string
	Category string
	Location string
	Page     int
	Limit    int
}

// SupplierFilter is the normalized form of a SupplierQuery that stores evaluate.
// Empty fields are disabled filters.
type SupplierFilter struct {
	Search   string // lower-cased substring
	Category string // exact match
	Location string // substring, " Province" suffix already stripped
}

// Normalize applies defaults and bounds to paging and resolves sentinel filters.
func (q SupplierQuery) Normalize() (SupplierFilter, int, int) {
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultSupplierPageSize
	}
	if limit > MaxSupplierPageSize {
		limit = MaxSupplierPageSize
	}

	f := SupplierFilter{Search: strings.ToLower(strings.TrimSpace(q.Search))}
	if c := strings.TrimSpace(q.Category); c != "" && c != AllCategories {
		f.Category = c
	}
	if l := strings.TrimSpace(q.Location); l != "" && l != AllLocations {
		f.Location = strings.TrimSuffix(l, " Province")
	}
	return f, page, limit
}

// Matches reports whether s passes every enabled filter.
func (f SupplierFilter) Matches(s *Supplier) bool {
	if f.Search != "" && !s.matchesSearch(f.Search) {
		return false
	}
	if f.Category != "" && s.Category != f.Category {
		return false
	}
	if f.Location != "" && !strings.Contains(s.Location, f.Location) {
		return false
	}
	return true
}

func (s *Supplier) matchesSearch(needle string) bool {
	if strings.Contains(strings.ToLower(s.Name), needle) ||
		strings.Contains(strings.ToLower(s.Description), needle) {
		return true
	}
	for _, sp := range s.Specialties {
		if strings.Contains(strings.ToLower(sp), needle) {
			return true
		}
	}
	return false
}

// TotalPages is ceil(total/limit).
// PageOffset returns the number of entries before page. Offsets past math.MaxInt
// saturate, which every store treats as past the end.
func PageOffset(page, limit int) int {
	if page < 1 || limit < 1 {
		return 0
	}
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// SupplierUpdate carries the fields of a partial supplier update. Nil fields are left unchanged.
type SupplierUpdate struct {
	Name           *string   `json:"name"`
	Category       *string   `json:"category"`
	Location       *string   `json:"location"`
	Description    *string   `json:"description"`
	Specialties    *[]string `json:"specialties"`
	Certifications *[]string `json:"certifications"`
	Image          *string   `json:"image"`
	ResponseTime   *string   `json:"responseTime"`
	Established    *string   `json:"established"`
	Employees      *string   `json:"employees"`
	Phone          *string   `json:"phone"`
	Email          *string   `json:"email"`
	Website        *string   `json:"website"`
}

// Apply merges the update into s. Required fields cannot be blanked.
// It returns the names of required fields the update tried to clear.
func (u SupplierUpdate) Apply(s *Supplier) []string {
	var blanked []string
	setRequired := func(name string, dst *string, v *string) {
		if v == nil {
			return
		}
		if t := trimSpace(*v); t != "" {
			*dst = t
		} else {
			blanked = append(blanked, name)
		}
	}
	setOptional := func(dst *string, v *string) {
		if v != nil {
			*dst = trimSpace(*v)
		}
	}

	setRequired("name", &s.Name, u.Name)
	setRequired("category", &s.Category, u.Category)
	setRequired("location", &s.Location, u.Location)
	setRequired("description", &s.Description, u.Description)
	setOptional(&s.Image, u.Image)
	setOptional(&s.ResponseTime, u.ResponseTime)
	setOptional(&s.Established, u.Established)
	setOptional(&s.Employees, u.Employees)
	setOptional(&s.Phone, u.Phone)
	setOptional(&s.Email, u.Email)
	setOptional(&s.Website, u.Website)
	if u.Specialties != nil {
		s.Specialties = CleanTags(*u.Specialties)
	}
	if u.Certifications != nil {
		s.Certifications = CleanTags(*u.Certifications)
	}
	return blanked
}

// CleanTags trims tags and drops empty ones. The result is never nil.
func CleanTags(tags []string) pq.StringArray {
	out := pq.StringArray{}
	for _, t := range tags {
		if t = trimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
