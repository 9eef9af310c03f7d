package models

import (
	"time"

	"github.com/DFBlok/market-link-app/internal/utils"
)

// Product is a catalog entry owned by exactly one supplier.
// Price, LeadTime and MinOrderQuantity are display strings.
// Seq orders products created within the same instant.
type Product struct {
	Base             `bson:",inline"`
	Seq              int64       `bson:"seq" json:"-" gorm:"autoIncrement;uniqueIndex"`
	SupplierID       utils.SixID `bson:"supplier_id" json:"supplierId" gorm:"type:varchar(10);not null;index"`
	Name             string      `bson:"name" json:"name" gorm:"not null"`
	Description      string      `bson:"description" json:"description" gorm:"not null"`
	Category         string      `bson:"category" json:"category" gorm:"not null"`
	Price            string      `bson:"price" json:"price" gorm:"not null"`
	LeadTime         string      `bson:"lead_time" json:"leadTime" gorm:"not null"`
	MinOrderQuantity string      `bson:"min_order_quantity" json:"minOrderQuantity" gorm:"not null"`
	ImageKey         *string     `bson:"image_key,omitempty" json:"imageKey,omitempty"`
	CreatedAt        time.Time   `bson:"created_at" json:"createdAt" gorm:"index"`
	UpdatedAt        time.Time   `bson:"updated_at" json:"updatedAt"`
}

// ProductFields holds the mutable, required attributes of a product.
type ProductFields struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Category         string `json:"category"`
	Price            string `json:"price"`
	LeadTime         string `json:"leadTime"`
	MinOrderQuantity string `json:"minOrderQuantity"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (f ProductFields) Trimmed() ProductFields {
	return ProductFields{
		Name:             trimSpace(f.Name),
		Description:      trimSpace(f.Description),
		Category:         trimSpace(f.Category),
		Price:            trimSpace(f.Price),
		LeadTime:         trimSpace(f.LeadTime),
		MinOrderQuantity: trimSpace(f.MinOrderQuantity),
	}
}

// Missing lists the json names of required fields that are empty.
func (f ProductFields) Missing() []string {
	var missing []string
	check := func(name, v string) {
		if trimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("name", f.Name)
	check("description", f.Description)
	check("category", f.Category)
	check("price", f.Price)
	check("leadTime", f.LeadTime)
	check("minOrderQuantity", f.MinOrderQuantity)
	return missing
}

// Apply copies the fields onto the product.
func (p *Product) Apply(f ProductFields) {
	p.Name = f.Name
	p.Description = f.Description
	p.Category = f.Category
	p.Price = f.Price
	p.LeadTime = f.LeadTime
	p.MinOrderQuantity = f.MinOrderQuantity
}
