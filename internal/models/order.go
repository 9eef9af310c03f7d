package models

import (
	"time"

	"github.com/DFBlok/market-link-app/internal/utils"
	"github.com/shopspring/decimal"
)

// Order is a purchase placed by a buyer with a single supplier.
type Order struct {
	Base            `bson:",inline"`
	SupplierID      utils.SixID     `json:"supplierId" gorm:"type:varchar(10);not null;index"`
	BuyerID         utils.SixID     `json:"buyerId" gorm:"type:varchar(10);not null;index"`
	ShippingAddress string          `json:"shippingAddress" gorm:"not null"`
	TotalAmount     decimal.Decimal `json:"totalAmount" gorm:"type:numeric(14,2);not null"`
	OrderDate       time.Time       `json:"orderDate" gorm:"not null;index"`
	Items           []OrderItem     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// OrderItem is one line of an order. Price is the unit price.
type OrderItem struct {
	ID        uint            `json:"-" gorm:"primaryKey"`
	OrderID   utils.SixID     `json:"-" gorm:"type:varchar(10);not null;index"`
	ProductID utils.SixID     `json:"productId" gorm:"type:varchar(10);not null"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(14,2);not null"`
}

// LineTotal is quantity times unit price.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Total sums the line totals of the items.
func Total(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}
