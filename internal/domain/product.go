package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxNameLength is the longest product name the store accepts
const MaxNameLength = 255

// Product represents the product entity
type Product struct {
	ID         int64
	Name       string
	Quantity   int64
	Price      decimal.Decimal
	TotalValue decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time
}

// ProductAttributes holds the caller-settable fields of a product
type ProductAttributes struct {
	Name     string
	Quantity int64
	Price    decimal.Decimal
}

// NewProduct builds an unsaved product from validated attributes
func NewProduct(attrs ProductAttributes) *Product {
	p := &Product{}
	p.Apply(attrs)
	return p
}

// Apply copies attributes onto the product. TotalValue is left stale until
// RecalculateTotal runs.
func (p *Product) Apply(attrs ProductAttributes) {
	p.Name = attrs.Name
	p.Quantity = attrs.Quantity
	p.Price = attrs.Price.Round(2)
}

// RecalculateTotal sets TotalValue to Quantity * Price.
// Repositories call it before every write.
func (p *Product) RecalculateTotal() {
	p.TotalValue = p.Price.Mul(decimal.NewFromInt(p.Quantity)).Round(2)
}

// IsDeleted reports whether the product is in the trash
func (p *Product) IsDeleted() bool {
	return p.DeletedAt != nil
}
