package gormrepo

import (
	"time"

	"github.com/mrops-br/products-inventory-api/internal/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// productRecord is the row layout of the products table
type productRecord struct {
	ID         int64           `gorm:"primaryKey;autoIncrement"`
	Name       string          `gorm:"size:255;not null;uniqueIndex"`
	Quantity   int64           `gorm:"not null;default:0;check:quantity >= 0"`
	Price      decimal.Decimal `gorm:"type:decimal(10,2);not null;check:price >= 0"`
	TotalValue decimal.Decimal `gorm:"type:decimal(12,2);not null;check:total_value >= 0"`
	CreatedAt  time.Time       `gorm:"index"`
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (productRecord) TableName() string {
	return "products"
}

func newRecord(p *domain.Product) *productRecord {
	rec := &productRecord{
		ID:         p.ID,
		Name:       p.Name,
		Quantity:   p.Quantity,
		Price:      p.Price,
		TotalValue: p.TotalValue,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
	if p.DeletedAt != nil {
		rec.DeletedAt = gorm.DeletedAt{Time: *p.DeletedAt, Valid: true}
	}
	return rec
}

func (r *productRecord) toDomain() *domain.Product {
	p := &domain.Product{
		ID:         r.ID,
		Name:       r.Name,
		Quantity:   r.Quantity,
		Price:      r.Price,
		TotalValue: r.TotalValue,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.DeletedAt.Valid {
		deletedAt := r.DeletedAt.Time
		p.DeletedAt = &deletedAt
	}
	return p
}

func toDomainList(records []productRecord) []*domain.Product {
	products := make([]*domain.Product, 0, len(records))
	for i := range records {
		products = append(products, records[i].toDomain())
	}
	return products
}
