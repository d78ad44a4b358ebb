package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// ProductRepository defines the contract for product storage.
//
// Active rows have no deletion marker; trashed rows do. Lists are ordered
// newest first with later inserts winning ties.
type ProductRepository interface {
	FindActive(ctx context.Context) ([]*Product, error)
	FindTrashed(ctx context.Context) ([]*Product, error)
	FindByID(ctx context.Context, id int64) (*Product, error)
	FindTrashedByID(ctx context.Context, id int64) (*Product, error)
	// NameExists checks every row, trashed included, skipping excludeID.
	NameExists(ctx context.Context, name string, excludeID int64) (bool, error)

	Create(ctx context.Context, attrs ProductAttributes) (*Product, error)
	Update(ctx context.Context, product *Product, attrs ProductAttributes) (*Product, error)
	Delete(ctx context.Context, product *Product) error
	Restore(ctx context.Context, product *Product) error
	ForceDelete(ctx context.Context, product *Product) error

	BulkDelete(ctx context.Context, ids []int64) (int64, error)
	BulkRestore(ctx context.Context, ids []int64) (int64, error)

	TotalValueSum(ctx context.Context) (decimal.Decimal, error)
	ExportJSON(ctx context.Context) ([]byte, error)
	ExportXML(ctx context.Context) ([]byte, error)
}
