package gormrepo

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/mrops-br/products-inventory-api/internal/domain"
	"github.com/mrops-br/products-inventory-api/internal/infrastructure/export"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const newestFirst = "created_at DESC, id DESC"

// bulkChunkSize bounds the IN list of one bulk statement, well below the bind
// parameter limits of SQLite (32766) and Postgres (65535)
const bulkChunkSize = 1000

// ProductRepository is a GORM implementation of domain.ProductRepository
type ProductRepository struct {
	db     *gorm.DB
	tracer trace.Tracer
	logger *slog.Logger
}

// NewProductRepository creates a new SQL backed product repository
func NewProductRepository(db *gorm.DB, tracer trace.Tracer, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{
		db:     db,
		tracer: tracer,
		logger: logger,
	}
}

func (r *ProductRepository) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository."+name)
	span.SetAttributes(attrs...)
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, domain.ErrProductNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// translateError maps driver level failures onto domain errors
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrProductNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.ErrDuplicateName
	default:
		return err
	}
}

// write derives TotalValue and maps the product onto a row, for every insert and update
func write(p *domain.Product) *productRecord {
	p.RecalculateTotal()
	return newRecord(p)
}

// FindActive lists non-deleted products, newest first
func (r *ProductRepository) FindActive(ctx context.Context) (products []*domain.Product, err error) {
	ctx, span := r.startSpan(ctx, "FindActive")
	defer func() { endSpan(span, err) }()

	var records []productRecord
	if err = r.db.WithContext(ctx).Order(newestFirst).Find(&records).Error; err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("product.count", len(records)))
	r.logger.DebugContext(ctx, "Active products retrieved from repository",
		slog.Int("count", len(records)),
	)
	return toDomainList(records), nil
}

// FindTrashed lists soft-deleted products, newest first
func (r *ProductRepository) FindTrashed(ctx context.Context) (products []*domain.Product, err error) {
	ctx, span := r.startSpan(ctx, "FindTrashed")
	defer func() { endSpan(span, err) }()

	var records []productRecord
	err = r.db.WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL").
		Order(newestFirst).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("product.count", len(records)))
	r.logger.DebugContext(ctx, "Trashed products retrieved from repository",
		slog.Int("count", len(records)),
	)
	return toDomainList(records), nil
}

// FindByID retrieves an active product
func (r *ProductRepository) FindByID(ctx context.Context, id int64) (product *domain.Product, err error) {
	ctx, span := r.startSpan(ctx, "FindByID", attribute.Int64("product.id", id))
	defer func() { endSpan(span, err) }()

	var rec productRecord
	if err = translateError(r.db.WithContext(ctx).First(&rec, id).Error); err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

// FindTrashedByID retrieves a soft-deleted product
func (r *ProductRepository) FindTrashedByID(ctx context.Context, id int64) (product *domain.Product, err error) {
	ctx, span := r.startSpan(ctx, "FindTrashedByID", attribute.Int64("product.id", id))
	defer func() { endSpan(span, err) }()

	var rec productRecord
	err = r.db.WithContext(ctx).Unscoped().
		Where("id = ? AND deleted_at IS NOT NULL", id).
		First(&rec).Error
	if err = translateError(err); err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

// NameExists checks the name against every row, trashed ones included.
// excludeID skips the product being updated; pass 0 on create.
func (r *ProductRepository) NameExists(ctx context.Context, name string, excludeID int64) (exists bool, err error) {
	ctx, span := r.startSpan(ctx, "NameExists", attribute.String("product.name", name))
	defer func() { endSpan(span, err) }()

	query := r.db.WithContext(ctx).Unscoped().Model(&productRecord{}).Where("name = ?", name)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err = query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new product
func (r *ProductRepository) Create(ctx context.Context, attrs domain.ProductAttributes) (product *domain.Product, err error) {
	ctx, span := r.startSpan(ctx, "Create", attribute.String("product.name", attrs.Name))
	defer func() { endSpan(span, err) }()

	rec := write(domain.NewProduct(attrs))
	if err = translateError(r.db.WithContext(ctx).Create(rec).Error); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int64("product.id", rec.ID))
	r.logger.InfoContext(ctx, "Product created in repository",
		slog.Int64("product_id", rec.ID),
		slog.String("product_name", rec.Name),
	)
	return rec.toDomain(), nil
}

// Update overwrites the attributes of an active product and returns the stored row
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product, attrs domain.ProductAttributes) (updated *domain.Product, err error) {
	ctx, span := r.startSpan(ctx, "Update", attribute.Int64("product.id", product.ID))
	defer func() { endSpan(span, err) }()

	next := *product
	next.Apply(attrs)
	rec := write(&next)

	res := r.db.WithContext(ctx).Model(&productRecord{}).
		Where("id = ?", rec.ID).
		Updates(map[string]any{
			"name":        rec.Name,
			"quantity":    rec.Quantity,
			"price":       rec.Price,
			"total_value": rec.TotalValue,
		})
	if err = translateError(res.Error); err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrProductNotFound
	}

	r.logger.InfoContext(ctx, "Product updated in repository",
		slog.Int64("product_id", rec.ID),
	)

	var fresh productRecord
	if err = translateError(r.db.WithContext(ctx).First(&fresh, rec.ID).Error); err != nil {
		return nil, err
	}
	return fresh.toDomain(), nil
}

// Delete moves the product to the trash. Deleting a trashed product is a no-op.
func (r *ProductRepository) Delete(ctx context.Context, product *domain.Product) (err error) {
	ctx, span := r.startSpan(ctx, "Delete", attribute.Int64("product.id", product.ID))
	defer func() { endSpan(span, err) }()

	if err = r.db.WithContext(ctx).Delete(&productRecord{}, product.ID).Error; err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "Product moved to trash",
		slog.Int64("product_id", product.ID),
	)
	return nil
}

// Restore clears the deleted marker. Restoring an active product is a no-op.
func (r *ProductRepository) Restore(ctx context.Context, product *domain.Product) (err error) {
	ctx, span := r.startSpan(ctx, "Restore", attribute.Int64("product.id", product.ID))
	defer func() { endSpan(span, err) }()

	res := r.db.WithContext(ctx).Unscoped().Model(&productRecord{}).
		Where("id = ?", product.ID).
		Update("deleted_at", nil)
	if err = res.Error; err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}

	r.logger.InfoContext(ctx, "Product restored from trash",
		slog.Int64("product_id", product.ID),
	)
	return nil
}

// ForceDelete erases the row regardless of its trash state
func (r *ProductRepository) ForceDelete(ctx context.Context, product *domain.Product) (err error) {
	ctx, span := r.startSpan(ctx, "ForceDelete", attribute.Int64("product.id", product.ID))
	defer func() { endSpan(span, err) }()

	if err = r.db.WithContext(ctx).Unscoped().Delete(&productRecord{}, product.ID).Error; err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "Product permanently deleted",
		slog.Int64("product_id", product.ID),
	)
	return nil
}

// BulkDelete trashes the active products among ids and returns how many changed
func (r *ProductRepository) BulkDelete(ctx context.Context, ids []int64) (count int64, err error) {
	ctx, span := r.startSpan(ctx, "BulkDelete", attribute.Int("product.ids", len(ids)))
	defer func() { endSpan(span, err) }()

	if len(ids) == 0 {
		return 0, nil
	}

	count, err = r.inChunks(ctx, ids, func(tx *gorm.DB, chunk []int64) (int64, error) {
		res := tx.Where("id IN ?", chunk).Delete(&productRecord{})
		return res.RowsAffected, res.Error
	})
	if err != nil {
		return 0, err
	}

	span.SetAttributes(attribute.Int64("product.affected", count))
	r.logger.InfoContext(ctx, "Products moved to trash",
		slog.Int64("count", count),
	)
	return count, nil
}

// BulkRestore restores the trashed products among ids and returns how many changed
func (r *ProductRepository) BulkRestore(ctx context.Context, ids []int64) (count int64, err error) {
	ctx, span := r.startSpan(ctx, "BulkRestore", attribute.Int("product.ids", len(ids)))
	defer func() { endSpan(span, err) }()

	if len(ids) == 0 {
		return 0, nil
	}

	count, err = r.inChunks(ctx, ids, func(tx *gorm.DB, chunk []int64) (int64, error) {
		res := tx.Unscoped().Model(&productRecord{}).
			Where("id IN ? AND deleted_at IS NOT NULL", chunk).
			Update("deleted_at", nil)
		return res.RowsAffected, res.Error
	})
	if err != nil {
		return 0, err
	}

	span.SetAttributes(attribute.Int64("product.affected", count))
	r.logger.InfoContext(ctx, "Products restored from trash",
		slog.Int64("count", count),
	)
	return count, nil
}

// inChunks runs stmt over ids bulkChunkSize at a time and sums the affected
// rows. Lists longer than one chunk run in a single transaction.
func (r *ProductRepository) inChunks(ctx context.Context, ids []int64, stmt func(tx *gorm.DB, chunk []int64) (int64, error)) (int64, error) {
	if len(ids) <= bulkChunkSize {
		return stmt(r.db.WithContext(ctx), ids)
	}

	var total int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for chunk := range slices.Chunk(ids, bulkChunkSize) {
			n, err := stmt(tx, chunk)
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// TotalValueSum adds up total_value over active products
func (r *ProductRepository) TotalValueSum(ctx context.Context) (sum decimal.Decimal, err error) {
	ctx, span := r.startSpan(ctx, "TotalValueSum")
	defer func() { endSpan(span, err) }()

	row := r.db.WithContext(ctx).Model(&productRecord{}).
		Select("COALESCE(SUM(total_value), 0)").
		Row()
	if err = row.Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return sum.Round(2), nil
}

// ExportJSON renders active products as a JSON array
func (r *ProductRepository) ExportJSON(ctx context.Context) ([]byte, error) {
	products, err := r.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	return export.JSON(products)
}

// ExportXML renders active products as a <products> document
func (r *ProductRepository) ExportXML(ctx context.Context) ([]byte, error) {
	products, err := r.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	return export.XML(products)
}
