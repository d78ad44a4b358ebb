package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mrops-br/products-inventory-api/internal/domain"
	"github.com/mrops-br/products-inventory-api/internal/infrastructure/export"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ProductRepository is an in-memory implementation of domain.ProductRepository.
// Products are copied in and out so callers never share state with the store.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[int64]*domain.Product
	nextID   int64
	now      func() time.Time
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewProductRepository creates a new in-memory product repository
func NewProductRepository(tracer trace.Tracer, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{
		products: make(map[int64]*domain.Product),
		now:      func() time.Time { return time.Now().UTC() },
		tracer:   tracer,
		logger:   logger,
	}
}

func clone(p *domain.Product) *domain.Product {
	c := *p
	if p.DeletedAt != nil {
		deletedAt := *p.DeletedAt
		c.DeletedAt = &deletedAt
	}
	return &c
}

// newestFirst sorts by creation time descending, later ids winning ties
func newestFirst(products []*domain.Product) {
	sort.Slice(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

func (r *ProductRepository) collect(ctx context.Context, span string, trashed bool) []*domain.Product {
	ctx, s := r.tracer.Start(ctx, "ProductRepository."+span)
	defer s.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]*domain.Product, 0, len(r.products))
	for _, p := range r.products {
		if p.IsDeleted() == trashed {
			products = append(products, clone(p))
		}
	}
	newestFirst(products)

	s.SetAttributes(attribute.Int("product.count", len(products)))
	r.logger.DebugContext(ctx, "Products retrieved from repository",
		slog.Int("count", len(products)),
		slog.Bool("trashed", trashed),
	)

	s.SetStatus(codes.Ok, "Products retrieved successfully")
	return products
}

// FindActive lists non-deleted products
func (r *ProductRepository) FindActive(ctx context.Context) ([]*domain.Product, error) {
	return r.collect(ctx, "FindActive", false), nil
}

// FindTrashed lists soft-deleted products
func (r *ProductRepository) FindTrashed(ctx context.Context) ([]*domain.Product, error) {
	return r.collect(ctx, "FindTrashed", true), nil
}

func (r *ProductRepository) find(ctx context.Context, span string, id int64, trashed bool) (*domain.Product, error) {
	ctx, s := r.tracer.Start(ctx, "ProductRepository."+span)
	defer s.End()

	s.SetAttributes(attribute.Int64("product.id", id))

	r.mu.RLock()
	defer r.mu.RUnlock()

	product, exists := r.products[id]
	if !exists || product.IsDeleted() != trashed {
		s.SetStatus(codes.Error, "Product not found")
		r.logger.DebugContext(ctx, "Product not found",
			slog.Int64("product_id", id),
		)
		return nil, domain.ErrProductNotFound
	}

	s.SetStatus(codes.Ok, "Product found")
	return clone(product), nil
}

// FindByID retrieves an active product
func (r *ProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	return r.find(ctx, "FindByID", id, false)
}

// FindTrashedByID retrieves a soft-deleted product
func (r *ProductRepository) FindTrashedByID(ctx context.Context, id int64) (*domain.Product, error) {
	return r.find(ctx, "FindTrashedByID", id, true)
}

// nameTaken must be called with the lock held
func (r *ProductRepository) nameTaken(name string, excludeID int64) bool {
	for id, p := range r.products {
		if id != excludeID && p.Name == name {
			return true
		}
	}
	return false
}

// NameExists checks every product, trashed included
func (r *ProductRepository) NameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	_, span := r.tracer.Start(ctx, "ProductRepository.NameExists")
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.nameTaken(name, excludeID), nil
}

// Create stores a new product
func (r *ProductRepository) Create(ctx context.Context, attrs domain.ProductAttributes) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Create")
	defer span.End()

	span.SetAttributes(attribute.String("product.name", attrs.Name))

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTaken(attrs.Name, 0) {
		span.RecordError(domain.ErrDuplicateName)
		span.SetStatus(codes.Error, "Duplicate product name")
		return nil, domain.ErrDuplicateName
	}

	product := domain.NewProduct(attrs)
	product.RecalculateTotal()
	r.nextID++
	product.ID = r.nextID
	product.CreatedAt = r.now()
	product.UpdatedAt = product.CreatedAt
	r.products[product.ID] = product

	r.logger.InfoContext(ctx, "Product created in repository",
		slog.Int64("product_id", product.ID),
		slog.String("product_name", product.Name),
	)

	span.SetStatus(codes.Ok, "Product created successfully")
	return clone(product), nil
}

// Update overwrites the attributes of an active product
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product, attrs domain.ProductAttributes) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Update")
	defer span.End()

	span.SetAttributes(attribute.Int64("product.id", product.ID))

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.products[product.ID]
	if !exists || stored.IsDeleted() {
		span.SetStatus(codes.Error, "Product not found")
		return nil, domain.ErrProductNotFound
	}
	if r.nameTaken(attrs.Name, product.ID) {
		span.RecordError(domain.ErrDuplicateName)
		span.SetStatus(codes.Error, "Duplicate product name")
		return nil, domain.ErrDuplicateName
	}

	stored.Apply(attrs)
	stored.RecalculateTotal()
	stored.UpdatedAt = r.now()

	r.logger.InfoContext(ctx, "Product updated in repository",
		slog.Int64("product_id", stored.ID),
	)

	span.SetStatus(codes.Ok, "Product updated successfully")
	return clone(stored), nil
}

// Delete moves the product to the trash
func (r *ProductRepository) Delete(ctx context.Context, product *domain.Product) error {
	_, err := r.markDeleted(ctx, "Delete", []int64{product.ID}, true)
	return err
}

// Restore clears the deleted marker
func (r *ProductRepository) Restore(ctx context.Context, product *domain.Product) error {
	r.mu.RLock()
	_, exists := r.products[product.ID]
	r.mu.RUnlock()
	if !exists {
		return domain.ErrProductNotFound
	}

	_, err := r.markDeleted(ctx, "Restore", []int64{product.ID}, false)
	return err
}

// ForceDelete removes the product entirely
func (r *ProductRepository) ForceDelete(ctx context.Context, product *domain.Product) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.ForceDelete")
	defer span.End()

	span.SetAttributes(attribute.Int64("product.id", product.ID))

	r.mu.Lock()
	delete(r.products, product.ID)
	r.mu.Unlock()

	r.logger.InfoContext(ctx, "Product permanently deleted",
		slog.Int64("product_id", product.ID),
	)

	span.SetStatus(codes.Ok, "Product deleted")
	return nil
}

// BulkDelete trashes the active products among ids
func (r *ProductRepository) BulkDelete(ctx context.Context, ids []int64) (int64, error) {
	return r.markDeleted(ctx, "BulkDelete", ids, true)
}

// BulkRestore restores the trashed products among ids
func (r *ProductRepository) BulkRestore(ctx context.Context, ids []int64) (int64, error) {
	return r.markDeleted(ctx, "BulkRestore", ids, false)
}

// markDeleted flips the trash state of every listed product that is not
// already in the target state and returns how many flipped
func (r *ProductRepository) markDeleted(ctx context.Context, op string, ids []int64, deleted bool) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository."+op)
	defer span.End()

	span.SetAttributes(attribute.Int("product.ids", len(ids)))

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var count int64
	for _, id := range ids {
		p, exists := r.products[id]
		if !exists || p.IsDeleted() == deleted {
			continue
		}
		if deleted {
			deletedAt := now
			p.DeletedAt = &deletedAt
		} else {
			p.DeletedAt = nil
			p.UpdatedAt = now
		}
		count++
	}

	span.SetAttributes(attribute.Int64("product.affected", count))
	r.logger.InfoContext(ctx, "Product trash state changed",
		slog.String("operation", op),
		slog.Int64("count", count),
	)

	span.SetStatus(codes.Ok, "Trash state changed")
	return count, nil
}

// TotalValueSum adds up total_value over active products
func (r *ProductRepository) TotalValueSum(ctx context.Context) (decimal.Decimal, error) {
	_, span := r.tracer.Start(ctx, "ProductRepository.TotalValueSum")
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	sum := decimal.Zero
	for _, p := range r.products {
		if !p.IsDeleted() {
			sum = sum.Add(p.TotalValue)
		}
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
