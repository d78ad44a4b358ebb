package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mrops-br/products-inventory-api/internal/app/dto"
	"github.com/mrops-br/products-inventory-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ProductService handles product use cases
type ProductService struct {
	repo                  domain.ProductRepository
	validator             *Validator
	tracer                trace.Tracer
	logger                *slog.Logger
	productCreatedCounter metric.Int64Counter
	productOperations     metric.Int64Counter
}

// NewProductService creates a new product service
func NewProductService(
	repo domain.ProductRepository,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
) *ProductService {
	// Initialize metrics
	productCreatedCounter, _ := meter.Int64Counter(
		"products.created.total",
		metric.WithDescription("Total number of products created"),
	)

	productOperations, _ := meter.Int64Counter(
		"products.operations",
		metric.WithDescription("Total number of product operations"),
	)

	return &ProductService{
		repo:                  repo,
		validator:             NewValidator(),
		tracer:                tracer,
		logger:                logger,
		productCreatedCounter: productCreatedCounter,
		productOperations:     productOperations,
	}
}

func operationResult(err error) string {
	var verr *domain.ValidationError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &verr):
		return "validation_error"
	case errors.Is(err, domain.ErrProductNotFound):
		return "not_found"
	default:
		return "failure"
	}
}

// finish records the operation outcome on the span, the operations counter
// and the log, then ends the span
func (s *ProductService) finish(ctx context.Context, span trace.Span, operation string, err error) {
	defer span.End()

	result := operationResult(err)
	s.productOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", result),
		),
	)

	switch result {
	case "success":
		span.SetStatus(codes.Ok, operation+" succeeded")
	case "failure":
		span.RecordError(err)
		span.SetStatus(codes.Error, operation+" failed")
		s.logger.ErrorContext(ctx, "Product operation failed",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
	default:
		span.SetStatus(codes.Error, result)
		s.logger.WarnContext(ctx, "Product operation rejected",
			slog.String("operation", operation),
			slog.String("result", result),
			slog.String("error", err.Error()),
		)
	}
}

// validateProduct normalises and checks a create or update request.
// excludeID is the product being updated, 0 on create.
func (s *ProductService) validateProduct(ctx context.Context, req *dto.ProductRequest, excludeID int64) error {
	req.Normalize()

	verr := s.validator.Validate(req)
	if !verr.Has("name") {
		taken, err := s.repo.NameExists(ctx, req.Name, excludeID)
		if err != nil {
			return err
		}
		if taken {
			verr.Add("name", msgNameTaken)
		}
	}

	if verr.Empty() {
		return nil
	}
	return verr
}

// duplicateAsValidation turns a store level unique violation into the same
// error a failed name check produces
func duplicateAsValidation(err error) error {
	if errors.Is(err, domain.ErrDuplicateName) {
		verr := domain.NewValidationError()
		verr.Add("name", msgNameTaken)
		return verr
	}
	return err
}

// ListActiveWithTotal returns the active products and the sum of their values
func (s *ProductService) ListActiveWithTotal(ctx context.Context) (result *dto.ActiveProducts, err error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.ListActiveWithTotal")
	defer func() { s.finish(ctx, span, "list", err) }()

	products, err := s.repo.FindActive(ctx)
	if err != nil {
		return nil, err
	}

	sum, err := s.repo.TotalValueSum(ctx)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("product.count", len(products)),
		attribute.String("product.total_sum", sum.StringFixed(2)),
	)

	s.logger.InfoContext(ctx, "Products listed successfully",
		slog.Int("count", len(products)),
	)

	return &dto.ActiveProducts{
		Collection: dto.ToProductCollection(products, &sum),
		TotalSum:   sum,
	}, nil
}

// ListTrashed returns the soft-deleted products
func (s *ProductService) ListTrashed(ctx context.Context) (collection *dto.ProductCollection, err error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.ListTrashed")
	defer func() { s.finish(ctx, span, "list_trashed", err) }()

	products, err := s.repo.FindTrashed(ctx)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))
	return dto.ToProductCollection(products, nil), nil
}

// CreateProduct validates the request and stores a new product
func (s *ProductService) CreateProduct(ctx context.Context, req *dto.ProductRequest) (resp *dto.ProductResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.CreateProduct")
	defer func() { s.finish(ctx, span, "create", err) }()

	if err = s.validateProduct(ctx, req, 0); err != nil {
		return nil, err
	}

	attrs := req.Attributes()
	span.SetAttributes(
		attribute.String("product.name", attrs.Name),
		attribute.Int64("product.quantity", attrs.Quantity),
		attribute.String("product.price", attrs.Price.StringFixed(2)),
	)

	product, err := s.repo.Create(ctx, attrs)
	if err != nil {
		return nil, duplicateAsValidation(err)
	}

	s.productCreatedCounter.Add(ctx, 1)
	span.SetAttributes(attribute.Int64("product.id", product.ID))

	s.logger.InfoContext(ctx, "Product created successfully",
		slog.Int64("product_id", product.ID),
	)

	return dto.ToProductResponse(product), nil
}

// UpdateProduct validates the request and overwrites an active product
func (s *ProductService) UpdateProduct(ctx context.Context, id int64, req *dto.ProductRequest) (resp *dto.ProductResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.UpdateProduct")
	defer func() { s.finish(ctx, span, "update", err) }()

	span.SetAttributes(attribute.Int64("product.id", id))

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err = s.validateProduct(ctx, req, id); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, product, req.Attributes())
	if err != nil {
		return nil, duplicateAsValidation(err)
	}

	s.logger.InfoContext(ctx, "Product updated successfully",
		slog.Int64("product_id", id),
	)

	return dto.ToProductResponse(updated), nil
}

// DeleteProduct moves an active product to the trash
func (s *ProductService) DeleteProduct(ctx context.Context, id int64) (err error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.DeleteProduct")
	defer func() { s.finish(ctx, span, "delete", err) }()

	span.SetAttributes(attribute.Int64("product.id", id))

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err = s.repo.Delete(ctx, product); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Product deleted successfully",
		slog.Int64("product_id", id),
	)
	return nil
}

// RestoreProduct brings a trashed product back
func (s *ProductService) RestoreProduct(ctx context.Context, req *dto.RestoreRequest) (err error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.RestoreProduct")
	defer func() { s.finish(ctx, span, "restore", err) }()

	if verr := s.validator.Validate(req); !verr.Empty() {
		return verr
	}

	span.SetAttributes(attribute.Int64("product.id", req.ID))

	product, err := s.repo.FindTrashedByID(ctx, req.ID)
	if err != nil {
		return err
	}

	if err = s.repo.Restore(ctx, product); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Product restored successfully",
		slog.Int64("product_id", req.ID),
	)
	return nil
}

// BulkDeleteProducts trashes the active products among the ids
func (s *ProductService) BulkDeleteProducts(ctx context.Context, req *dto.BulkRequest) (count int64, err error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.BulkDeleteProducts")
	defer func() { s.finish(ctx, span, "bulk_delete", err) }()

	if verr := s.validator.Validate(req); !verr.Empty() {
		return 0, verr
	}

	span.SetAttributes(attribute.Int("product.ids", len(req.IDs)))

	count, err = s.repo.BulkDelete(ctx, req.IDs)
	if err != nil {
		return 0, err
	}

	span.SetAttributes(attribute.Int64("product.affected", count))
	s.logger.InfoContext(ctx, "Products bulk deleted",
		slog.Int("requested", len(req.IDs)),
		slog.Int64("deleted", count),
	)
	return count, nil
}

// BulkRestoreProducts restores the trashed products among the ids
func (s *ProductService) BulkRestoreProducts(ctx context.Context, req *dto.BulkRequest) (count int64, err error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.BulkRestoreProducts")
	defer func() { s.finish(ctx, span, "bulk_restore", err) }()

	if verr := s.validator.Validate(req); !verr.Empty() {
		return 0, verr
	}

	span.SetAttributes(attribute.Int("product.ids", len(req.IDs)))

	count, err = s.repo.BulkRestore(ctx, req.IDs)
	if err != nil {
		return 0, err
	}

	span.SetAttributes(attribute.Int64("product.affected", count))
	s.logger.InfoContext(ctx, "Products bulk restored",
		slog.Int("requested", len(req.IDs)),
		slog.Int64("restored", count),
	)
	return count, nil
}

// ExportProducts renders the active products as json or xml
func (s *ProductService) ExportProducts(ctx context.Context, format string) (file *dto.ExportFile, err error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.ExportProducts")
	defer func() { s.finish(ctx, span, "export", err) }()

	format = strings.ToLower(strings.TrimSpace(format))
	span.SetAttributes(attribute.String("export.format", format))

	var data []byte
	switch format {
	case "json":
		data, err = s.repo.ExportJSON(ctx)
		file = &dto.ExportFile{Format: format, ContentType: "application/json"}
	case "xml":
		data, err = s.repo.ExportXML(ctx)
		file = &dto.ExportFile{Format: format, ContentType: "application/xml"}
	default:
		return nil, domain.ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}

	file.Data = data
	span.SetAttributes(attribute.Int("export.bytes", len(data)))
	return file, nil
}
