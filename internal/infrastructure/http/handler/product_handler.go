package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mrops-br/products-inventory-api/internal/app/dto"
	"github.com/mrops-br/products-inventory-api/internal/app/service"
	"github.com/mrops-br/products-inventory-api/internal/domain"
	"github.com/mrops-br/products-inventory-api/internal/infrastructure/http/response"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const exportTimeLayout = "2006-01-02_15-04-05"

// maxBodyBytes caps request bodies; bulk id lists are the largest payload
const maxBodyBytes = 1 << 20

// ProductHandler handles HTTP requests for products
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
	printer *message.Printer
	now     func() time.Time
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger,
		printer: message.NewPrinter(language.English),
		now:     time.Now,
	}
}

// formatAmount renders a sum with thousands separators, e.g. 1,234.50.
// Only the integer part goes through the printer so no digits are lost.
func (h *ProductHandler) formatAmount(d decimal.Decimal) string {
	d = d.Round(2)
	whole, frac, _ := strings.Cut(d.Abs().StringFixed(2), ".")

	if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
		whole = h.printer.Sprintf("%d", n)
	}
	if d.IsNegative() {
		whole = "-" + whole
	}
	return whole + "." + frac
}

type typeErrorRecorder interface {
	AddTypeError(field, message string)
}

// decode reads a JSON body into dst. An empty body leaves dst zeroed so the
// validator reports the missing fields. Values of the wrong JSON type are
// recorded on dst and reported together with the other field failures. It
// writes the response and returns false when the body cannot be used.
func (h *ProductHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	var fields map[string]json.RawMessage
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&fields)
	if errors.Is(err, io.EOF) {
		return true
	}

	var mismatched map[string]string
	if err == nil {
		mismatched, err = decodeFields(fields, dst)
	}
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body",
			slog.String("error", err.Error()),
		)
		response.Error(w, http.StatusBadRequest, "Malformed request body")
		return false
	}
	if len(mismatched) == 0 {
		return true
	}

	if recorder, ok := dst.(typeErrorRecorder); ok {
		for field, msg := range mismatched {
			recorder.AddTypeError(field, msg)
		}
		return true
	}

	verr := domain.NewValidationError()
	for field, msg := range mismatched {
		verr.Add(field, msg)
	}
	response.ValidationFailed(w, verr)
	return false
}

// decodeFields unmarshals fields into dst, leaving out every field whose value
// has the wrong JSON type. It returns a message per left out field.
func decodeFields(fields map[string]json.RawMessage, dst any) (map[string]string, error) {
	mismatched := make(map[string]string)
	target := reflect.ValueOf(dst).Elem()

	for {
		body, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}

		target.SetZero()
		err = json.Unmarshal(body, dst)
		if err == nil {
			return mismatched, nil
		}

		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) || typeErr.Field == "" {
			return nil, err
		}

		field, _, _ := strings.Cut(typeErr.Field, ".")
		key, ok := bodyKey(fields, field)
		if !ok {
			return nil, err
		}
		mismatched[field] = service.TypeMismatchMessage(field, typeErr.Type)
		delete(fields, key)
	}
}

// bodyKey finds the body key that decoded into field. encoding/json matches
// keys case-insensitively.
func bodyKey(fields map[string]json.RawMessage, field string) (string, bool) {
	if _, ok := fields[field]; ok {
		return field, true
	}
	for key := range fields {
		if strings.EqualFold(key, field) {
			return key, true
		}
	}
	return "", false
}

// writeError maps service errors onto status codes. failure is the message
// used for unexpected errors, which are logged rather than exposed.
func (h *ProductHandler) writeError(w http.ResponseWriter, r *http.Request, err error, failure string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ValidationFailed(w, verr)
	case errors.Is(err, domain.ErrProductNotFound):
		response.NotFound(w)
	default:
		h.logger.ErrorContext(r.Context(), failure,
			slog.String("error", err.Error()),
		)
		response.Error(w, http.StatusInternalServerError, failure)
	}
}

// productID parses the {id} path segment; anything but a positive integer is not found
func productID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ListProducts handles GET /api/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListActiveWithTotal(r.Context())
	if err != nil {
		h.writeError(w, r, err, "Failed to fetch products")
		return
	}

	response.JSON(w, http.StatusOK, response.Envelope{
		Success:  true,
		Data:     result.Collection,
		TotalSum: h.formatAmount(result.TotalSum),
	})
}

// ListTrashed handles GET /api/products/trash
func (h *ProductHandler) ListTrashed(w http.ResponseWriter, r *http.Request) {
	collection, err := h.service.ListTrashed(r.Context())
	if err != nil {
		h.writeError(w, r, err, "Failed to fetch trashed products")
		return
	}

	response.Success(w, http.StatusOK, "", collection)
}

// CreateProduct handles POST /api/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req dto.ProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	product, err := h.service.CreateProduct(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err, "Failed to create product")
		return
	}

	response.Success(w, http.StatusCreated, "Product created successfully", product)
}

// UpdateProduct handles PUT /api/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		response.NotFound(w)
		return
	}

	var req dto.ProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), id, &req)
	if err != nil {
		h.writeError(w, r, err, "Failed to update product")
		return
	}

	response.Success(w, http.StatusOK, "Product updated successfully", product)
}

// DeleteProduct handles DELETE /api/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		response.NotFound(w)
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.writeError(w, r, err, "Failed to delete product")
		return
	}

	response.Success(w, http.StatusOK, "Product deleted successfully", nil)
}

// RestoreProduct handles POST /api/products/restore
func (h *ProductHandler) RestoreProduct(w http.ResponseWriter, r *http.Request) {
	var req dto.RestoreRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.RestoreProduct(r.Context(), &req); err != nil {
		h.writeError(w, r, err, "Failed to restore product")
		return
	}

	response.Success(w, http.StatusOK, "Product restored successfully", nil)
}

// BulkDelete handles DELETE /api/products/bulk-delete
func (h *ProductHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req dto.BulkRequest
	if !h.decode(w, r, &req) {
		return
	}

	count, err := h.service.BulkDeleteProducts(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err, "Failed to delete products")
		return
	}

	response.Success(w, http.StatusOK,
		fmt.Sprintf("%d products deleted successfully", count),
		dto.BulkResult{Count: count},
	)
}

// BulkRestore handles POST /api/products/bulk-restore
func (h *ProductHandler) BulkRestore(w http.ResponseWriter, r *http.Request) {
	var req dto.BulkRequest
	if !h.decode(w, r, &req) {
		return
	}

	count, err := h.service.BulkRestoreProducts(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err, "Failed to restore products")
		return
	}

	response.Success(w, http.StatusOK,
		fmt.Sprintf("%d products restored successfully", count),
		dto.BulkResult{Count: count},
	)
}

// ExportProducts handles GET /api/products/export?format=json|xml
func (h *ProductHandler) ExportProducts(w http.ResponseWriter, r *http.Request) {
	file, err := h.service.ExportProducts(r.Context(), r.URL.Query().Get("format"))
	if err != nil {
		h.writeError(w, r, err, "Failed to export products")
		return
	}

	filename := fmt.Sprintf("products_%s.%s", h.now().Format(exportTimeLayout), file.Format)
	response.Download(w, file.ContentType, filename, file.Data)
}
