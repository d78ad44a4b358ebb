package dto

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/mrops-br/products-inventory-api/internal/domain"
	"github.com/shopspring/decimal"
)

// DecodeErrors records request fields whose JSON value had the wrong type.
// Validation reports them next to the rule failures of the other fields.
type DecodeErrors struct {
	typeErrors map[string]string
}

// AddTypeError records the message for a field that could not be decoded
func (d *DecodeErrors) AddTypeError(field, message string) {
	if d.typeErrors == nil {
		d.typeErrors = make(map[string]string)
	}
	d.typeErrors[field] = message
}

// TypeErrors returns the recorded messages keyed by field
func (d *DecodeErrors) TypeErrors() map[string]string {
	return d.typeErrors
}

// ProductRequest is the body of create and update calls.
// Pointers tell a missing field apart from an explicit zero.
type ProductRequest struct {
	DecodeErrors

	Name     string  `json:"name" validate:"required,max=255"`
	Quantity *int64  `json:"quantity" validate:"required,gte=0"`
	Price    *Amount `json:"price" validate:"required,gte=0"`
}

// Amount is a decimal request value accepting JSON numbers and numeric
// strings. Anything else fails as a type error on its field.
type Amount struct {
	decimal.Decimal
}

// UnmarshalJSON implements json.Unmarshaler
func (a *Amount) UnmarshalJSON(data []byte) error {
	if err := a.Decimal.UnmarshalJSON(data); err != nil {
		return &json.UnmarshalTypeError{
			Value: jsonKind(data),
			Type:  reflect.TypeOf(decimal.Decimal{}),
		}
	}
	return nil
}

func jsonKind(data []byte) string {
	if len(data) == 0 {
		return "value"
	}
	switch data[0] {
	case '"':
		return "string"
	case 't', 'f':
		return "bool"
	case '[':
		return "array"
	case '{':
		return "object"
	default:
		return "number"
	}
}

// Normalize trims surrounding whitespace from the name
func (r *ProductRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

// Attributes converts a validated request into domain input
func (r *ProductRequest) Attributes() domain.ProductAttributes {
	attrs := domain.ProductAttributes{Name: r.Name}
	if r.Quantity != nil {
		attrs.Quantity = *r.Quantity
	}
	if r.Price != nil {
		attrs.Price = r.Price.Decimal
	}
	return attrs
}

// RestoreRequest identifies a trashed product
type RestoreRequest struct {
	DecodeErrors

	ID int64 `json:"id" validate:"required,gt=0"`
}

// BulkRequest carries the ids of a bulk delete or restore
type BulkRequest struct {
	DecodeErrors

	IDs []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}

// ProductResponse represents the product response
type ProductResponse struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Quantity   int64     `json:"quantity"`
	Price      string    `json:"price"`
	TotalValue string    `json:"total_value"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	IsDeleted  bool      `json:"is_deleted"`
}

// CollectionMeta summarises a product list
type CollectionMeta struct {
	TotalCount int     `json:"total_count"`
	TotalSum   *string `json:"total_sum,omitempty"`
}

// ProductCollection wraps a product list with its meta block
type ProductCollection struct {
	Data []*ProductResponse `json:"data"`
	Meta CollectionMeta     `json:"meta"`
}

// ActiveProducts is the active listing together with its value sum
type ActiveProducts struct {
	Collection *ProductCollection
	TotalSum   decimal.Decimal
}

// ExportFile is a rendered export ready to be sent as a download
type ExportFile struct {
	Format      string
	ContentType string
	Data        []byte
}

// BulkResult reports how many rows a bulk call changed
type BulkResult struct {
	Count int64 `json:"count"`
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *domain.Product) *ProductResponse {
	return &ProductResponse{
		ID:         p.ID,
		Name:       p.Name,
		Quantity:   p.Quantity,
		Price:      p.Price.StringFixed(2),
		TotalValue: p.TotalValue.StringFixed(2),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
		IsDeleted:  p.IsDeleted(),
	}
}

// ToProductResponseList converts a list of domain Products to ProductResponse list
func ToProductResponseList(products []*domain.Product) []*ProductResponse {
	responses := make([]*ProductResponse, len(products))
	for i, p := range products {
		responses[i] = ToProductResponse(p)
	}
	return responses
}

// ToProductCollection builds the list envelope. A nil totalSum leaves
// meta.total_sum out, as for the trash listing.
func ToProductCollection(products []*domain.Product, totalSum *decimal.Decimal) *ProductCollection {
	c := &ProductCollection{
		Data: ToProductResponseList(products),
		Meta: CollectionMeta{TotalCount: len(products)},
	}
	if totalSum != nil {
		s := totalSum.StringFixed(2)
		c.Meta.TotalSum = &s
	}
	return c
}
