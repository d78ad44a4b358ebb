// Package export renders product lists as downloadable JSON and XML documents.
package export

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/mrops-br/products-inventory-api/internal/domain"
)

// TimeLayout is the ISO-8601 form used for exported timestamps
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Record is the exported shape of a product
type Record struct {
	XMLName    xml.Name `json:"-" xml:"product"`
	ID         int64    `json:"id" xml:"id"`
	Name       string   `json:"name" xml:"name"`
	Quantity   int64    `json:"quantity" xml:"quantity"`
	Price      string   `json:"price" xml:"price"`
	TotalValue string   `json:"total_value" xml:"total_value"`
	CreatedAt  string   `json:"created_at" xml:"created_at"`
	UpdatedAt  string   `json:"updated_at" xml:"updated_at"`
	DeletedAt  *string  `json:"deleted_at" xml:"-"`
}

type document struct {
	XMLName  xml.Name `xml:"products"`
	Products []Record `xml:"product"`
}

// NewRecord converts a domain product to its exported form
func NewRecord(p *domain.Product) Record {
	r := Record{
		ID:         p.ID,
		Name:       p.Name,
		Quantity:   p.Quantity,
		Price:      p.Price.StringFixed(2),
		TotalValue: p.TotalValue.StringFixed(2),
		CreatedAt:  formatTime(p.CreatedAt),
		UpdatedAt:  formatTime(p.UpdatedAt),
	}
	if p.DeletedAt != nil {
		deleted := formatTime(*p.DeletedAt)
		r.DeletedAt = &deleted
	}
	return r
}

// JSON renders products as a pretty-printed array without any wrapper
func JSON(products []*domain.Product) ([]byte, error) {
	data, err := json.MarshalIndent(records(products), "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode products as json: %w", err)
	}
	return data, nil
}

// XML renders products as a <products> document with one <product> per row
func XML(products []*domain.Product) ([]byte, error) {
	data, err := xml.MarshalIndent(document{Products: records(products)}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode products as xml: %w", err)
	}
	out := make([]byte, 0, len(xml.Header)+len(data)+1)
	out = append(out, xml.Header...)
	out = append(out, data...)
	return append(out, '\n'), nil
}

func records(products []*domain.Product) []Record {
	out := make([]Record, len(products))
	for i, p := range products {
		out[i] = NewRecord(p)
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
