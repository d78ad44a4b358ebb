package export

import (
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/mrops-br/products-inventory-api/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProducts() []*domain.Product {
	created := time.Date(2025, 6, 17, 17, 59, 24, 0, time.UTC)
	products := []*domain.Product{
		domain.NewProduct(domain.ProductAttributes{Name: "Widget", Quantity: 10, Price: decimal.RequireFromString("25.99")}),
		domain.NewProduct(domain.ProductAttributes{Name: "Nuts & <Bolts>", Quantity: 3, Price: decimal.RequireFromString("1.5")}),
		domain.NewProduct(domain.ProductAttributes{Name: "Gear", Quantity: 0, Price: decimal.Zero}),
	}
	for i, p := range products {
		p.RecalculateTotal()
		p.ID = int64(i + 1)
		p.CreatedAt = created
		p.UpdatedAt = created
	}
	return products
}

func TestJSON(t *testing.T) {
	data, err := JSON(sampleProducts())
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 3)

	assert.Equal(t, "Widget", decoded[0]["name"])
	assert.Equal(t, "25.99", decoded[0]["price"])
	assert.Equal(t, "259.90", decoded[0]["total_value"])
	assert.Equal(t, "2025-06-17T17:59:24.000000Z", decoded[0]["created_at"])
	assert.Nil(t, decoded[0]["deleted_at"])
	assert.True(t, strings.HasPrefix(string(data), "[\n    {"))
}

func TestJSON_Empty(t *testing.T) {
	data, err := JSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestXML(t *testing.T) {
	data, err := XML(sampleProducts())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(data), xml.Header))
	assert.Contains(t, string(data), "<name>Nuts &amp; &lt;Bolts&gt;</name>")

	var doc struct {
		XMLName  xml.Name `xml:"products"`
		Products []struct {
			ID         int64  `xml:"id"`
			Name       string `xml:"name"`
			TotalValue string `xml:"total_value"`
			CreatedAt  string `xml:"created_at"`
		} `xml:"product"`
	}
	require.NoError(t, xml.Unmarshal(data, &doc))
	require.Len(t, doc.Products, 3)

	assert.Equal(t, int64(2), doc.Products[1].ID)
	assert.Equal(t, "Nuts & <Bolts>", doc.Products[1].Name)
	assert.Equal(t, "4.50", doc.Products[1].TotalValue)
	assert.Equal(t, "2025-06-17T17:59:24.000000Z", doc.Products[0].CreatedAt)
}

func TestXML_Empty(t *testing.T) {
	data, err := XML(nil)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<products></products>")
}
