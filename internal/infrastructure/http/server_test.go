package http

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/mrops-br/products-inventory-api/internal/app/service"
	"github.com/mrops-br/products-inventory-api/internal/infrastructure/config"
	"github.com/mrops-br/products-inventory-api/internal/infrastructure/http/handler"
	"github.com/mrops-br/products-inventory-api/internal/infrastructure/repository/gormrepo"
	"github.com/mrops-br/products-inventory-api/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiResponse struct {
	Success  bool                `json:"success"`
	Message  string              `json:"message"`
	Data     json.RawMessage     `json:"data"`
	Errors   map[string][]string `json:"errors"`
	TotalSum string              `json:"total_sum"`
}

type productJSON struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Quantity   int64  `json:"quantity"`
	Price      string `json:"price"`
	TotalValue string `json:"total_value"`
	IsDeleted  bool   `json:"is_deleted"`
}

type collectionJSON struct {
	Data []productJSON `json:"data"`
	Meta struct {
		TotalCount int     `json:"total_count"`
		TotalSum   *string `json:"total_sum"`
	} `json:"meta"`
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func newTestServer(t *testing.T, pinger Pinger) (*Server, *gormrepo.Database) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	otlpCfg := &config.OTLPConfig{ServiceName: "products-api", Environment: "test"}
	telem, err := telemetry.NewNoOpTelemetry(otlpCfg, &config.LogConfig{Level: "error", Format: "json"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = telem.Shutdown(context.Background()) })

	db, err := gormrepo.Open(&config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "api.db"),
		LogLevel: "silent",
	}, logger, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	tracer := telem.TracerProvider.Tracer("test")
	repo := gormrepo.NewProductRepository(db.DB, tracer, logger)
	svc := service.NewProductService(repo, tracer, telem.MeterProvider.Meter("test"), logger)

	if pinger == nil {
		pinger = db
	}
	cfg := &config.ServerConfig{Host: "127.0.0.1", Port: "0", DurationMetricMS: true}
	return NewServer(cfg, handler.NewProductHandler(svc, logger), logger, telem, pinger), db
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp apiResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func decodeData[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestServer_ProductLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	rec, resp := do(t, h, http.MethodPost, "/api/products", `{"name":"Widget","quantity":10,"price":25.99}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, resp.Success)
	assert.Equal(t, "Product created successfully", resp.Message)
	widget := decodeData[productJSON](t, resp.Data)
	assert.Equal(t, "25.99", widget.Price)
	assert.Equal(t, "259.90", widget.TotalValue)

	rec, resp = do(t, h, http.MethodPut, "/api/products/"+itoa(widget.ID), `{"name":"Updated Widget","quantity":15,"price":"20.00"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Product updated successfully", resp.Message)
	updated := decodeData[productJSON](t, resp.Data)
	assert.Equal(t, "300.00", updated.TotalValue)

	rec, _ = do(t, h, http.MethodPost, "/api/products", `{"name":"Bolt","quantity":1000,"price":"1.2345"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, resp = do(t, h, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeData[collectionJSON](t, resp.Data)
	require.Len(t, list.Data, 2)
	assert.Equal(t, "Bolt", list.Data[0].Name)
	assert.Equal(t, "1.23", list.Data[0].Price)
	assert.Equal(t, "1230.00", list.Data[0].TotalValue)
	assert.Equal(t, 2, list.Meta.TotalCount)
	require.NotNil(t, list.Meta.TotalSum)
	assert.Equal(t, "1530.00", *list.Meta.TotalSum)
	assert.Equal(t, "1,530.00", resp.TotalSum)

	rec, resp = do(t, h, http.MethodDelete, "/api/products/"+itoa(widget.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Product deleted successfully", resp.Message)

	rec, resp = do(t, h, http.MethodGet, "/api/products/trash", "")
	require.Equal(t, http.StatusOK, rec.Code)
	trash := decodeData[collectionJSON](t, resp.Data)
	require.Len(t, trash.Data, 1)
	assert.True(t, trash.Data[0].IsDeleted)
	assert.Nil(t, trash.Meta.TotalSum)

	rec, resp = do(t, h, http.MethodPost, "/api/products/restore", `{"id":`+itoa(widget.ID)+`}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Product restored successfully", resp.Message)

	rec, _ = do(t, h, http.MethodPost, "/api/products/restore", `{"id":`+itoa(widget.ID)+`}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ValidationErrors(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	rec, _ := do(t, h, http.MethodPost, "/api/products", `{"name":"Widget","quantity":1,"price":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name string
		body string
		want map[string][]string
	}{
		{
			name: "empty body",
			body: "",
			want: map[string][]string{
				"name":     {"The name field is required."},
				"quantity": {"The quantity field is required."},
				"price":    {"The price field is required."},
			},
		},
		{
			name: "duplicate name",
			body: `{"name":" Widget ","quantity":1,"price":1}`,
			want: map[string][]string{"name": {"The name has already been taken."}},
		},
		{
			name: "negative values",
			body: `{"name":"Gadget","quantity":-1,"price":"-1"}`,
			want: map[string][]string{
				"quantity": {"The quantity field must be at least 0."},
				"price":    {"The price field must be at least 0."},
			},
		},
		{
			name: "non-numeric price",
			body: `{"name":"","quantity":1,"price":"abc"}`,
			want: map[string][]string{
				"name":  {"The name field is required."},
				"price": {"The price field must be a number."},
			},
		},
		{
			name: "boolean price",
			body: `{"name":"Gadget","quantity":1,"price":true}`,
			want: map[string][]string{"price": {"The price field must be a number."}},
		},
		{
			name: "type error alongside missing fields",
			body: `{"name":"","quantity":"abc"}`,
			want: map[string][]string{
				"name":     {"The name field is required."},
				"quantity": {"The quantity field must be an integer."},
				"price":    {"The price field is required."},
			},
		},
		{
			name: "type error alongside taken name",
			body: `{"name":"Widget","quantity":2,"price":"1.5x"}`,
			want: map[string][]string{
				"name":  {"The name has already been taken."},
				"price": {"The price field must be a number."},
			},
		},
		{
			name: "fractional quantity",
			body: `{"name":"Gadget","quantity":1.5,"price":1}`,
			want: map[string][]string{"quantity": {"The quantity field must be an integer."}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := do(t, h, http.MethodPost, "/api/products", tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
			assert.False(t, resp.Success)
			assert.Equal(t, "Validation failed", resp.Message)
			assert.Equal(t, tt.want, resp.Errors)
		})
	}

	rec, resp := do(t, h, http.MethodPost, "/api/products", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Malformed request body", resp.Message)
}

func TestServer_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	for _, path := range []string{"/api/products/999", "/api/products/abc", "/api/products/0"} {
		rec, resp := do(t, h, http.MethodDelete, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "Product not found", resp.Message)
	}

	rec, _ := do(t, h, http.MethodPut, "/api/products/999", `{"name":"X","quantity":1,"price":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_BulkOperations(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	var ids []string
	for _, name := range []string{"A", "B", "C"} {
		rec, resp := do(t, h, http.MethodPost, "/api/products", `{"name":"`+name+`","quantity":1,"price":1}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		ids = append(ids, itoa(decodeData[productJSON](t, resp.Data).ID))
	}

	rec, resp := do(t, h, http.MethodDelete, "/api/products/bulk-delete", `{"ids":[`+ids[0]+`,`+ids[1]+`,999]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2 products deleted successfully", resp.Message)
	assert.JSONEq(t, `{"count":2}`, string(resp.Data))

	rec, resp = do(t, h, http.MethodPost, "/api/products/bulk-restore", `{"ids":[`+ids[0]+`,`+ids[2]+`]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1 products restored successfully", resp.Message)

	rec, resp = do(t, h, http.MethodDelete, "/api/products/bulk-delete", `{"ids":[]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []string{"The ids field must have at least 1 items."}, resp.Errors["ids"])

	rec, resp = do(t, h, http.MethodPost, "/api/products/bulk-restore", `{"ids":"1"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, map[string][]string{"ids": {"The ids field must be an array."}}, resp.Errors)
}

func TestServer_BulkDeleteLargeIDList(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	rec, resp := do(t, h, http.MethodPost, "/api/products", `{"name":"A","quantity":1,"price":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeData[productJSON](t, resp.Data).ID

	ids := make([]string, 0, 40_000)
	ids = append(ids, itoa(id))
	for n := int64(100_000); len(ids) < cap(ids); n++ {
		ids = append(ids, itoa(n))
	}
	body := `{"ids":[` + strings.Join(ids, ",") + `]}`

	rec, resp = do(t, h, http.MethodDelete, "/api/products/bulk-delete", body)
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)
	assert.Equal(t, "1 products deleted successfully", resp.Message)

	rec, resp = do(t, h, http.MethodPost, "/api/products/bulk-restore", body)
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)
	assert.Equal(t, "1 products restored successfully", resp.Message)
}

func TestServer_Export(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	rec, _ := do(t, h, http.MethodPost, "/api/products", `{"name":"Nuts & Bolts","quantity":4,"price":"2.50"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/products/export?format=json", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename="products_\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}\.json"$`, rec.Header().Get("Content-Disposition"))
	var records []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "10.00", records[0]["total_value"])

	req = httptest.NewRequest(http.MethodGet, "/api/products/export?format=XML", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xml\"")
	assert.Contains(t, rec.Body.String(), "<name>Nuts &amp; Bolts</name>")
	assert.NoError(t, xml.Unmarshal(rec.Body.Bytes(), new(struct{})))

	req = httptest.NewRequest(http.MethodGet, "/api/products/export?format=csv", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to export products")
}

func TestServer_PageHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	rec, _ := do(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Product Manager")

	rec, _ = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	do(t, h, http.MethodPost, "/api/products", `{"name":"Widget","quantity":1,"price":1}`)
	do(t, h, http.MethodDelete, "/api/products/1", "")
	do(t, h, http.MethodDelete, "/api/products/987654", "")
	do(t, h, http.MethodGet, "/no/such/page/42", "")

	rec, _ = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "products_created")
	assert.Contains(t, body, "go_goroutines")
	assert.Contains(t, body, `http_route="/api/products/{id}"`)
	assert.NotContains(t, body, `http_route="/api/products/1"`)
	assert.NotContains(t, body, `http_route="/api/products/987654"`)
	assert.NotContains(t, body, "/no/such/page/42")
}

func TestServer_HealthReportsStoreFailure(t *testing.T) {
	srv, _ := newTestServer(t, failingPinger{})

	rec, _ := do(t, srv.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
