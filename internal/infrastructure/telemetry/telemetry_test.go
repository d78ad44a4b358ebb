package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mrops-br/products-inventory-api/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	testOTLP = &config.OTLPConfig{ServiceName: "products-api", Environment: "test"}
	testLog  = &config.LogConfig{Level: "debug", Format: "json"}
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var line map[string]any
		require.NoError(t, dec.Decode(&line))
		out = append(out, line)
	}
	return out
}

func TestNewLogger_InjectsTraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, testOTLP, testLog)

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	ctx = WithHTTPRoute(ctx, "/api/products/{id}")

	logger.InfoContext(ctx, "hello")
	span.End()

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "hello", lines[0]["msg"])
	assert.Equal(t, "products-api", lines[0]["service.name"])
	assert.Equal(t, span.SpanContext().TraceID().String(), lines[0]["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), lines[0]["span_id"])
	assert.Equal(t, "/api/products/{id}", lines[0]["http.route"])
}

func TestHTTPRouteFromContext_Resolver(t *testing.T) {
	route := "/api/products/*"
	ctx := WithHTTPRouteFunc(context.Background(), func() string { return route })

	route = "/api/products/{id}"
	assert.Equal(t, "/api/products/{id}", HTTPRouteFromContext(ctx))
	assert.Empty(t, HTTPRouteFromContext(context.Background()))
}

func TestNewLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, testOTLP, &config.LogConfig{Level: "warn", Format: "json"})

	logger.Info("skipped")
	logger.Warn("kept")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["msg"])
}

func TestNewLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, testOTLP, &config.LogConfig{Level: "info", Format: "text"})

	logger.Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestGormLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&buf, testOTLP, testLog)
	stmt := func() (string, int64) { return "SELECT 1", 1 }

	t.Run("error", func(t *testing.T) {
		buf.Reset()
		l := NewGormLogger(base, gormlogger.Warn, time.Second)
		l.Trace(context.Background(), time.Now(), stmt, errors.New("boom"))

		lines := decodeLines(t, &buf)
		require.Len(t, lines, 1)
		assert.Equal(t, "SQL error", lines[0]["msg"])
		assert.Equal(t, "boom", lines[0]["error"])
		assert.Equal(t, "gorm", lines[0]["component"])
	})

	t.Run("record not found is ignored", func(t *testing.T) {
		buf.Reset()
		l := NewGormLogger(base, gormlogger.Warn, time.Second)
		l.Trace(context.Background(), time.Now(), stmt, gormlogger.ErrRecordNotFound)
		assert.Empty(t, buf.String())
	})

	t.Run("slow query", func(t *testing.T) {
		buf.Reset()
		l := NewGormLogger(base, gormlogger.Warn, time.Millisecond)
		l.Trace(context.Background(), time.Now().Add(-time.Second), stmt, nil)

		lines := decodeLines(t, &buf)
		require.Len(t, lines, 1)
		assert.Equal(t, "Slow SQL query", lines[0]["msg"])
	})

	t.Run("silent", func(t *testing.T) {
		buf.Reset()
		l := NewGormLogger(base, gormlogger.Warn, time.Second).LogMode(gormlogger.Silent)
		l.Trace(context.Background(), time.Now(), stmt, errors.New("boom"))
		assert.Empty(t, buf.String())
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel(""))
}

func TestNewNoOpTelemetry(t *testing.T) {
	telem, err := NewNoOpTelemetry(testOTLP, testLog)
	require.NoError(t, err)

	counter, err := telem.MeterProvider.Meter("test").Int64Counter("products.test.total")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	families, err := telem.Registry.Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), "products_test") {
			found = true
		}
	}
	assert.True(t, found, "otel counter should be exposed through the prometheus registry")

	require.NoError(t, telem.Shutdown(context.Background()))
}

func TestRegisterDBTracing(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "trace.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	require.NoError(t, RegisterDBTracing(db, tp, "sqlite"))

	var one int
	require.NoError(t, db.WithContext(context.Background()).Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
	assert.NotEmpty(t, recorder.Ended())
}
