package tracing

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/shine/internal/log"
)

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(DefaultConfig())
	require.NoError(t, err)
	require.False(t, p.Enabled())
	require.NotNil(t, p.Tracer())

	_, span := p.Tracer().Start(context.Background(), "x")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_NilSafe(t *testing.T) {
	var p *Provider
	require.False(t, p.Enabled())
	require.NotNil(t, p.Tracer())
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_Errors(t *testing.T) {
	_, err := NewProvider(Config{Enabled: true, Exporter: "kafka"})
	require.ErrorContains(t, err, "unsupported exporter type")

	_, err = NewProvider(Config{Enabled: true, Exporter: ExporterFile})
	require.ErrorContains(t, err, "file_path required")
}

func TestNewProvider_NoneExporter(t *testing.T) {
	p, err := NewProvider(Config{Enabled: true, Exporter: ExporterNone})
	require.NoError(t, err)
	require.True(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), SpanText)
	require.True(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))
}

func readRecords(t *testing.T, path string) []SpanRecord {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []SpanRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec SpanRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		out = append(out, rec)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestFileExporter_WritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "traces.jsonl")
	exp, err := NewFileExporter(path)
	require.NoError(t, err)

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	tracer := tp.Tracer("test")

	ctx, parent := tracer.Start(context.Background(), SpanNode)
	parent.SetAttributes(
		attribute.String(AttrRequestID, "req-1"),
		attribute.String(AttrLanguage, "go"),
		attribute.Int(AttrRunes, 12),
	)
	_, child := tracer.Start(ctx, SpanMerge)
	child.AddEvent(EventCacheHit, trace.WithAttributes(attribute.Bool(AttrCacheHit, true)))
	RecordError(child, errors.New("boom"))
	child.End()
	parent.End()

	require.NoError(t, tp.Shutdown(context.Background()))

	recs := readRecords(t, path)
	require.Len(t, recs, 2)

	c, p := recs[0], recs[1]
	require.Equal(t, SpanMerge, c.Name)
	require.Equal(t, "ERROR", c.Status)
	require.Equal(t, "boom", c.StatusMsg)
	require.Equal(t, p.SpanID, c.ParentSpanID)
	require.Equal(t, p.TraceID, c.TraceID)
	require.NotEmpty(t, c.Events)
	require.Equal(t, EventCacheHit, c.Events[0].Name)

	require.Equal(t, SpanNode, p.Name)
	require.Equal(t, "req-1", p.RequestID)
	require.Equal(t, "go", p.Language)
	require.EqualValues(t, 12, p.Attributes[AttrRunes])
	require.NotContains(t, p.Attributes, AttrRequestID)
}

func TestFileExporter_ShutdownTwice(t *testing.T) {
	exp, err := NewFileExporter(filepath.Join(t.TempDir(), "t.jsonl"))
	require.NoError(t, err)
	require.NoError(t, exp.Shutdown(context.Background()))
	require.NoError(t, exp.Shutdown(context.Background()))
}

func TestRecordError_Nil(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	_, span := tp.Tracer("test").Start(context.Background(), "x")
	RecordError(span, nil)
	span.End()
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	require.Empty(t, RequestIDFromContext(ctx))
	require.Equal(t, ctx, ContextWithRequestID(ctx, ""))

	ctx2, id := EnsureRequestID(ctx)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	require.Equal(t, id, RequestIDFromContext(ctx2))
	require.Equal(t, id, log.RequestID(ctx2))

	ctx3, again := EnsureRequestID(ctx2)
	require.Equal(t, id, again)
	require.Equal(t, ctx2, ctx3)
}
