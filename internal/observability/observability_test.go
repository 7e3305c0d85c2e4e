package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitLogging_AddsContextValues(t *testing.T) {
	prev := Logger
	t.Cleanup(func() {
		Logger = prev
		slog.SetDefault(prev)
	})

	var buf bytes.Buffer
	logger := InitLogging(LoggingConfig{Level: "debug", Format: "json", Output: &buf})

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = WithUserID(ctx, "user-1")
	logger.DebugContext(ctx, "hello", slog.String("k", "v"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "req-1", record["request_id"])
	assert.Equal(t, "user-1", record["user_id"])
	assert.Equal(t, "v", record["k"])
	assert.NotContains(t, record, "trace_id")
}

func TestInitLogging_LevelFilter(t *testing.T) {
	prev := Logger
	t.Cleanup(func() {
		Logger = prev
		slog.SetDefault(prev)
	})

	var buf bytes.Buffer
	logger := InitLogging(LoggingConfig{Level: "warn", Format: "text", Output: &buf})
	logger.Info("dropped")
	assert.Zero(t, buf.Len())
	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestObserveUpload(t *testing.T) {
	failures := MediaUploadsTotal.WithLabelValues("test-kind", "error")
	successes := MediaUploadsTotal.WithLabelValues("test-kind", "success")
	failedBefore, okBefore := testutil.ToFloat64(failures), testutil.ToFloat64(successes)

	ObserveUpload("test-kind", time.Now(), errors.New("boom"))
	ObserveUpload("test-kind", time.Now(), nil)

	assert.Equal(t, failedBefore+1, testutil.ToFloat64(failures))
	assert.Equal(t, okBefore+1, testutil.ToFloat64(successes))
}

func TestSpans(t *testing.T) {
	prev := Tracer
	t.Cleanup(func() { Tracer = prev })

	recorder := tracetest.NewSpanRecorder()
	Tracer = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")

	_, ok := StartSpan(context.Background(), "ok")
	EndSpan(ok, nil)
	_, failed := StartSpan(context.Background(), "failed")
	EndSpan(failed, errors.New("upload failed"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "upload failed", spans[1].Status().Description)
}

func TestInitTracing_Disabled(t *testing.T) {
	prev := Tracer
	t.Cleanup(func() { Tracer = prev })

	shutdown, err := InitTracing(TracingConfig{ServiceName: "inkwell-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
