package tracing

import (
	"context"
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zaptest"
)

var traceparentPattern = regexp.MustCompile(`^00-[0-9a-f]{32}-[0-9a-f]{16}-01$`)

func TestTraceparentWithoutSpan(t *testing.T) {
	assert.Empty(t, W3CTraceparent(context.Background()))

	req, err := http.NewRequest(http.MethodGet, "http://backend/chat", nil)
	require.NoError(t, err)
	InjectTraceparent(context.Background(), req)
	assert.Empty(t, req.Header.Get("traceparent"))
}

func TestTraceparentWithSpan(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "chat")
	defer span.End()

	got := W3CTraceparent(ctx)
	assert.Regexp(t, traceparentPattern, got)
	assert.Contains(t, got, span.SpanContext().TraceID().String())

	req, err := http.NewRequest(http.MethodPost, "http://backend/chat", nil)
	require.NoError(t, err)
	InjectTraceparent(ctx, req)
	assert.Equal(t, got, req.Header.Get("traceparent"))
}

func TestInitializeDisabled(t *testing.T) {
	shutdown, err := Initialize(context.Background(), Config{}, "test", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	ctx, span := StartHTTPSpan(context.Background(), "chat", http.MethodPost, "http://backend/chat")
	defer span.End()
	assert.NotNil(t, ctx)
}
