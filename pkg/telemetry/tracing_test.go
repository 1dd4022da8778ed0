package telemetry

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(Config{SamplerType: "never"}).Description(), "AlwaysOff")
	assert.Contains(t, sampler(Config{}).Description(), "AlwaysOn")
	assert.Contains(t, sampler(Config{SamplerType: "ratio", SamplerRatio: 0.5}).Description(), "TraceIDRatioBased")
}

func TestWithSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	defer otel.SetTracerProvider(original)

	err := WithSpan(context.Background(), "directive.image", func(ctx context.Context) error {
		AddEvent(ctx, "image.read", attribute.String("uri", "a.jpg"))
		return nil
	}, attribute.String("directive.name", "image"))
	require.NoError(t, err)

	failure := errors.New("unreadable image")
	err = WithSpan(context.Background(), "directive.image-grid", func(context.Context) error {
		return failure
	})
	assert.Equal(t, failure, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "directive.image", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "image.read", spans[0].Events()[0].Name)

	assert.Equal(t, "directive.image-grid", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "unreadable image", spans[1].Status().Description)
}
