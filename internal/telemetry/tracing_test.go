package telemetry

import (
	"context"
	"testing"

	"rocket-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(context.Background(), config.TracingConfig{})
	require.NoError(t, err)
	assert.False(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_NoExporter(t *testing.T) {
	p, err := NewProvider(context.Background(), config.TracingConfig{Enabled: true, Exporter: "none"})
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	assert.True(t, p.Enabled())
	_, span := p.Tracer().Start(context.Background(), "work")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
}

func TestNewProvider_UnknownExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), config.TracingConfig{Enabled: true, Exporter: "zipkin"})
	assert.Error(t, err)
}
