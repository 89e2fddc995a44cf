// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{ExporterType: "grpc"})
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	require.NoError(t, p.Shutdown(context.Background()))

	_, span := otel.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.IsRecording())
	span.End()
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ExporterType: "zipkin"})
	require.ErrorContains(t, err, "unsupported exporter type")
}

func TestNewProvider_ExportsSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	p, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "streamres-test",
		SamplingRate: 1,
		exporter:     exp,
	})
	require.NoError(t, err)
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	_, span := Tracer("test").Start(context.Background(), "resolve")
	span.SetAttributes(ResolveAttributes("abc", "high")...)
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "resolve", spans[0].Name)
	assert.Contains(t, spans[0].Attributes, attribute.String(ContentIDKey, "abc"))
	assert.Contains(t, spans[0].Attributes, attribute.String(QualityTierKey, "high"))
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(1).Description(), "AlwaysOn")
	assert.Contains(t, sampler(0).Description(), "AlwaysOff")
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}

func TestFormatAttributes(t *testing.T) {
	got := FormatAttributes(251, nil, "")
	assert.Equal(t, []attribute.KeyValue{attribute.Int(FormatItagKey, 251)}, got)

	br := int64(160000)
	got = FormatAttributes(251, &br, "audio/webm")
	assert.Len(t, got, 3)
	assert.Contains(t, got, attribute.Int64(FormatBitrateKey, 160000))
}
