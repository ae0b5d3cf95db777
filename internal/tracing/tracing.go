package tracing

import (
	"context"
	"fmt"
	"io"

	"github.com/opentracing/opentracing-go"
	"github.com/uber/jaeger-client-go"
	"github.com/uber/jaeger-client-go/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// InitTracer initializes the Jaeger tracer and installs it globally.
// An empty endpoint leaves the no-op global tracer in place.
func InitTracer(serviceName, jaegerEndpoint string) (io.Closer, error) {
	if jaegerEndpoint == "" {
		return nopCloser{}, nil
	}

	cfg := &config.Configuration{
		ServiceName: serviceName,
		Sampler: &config.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1,
		},
		Reporter: &config.ReporterConfig{
			LogSpans:            false,
			CollectorEndpoint:   jaegerEndpoint,
			BufferFlushInterval: 1,
		},
	}

	tracer, closer, err := cfg.NewTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	opentracing.SetGlobalTracer(tracer)
	return closer, nil
}

// StartSpan starts a new span with the given operation name
func StartSpan(ctx context.Context, operationName string) (opentracing.Span, context.Context) {
	return opentracing.StartSpanFromContext(ctx, operationName)
}

// StartConversionSpan starts a span tagged with the conversion kind and input size
func StartConversionSpan(ctx context.Context, kind string, inputBytes int) (opentracing.Span, context.Context) {
	span, ctx := StartSpan(ctx, "convert."+kind)
	span.SetTag("media.kind", kind)
	span.SetTag("media.input_bytes", inputBytes)
	return span, ctx
}

// Finish finishes a span, marking it as failed when err is non-nil
func Finish(span opentracing.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.SetTag("error", true)
		span.LogKV("error", err.Error())
	}
	span.Finish()
}
