// Package tracer defines the tracing seam for webhook delivery.
//
// The service depends on this small interface rather than on OpenTelemetry
// directly, so tests can run without a tracer provider configured.
package tracer

import "context"

// Attribute is a key/value pair attached to spans.
type Attribute struct {
	Key   string
	Value string
}

// Span is one traced operation.
type Span interface {
	// End completes the span, recording any error.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer starts spans.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Noop is a Tracer that records nothing.
type Noop struct{}

func (Noop) Start(ctx context.Context, _ string, _ ...Attribute) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error)                     {}
func (noopSpan) SetAttributes(...Attribute)    {}
func (noopSpan) AddEvent(string, ...Attribute) {}
