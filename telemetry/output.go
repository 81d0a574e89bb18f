package telemetry

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// NewPrintingProvider returns a tracer provider that prints every ended span
// as one line on w.
func NewPrintingProvider(w io.Writer) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(&spanPrinter{out: w}))
}

type spanPrinter struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *spanPrinter) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *spanPrinter) OnEnd(span sdktrace.ReadOnlySpan) {
	if p == nil || p.out == nil {
		return
	}

	kind := "step"
	if !span.Parent().IsValid() {
		kind = "workflow"
	}
	line := fmt.Sprintf("[trace] %s %s %s %s",
		span.SpanContext().TraceID().String()[:8],
		kind,
		span.Name(),
		span.EndTime().Sub(span.StartTime()).Round(time.Millisecond),
	)
	if status := span.Status(); status.Code == codes.Error {
		line += " error=" + strings.TrimSpace(status.Description)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, line)
}

func (p *spanPrinter) Shutdown(context.Context) error {
	return nil
}

func (p *spanPrinter) ForceFlush(context.Context) error {
	return nil
}
