package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Options controls handler selection and verbosity.
type Options struct {
	Env   string
	Level string
	// Output defaults to os.Stdout.
	Output io.Writer
}

// New creates a slog.Logger that injects trace_id/span_id from the OTel span in ctx.
// Kubernetes and prod/dev environments get JSON, everything else colored text.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	_, inK8s := os.LookupEnv("KUBERNETES_SERVICE_HOST")
	useJSON := inK8s || opts.Env == "prod" || opts.Env == "dev"

	var handler slog.Handler
	if useJSON {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level:     parseLevel(opts.Level, slog.LevelInfo),
			AddSource: true,
		})
	} else {
		handler = newColorTextHandler(out, &slog.HandlerOptions{
			Level: parseLevel(opts.Level, slog.LevelDebug),
		})
	}
	return slog.New(newTraceContextHandler(handler))
}

// NewWithServiceContext tags every record with service metadata.
func NewWithServiceContext(serviceName, version string, opts Options) *slog.Logger {
	return New(opts).With(
		slog.String("service", serviceName),
		slog.String("version", version),
		slog.String("environment", opts.Env),
	)
}

func parseLevel(level string, def slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return def
	}
}

// colorTextHandler paints ERROR messages red.
type colorTextHandler struct {
	handler slog.Handler
}

func newColorTextHandler(w io.Writer, opts *slog.HandlerOptions) *colorTextHandler {
	return &colorTextHandler{handler: slog.NewTextHandler(w, opts)}
}

func (h *colorTextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *colorTextHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < slog.LevelError {
		return h.handler.Handle(ctx, r)
	}

	colored := slog.NewRecord(r.Time, r.Level, fmt.Sprintf("\x1b[31m%s\x1b[0m", r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		colored.AddAttrs(a)
		return true
	})
	return h.handler.Handle(ctx, colored)
}

func (h *colorTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &colorTextHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *colorTextHandler) WithGroup(name string) slog.Handler {
	return &colorTextHandler{handler: h.handler.WithGroup(name)}
}

type traceContextHandler struct {
	handler slog.Handler
}

func newTraceContextHandler(h slog.Handler) *traceContextHandler {
	return &traceContextHandler{handler: h}
}

func (h *traceContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *traceContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}
	return h.handler.Handle(ctx, r)
}

func (h *traceContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceContextHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *traceContextHandler) WithGroup(name string) slog.Handler {
	return &traceContextHandler{handler: h.handler.WithGroup(name)}
}
