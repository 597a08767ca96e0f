// Package logging provides the slog handler shared by all binaries: JSON
// records annotated with service metadata, the per-request id, and (on GCP)
// trace correlation attributes.
package logging

import (
	"context"
	"io"
	"log/slog"
)

type Environment string

const (
	EnvDev  Environment = "dev"
	EnvProd Environment = "prod"
)

// Module labels which part of the service emitted a record.
type Module string

type ServiceInfo struct {
	Name     string
	Version  string
	Revision string
}

type requestIDKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

type handler struct {
	inner        slog.Handler
	gcpProjectID string
}

type HandlerConfig struct {
	Level        slog.Level
	Service      ServiceInfo
	Environment  Environment
	Module       Module
	GCPProjectID string
}

// NewHandler builds the service-wide slog handler writing JSON to w.
func NewHandler(w io.Writer, cfg HandlerConfig) slog.Handler {
	inner := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.Level,
	})

	attrs := []slog.Attr{
		slog.String("service", cfg.Service.Name),
		slog.String("env", string(cfg.Environment)),
	}
	if cfg.Service.Version != "" {
		attrs = append(attrs, slog.String("version", cfg.Service.Version))
	}
	if cfg.Service.Revision != "" {
		attrs = append(attrs, slog.String("revision", cfg.Service.Revision))
	}
	if cfg.Module != "" {
		attrs = append(attrs, slog.String("module", string(cfg.Module)))
	}

	return &handler{
		inner:        inner.WithAttrs(attrs),
		gcpProjectID: cfg.GCPProjectID,
	}
}

func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *handler) Handle(ctx context.Context, record slog.Record) error {
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		record.AddAttrs(slog.String("request_id", requestID))
	}
	if attrs := gcpTraceAttrs(ctx, h.gcpProjectID); len(attrs) > 0 {
		record.AddAttrs(attrs...)
	}
	return h.inner.Handle(ctx, record)
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &handler{
		inner:        h.inner.WithAttrs(attrs),
		gcpProjectID: h.gcpProjectID,
	}
}

func (h *handler) WithGroup(name string) slog.Handler {
	return &handler{
		inner:        h.inner.WithGroup(name),
		gcpProjectID: h.gcpProjectID,
	}
}
