package logger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type (
	requestIDKey struct{}
	attrsKey     struct{}
)

const _httpStatusClassDiv = 100

func (l *ZapLogger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func (l *ZapLogger) GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return requestID
	}
	return ""
}

// ContextWith returns a ctx whose loggers carry attrs on every entry, after
// any attrs already attached by a parent.
func ContextWith(ctx context.Context, attrs ...Attr) context.Context {
	if len(attrs) == 0 {
		return ctx
	}
	prev := contextAttrs(ctx)
	merged := make([]Attr, 0, len(prev)+len(attrs))
	merged = append(merged, prev...)
	merged = append(merged, attrs...)

	return context.WithValue(ctx, attrsKey{}, merged)
}

func contextAttrs(ctx context.Context) []Attr {
	attrs, _ := ctx.Value(attrsKey{}).([]Attr)
	return attrs
}

// hasContextFields reports whether NewContextLogger would add anything.
func (l *ZapLogger) hasContextFields(ctx context.Context) bool {
	return l.GetRequestID(ctx) != "" || len(contextAttrs(ctx)) > 0
}

// NewContextLogger attaches the request id and attrs carried by ctx.
func (l *ZapLogger) NewContextLogger(ctx context.Context) *zap.Logger {
	fields := toZapFieldsFromAttrs(contextAttrs(ctx))
	if requestID := l.GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if len(fields) == 0 {
		return l.logger
	}

	return l.logger.With(fields...)
}

func (l *ZapLogger) LogRequest(
	ctx context.Context,
	method, path string,
	status int,
	duration time.Duration,
) {
	l.NewContextLogger(ctx).Info("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Duration("duration", duration),
		zap.Int("status_class", status/_httpStatusClassDiv),
	)
}

func (l *ZapLogger) GenerateRequestID() string {
	return uuid.New().String()
}
