package llm

import (
	"context"
	"strings"
)

type contextKey string

const modelContextKey contextKey = "llm-model-override"

// WithModel returns a context carrying a preferred model override.
func WithModel(ctx context.Context, model string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	model = normalizeModel(model)
	if model == "" {
		return ctx
	}
	return context.WithValue(ctx, modelContextKey, model)
}

// modelFromContext extracts the requested model override, if any.
func modelFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(modelContextKey).(string); ok {
		return normalizeModel(value)
	}
	return ""
}

func normalizeModel(model string) string {
	clean := strings.TrimSpace(model)
	return strings.TrimPrefix(clean, "models/")
}

const operationContextKey contextKey = "llm-operation"

// WithOperation tags the context with the logical operation a call belongs to,
// such as "analyze" or "generate". Instrumentation reads it back.
func WithOperation(ctx context.Context, operation string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, operationContextKey, operation)
}

// OperationFromContext returns the operation tag, or "unknown".
func OperationFromContext(ctx context.Context) string {
	if ctx != nil {
		if value, ok := ctx.Value(operationContextKey).(string); ok && value != "" {
			return value
		}
	}
	return "unknown"
}
