// Package net carries request scoped values shared by transports
package net

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const keyOperator ctxKey = "operator"

// WithRequest stores reqID where chi's GetReqID can find it
func WithRequest(ctx context.Context, reqID string) context.Context {
	if reqID == "" {
		return ctx
	}
	return context.WithValue(ctx, chimw.RequestIDKey, reqID)
}

// WithOperator annotates ctx with the authenticated operator (reviewer) name
func WithOperator(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, keyOperator, name)
}

// RequestID returns the request id on the context if present
func RequestID(ctx context.Context) string { return chimw.GetReqID(ctx) }

// Operator returns the operator name on the context if present
func Operator(ctx context.Context) string {
	v, _ := ctx.Value(keyOperator).(string)
	return v
}
