package httpx

import (
	"context"
	"time"
)

type ctxKey string

const ctxKeyAccess ctxKey = "access"

// Access describes the bearer token that authorised the current request.
type Access struct {
	ClientID  string
	Resource  string
	ExpiresAt time.Time
}

// WithAccess stores a onto ctx for downstream handlers.
func WithAccess(ctx context.Context, a Access) context.Context {
	return context.WithValue(ctx, ctxKeyAccess, a)
}

// AccessFromContext returns the Access set by BearerAuth.
func AccessFromContext(ctx context.Context) (Access, bool) {
	a, ok := ctx.Value(ctxKeyAccess).(Access)
	return a, ok
}
