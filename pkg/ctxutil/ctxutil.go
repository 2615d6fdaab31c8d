package ctxutil

import (
	"context"
	"errors"
)

type ctxKey string

const (
	RequestIDKey ctxKey = "request_id"
	TenantIDKey  ctxKey = "tenant_id"
	ActorIDKey   ctxKey = "actor_id"
)

var ErrMissingTenant = errors.New("tenant id missing from context")

func WithRequestID(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, reqID)
}

func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(RequestIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func WithTenantID(ctx context.Context, tenantID int64) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

func GetTenantID(ctx context.Context) (int64, error) {
	if id, ok := ctx.Value(TenantIDKey).(int64); ok && id != 0 {
		return id, nil
	}
	return 0, ErrMissingTenant
}

func WithActorID(ctx context.Context, actorID int64) context.Context {
	return context.WithValue(ctx, ActorIDKey, actorID)
}

// GetActorID returns nil when the request carries no actor.
func GetActorID(ctx context.Context) *int64 {
	if id, ok := ctx.Value(ActorIDKey).(int64); ok && id != 0 {
		return &id
	}
	return nil
}
