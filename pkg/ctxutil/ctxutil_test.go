package ctxutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()

	_, err := GetTenantID(ctx)
	assert.ErrorIs(t, err, ErrMissingTenant)
	assert.Nil(t, GetActorID(ctx))
	assert.Empty(t, GetRequestID(ctx))

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithTenantID(ctx, 7)
	ctx = WithActorID(ctx, 42)

	tenantID, err := GetTenantID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), tenantID)
	require.NotNil(t, GetActorID(ctx))
	assert.Equal(t, int64(42), *GetActorID(ctx))
	assert.Equal(t, "req-1", GetRequestID(ctx))
}
