package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticTokenValidator_ValidateToken(t *testing.T) {
	ctx := context.Background()

	t.Run("matching token resolves the tenant", func(t *testing.T) {
		validator := NewStaticTokenValidator("sst_secret", "tenant-1")

		tenantID, err := validator.ValidateToken(ctx, "sst_secret")

		require.NoError(t, err)
		assert.Equal(t, "tenant-1", tenantID)
	})

	t.Run("wrong token is rejected", func(t *testing.T) {
		validator := NewStaticTokenValidator("sst_secret", "tenant-1")

		tenantID, err := validator.ValidateToken(ctx, "sst_wrong")

		require.Error(t, err)
		assert.Empty(t, tenantID)
	})

	t.Run("unconfigured validator rejects everything", func(t *testing.T) {
		validator := NewStaticTokenValidator("", "")

		_, err := validator.ValidateToken(ctx, "anything")

		require.Error(t, err)
	})
}
