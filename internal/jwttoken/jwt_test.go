package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hemobank/pkg/domain"
	dErrors "hemobank/pkg/domain-errors"
)

func TestValidateToken(t *testing.T) {
	svc := NewService("test-signing-key", "hemobank-test")
	userID := domain.UserID(uuid.New())

	t.Run("round trips principal", func(t *testing.T) {
		token, err := svc.GenerateAccessToken(userID, domain.RoleDoctor, time.Minute)
		require.NoError(t, err)

		principal, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, userID, principal.ID)
		assert.Equal(t, domain.RoleDoctor, principal.Role)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		token, err := svc.GenerateAccessToken(userID, domain.RolePatient, -time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects token signed with another key", func(t *testing.T) {
		other := NewService("another-key", "hemobank-test")
		token, err := other.GenerateAccessToken(userID, domain.RoleAdmin, time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
