package auth

import (
	"testing"
	"time"

	"github.com/DFBlok/market-link-app/internal/models"
	"github.com/DFBlok/market-link-app/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testUser(role models.Role) *models.User {
	return &models.User{
		Base:     models.Base{ID: utils.MustParseSixID("0123456780")},
		Name:     "Thandi",
		Email:    "thandi@example.com",
		UserType: models.UserTypeSupplier,
		Role:     role,
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)
	assert.True(t, CheckPasswordHash("s3cret!", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestHashPassword_OutOfRangeCostUsesDefault(t *testing.T) {
	hash, err := HashPassword("s3cret!", 0)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, DefaultCost, cost)
}

func TestGenerateAndValidateJWT(t *testing.T) {
	user := testUser(models.RoleAdmin)
	token, err := GenerateJWT(user, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, "supplier", claims.UserType)
	assert.True(t, claims.IsAdmin)
}

func TestValidateJWT_Rejects(t *testing.T) {
	user := testUser(models.RoleUser)

	t.Run("wrong secret", func(t *testing.T) {
		token, err := GenerateJWT(user, "secret", time.Hour)
		require.NoError(t, err)
		_, err = ValidateJWT(token, "other")
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := GenerateJWT(user, "secret", -time.Minute)
		require.NoError(t, err)
		_, err = ValidateJWT(token, "secret")
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: user.ID.String()})
		s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = ValidateJWT(s, "secret")
		assert.Error(t, err)
	})

	t.Run("missing user id", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		})
		s, err := token.SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = ValidateJWT(s, "secret")
		assert.Error(t, err)
	})
}

func TestGenerateJWT_RequiresID(t *testing.T) {
	_, err := GenerateJWT(&models.User{}, "secret", time.Hour)
	assert.Error(t, err)
}
