package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"greenstay/config"
	"greenstay/infras/jwt"
)

func jwtService() jwt.JWT {
	cfg := &config.Config{}
	cfg.App.Name = "greenstay"
	cfg.JWT.AccessSecret = "access-secret"
	cfg.JWT.RefreshSecret = "refresh-secret"
	cfg.JWT.AccessExpireMin = 15
	cfg.JWT.RefreshExpireMin = 60

	return jwt.New(cfg)
}

func TestValidateToken(t *testing.T) {
	svc := jwtService()

	pair, err := svc.GenerateTokenPair("user-1", "user@example.com", "customer")
	assert.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	t.Run("round trip", func(t *testing.T) {
		claims, err := svc.ValidateToken(pair.AccessToken, jwt.AccessToken)

		assert.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "customer", claims.Role)
	})

	t.Run("access token rejected as refresh", func(t *testing.T) {
		_, err := svc.ValidateToken(pair.AccessToken, jwt.RefreshToken)

		assert.Error(t, err)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token", jwt.AccessToken)

		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})
}

func TestExtractTokenFromHeader(t *testing.T) {
	token, err := jwt.ExtractTokenFromHeader("Bearer abc.def.ghi")
	assert.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	_, err = jwt.ExtractTokenFromHeader("Basic abc")
	assert.Error(t, err)

	_, err = jwt.ExtractTokenFromHeader("")
	assert.Error(t, err)
}
