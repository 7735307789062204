package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthwatch-server/config"
	"healthwatch-server/models"
	"healthwatch-server/utils"
)

func newTestJWT() *JWTService {
	return NewJWTService(config.JWTConfig{Secret: "test-secret", ExpiryHours: 1})
}

func TestJWTRoundTripCarriesRole(t *testing.T) {
	js := newTestJWT()
	token, err := js.GenerateAccessToken(&models.User{ID: 7, Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, int64(3600), token.ExpiresIn)

	claims, err := js.ValidateAccessToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestJWTRejectsBadTokens(t *testing.T) {
	js := newTestJWT()
	token, err := js.GenerateAccessToken(&models.User{ID: 7})
	require.NoError(t, err)

	other := NewJWTService(config.JWTConfig{Secret: "other-secret", ExpiryHours: 1})
	_, err = other.ValidateAccessToken(token.AccessToken)
	assert.ErrorIs(t, err, ErrAuthentication)

	expired := newTestJWT()
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.ValidateAccessToken(token.AccessToken)
	assert.ErrorIs(t, err, ErrAuthentication)

	_, err = js.ValidateAccessToken("")
	assert.ErrorIs(t, err, ErrAuthentication)

	_, err = js.ValidateAccessToken("not.a.jwt")
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestLogin(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	hash, err := utils.HashPassword("correct horse")
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), &models.User{FullName: "Lan", Email: "Lan@Example.com", PasswordHash: hash, IsActive: true}))

	auth := NewAuthService(users, newTestJWT(), nopLogger())

	result, err := auth.Login(context.Background(), "lan@example.com", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken.AccessToken)
	assert.Equal(t, "lan@example.com", result.User.Email)

	user, err := auth.Authenticate(context.Background(), result.AccessToken.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, user.ID)

	_, err = auth.Login(context.Background(), "lan@example.com", "wrong")
	assert.ErrorIs(t, err, ErrAuthentication)

	_, err = auth.Login(context.Background(), "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestAuthenticateRejectsDeletedUser(t *testing.T) {
	auth := NewAuthService(NewUserStore(newTestDB(t)), newTestJWT(), nopLogger())
	token, err := newTestJWT().GenerateAccessToken(&models.User{ID: 99})
	require.NoError(t, err)

	_, err = auth.Authenticate(context.Background(), token.AccessToken)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestUpdatePushToken(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	user := createUser(t, db, "push@example.com", "")
	ctx := context.Background()

	require.NoError(t, users.UpdatePushToken(ctx, user.ID, " token-xyz "))
	loaded, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "token-xyz", loaded.PushToken())

	require.NoError(t, users.UpdatePushToken(ctx, user.ID, ""))
	loaded, err = users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.PushToken())

	assert.ErrorIs(t, users.UpdatePushToken(ctx, user.ID+100, "token"), ErrNotFound)
}
