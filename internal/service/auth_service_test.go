package service

import (
	"heartwise_backend/internal/config"
	"heartwise_backend/internal/model"
	"heartwise_backend/internal/repository"
	"heartwise_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAuthService(db *gorm.DB) *AuthService {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpireTime = time.Hour
	return NewAuthService(repository.NewUserRepository(db), cfg)
}

func TestRegister(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)

	user, err := svc.Register(RegisterRequest{
		Name:               "Amy",
		Email:              "amy@example.com",
		Password:           "secret123",
		RelationshipStatus: "dating",
		PartnerName:        "Ben",
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, model.StatusDating, user.RelationshipStatus)
	// 密码只存哈希
	assert.NotEqual(t, "secret123", user.Password)

	_, err = svc.Register(RegisterRequest{Name: "Amy2", Email: "amy@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)
}

func TestRegisterDefaultsToSingle(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)

	user, err := svc.Register(RegisterRequest{Name: "Cal", Email: "cal@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusSingle, user.RelationshipStatus)
}

func TestLogin(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)

	_, err := svc.Register(RegisterRequest{Name: "Amy", Email: "amy@example.com", Password: "secret123"})
	require.NoError(t, err)

	resp, err := svc.Login("amy@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "amy@example.com", resp.User.Email)

	claims, err := util.ParseJWT(resp.Token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
}

func TestLoginBadCredentials(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)

	_, err := svc.Register(RegisterRequest{Name: "Amy", Email: "amy@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Login("amy@example.com", "wrong")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	_, err = svc.Login("nobody@example.com", "secret123")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
}

func TestLoginDisabledAccount(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)

	user, err := svc.Register(RegisterRequest{Name: "Amy", Email: "amy@example.com", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, db.Model(user).Update("disabled", true).Error)

	_, err = svc.Login("amy@example.com", "secret123")
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}
