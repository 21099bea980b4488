package services

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"broiler-backend/internal/auth"
	"broiler-backend/internal/config"
	"broiler-backend/internal/models"
	"broiler-backend/internal/repositories"
	"broiler-backend/internal/store"
)

func newAuthFixture() (*AuthService, *repositories.UserRepository) {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret-key"
	cfg.JWT.ExpirationHours = 1
	cfg.JWT.Issuer = "broiler-backend"

	userRepo := repositories.NewUserRepository(store.NewMemoryStore())
	return NewAuthService(userRepo, auth.NewJWTManager(cfg)), userRepo
}

func TestSetupBootstrapsOnce(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	open, err := svc.SetupOpen(ctx)
	require.NoError(t, err)
	assert.True(t, open)

	user, err := svc.SetupAdmin(ctx, &models.SetupAdminRequest{
		Email:    "Farmer@Example.com",
		Name:     "Farmer",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "farmer@example.com", user.Email)
	assert.Equal(t, "admin", user.Role)
	assert.True(t, user.IsActive)

	open, err = svc.SetupOpen(ctx)
	require.NoError(t, err)
	assert.False(t, open)

	_, err = svc.SetupAdmin(ctx, &models.SetupAdminRequest{
		Email:    "second@example.com",
		Password: "another pass",
	})
	assert.ErrorIs(t, err, ErrSetupClosed)
}

func TestSetupValidation(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	_, err := svc.SetupAdmin(ctx, &models.SetupAdminRequest{Email: "no-at-sign", Password: "long enough"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.SetupAdmin(ctx, &models.SetupAdminRequest{Email: "a@b.com", Password: "short"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLogin(t *testing.T) {
	svc, userRepo := newAuthFixture()
	ctx := context.Background()

	_, err := svc.SetupAdmin(ctx, &models.SetupAdminRequest{
		Email:    "farmer@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "farmer@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	result, err := svc.Login(ctx, &models.LoginRequest{Email: "farmer@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.False(t, result.Requires2FA)
	assert.NotEmpty(t, result.Token)

	claims, err := svc.JWT.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "farmer@example.com", claims.Email)

	// Deactivated accounts cannot log in even with the right password.
	user, err := userRepo.Get(ctx, "farmer@example.com")
	require.NoError(t, err)
	user.IsActive = false
	require.NoError(t, userRepo.Put(ctx, user))

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "farmer@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestTwoFactorLoginFlow(t *testing.T) {
	svc, userRepo := newAuthFixture()
	ctx := context.Background()

	_, err := svc.SetupAdmin(ctx, &models.SetupAdminRequest{
		Email:    "farmer@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	setup, err := svc.GenerateTOTPSetup(ctx, "farmer@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.QRCode, "data:image/png;base64,")

	// 2FA stays off until the first code is verified.
	user, err := userRepo.Get(ctx, "farmer@example.com")
	require.NoError(t, err)
	assert.False(t, user.TOTPEnabled)

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.VerifyAndEnableTOTP(ctx, "farmer@example.com", code))

	result, err := svc.Login(ctx, &models.LoginRequest{Email: "farmer@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.True(t, result.Requires2FA)
	assert.Empty(t, result.Token)
	require.NotEmpty(t, result.TempToken)

	_, err = svc.Verify2FA(ctx, &models.TwoFactorVerifyRequest{TempToken: result.TempToken, Code: "000000"})
	assert.ErrorIs(t, err, ErrInvalidTOTPCode)

	code, err = totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	final, err := svc.Verify2FA(ctx, &models.TwoFactorVerifyRequest{TempToken: result.TempToken, Code: code})
	require.NoError(t, err)
	assert.NotEmpty(t, final.Token)
}

func TestVerify2FARateLimits(t *testing.T) {
	svc, userRepo := newAuthFixture()
	ctx := context.Background()

	_, err := svc.SetupAdmin(ctx, &models.SetupAdminRequest{
		Email:    "farmer@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	user, err := userRepo.Get(ctx, "farmer@example.com")
	require.NoError(t, err)
	user.TOTPSecret = "JBSWY3DPEHPK3PXP"
	user.TOTPEnabled = true
	require.NoError(t, userRepo.Put(ctx, user))

	result, err := svc.Login(ctx, &models.LoginRequest{Email: "farmer@example.com", Password: "correct horse"})
	require.NoError(t, err)

	for i := 0; i < maxFailedAttempts; i++ {
		_, err = svc.Verify2FA(ctx, &models.TwoFactorVerifyRequest{TempToken: result.TempToken, Code: "000000"})
		assert.ErrorIs(t, err, ErrInvalidTOTPCode)
	}
	_, err = svc.Verify2FA(ctx, &models.TwoFactorVerifyRequest{TempToken: result.TempToken, Code: "000000"})
	assert.ErrorIs(t, err, ErrTooManyAttempts)
}
