package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image/png"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"broiler-backend/internal/auth"
	"broiler-backend/internal/cache"
	"broiler-backend/internal/models"
	"broiler-backend/internal/repositories"
	"broiler-backend/internal/store"
	"broiler-backend/internal/timeutil"
)

const (
	totpIssuer        = "BroilerFarm"
	maxFailedAttempts = 5
	rateLimitWindow   = 15 * time.Minute
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("account is deactivated")
	ErrSetupClosed        = errors.New("initial setup already completed")
	ErrTooManyAttempts    = errors.New("too many failed attempts, please try again later")
	ErrNoTOTPSecret       = errors.New("2FA setup not initiated")
	ErrInvalidTOTPCode    = errors.New("invalid verification code")
	ErrTOTPNotEnabled     = errors.New("2FA is not enabled")
)

// LoginResult is the outcome of the first login step. When the account has
// 2FA enabled, Token stays empty and TempToken carries the short-lived
// pending-verification token instead.
type LoginResult struct {
	Token       string       `json:"token,omitempty"`
	Requires2FA bool         `json:"requires2fa"`
	TempToken   string       `json:"tempToken,omitempty"`
	User        *models.User `json:"user"`
}

// TOTPSetupResponse carries the provisioning secret and QR code for an
// authenticator app.
type TOTPSetupResponse struct {
	Secret      string `json:"secret"`
	QRCode      string `json:"qrCode"`
	Issuer      string `json:"issuer"`
	AccountName string `json:"accountName"`
}

// AuthService owns operator accounts, the one-time admin bootstrap, and the
// optional TOTP second factor.
type AuthService struct {
	UserRepo *repositories.UserRepository
	JWT      *auth.JWTManager

	// failed TOTP attempts per email, kept in memory; the farm runs a
	// single server so a shared counter store is not needed.
	mu       sync.Mutex
	attempts map[string][]time.Time

	now func() time.Time
}

func NewAuthService(userRepo *repositories.UserRepository, jwtManager *auth.JWTManager) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		JWT:      jwtManager,
		attempts: make(map[string][]time.Time),
		now:      timeutil.Now,
	}
}

// SetupOpen reports whether the one-time admin bootstrap is still available.
func (s *AuthService) SetupOpen(ctx context.Context) (bool, error) {
	count, err := s.UserRepo.Count(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// SetupAdmin creates the first account. Closed as soon as any user exists.
func (s *AuthService) SetupAdmin(ctx context.Context, req *models.SetupAdminRequest) (*models.User, error) {
	open, err := s.SetupOpen(ctx)
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, ErrSetupClosed
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return nil, validationErrorf("a valid email is required")
	}
	if len(req.Password) < 8 {
		return nil, validationErrorf("password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         req.Name,
		PasswordHash: hash,
		Role:         "admin",
		IsActive:     true,
		CreatedAt:    s.now().UnixMilli(),
	}
	if err := s.UserRepo.Put(ctx, user); err != nil {
		return nil, err
	}
	log.Printf("[AuthService] Initial admin account created for %s", user.Email)
	return user, nil
}

// Login verifies credentials and either issues a session token or, for
// 2FA-enabled accounts, a pending-verification token.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*LoginResult, error) {
	user, err := s.UserRepo.Get(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	// Recently verified credentials skip the bcrypt compare.
	if !cache.GetCachedAuth(ctx, user.Email, req.Password) {
		if !auth.VerifyPassword(user.PasswordHash, req.Password) {
			return nil, ErrInvalidCredentials
		}
		cache.CacheAuth(ctx, user.Email, req.Password)
	}

	result := &LoginResult{User: user}
	if user.TOTPEnabled {
		tempToken, err := s.JWT.GenerateTempToken(user)
		if err != nil {
			return nil, err
		}
		result.Requires2FA = true
		result.TempToken = tempToken
		return result, nil
	}

	token, err := s.JWT.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	result.Token = token
	return result, nil
}

// Verify2FA completes a 2FA login: temp token plus authenticator code in,
// session token out.
func (s *AuthService) Verify2FA(ctx context.Context, req *models.TwoFactorVerifyRequest) (*LoginResult, error) {
	claims, err := s.JWT.ValidateTempToken(req.TempToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.UserRepo.Get(ctx, claims.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if !user.TOTPEnabled || user.TOTPSecret == "" {
		return nil, ErrTOTPNotEnabled
	}

	if s.isRateLimited(user.Email) {
		return nil, ErrTooManyAttempts
	}
	if !totp.Validate(req.Code, user.TOTPSecret) {
		s.recordFailure(user.Email)
		return nil, ErrInvalidTOTPCode
	}
	s.clearFailures(user.Email)

	token, err := s.JWT.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: user}, nil
}

// GenerateTOTPSetup creates a new TOTP secret and QR code for a user. The
// secret is stored but 2FA stays off until VerifyAndEnableTOTP succeeds.
func (s *AuthService) GenerateTOTPSetup(ctx context.Context, email string) (*TOTPSetupResponse, error) {
	user, err := s.UserRepo.Get(ctx, email)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}

	user.TOTPSecret = key.Secret()
	user.TOTPEnabled = false
	if err := s.UserRepo.Put(ctx, user); err != nil {
		return nil, err
	}

	qrImage, err := key.Image(200, 200)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, qrImage); err != nil {
		return nil, err
	}

	return &TOTPSetupResponse{
		Secret:      key.Secret(),
		QRCode:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Issuer:      totpIssuer,
		AccountName: user.Email,
	}, nil
}

// VerifyAndEnableTOTP turns 2FA on once the user proves their authenticator
// produces valid codes.
func (s *AuthService) VerifyAndEnableTOTP(ctx context.Context, email, code string) error {
	user, err := s.UserRepo.Get(ctx, email)
	if err != nil {
		return err
	}
	if user.TOTPSecret == "" {
		return ErrNoTOTPSecret
	}
	if s.isRateLimited(user.Email) {
		return ErrTooManyAttempts
	}
	if !totp.Validate(code, user.TOTPSecret) {
		s.recordFailure(user.Email)
		return ErrInvalidTOTPCode
	}
	s.clearFailures(user.Email)

	user.TOTPEnabled = true
	if err := s.UserRepo.Put(ctx, user); err != nil {
		return err
	}
	log.Printf("[AuthService] 2FA enabled for %s", user.Email)
	return nil
}

// DisableTOTP turns 2FA off after re-verifying password and a current code.
func (s *AuthService) DisableTOTP(ctx context.Context, email, password, code string) error {
	user, err := s.UserRepo.Get(ctx, email)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		return ErrInvalidCredentials
	}
	if !totp.Validate(code, user.TOTPSecret) {
		return ErrInvalidTOTPCode
	}

	user.TOTPEnabled = false
	user.TOTPSecret = ""
	if err := s.UserRepo.Put(ctx, user); err != nil {
		return err
	}
	log.Printf("[AuthService] 2FA disabled for %s", user.Email)
	return nil
}

// ChangePassword rotates a user's password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, email, current, next string) error {
	user, err := s.UserRepo.Get(ctx, email)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(user.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	if len(next) < 8 {
		return validationErrorf("password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.UserRepo.Put(ctx, user); err != nil {
		return err
	}
	cache.InvalidateAuth(ctx, email, current)
	return nil
}

func (s *AuthService) isRateLimited(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-rateLimitWindow)
	recent := s.attempts[email][:0]
	for _, t := range s.attempts[email] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	s.attempts[email] = recent
	return len(recent) >= maxFailedAttempts
}

func (s *AuthService) recordFailure(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[email] = append(s.attempts[email], s.now())
}

func (s *AuthService) clearFailures(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, email)
}
