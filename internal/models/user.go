package models

// User is an admin account stored under users/{email}.
type User struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"passwordHash"`
	Role         string `json:"role"` // only "admin" is meaningful today
	TOTPSecret   string `json:"totpSecret,omitempty"`
	TOTPEnabled  bool   `json:"totpEnabled"`
	IsActive     bool   `json:"isActive"`
	CreatedAt    int64  `json:"createdAt"` // epoch millis
}

// Sanitized returns a copy safe to put in an HTTP response. The stored
// document and the wire shape share JSON tags, so secrets have to be
// stripped by hand instead of tagged away.
func (u *User) Sanitized() *User {
	c := *u
	c.PasswordHash = ""
	c.TOTPSecret = ""
	return &c
}

// LoginRequest is the credential payload for /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TwoFactorVerifyRequest completes a pending 2FA login.
type TwoFactorVerifyRequest struct {
	TempToken string `json:"temp_token"`
	Code      string `json:"code"`
}

// SetupAdminRequest bootstraps the first admin account.
type SetupAdminRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}
