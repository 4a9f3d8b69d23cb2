package authkit

import "errors"

var (
	// ErrUsernameTaken indicates the requested username already belongs to another account.
	ErrUsernameTaken = errors.New("auth.username_taken")
	// ErrEmailTaken indicates the requested email already belongs to another account.
	ErrEmailTaken = errors.New("auth.email_taken")
	// ErrInvalidCredentials covers both unknown email and wrong password; callers must not distinguish them.
	ErrInvalidCredentials = errors.New("auth.invalid_credentials")
	// ErrInvalidToken indicates a malformed token or a signature that does not verify.
	ErrInvalidToken = errors.New("auth.invalid_token")
	// ErrExpiredToken indicates a structurally valid token past its expiry.
	ErrExpiredToken = errors.New("auth.expired_token")
	// ErrTokenReused indicates a refresh token that does not match the stored fingerprint.
	ErrTokenReused = errors.New("auth.token_reused")
	// ErrNoActiveSession indicates the user has no stored refresh fingerprint.
	ErrNoActiveSession = errors.New("auth.no_active_session")
	// ErrUserNotFound indicates the token's subject no longer exists.
	ErrUserNotFound = errors.New("auth.user_not_found")
	// ErrUnavailable indicates a store or provider timeout; the caller may retry.
	ErrUnavailable = errors.New("auth.unavailable")
)
