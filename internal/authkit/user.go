package authkit

import "time"

// User is the identity record persisted by the credential store.
// PasswordHash is empty for accounts created through federation, and
// RefreshFingerprint is empty when the user has no active session.
type User struct {
	ID                 uint64
	Username           string
	Email              string
	PasswordHash       string
	RefreshFingerprint string
}

// LocalCredential carries an email/password pair presented at login.
type LocalCredential struct {
	Email    string
	Password string
}

// GoogleIdentity is a verified third-party identity assertion. It is
// transient; only the resolved User row is persisted.
type GoogleIdentity struct {
	Provider    string
	ProviderID  string
	Email       string
	DisplayName string
}

// AuthenticatedPrincipal is the identity decoded from a verified token.
type AuthenticatedPrincipal struct {
	SubjectID uint64
	Email     string
}

// TokenPair bundles a freshly issued access and refresh token.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
