package authkit

import (
	"context"
	"errors"
)

// Sentinel errors surfaced by UserStore implementations.
var (
	// ErrUserRecordNotFound indicates no user matched the lookup key.
	ErrUserRecordNotFound = errors.New("user_store.not_found")
	// ErrDuplicateUsername indicates the username uniqueness constraint fired.
	ErrDuplicateUsername = errors.New("user_store.duplicate_username")
	// ErrDuplicateEmail indicates the email uniqueness constraint fired.
	ErrDuplicateEmail = errors.New("user_store.duplicate_email")
	// ErrFingerprintMismatch indicates a conditional rotation matched no row.
	ErrFingerprintMismatch = errors.New("user_store.fingerprint_mismatch")
)

// UserStore persists user identities and their refresh fingerprints.
// Each operation is a single atomic statement against the backing store.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (User, error)
	FindUserByUsername(ctx context.Context, username string) (User, error)
	FindUserByID(ctx context.Context, userID uint64) (User, error)
	CreateUser(ctx context.Context, username string, email string, passwordHash string) (User, error)
	// UpdateRefreshFingerprint overwrites the stored fingerprint; an empty
	// fingerprint marks the user as having no active session.
	UpdateRefreshFingerprint(ctx context.Context, userID uint64, fingerprint string) error
	// RotateRefreshFingerprint swaps the fingerprint only when the stored
	// value still equals previous. Two concurrent refreshes racing over the
	// same stale fingerprint must not both succeed; the loser receives
	// ErrFingerprintMismatch.
	RotateRefreshFingerprint(ctx context.Context, userID uint64, previous string, next string) error
}
