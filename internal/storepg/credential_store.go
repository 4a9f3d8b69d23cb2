package storepg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tyemirov/bookstore/internal/authkit"
)

const pgUniqueViolationCode = "23505"

// CredentialStore persists user identities and refresh fingerprints in
// PostgreSQL with single-statement updates.
type CredentialStore struct {
	pool *pgxpool.Pool
}

// NewCredentialStore constructs a Postgres-backed credential store.
func NewCredentialStore(pool *pgxpool.Pool) *CredentialStore {
	return &CredentialStore{pool: pool}
}

// FindUserByEmail returns the user registered under the email.
func (store *CredentialStore) FindUserByEmail(ctx context.Context, email string) (authkit.User, error) {
	return store.findUser(ctx, "email = $1", email)
}

// FindUserByUsername returns the user registered under the username.
func (store *CredentialStore) FindUserByUsername(ctx context.Context, username string) (authkit.User, error) {
	return store.findUser(ctx, "username = $1", username)
}

// FindUserByID returns the user with the given identifier.
func (store *CredentialStore) FindUserByID(ctx context.Context, userID uint64) (authkit.User, error) {
	return store.findUser(ctx, "id = $1", userID)
}

// CreateUser inserts a new user row; unique violations map onto the
// duplicate sentinels by constraint name.
func (store *CredentialStore) CreateUser(ctx context.Context, username string, email string, passwordHash string) (authkit.User, error) {
	var user authkit.User
	row := store.pool.QueryRow(ctx, `
INSERT INTO users (username, email, password_hash)
VALUES ($1, $2, $3)
RETURNING id, username, email, password_hash, refresh_fingerprint
`, username, email, passwordHash)
	if scanErr := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.RefreshFingerprint); scanErr != nil {
		return authkit.User{}, fmt.Errorf("user_store.create.postgres: %w", translateUniqueViolation(scanErr))
	}
	return user, nil
}

// UpdateRefreshFingerprint overwrites the stored fingerprint; empty clears it.
func (store *CredentialStore) UpdateRefreshFingerprint(ctx context.Context, userID uint64, fingerprint string) error {
	tag, execErr := store.pool.Exec(ctx, `
UPDATE users SET refresh_fingerprint = $1 WHERE id = $2
`, fingerprint, userID)
	if execErr != nil {
		return fmt.Errorf("user_store.update_fingerprint.postgres: %w", execErr)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user_store.update_fingerprint.postgres: %w", authkit.ErrUserRecordNotFound)
	}
	return nil
}

// RotateRefreshFingerprint swaps the fingerprint only when the stored value
// still equals previous; the conditional WHERE makes concurrent refreshes
// over the same stale fingerprint mutually exclusive.
func (store *CredentialStore) RotateRefreshFingerprint(ctx context.Context, userID uint64, previous string, next string) error {
	tag, execErr := store.pool.Exec(ctx, `
UPDATE users SET refresh_fingerprint = $1 WHERE id = $2 AND refresh_fingerprint = $3
`, next, userID, previous)
	if execErr != nil {
		return fmt.Errorf("user_store.rotate_fingerprint.postgres: %w", execErr)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user_store.rotate_fingerprint.postgres: %w", authkit.ErrFingerprintMismatch)
	}
	return nil
}

func (store *CredentialStore) findUser(ctx context.Context, condition string, argument any) (authkit.User, error) {
	var user authkit.User
	row := store.pool.QueryRow(ctx, fmt.Sprintf(`
SELECT id, username, email, password_hash, refresh_fingerprint
FROM users
WHERE %s
`, condition), argument)
	if scanErr := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.RefreshFingerprint); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return authkit.User{}, fmt.Errorf("user_store.find.postgres: %w", authkit.ErrUserRecordNotFound)
		}
		return authkit.User{}, fmt.Errorf("user_store.find.postgres: %w", scanErr)
	}
	return user, nil
}

func translateUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolationCode {
		return err
	}
	if strings.Contains(pgErr.ConstraintName, "username") {
		return authkit.ErrDuplicateUsername
	}
	return authkit.ErrDuplicateEmail
}
