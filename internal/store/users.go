package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tyemirov/bookstore/internal/authkit"
)

// FindUserByEmail returns the user registered under the email.
func (store *Store) FindUserByEmail(ctx context.Context, email string) (authkit.User, error) {
	return store.findUser(ctx, "email = ?", email)
}

// FindUserByUsername returns the user registered under the username.
func (store *Store) FindUserByUsername(ctx context.Context, username string) (authkit.User, error) {
	return store.findUser(ctx, "username = ?", username)
}

// FindUserByID returns the user with the given identifier.
func (store *Store) FindUserByID(ctx context.Context, userID uint64) (authkit.User, error) {
	return store.findUser(ctx, "id = ?", userID)
}

// CreateUser inserts a new user row. Constraint violations map onto the
// duplicate sentinels, with the username constraint reported first.
func (store *Store) CreateUser(ctx context.Context, username string, email string, passwordHash string) (authkit.User, error) {
	record := userRecord{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
	}
	if err := store.db.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return authkit.User{}, fmt.Errorf("user_store.create.%s: %w", store.driverLabel, store.classifyDuplicate(ctx, username))
		}
		return authkit.User{}, fmt.Errorf("user_store.create.%s: %w", store.driverLabel, err)
	}
	return toUser(record), nil
}

// UpdateRefreshFingerprint overwrites the stored fingerprint; empty clears it.
func (store *Store) UpdateRefreshFingerprint(ctx context.Context, userID uint64, fingerprint string) error {
	result := store.db.WithContext(ctx).Model(&userRecord{}).
		Where("id = ?", userID).
		Update("refresh_fingerprint", fingerprint)
	if result.Error != nil {
		return fmt.Errorf("user_store.update_fingerprint.%s: %w", store.driverLabel, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user_store.update_fingerprint.%s: %w", store.driverLabel, authkit.ErrUserRecordNotFound)
	}
	return nil
}

// RotateRefreshFingerprint swaps the fingerprint in a single conditional
// update so concurrent refreshes over the same stale value cannot both win.
func (store *Store) RotateRefreshFingerprint(ctx context.Context, userID uint64, previous string, next string) error {
	result := store.db.WithContext(ctx).Model(&userRecord{}).
		Where("id = ? AND refresh_fingerprint = ?", userID, previous).
		Update("refresh_fingerprint", next)
	if result.Error != nil {
		return fmt.Errorf("user_store.rotate_fingerprint.%s: %w", store.driverLabel, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user_store.rotate_fingerprint.%s: %w", store.driverLabel, authkit.ErrFingerprintMismatch)
	}
	return nil
}

func (store *Store) findUser(ctx context.Context, condition string, argument any) (authkit.User, error) {
	var record userRecord
	err := store.db.WithContext(ctx).Where(condition, argument).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authkit.User{}, fmt.Errorf("user_store.find.%s: %w", store.driverLabel, authkit.ErrUserRecordNotFound)
		}
		return authkit.User{}, fmt.Errorf("user_store.find.%s: %w", store.driverLabel, err)
	}
	return toUser(record), nil
}

func (store *Store) classifyDuplicate(ctx context.Context, username string) error {
	var count int64
	if err := store.db.WithContext(ctx).Model(&userRecord{}).Where("username = ?", username).Count(&count).Error; err == nil && count > 0 {
		return authkit.ErrDuplicateUsername
	}
	return authkit.ErrDuplicateEmail
}

func toUser(record userRecord) authkit.User {
	return authkit.User{
		ID:                 record.ID,
		Username:           record.Username,
		Email:              record.Email,
		PasswordHash:       record.PasswordHash,
		RefreshFingerprint: record.RefreshFingerprint,
	}
}
