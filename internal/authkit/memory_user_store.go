package authkit

import (
	"context"
	"fmt"
	"sync"
)

// MemoryUserStore is an in-memory credential store intended for tests and dev.
type MemoryUserStore struct {
	mutex      sync.Mutex
	byID       map[uint64]*User
	byEmail    map[string]uint64
	byUsername map[string]uint64
	sequenceID uint64
}

// NewMemoryUserStore creates an empty in-memory store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:       make(map[uint64]*User),
		byEmail:    make(map[string]uint64),
		byUsername: make(map[string]uint64),
	}
}

// FindUserByEmail returns the user registered under the email.
func (store *MemoryUserStore) FindUserByEmail(ctx context.Context, email string) (User, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	userID, ok := store.byEmail[email]
	if !ok {
		return User{}, fmt.Errorf("user_store.find_by_email: %w", ErrUserRecordNotFound)
	}
	return *store.byID[userID], nil
}

// FindUserByUsername returns the user registered under the username.
func (store *MemoryUserStore) FindUserByUsername(ctx context.Context, username string) (User, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	userID, ok := store.byUsername[username]
	if !ok {
		return User{}, fmt.Errorf("user_store.find_by_username: %w", ErrUserRecordNotFound)
	}
	return *store.byID[userID], nil
}

// FindUserByID returns the user with the given identifier.
func (store *MemoryUserStore) FindUserByID(ctx context.Context, userID uint64) (User, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	record, ok := store.byID[userID]
	if !ok {
		return User{}, fmt.Errorf("user_store.find_by_id: %w", ErrUserRecordNotFound)
	}
	return *record, nil
}

// CreateUser inserts a new user row, enforcing both uniqueness constraints.
func (store *MemoryUserStore) CreateUser(ctx context.Context, username string, email string, passwordHash string) (User, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if _, exists := store.byUsername[username]; exists {
		return User{}, fmt.Errorf("user_store.create: %w", ErrDuplicateUsername)
	}
	if _, exists := store.byEmail[email]; exists {
		return User{}, fmt.Errorf("user_store.create: %w", ErrDuplicateEmail)
	}
	store.sequenceID++
	record := &User{
		ID:           store.sequenceID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
	}
	store.byID[record.ID] = record
	store.byEmail[email] = record.ID
	store.byUsername[username] = record.ID
	return *record, nil
}

// UpdateRefreshFingerprint overwrites the stored fingerprint.
func (store *MemoryUserStore) UpdateRefreshFingerprint(ctx context.Context, userID uint64, fingerprint string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	record, ok := store.byID[userID]
	if !ok {
		return fmt.Errorf("user_store.update_fingerprint: %w", ErrUserRecordNotFound)
	}
	record.RefreshFingerprint = fingerprint
	return nil
}

// RotateRefreshFingerprint swaps the fingerprint only when previous still matches.
func (store *MemoryUserStore) RotateRefreshFingerprint(ctx context.Context, userID uint64, previous string, next string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	record, ok := store.byID[userID]
	if !ok {
		return fmt.Errorf("user_store.rotate_fingerprint: %w", ErrUserRecordNotFound)
	}
	if record.RefreshFingerprint != previous {
		return fmt.Errorf("user_store.rotate_fingerprint: %w", ErrFingerprintMismatch)
	}
	record.RefreshFingerprint = next
	return nil
}
