package authkit

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryUserStoreCreateAndFind(t *testing.T) {
	t.Parallel()

	store := NewMemoryUserStore()
	created, createErr := store.CreateUser(context.Background(), "dana", "dana@example.com", "digest")
	if createErr != nil {
		t.Fatalf("expected create to succeed, got %v", createErr)
	}
	if created.ID == 0 {
		t.Fatalf("expected an assigned identifier")
	}

	byEmail, emailErr := store.FindUserByEmail(context.Background(), "dana@example.com")
	if emailErr != nil || byEmail.ID != created.ID {
		t.Fatalf("expected email lookup to resolve the created user, got %v / %v", byEmail, emailErr)
	}
	byUsername, usernameErr := store.FindUserByUsername(context.Background(), "dana")
	if usernameErr != nil || byUsername.ID != created.ID {
		t.Fatalf("expected username lookup to resolve the created user, got %v / %v", byUsername, usernameErr)
	}
	if _, err := store.FindUserByID(context.Background(), created.ID); err != nil {
		t.Fatalf("expected id lookup to succeed, got %v", err)
	}
	if _, err := store.FindUserByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, ErrUserRecordNotFound) {
		t.Fatalf("expected ErrUserRecordNotFound, got %v", err)
	}
}

func TestMemoryUserStoreEnforcesUniqueness(t *testing.T) {
	t.Parallel()

	store := NewMemoryUserStore()
	if _, err := store.CreateUser(context.Background(), "dana", "dana@example.com", "digest"); err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}
	if _, err := store.CreateUser(context.Background(), "dana", "other@example.com", "digest"); !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
	if _, err := store.CreateUser(context.Background(), "other", "dana@example.com", "digest"); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestMemoryUserStoreRotateIsConditional(t *testing.T) {
	t.Parallel()

	store := NewMemoryUserStore()
	created, createErr := store.CreateUser(context.Background(), "dana", "dana@example.com", "digest")
	if createErr != nil {
		t.Fatalf("expected create to succeed, got %v", createErr)
	}
	if err := store.UpdateRefreshFingerprint(context.Background(), created.ID, "token-one"); err != nil {
		t.Fatalf("expected fingerprint update to succeed, got %v", err)
	}

	if err := store.RotateRefreshFingerprint(context.Background(), created.ID, "token-one", "token-two"); err != nil {
		t.Fatalf("expected rotation over the matching fingerprint to succeed, got %v", err)
	}
	if err := store.RotateRefreshFingerprint(context.Background(), created.ID, "token-one", "token-three"); !errors.Is(err, ErrFingerprintMismatch) {
		t.Fatalf("expected ErrFingerprintMismatch over a stale fingerprint, got %v", err)
	}

	stored, findErr := store.FindUserByID(context.Background(), created.ID)
	if findErr != nil {
		t.Fatalf("expected lookup to succeed, got %v", findErr)
	}
	if stored.RefreshFingerprint != "token-two" {
		t.Fatalf("expected the winning rotation to persist, got %q", stored.RefreshFingerprint)
	}
}

func TestMemoryUserStoreUpdateUnknownUser(t *testing.T) {
	t.Parallel()

	store := NewMemoryUserStore()
	if err := store.UpdateRefreshFingerprint(context.Background(), 42, "token"); !errors.Is(err, ErrUserRecordNotFound) {
		t.Fatalf("expected ErrUserRecordNotFound, got %v", err)
	}
	if err := store.RotateRefreshFingerprint(context.Background(), 42, "old", "new"); !errors.Is(err, ErrUserRecordNotFound) {
		t.Fatalf("expected ErrUserRecordNotFound, got %v", err)
	}
}
