package authkit

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"time"
)

var (
	// ErrStateNotFound indicates the supplied state token was not issued or already consumed.
	ErrStateNotFound = errors.New("state not found")
	// ErrStateExpired indicates the state token expired before the callback returned.
	ErrStateExpired = errors.New("state expired")
)

// StateStore issues one-time state tokens for the federation redirect. Each
// token carries the caller's post-login return path so the callback can send
// the browser back where the login started.
type StateStore interface {
	// Issue creates a new state token bound to returnPath with the configured TTL.
	Issue(ctx context.Context, returnPath string) (string, error)
	// Consume invalidates an issued state token and yields the bound return path.
	Consume(ctx context.Context, token string) (string, error)
}

type stateEntry struct {
	returnPath string
	expiresAt  time.Time
}

type memoryStateStore struct {
	mutex     sync.Mutex
	entries   map[string]stateEntry
	ttl       time.Duration
	now       func() time.Time
	tokenSize int
}

// NewMemoryStateStore constructs an in-memory StateStore with the provided TTL.
func NewMemoryStateStore(ttl time.Duration) StateStore {
	return &memoryStateStore{
		entries:   make(map[string]stateEntry),
		ttl:       ttl,
		now:       time.Now,
		tokenSize: 32,
	}
}

func (store *memoryStateStore) Issue(ctx context.Context, returnPath string) (string, error) {
	token, err := store.randomToken()
	if err != nil {
		return "", err
	}
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.purgeExpiredLocked()
	store.entries[token] = stateEntry{
		returnPath: returnPath,
		expiresAt:  store.now().Add(store.ttl),
	}
	return token, nil
}

func (store *memoryStateStore) Consume(ctx context.Context, token string) (string, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	defer store.purgeExpiredLocked()
	entry, ok := store.entries[token]
	if !ok {
		return "", ErrStateNotFound
	}
	delete(store.entries, token)
	if store.now().After(entry.expiresAt) {
		return "", ErrStateExpired
	}
	return entry.returnPath, nil
}

func (store *memoryStateStore) purgeExpiredLocked() {
	if len(store.entries) == 0 {
		return
	}
	now := store.now()
	for token, entry := range store.entries {
		if now.After(entry.expiresAt) {
			delete(store.entries, token)
		}
	}
}

func (store *memoryStateStore) randomToken() (string, error) {
	buffer := make([]byte, store.tokenSize)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}
