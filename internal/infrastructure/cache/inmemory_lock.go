package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type lockEntry struct {
	token     string
	expiresAt time.Time
}

// InMemoryLock implements DistributedLock inside a single process.
// It is used when Redis is not configured.
type InMemoryLock struct {
	mu      sync.Mutex
	entries map[string]lockEntry
	now     func() time.Time
}

// NewInMemoryLock creates an empty in-process lock table
func NewInMemoryLock() *InMemoryLock {
	return &InMemoryLock{
		entries: make(map[string]lockEntry),
		now:     time.Now,
	}
}

// TryAcquire takes the key unless a live holder owns it
func (l *InMemoryLock) TryAcquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.entries[key]; ok && now.Before(e.expiresAt) {
		return "", false, nil
	}

	token := uuid.NewString()
	l.entries[key] = lockEntry{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

// Extend pushes the expiry of a live lock held with token
func (l *InMemoryLock) Extend(_ context.Context, key, token string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok || e.token != token || !now.Before(e.expiresAt) {
		return ErrLockNotHeld
	}
	e.expiresAt = now.Add(ttl)
	l.entries[key] = e
	return nil
}

// Release frees the key if the token still matches and has not expired
func (l *InMemoryLock) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || e.token != token || !l.now().Before(e.expiresAt) {
		return ErrLockNotHeld
	}
	delete(l.entries, key)
	return nil
}

var _ DistributedLock = (*InMemoryLock)(nil)
