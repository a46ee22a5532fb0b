package queue

import (
	"context"
	"sync"
	"time"
)

// ClaimManager hands out exclusive, expiring claims on a key. Reminder workers
// claim a task before notifying so that replicas sharing one store deliver each
// reminder once.
type ClaimManager interface {
	// Claim reports whether the caller now holds key. A held key is released by
	// Release or when ttl elapses.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	Release(ctx context.Context, key string) error
}

// LocalClaimManager keeps claims in process memory. It is enough for a single
// server instance.
type LocalClaimManager struct {
	mu     sync.Mutex
	claims map[string]time.Time
	now    func() time.Time
}

func NewLocalClaimManager() *LocalClaimManager {
	return &LocalClaimManager{
		claims: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (m *LocalClaimManager) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expires, held := m.claims[key]; held && now.Before(expires) {
		return false, nil
	}
	m.claims[key] = now.Add(ttl)

	for k, expires := range m.claims {
		if !now.Before(expires) {
			delete(m.claims, k)
		}
	}
	return true, nil
}

func (m *LocalClaimManager) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claims, key)
	return nil
}
