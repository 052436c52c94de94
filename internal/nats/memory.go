package nats

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Memory is a process-local claim set whose entries expire after ttl.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	claimed map[string]time.Time
}

func NewMemory(ttl time.Duration, now func() time.Time) *Memory {
	return &Memory{
		ttl:     ttl,
		now:     now,
		claimed: map[string]time.Time{},
	}
}

func (m *Memory) Claim(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.claimed = lo.OmitBy(m.claimed, func(_ string, at time.Time) bool {
		return now.Sub(at) >= m.ttl
	})

	if _, ok := m.claimed[key]; ok {
		return false, nil
	}
	m.claimed[key] = now

	return true, nil
}
