package revocation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrFull is returned when every slot holds a revocation that is still live.
// Evicting one would make a logged-out token valid again.
var ErrFull = errors.New("revocation list full")

// MemoryStore keeps revocations in a bounded in-process LRU. Entries live for
// the longest session lifetime; the stored deadline trims that per token.
// Revocations are lost on restart and are not shared between instances.
type MemoryStore struct {
	mu    sync.Mutex
	size  int
	cache *expirable.LRU[string, time.Time]
	now   func() time.Time
}

func NewMemoryStore(size int, maxTTL time.Duration) *MemoryStore {
	if size <= 0 {
		size = 10000
	}
	return &MemoryStore{
		size:  size,
		cache: expirable.NewLRU[string, time.Time](size, nil, maxTTL),
		now:   time.Now,
	}
}

func (s *MemoryStore) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if !s.cache.Contains(jti) && s.cache.Len() >= s.size && s.sweepLocked(now) == 0 {
		return ErrFull
	}
	s.cache.Add(jti, now.Add(ttl))
	return nil
}

func (s *MemoryStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	deadline, ok := s.cache.Peek(jti)
	if !ok {
		return false, nil
	}
	return s.now().Before(deadline), nil
}

// sweepLocked drops entries whose token has already expired and reports how
// many were removed.
func (s *MemoryStore) sweepLocked(now time.Time) int {
	removed := 0
	for _, key := range s.cache.Keys() {
		deadline, ok := s.cache.Peek(key)
		if ok && !now.Before(deadline) {
			s.cache.Remove(key)
			removed++
		}
	}
	return removed
}
