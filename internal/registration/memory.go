package registration

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a Store kept in process memory. Phone uniqueness is
// enforced the same way the unique index does it.
type MemoryStore struct {
	mu    sync.Mutex
	regs  []Registration
	phone map[string]struct{}
	links map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		phone: make(map[string]struct{}),
		links: make(map[string]string),
	}
}

func (s *MemoryStore) PhoneExists(_ context.Context, phone string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.phone[phone]
	return ok, nil
}

func (s *MemoryStore) Create(_ context.Context, r *Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.phone[r.Phone]; ok {
		return ErrConflict
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.phone[r.Phone] = struct{}{}
	s.regs = append(s.regs, *r)
	return nil
}

func (s *MemoryStore) CommunityLink(_ context.Context, district string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[district]
	return link, ok, nil
}

func (s *MemoryStore) SetCommunityLink(district, link string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[district] = link
}

// Registrations returns a copy of every stored registration.
func (s *MemoryStore) Registrations() []Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Registration, len(s.regs))
	copy(out, s.regs)
	return out
}
