package tutor

import (
	"sync"

	"github.com/prepod-ai/tutor/pkg/core/types"
)

// TokenStore holds the bearer credential pair. The transport reads the
// access token on every request and replaces the pair after a renewal.
type TokenStore interface {
	AccessToken() string
	RefreshToken() string
	SetToken(types.Token)
	Clear()
}

// MemoryTokenStore keeps tokens in process memory; session state does not
// survive a restart.
type MemoryTokenStore struct {
	mu      sync.Mutex
	access  string
	refresh string
}

// NewMemoryTokenStore creates an empty store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

func (s *MemoryTokenStore) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh
}

func (s *MemoryTokenStore) SetToken(t types.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = t.AccessToken
	if t.RefreshToken != "" {
		s.refresh = t.RefreshToken
	}
}

func (s *MemoryTokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
}
