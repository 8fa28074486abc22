package accounts

import (
	"context"
	"sync"

	"github.com/Liquid-Surf/fedcm-demo/internal/crypto"
	"github.com/segmentio/ksuid"
)

// MemoryStore is the in-memory cookie and WebID store used in development
// and tests. It implements both CookieStore and WebIDStore.
type MemoryStore struct {
	mu      sync.RWMutex
	cookies map[string]string // cookie value -> account id
	links   map[string][]Link // account id -> links
}

var (
	_ CookieStore = (*MemoryStore)(nil)
	_ WebIDStore  = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cookies: make(map[string]string),
		links:   make(map[string][]Link),
	}
}

// CreateAccount registers a new account linked to the given WebIDs and
// returns its identifier.
func (s *MemoryStore) CreateAccount(webIDs ...string) string {
	accountID := ksuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, webID := range webIDs {
		s.links[accountID] = append(s.links[accountID], Link{AccountID: accountID, WebID: webID})
	}
	return accountID
}

// Get implements CookieStore.
func (s *MemoryStore) Get(_ context.Context, cookie string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accountID, ok := s.cookies[cookie]
	if !ok {
		return "", ErrUnknownCookie
	}
	return accountID, nil
}

// Generate implements CookieStore.
func (s *MemoryStore) Generate(_ context.Context, accountID string) (string, error) {
	value, err := crypto.GenerateSecureToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies[value] = accountID
	return value, nil
}

// SetCookie binds a known cookie value to an account. Tests use this to model
// a session issued by the host login flow.
func (s *MemoryStore) SetCookie(cookie, accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies[cookie] = accountID
}

// FindLinks implements WebIDStore.
func (s *MemoryStore) FindLinks(_ context.Context, accountID string) ([]Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	links := s.links[accountID]
	out := make([]Link, len(links))
	copy(out, links)
	return out, nil
}
