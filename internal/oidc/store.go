package oidc

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ory/fosite"
	"github.com/ory/fosite/storage"
	"github.com/segmentio/ksuid"
)

// Grant is the persisted association authorizing a client to act for a
// subject with a fixed scope set. Codes and tokens carry the grant ID.
type Grant struct {
	ID        string
	ClientID  string
	Subject   string
	Scopes    []string
	CreatedAt time.Time
}

// Store backs the engine: fosite's code/token persistence plus the client
// registry and grant table.
type Store struct {
	*storage.MemoryStore

	clientsMu sync.RWMutex
	clients   map[string]*Client

	grantsMu sync.RWMutex
	grants   map[string]*Grant // grant id -> grant

	logger *slog.Logger
}

var _ fosite.Storage = (*Store)(nil)

// NewStore returns an empty store.
func NewStore(logger *slog.Logger) *Store {
	return &Store{
		MemoryStore: storage.NewMemoryStore(),
		clients:     make(map[string]*Client),
		grants:      make(map[string]*Grant),
		logger:      logger.With("component", "oidc-store"),
	}
}

// GetClient implements fosite.Storage.
func (s *Store) GetClient(_ context.Context, id string) (fosite.Client, error) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	client, ok := s.clients[id]
	if !ok {
		return nil, fosite.ErrNotFound
	}
	return client.ToFositeClient(), nil
}

// GetClientWithMetadata returns the registration with bridge-level metadata.
func (s *Store) GetClientWithMetadata(_ context.Context, id string) (*Client, error) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	client, ok := s.clients[id]
	if !ok {
		return nil, fosite.ErrNotFound
	}
	return client, nil
}

// RegisterClient adds or replaces a relying party registration.
func (s *Store) RegisterClient(client *Client) {
	if client.CreatedAt == 0 {
		client.CreatedAt = time.Now().Unix()
	}

	s.clientsMu.Lock()
	s.clients[client.ID] = client
	s.clientsMu.Unlock()

	s.logger.Info("registered client",
		"client_id", client.ID, "redirect_uris", client.RedirectURIs)
}

// EnsureGrant returns the grant for (client, subject), creating it when
// absent. A second call with the same pair returns the same grant; issued
// codes stay independently valid either way.
func (s *Store) EnsureGrant(_ context.Context, clientID, subject string, scopes []string) (*Grant, error) {
	s.grantsMu.Lock()
	defer s.grantsMu.Unlock()

	for _, grant := range s.grants {
		if grant.ClientID == clientID && grant.Subject == subject {
			return grant, nil
		}
	}

	grant := &Grant{
		ID:        ksuid.New().String(),
		ClientID:  clientID,
		Subject:   subject,
		Scopes:    slices.Clone(scopes),
		CreatedAt: time.Now(),
	}
	s.grants[grant.ID] = grant

	s.logger.Info("created grant",
		"grant_id", grant.ID, "client_id", clientID, "subject", subject)
	return grant, nil
}

// GetGrant looks a grant up by ID.
func (s *Store) GetGrant(_ context.Context, id string) (*Grant, bool) {
	s.grantsMu.RLock()
	defer s.grantsMu.RUnlock()

	grant, ok := s.grants[id]
	return grant, ok
}
