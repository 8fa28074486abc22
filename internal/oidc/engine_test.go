package oidc

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Liquid-Surf/fedcm-demo/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T) (*FositeEngine, *Store) {
	t.Helper()

	store := NewStore(discardLogger())
	store.RegisterClient(&Client{
		ID:           "rp-1",
		RedirectURIs: []string{"https://rp.example/"},
		Scopes:       config.GrantScopes,
		Public:       true,
	})

	provider, err := NewProvider(ProviderConfig{
		Issuer:   "https://idp.example",
		TokenURL: "https://idp.example/.oidc/token",
	}, store, []byte(strings.Repeat("s", 32)))
	require.NoError(t, err)

	return NewFositeEngine(provider, store, time.Hour, discardLogger()), store
}

func mintRequest(grantID string) CodeRequest {
	return CodeRequest{
		ClientID:      "rp-1",
		RedirectURI:   "https://rp.example/",
		Subject:       "https://alice.example/profile#me",
		GrantID:       grantID,
		State:         "state-with-entropy-123",
		PKCEChallenge: strings.Repeat("c", 43),
		PKCEMethod:    "S256",
		Scopes:        config.GrantScopes,
		Audience:      []string{"https://idp.example"},
	}
}

func TestNewProvider(t *testing.T) {
	t.Run("short jwt secret rejected", func(t *testing.T) {
		store := NewStore(discardLogger())
		_, err := NewProvider(ProviderConfig{Issuer: "https://idp.example"}, store, []byte("short"))
		assert.ErrorContains(t, err, "at least 32 bytes")
	})
}

func TestMintAuthorizationCode(t *testing.T) {
	ctx := context.Background()

	t.Run("code is bound to subject, grant, and scopes", func(t *testing.T) {
		engine, store := newTestEngine(t)
		grant, err := store.EnsureGrant(ctx, "rp-1", "https://alice.example/profile#me", config.GrantScopes)
		require.NoError(t, err)

		code, err := engine.MintAuthorizationCode(ctx, mintRequest(grant.ID))
		require.NoError(t, err)
		require.NotEmpty(t, code)

		session, scopes, err := engine.IntrospectCode(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, "https://alice.example/profile#me", session.WebID)
		assert.Equal(t, "https://alice.example/profile#me", session.Subject)
		assert.Equal(t, grant.ID, session.GrantID)
		assert.Contains(t, scopes, "webid")
		assert.Contains(t, scopes, "openid")
	})

	t.Run("unknown client rejected before issuance", func(t *testing.T) {
		engine, _ := newTestEngine(t)
		req := mintRequest("g1")
		req.ClientID = "rp-unknown"

		_, err := engine.MintAuthorizationCode(ctx, req)
		assert.ErrorContains(t, err, "rejected by engine")
	})

	t.Run("unregistered redirect uri rejected", func(t *testing.T) {
		engine, _ := newTestEngine(t)
		req := mintRequest("g1")
		req.RedirectURI = "https://evil.example/"

		_, err := engine.MintAuthorizationCode(ctx, req)
		assert.Error(t, err)
	})

	t.Run("missing pkce challenge rejected for public client", func(t *testing.T) {
		engine, _ := newTestEngine(t)
		req := mintRequest("g1")
		req.PKCEChallenge = ""

		_, err := engine.MintAuthorizationCode(ctx, req)
		assert.Error(t, err)
	})

	t.Run("repeated mints produce distinct independent codes", func(t *testing.T) {
		engine, store := newTestEngine(t)
		grant, err := store.EnsureGrant(ctx, "rp-1", "https://alice.example/profile#me", config.GrantScopes)
		require.NoError(t, err)

		code1, err := engine.MintAuthorizationCode(ctx, mintRequest(grant.ID))
		require.NoError(t, err)
		code2, err := engine.MintAuthorizationCode(ctx, mintRequest(grant.ID))
		require.NoError(t, err)

		assert.NotEqual(t, code1, code2)

		_, _, err = engine.IntrospectCode(ctx, code1)
		assert.NoError(t, err)
		_, _, err = engine.IntrospectCode(ctx, code2)
		assert.NoError(t, err)
	})
}

func TestEnsureGrant(t *testing.T) {
	ctx := context.Background()
	store := NewStore(discardLogger())

	first, err := store.EnsureGrant(ctx, "rp-1", "https://alice.example/profile#me", config.GrantScopes)
	require.NoError(t, err)

	again, err := store.EnsureGrant(ctx, "rp-1", "https://alice.example/profile#me", config.GrantScopes)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "same (client, subject) pair reuses the grant")

	other, err := store.EnsureGrant(ctx, "rp-2", "https://alice.example/profile#me", config.GrantScopes)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	got, ok := store.GetGrant(ctx, first.ID)
	require.True(t, ok)
	assert.Equal(t, "rp-1", got.ClientID)
}
