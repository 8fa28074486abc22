package accounts

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func requestWithCookie(name, value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/.well-known/fedcm/accounts_endpoint", nil)
	if name != "" {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	return req
}

func TestResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves single webid account", func(t *testing.T) {
		store := NewMemoryStore()
		accountID := store.CreateAccount("https://alice.example/profile#me")
		store.SetCookie("abc", accountID)

		resolver := NewResolver("css-account", store, store, discardLogger())
		identity, err := resolver.Resolve(ctx, requestWithCookie("css-account", "abc"))
		require.NoError(t, err)
		assert.Equal(t, accountID, identity.AccountID)
		assert.Equal(t, "https://alice.example/profile#me", identity.WebID)
	})

	t.Run("missing cookie", func(t *testing.T) {
		store := NewMemoryStore()
		resolver := NewResolver("css-account", store, store, discardLogger())

		_, err := resolver.Resolve(ctx, requestWithCookie("", ""))
		assert.ErrorIs(t, err, ErrNoSessionCookie)
	})

	t.Run("wrong cookie name", func(t *testing.T) {
		store := NewMemoryStore()
		resolver := NewResolver("css-account", store, store, discardLogger())

		_, err := resolver.Resolve(ctx, requestWithCookie("other-cookie", "abc"))
		assert.ErrorIs(t, err, ErrNoSessionCookie)
	})

	t.Run("unknown cookie value", func(t *testing.T) {
		store := NewMemoryStore()
		resolver := NewResolver("css-account", store, store, discardLogger())

		_, err := resolver.Resolve(ctx, requestWithCookie("css-account", "nope"))
		assert.ErrorIs(t, err, ErrUnknownCookie)
	})

	t.Run("account with no webid", func(t *testing.T) {
		store := NewMemoryStore()
		accountID := store.CreateAccount()
		store.SetCookie("abc", accountID)

		resolver := NewResolver("css-account", store, store, discardLogger())
		_, err := resolver.Resolve(ctx, requestWithCookie("css-account", "abc"))
		assert.ErrorIs(t, err, ErrNoWebID)
	})

	t.Run("multi-webid account refused", func(t *testing.T) {
		store := NewMemoryStore()
		accountID := store.CreateAccount(
			"https://alice.example/profile#me",
			"https://alice.example/work#me",
		)
		store.SetCookie("abc", accountID)

		resolver := NewResolver("css-account", store, store, discardLogger())
		_, err := resolver.Resolve(ctx, requestWithCookie("css-account", "abc"))
		assert.ErrorIs(t, err, ErrMultipleWebIDs)
	})
}

func TestMemoryStoreGenerate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	accountID := store.CreateAccount("https://alice.example/profile#me")

	cookie, err := store.Generate(ctx, accountID)
	require.NoError(t, err)
	require.NotEmpty(t, cookie)

	got, err := store.Get(ctx, cookie)
	require.NoError(t, err)
	assert.Equal(t, accountID, got)

	// a second generated cookie is independent of the first
	cookie2, err := store.Generate(ctx, accountID)
	require.NoError(t, err)
	assert.NotEqual(t, cookie, cookie2)
}
