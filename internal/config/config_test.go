package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
server:
  base_url: https://idp.example
clients:
  - client_id: rp-1
    redirect_uris:
      - https://rp.example/
`

func TestParse(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		cfg, err := Parse([]byte(minimal))
		require.NoError(t, err)

		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, "css-account", cfg.Server.SessionCookie)
		assert.Equal(t, "https://idp.example", cfg.Engine.Issuer)
		assert.Equal(t, StrategyDirect, cfg.Flow.Strategy)
		assert.Equal(t, 10*time.Second, cfg.Flow.InternalTimeout.Std())
		assert.Equal(t, "memory", cfg.Stores.Backend)
		assert.Equal(t, 32, cfg.Branding.IconSize)
	})

	t.Run("config url", func(t *testing.T) {
		cfg, err := Parse([]byte(minimal))
		require.NoError(t, err)
		assert.Equal(t, "https://idp.example/.well-known/fedcm/fedcm.json", cfg.ConfigURL())
	})

	t.Run("missing base_url rejected", func(t *testing.T) {
		_, err := Parse([]byte("server:\n  addr: ':9090'\n"))
		assert.ErrorContains(t, err, "invalid config")
	})

	t.Run("client without redirect uris rejected", func(t *testing.T) {
		_, err := Parse([]byte(`
server:
  base_url: https://idp.example
clients:
  - client_id: rp-1
`))
		assert.ErrorContains(t, err, "invalid config")
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		_, err := Parse([]byte("server:\n  base_url: https://idp.example\n  listne_addr: ':1'\n"))
		assert.ErrorContains(t, err, "parse config")
	})

	t.Run("unknown strategy rejected", func(t *testing.T) {
		_, err := Parse([]byte(minimal + "flow:\n  strategy: hybrid\n"))
		assert.Error(t, err)
	})

	t.Run("excessive internal timeout rejected", func(t *testing.T) {
		_, err := Parse([]byte(minimal + "flow:\n  internal_timeout: 5m\n"))
		assert.ErrorContains(t, err, "internal_timeout")
	})

	t.Run("firestore backend requires project", func(t *testing.T) {
		_, err := Parse([]byte(minimal + "stores:\n  backend: firestore\n"))
		assert.ErrorContains(t, err, "firestore_project")
	})

	t.Run("env expansion", func(t *testing.T) {
		t.Setenv("TEST_JWT_SECRET", "0123456789abcdef0123456789abcdef")
		cfg, err := Parse([]byte(minimal + "engine:\n  jwt_secret: ${TEST_JWT_SECRET}\n"))
		require.NoError(t, err)
		assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.Engine.JWTSecret)
	})
}
