// Package oidc embeds the OIDC engine the bridge mints codes against. The
// bridge consumes it only through the Engine interface; everything else here
// is engine plumbing.
package oidc

import (
	"fmt"
	"time"

	"github.com/ory/fosite"
	"github.com/ory/fosite/compose"
)

// ProviderConfig carries the knobs the engine needs from the bridge config.
type ProviderConfig struct {
	Issuer   string
	TokenURL string
	// DevMode relaxes state entropy checks for local relying parties.
	DevMode bool

	AccessTokenTTL time.Duration
	CodeLifespan   time.Duration
}

// NewProvider composes the fosite OAuth2 provider. Code lifetime and signing
// live entirely here; the bridge never sets them per request.
func NewProvider(cfg ProviderConfig, store *Store, jwtSecret []byte) (fosite.OAuth2Provider, error) {
	if len(jwtSecret) < 32 {
		return nil, fmt.Errorf("JWT secret must be at least 32 bytes long for security, got %d bytes", len(jwtSecret))
	}

	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = time.Hour
	}
	if cfg.CodeLifespan == 0 {
		cfg.CodeLifespan = 10 * time.Minute
	}

	minEntropy := 8
	if cfg.DevMode {
		minEntropy = 0
	}

	fositeConfig := &compose.Config{
		AccessTokenLifespan:            cfg.AccessTokenTTL,
		RefreshTokenLifespan:           cfg.AccessTokenTTL * 2,
		AuthorizeCodeLifespan:          cfg.CodeLifespan,
		TokenURL:                       cfg.TokenURL,
		ScopeStrategy:                  fosite.HierarchicScopeStrategy,
		AudienceMatchingStrategy:       fosite.DefaultAudienceMatchingStrategy,
		EnforcePKCEForPublicClients:    true,
		EnablePKCEPlainChallengeMethod: false,
		MinParameterEntropy:            minEntropy,
	}

	provider := compose.Compose(
		fositeConfig,
		store,
		&compose.CommonStrategy{
			CoreStrategy: compose.NewOAuth2HMACStrategy(fositeConfig, jwtSecret, nil),
		},
		nil, // hasher
		compose.OAuth2AuthorizeExplicitFactory,
		compose.OAuth2ClientCredentialsGrantFactory,
		compose.OAuth2PKCEFactory,
		compose.OAuth2RefreshTokenGrantFactory,
		compose.OAuth2TokenIntrospectionFactory,
	)

	return provider, nil
}
