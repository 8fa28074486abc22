package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Liquid-Surf/fedcm-demo/internal/config"
	"github.com/Liquid-Surf/fedcm-demo/internal/oidc"
)

// DirectMinter is the preferred strategy: it asks the engine for a grant and
// an authorization code directly, with no internal HTTP hops.
type DirectMinter struct {
	engine oidc.Engine
	// resource granted as audience so later token exchange yields a signed
	// access token instead of an opaque one
	resource string
	logger   *slog.Logger
}

var _ Issuer = (*DirectMinter)(nil)

// NewDirectMinter wires the strategy against the engine handle.
func NewDirectMinter(engine oidc.Engine, resource string, logger *slog.Logger) *DirectMinter {
	return &DirectMinter{
		engine:   engine,
		resource: resource,
		logger:   logger.With("component", "flow", "strategy", "direct"),
	}
}

// IssueCode implements Issuer.
func (m *DirectMinter) IssueCode(ctx context.Context, req Request) (Result, error) {
	grant, err := m.engine.EnsureGrant(ctx, req.Client.ID, req.WebID, config.GrantScopes)
	if err != nil {
		return Result{}, fmt.Errorf("ensure grant for client %s: %w", req.Client.ID, err)
	}

	code, err := m.engine.MintAuthorizationCode(ctx, oidc.CodeRequest{
		ClientID:      req.Client.ID,
		RedirectURI:   req.RedirectURI,
		Subject:       req.WebID,
		GrantID:       grant.ID,
		State:         req.State,
		Nonce:         req.Nonce,
		PKCEChallenge: req.PKCEChallenge,
		PKCEMethod:    req.PKCEMethod,
		Scopes:        config.GrantScopes,
		Audience:      []string{m.resource},
	})
	if err != nil {
		return Result{}, err
	}

	m.logger.Info("issued authorization code",
		"client_id", req.Client.ID, "grant_id", grant.ID)
	return Result{Token: code}, nil
}
