package fedcm

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Liquid-Surf/fedcm-demo/internal/oidc"
)

var (
	// ErrClientNotFound means the client_id has no registration.
	ErrClientNotFound = errors.New("unknown client_id")
	// ErrNoRedirectURIs means the registration declares no redirect URI.
	// That is a registration misconfiguration, not a caller mistake.
	ErrNoRedirectURIs = errors.New("client registration declares no redirect URI")
	// ErrOriginMismatch means the request origin matches none of the
	// registered redirect URIs.
	ErrOriginMismatch = errors.New("origin does not match any registered redirect URI")
)

// ClientSource looks relying-party registrations up by client id.
type ClientSource interface {
	Client(ctx context.Context, clientID string) (*oidc.Client, error)
}

// Validator binds a token request's Origin header to the requesting client's
// registration. FedCM requests arrive without the redirect-based Referer
// chain a normal OAuth flow relies on, so this check is the sole defense
// against minting a code for an unregistered relying party.
type Validator struct {
	clients ClientSource
	logger  *slog.Logger
}

// NewValidator wires the validator against a client registry.
func NewValidator(clients ClientSource, logger *slog.Logger) *Validator {
	return &Validator{
		clients: clients,
		logger:  logger.With("component", "client-validator"),
	}
}

// Validate fetches the registration for clientID and requires origin to
// equal one of its redirect URIs after trailing-slash normalization.
func (v *Validator) Validate(ctx context.Context, clientID, origin string) (*oidc.Client, error) {
	client, err := v.clients.Client(ctx, clientID)
	if err != nil {
		return nil, ErrClientNotFound
	}
	if len(client.RedirectURIs) == 0 {
		return nil, ErrNoRedirectURIs
	}

	normalized := normalizeOrigin(origin)
	for _, uri := range client.RedirectURIs {
		if normalizeOrigin(uri) == normalized {
			return client, nil
		}
	}

	v.logger.Warn("origin check failed",
		"client_id", clientID, "origin", origin, "redirect_uris", client.RedirectURIs)
	return nil, ErrOriginMismatch
}

// normalizeOrigin strips a single trailing slash so a registered redirect
// URI "https://rp.example/" matches the Origin header "https://rp.example".
func normalizeOrigin(s string) string {
	return strings.TrimSuffix(s, "/")
}
