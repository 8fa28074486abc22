// Package fedcm implements the browser-facing FedCM identity provider
// endpoints: the well-known discovery documents, the accounts listing, and
// the token endpoint that turns a FedCM request into an OIDC authorization
// code or access token.
package fedcm

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Liquid-Surf/fedcm-demo/internal/accounts"
	"github.com/Liquid-Surf/fedcm-demo/internal/config"
	"github.com/Liquid-Surf/fedcm-demo/internal/flow"
	"github.com/Liquid-Surf/fedcm-demo/internal/json"
)

// Well-known paths served by the dispatcher.
const (
	PathWebIdentity    = "/.well-known/web-identity"
	PathConfig         = "/.well-known/fedcm/fedcm.json"
	PathAccounts       = "/.well-known/fedcm/accounts_endpoint"
	PathClientMetadata = "/.well-known/fedcm/client_metadata_endpoint"
	PathToken          = "/.well-known/fedcm/token"
	PathDisconnect     = "/.well-known/fedcm/disconnect"
)

// Handler dispatches the FedCM endpoints. It holds no per-request state;
// everything mutable lives in the stores and the engine.
type Handler struct {
	cfg          *config.Config
	resolver     *accounts.Resolver
	validator    *Validator
	orchestrator *flow.Orchestrator
	logger       *slog.Logger
}

// NewHandler wires the dispatcher.
func NewHandler(cfg *config.Config, resolver *accounts.Resolver, validator *Validator, orchestrator *flow.Orchestrator, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:          cfg,
		resolver:     resolver,
		validator:    validator,
		orchestrator: orchestrator,
		logger:       logger.With("component", "fedcm"),
	}
}

// Routes returns the handler with the fetch-metadata guard applied to every
// path, including unmatched ones.
func (h *Handler) Routes() http.Handler {
	return RequireWebIdentity(h.logger, http.HandlerFunc(h.dispatch))
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, PathWebIdentity):
		h.handleWebIdentity(w, r)
	case strings.HasPrefix(r.URL.Path, PathConfig):
		h.handleConfig(w, r)
	case strings.HasPrefix(r.URL.Path, PathAccounts):
		h.handleAccounts(w, r)
	case strings.HasPrefix(r.URL.Path, PathClientMetadata):
		h.handleClientMetadata(w, r)
	case strings.HasPrefix(r.URL.Path, PathToken):
		h.handleToken(w, r)
	case strings.HasPrefix(r.URL.Path, PathDisconnect):
		// deliberate not-implemented, never a silent success
		json.WriteNotImplemented(w, "disconnect is not implemented")
	default:
		// diagnostic, not a security boundary: the router should never
		// send anything else here
		json.WriteInternalServerError(w, fmt.Sprintf("no FedCM handler for path %s", r.URL.Path))
	}
}

// writeResolveError maps the account resolver's error ladder onto protocol
// statuses. Identity misconfigurations are server errors; a missing or stale
// cookie is the caller's to fix.
func (h *Handler) writeResolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, accounts.ErrNoSessionCookie):
		json.WriteUnauthorized(w, fmt.Sprintf("missing %q session cookie", h.cfg.Server.SessionCookie))
	case errors.Is(err, accounts.ErrUnknownCookie):
		json.WriteBadRequest(w, "no account matches the given session cookie")
	case errors.Is(err, accounts.ErrNoWebID):
		json.WriteInternalServerError(w, "account has no linked identity")
	case errors.Is(err, accounts.ErrMultipleWebIDs):
		json.WriteInternalServerError(w, "accounts with multiple WebIDs are unsupported")
	default:
		h.logger.Error("account resolution failed", "error", err)
		json.WriteInternalServerError(w, "account resolution failed")
	}
}
