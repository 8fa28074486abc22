package oidc

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ory/fosite"
)

// CodeRequest asks the engine for a single-use authorization code. Subject is
// the WebID; the PKCE values come straight from the FedCM request and bind
// the code to the relying party's verifier.
type CodeRequest struct {
	ClientID      string
	RedirectURI   string
	Subject       string
	GrantID       string
	State         string
	Nonce         string
	PKCEChallenge string
	PKCEMethod    string
	Scopes        []string
	Audience      []string
}

// Engine is the narrow capability surface the bridge consumes. The underlying
// provider stays private to this package.
type Engine interface {
	Client(ctx context.Context, clientID string) (*Client, error)
	EnsureGrant(ctx context.Context, clientID, subject string, scopes []string) (*Grant, error)
	MintAuthorizationCode(ctx context.Context, req CodeRequest) (string, error)
}

// FositeEngine implements Engine on the embedded fosite provider.
type FositeEngine struct {
	provider fosite.OAuth2Provider
	store    *Store
	tokenTTL time.Duration
	logger   *slog.Logger
}

var _ Engine = (*FositeEngine)(nil)

// NewFositeEngine wires the engine handle handed to the bridge.
func NewFositeEngine(provider fosite.OAuth2Provider, store *Store, tokenTTL time.Duration, logger *slog.Logger) *FositeEngine {
	if tokenTTL == 0 {
		tokenTTL = time.Hour
	}
	return &FositeEngine{
		provider: provider,
		store:    store,
		tokenTTL: tokenTTL,
		logger:   logger.With("component", "oidc-engine"),
	}
}

// Client implements Engine.
func (e *FositeEngine) Client(ctx context.Context, clientID string) (*Client, error) {
	return e.store.GetClientWithMetadata(ctx, clientID)
}

// EnsureGrant implements Engine.
func (e *FositeEngine) EnsureGrant(ctx context.Context, clientID, subject string, scopes []string) (*Grant, error) {
	return e.store.EnsureGrant(ctx, clientID, subject, scopes)
}

// MintAuthorizationCode runs a synthetic authorize request through the
// provider, standing in for the redirect-driven login a browser would have
// performed. The request never touches the network.
func (e *FositeEngine) MintAuthorizationCode(ctx context.Context, req CodeRequest) (string, error) {
	form := url.Values{
		"response_type": {"code"},
		"client_id":     {req.ClientID},
		"redirect_uri":  {req.RedirectURI},
		"scope":         {strings.Join(req.Scopes, " ")},
		"state":         {req.State},
	}
	if req.Nonce != "" {
		form.Set("nonce", req.Nonce)
	}
	if req.PKCEChallenge != "" {
		method := req.PKCEMethod
		if method == "" {
			method = "S256"
		}
		form.Set("code_challenge", req.PKCEChallenge)
		form.Set("code_challenge_method", method)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, "/authorize?"+form.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build synthetic authorize request: %w", err)
	}

	ar, err := e.provider.NewAuthorizeRequest(ctx, httpReq)
	if err != nil {
		return "", fmt.Errorf("authorize request rejected by engine: %w", err)
	}

	for _, scope := range ar.GetRequestedScopes() {
		ar.GrantScope(scope)
	}
	for _, audience := range req.Audience {
		ar.GrantAudience(audience)
	}

	session := &Session{
		DefaultSession: &fosite.DefaultSession{
			Subject: req.Subject,
			ExpiresAt: map[fosite.TokenType]time.Time{
				fosite.AccessToken:  time.Now().Add(e.tokenTTL),
				fosite.RefreshToken: time.Now().Add(e.tokenTTL * 2),
			},
		},
		WebID:   req.Subject,
		GrantID: req.GrantID,
	}

	response, err := e.provider.NewAuthorizeResponse(ctx, ar, session)
	if err != nil {
		return "", fmt.Errorf("engine refused to issue code: %w", err)
	}

	code := response.GetParameters().Get("code")
	if code == "" {
		return "", fmt.Errorf("engine returned no authorization code")
	}

	e.logger.Info("minted authorization code",
		"client_id", req.ClientID, "subject", req.Subject, "grant_id", req.GrantID)
	return code, nil
}

// TokenHandler serves the engine's public token endpoint so relying parties
// can exchange the minted code the standard way.
func (e *FositeEngine) TokenHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session := &Session{DefaultSession: &fosite.DefaultSession{}}
	accessRequest, err := e.provider.NewAccessRequest(ctx, r, session)
	if err != nil {
		e.logger.Error("access request rejected", "error", err)
		e.provider.WriteAccessError(w, accessRequest, err)
		return
	}

	response, err := e.provider.NewAccessResponse(ctx, accessRequest)
	if err != nil {
		e.logger.Error("access response failed", "error", err)
		e.provider.WriteAccessError(w, accessRequest, err)
		return
	}

	e.provider.WriteAccessResponse(w, accessRequest, response)
}

// IntrospectCode decodes an issued authorization code back to its session.
// Tests use it to assert what a minted code is bound to.
func (e *FositeEngine) IntrospectCode(ctx context.Context, code string) (*Session, []string, error) {
	session := &Session{DefaultSession: &fosite.DefaultSession{}}
	req, err := e.store.GetAuthorizeCodeSession(ctx, codeSignature(code), session)
	if err != nil {
		return nil, nil, err
	}
	got, ok := req.GetSession().(*Session)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected session type %T", req.GetSession())
	}
	return got, []string(req.GetGrantedScopes()), nil
}

// codeSignature extracts the lookup signature from an HMAC-strategy code of
// the form <random>.<signature>.
func codeSignature(code string) string {
	parts := strings.Split(code, ".")
	return parts[len(parts)-1]
}
