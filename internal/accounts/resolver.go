package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
)

// Identity is a resolved (account, WebID) pair.
type Identity struct {
	AccountID string
	WebID     string
}

// Resolver turns an inbound request's session cookie into an Identity.
// All lookups are read-only.
type Resolver struct {
	cookieName string
	cookies    CookieStore
	webIDs     WebIDStore
	logger     *slog.Logger
}

// NewResolver wires a resolver for the named session cookie.
func NewResolver(cookieName string, cookies CookieStore, webIDs WebIDStore, logger *slog.Logger) *Resolver {
	return &Resolver{
		cookieName: cookieName,
		cookies:    cookies,
		webIDs:     webIDs,
		logger:     logger.With("component", "accounts"),
	}
}

// Resolve maps the request's session cookie to an account and its single
// WebID. Error ladder: no cookie -> ErrNoSessionCookie (401), unknown cookie
// -> ErrUnknownCookie (400), zero links -> ErrNoWebID (500), multiple links
// -> ErrMultipleWebIDs (500).
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (Identity, error) {
	c, err := req.Cookie(r.cookieName)
	if err != nil {
		return Identity{}, ErrNoSessionCookie
	}

	accountID, err := r.cookies.Get(ctx, c.Value)
	if err != nil {
		if err == ErrUnknownCookie {
			return Identity{}, err
		}
		return Identity{}, fmt.Errorf("cookie store lookup: %w", err)
	}

	links, err := r.webIDs.FindLinks(ctx, accountID)
	if err != nil {
		return Identity{}, fmt.Errorf("webid link lookup for account %s: %w", accountID, err)
	}

	switch len(links) {
	case 0:
		return Identity{}, ErrNoWebID
	case 1:
		return Identity{AccountID: accountID, WebID: links[0].WebID}, nil
	default:
		r.logger.Error("refusing ambiguous account identity",
			"account_id", accountID, "webid_links", len(links))
		return Identity{}, ErrMultipleWebIDs
	}
}
