// Package accounts maps the host account system's session cookies to account
// identifiers and WebIDs. The host account namespace and the OIDC subject
// namespace (WebIDs) are distinct; Resolver is the only translation point
// between them.
package accounts

import (
	"context"
	"errors"
)

var (
	// ErrNoSessionCookie means the request carried no session cookie at all.
	ErrNoSessionCookie = errors.New("no account session cookie in request")
	// ErrUnknownCookie means the cookie value maps to no account.
	ErrUnknownCookie = errors.New("no account for session cookie")
	// ErrNoWebID means the account has no linked WebID.
	ErrNoWebID = errors.New("account has no linked WebID")
	// ErrMultipleWebIDs means the account links more than one WebID. The
	// bridge refuses ambiguous identity instead of picking the first link.
	ErrMultipleWebIDs = errors.New("multi-WebID accounts are unsupported")
)

// Link associates an account with one WebID.
type Link struct {
	AccountID string `json:"account_id" firestore:"account_id"`
	WebID     string `json:"web_id" firestore:"web_id"`
}

// CookieStore maps opaque session cookie values to account identifiers.
// Generate issues a fresh cookie for an account; the replay pipeline uses it
// to re-authenticate an interaction mid-flight.
type CookieStore interface {
	Get(ctx context.Context, cookie string) (string, error)
	Generate(ctx context.Context, accountID string) (string, error)
}

// WebIDStore lists the WebIDs linked to an account.
type WebIDStore interface {
	FindLinks(ctx context.Context, accountID string) ([]Link, error)
}
