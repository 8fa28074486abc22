// Package cookie handles the account session cookie on inbound FedCM
// requests and the cookie jar threaded through the interaction replay
// pipeline. The bridge never mutates the host's session cookie; it only reads
// it, and issues fresh ones through the account store.
package cookie

import "net/http"

// DefaultSessionCookie is the account session cookie name used when the
// config does not override it.
const DefaultSessionCookie = "css-account"

// Get retrieves a cookie value from the request.
func Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}
