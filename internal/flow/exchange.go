package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// CredentialExchanger turns a token request carrying a DPoP proof (smuggled
// through the optional nonce parameter, since FedCM has no DPoP field) into
// a DPoP-bound access token: it mints short-lived client credentials on the
// account and exchanges them at the engine's token endpoint.
type CredentialExchanger struct {
	http           *http.Client
	credentialsURL string
	tokenURL       string
	logger         *slog.Logger
}

// NewCredentialExchanger wires the exchanger against the engine's account
// credentials API and token endpoint.
func NewCredentialExchanger(credentialsURL, tokenURL string, timeout time.Duration, logger *slog.Logger) *CredentialExchanger {
	client := cleanhttp.DefaultClient()
	client.Timeout = timeout

	return &CredentialExchanger{
		http:           client,
		credentialsURL: credentialsURL,
		tokenURL:       tokenURL,
		logger:         logger.With("component", "flow", "strategy", "credential-exchange"),
	}
}

// Exchange implements the access-token variant. req.Nonce carries the DPoP
// proof the relying party built for the token endpoint; the bridge forwards
// it opaquely.
func (e *CredentialExchanger) Exchange(ctx context.Context, req Request) (string, error) {
	id, secret, err := e.mintCredentials(ctx, req.SessionCookie, req.WebID)
	if err != nil {
		return "", stepErr(StepCredentialExchange, err)
	}

	conf := &clientcredentials.Config{
		ClientID:     id,
		ClientSecret: secret,
		TokenURL:     e.tokenURL,
		Scopes:       []string{"webid"},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	// run the exchange through a transport that attaches the DPoP proof
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{
		Timeout: e.http.Timeout,
		Transport: &headerTransport{
			base:   e.http.Transport,
			header: "DPoP",
			value:  req.Nonce,
		},
	})

	token, err := conf.Token(ctx)
	if err != nil {
		return "", stepErr(StepCredentialExchange, fmt.Errorf("token endpoint exchange: %w", err))
	}

	e.logger.Info("exchanged client credentials for access token",
		"client_id", req.Client.ID, "token_type", token.TokenType)
	return token.AccessToken, nil
}

// mintCredentials asks the account API for a one-off client id/secret bound
// to the WebID. The account session cookie authenticates the call.
func (e *CredentialExchanger) mintCredentials(ctx context.Context, sessionCookie, webID string) (string, string, error) {
	payload, err := json.Marshal(map[string]string{
		"name":  "fedcm-bridge-token",
		"webId": webID,
	})
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.credentialsURL, bytes.NewReader(payload))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "CSS-Account-Token "+sessionCookie)

	resp, err := e.http.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("credentials endpoint call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", "", fmt.Errorf("read credentials response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("credentials endpoint returned %d", resp.StatusCode)
	}

	var creds struct {
		ID     string `json:"id"`
		Secret string `json:"secret"`
	}
	if err := json.Unmarshal(body, &creds); err != nil {
		return "", "", fmt.Errorf("malformed credentials response: %w", err)
	}
	if creds.ID == "" || creds.Secret == "" {
		return "", "", fmt.Errorf("credentials response missing id or secret")
	}
	return creds.ID, creds.Secret, nil
}

// headerTransport adds a fixed header to every outgoing request.
type headerTransport struct {
	base   http.RoundTripper
	header string
	value  string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	cloned.Header.Set(t.header, t.value)

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(cloned)
}
