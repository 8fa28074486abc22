package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Liquid-Surf/fedcm-demo/internal/accounts"
	"github.com/Liquid-Surf/fedcm-demo/internal/config"
	"github.com/Liquid-Surf/fedcm-demo/internal/cookie"
	"github.com/hashicorp/go-cleanhttp"
)

// ReplayEndpoints are the engine-internal URLs the replay pipeline calls.
type ReplayEndpoints struct {
	AuthorizeURL string
	PickWebIDURL string
	ConsentURL   string
}

// Replayer is the fallback strategy for engines without direct minting
// primitives: it reconstructs the redirect chain a browser would have
// walked, as a strictly sequential pipeline of internal HTTP calls. Every
// step takes the cookie jar accumulated so far and returns the next one;
// no step shares mutable state with another, so concurrent token requests
// never contend.
type Replayer struct {
	http          *http.Client
	endpoints     ReplayEndpoints
	cookies       accounts.CookieStore
	sessionCookie string
	logger        *slog.Logger
}

var _ Issuer = (*Replayer)(nil)

// NewReplayer builds the pipeline. timeout bounds every internal call; an
// engine that hangs must surface as an error, never strand the browser's
// FedCM prompt.
func NewReplayer(endpoints ReplayEndpoints, cookies accounts.CookieStore, sessionCookie string, timeout time.Duration, logger *slog.Logger) *Replayer {
	client := cleanhttp.DefaultClient()
	client.Timeout = timeout
	// redirects carry the authorization state; every hop is followed by
	// hand with the right jar
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Replayer{
		http:          client,
		endpoints:     endpoints,
		cookies:       cookies,
		sessionCookie: sessionCookie,
		logger:        logger.With("component", "flow", "strategy", "replay"),
	}
}

// IssueCode implements Issuer.
func (r *Replayer) IssueCode(ctx context.Context, req Request) (Result, error) {
	jar := cookie.NewJar()

	jar, interactionURL, err := r.initiateInteraction(ctx, req, jar)
	if err != nil {
		return Result{}, stepErr(StepInitiateInteraction, err)
	}

	jar, err = r.resolveInteraction(ctx, interactionURL, jar)
	if err != nil {
		return Result{}, stepErr(StepResolveInteraction, err)
	}

	jar, err = r.refreshSession(ctx, req.AccountID, jar)
	if err != nil {
		return Result{}, stepErr(StepSessionRefresh, err)
	}

	jar, location, err := r.selectSubject(ctx, interactionURL, jar)
	if err != nil {
		return Result{}, stepErr(StepPickIdentity, err)
	}

	_, finalURL, err := r.consent(ctx, location, jar)
	if err != nil {
		return Result{}, stepErr(StepConsent, err)
	}

	code, err := extractCode(finalURL)
	if err != nil {
		return Result{}, stepErr(StepExtractCode, err)
	}

	r.logger.Info("replayed interaction to completion",
		"client_id", req.Client.ID, "code_length", len(code))
	return Result{Token: finalURL}, nil
}

// initiateInteraction starts an authorization request without following the
// resulting redirect, capturing the engine's interaction cookies and the
// interaction URL.
func (r *Replayer) initiateInteraction(ctx context.Context, req Request, jar cookie.Jar) (cookie.Jar, string, error) {
	params := url.Values{
		"client_id":             {req.Client.ID},
		"redirect_uri":          {req.RedirectURI},
		"response_type":         {"code"},
		"scope":                 {strings.Join(config.GrantScopes, " ")},
		"state":                 {req.State},
		"code_challenge":        {req.PKCEChallenge},
		"code_challenge_method": {pkceMethod(req.PKCEMethod)},
		"bypass_consent":        {"true"},
	}

	res, jar, err := r.do(ctx, http.MethodGet, r.endpoints.AuthorizeURL+"?"+params.Encode(), nil, jar)
	if err != nil {
		return jar, "", err
	}
	if res.status < 300 || res.status >= 400 {
		return jar, "", fmt.Errorf("authorize endpoint returned %d, expected a redirect", res.status)
	}

	location, err := res.resolveLocation()
	if err != nil {
		return jar, "", err
	}
	return jar, location, nil
}

// resolveInteraction loads the pending interaction with the captured
// cookies, so the engine associates the rest of the pipeline with it.
func (r *Replayer) resolveInteraction(ctx context.Context, interactionURL string, jar cookie.Jar) (cookie.Jar, error) {
	res, jar, err := r.do(ctx, http.MethodGet, interactionURL, nil, jar)
	if err != nil {
		return jar, err
	}
	if res.status >= 400 {
		return jar, fmt.Errorf("interaction endpoint returned %d", res.status)
	}
	return jar, nil
}

// refreshSession issues a fresh account session cookie mid-flight so the
// engine's policy checks observe a current authentication.
func (r *Replayer) refreshSession(ctx context.Context, accountID string, jar cookie.Jar) (cookie.Jar, error) {
	value, err := r.cookies.Generate(ctx, accountID)
	if err != nil {
		return jar, fmt.Errorf("generate session cookie: %w", err)
	}
	return jar.With(&http.Cookie{Name: r.sessionCookie, Value: value, Path: "/"}), nil
}

// selectSubject fetches the account's selectable WebIDs, records the first
// one (forgetting any previous choice), and finishes the interaction with a
// login result binding it as the OIDC subject.
func (r *Replayer) selectSubject(ctx context.Context, interactionURL string, jar cookie.Jar) (cookie.Jar, string, error) {
	res, jar, err := r.do(ctx, http.MethodGet, r.endpoints.PickWebIDURL, nil, jar)
	if err != nil {
		return jar, "", err
	}
	if res.status != http.StatusOK {
		return jar, "", fmt.Errorf("webid listing returned %d", res.status)
	}

	var listing struct {
		WebIDs []string `json:"webIds"`
	}
	if err := json.Unmarshal(res.body, &listing); err != nil {
		return jar, "", fmt.Errorf("malformed webid listing: %w", err)
	}
	if len(listing.WebIDs) == 0 {
		return jar, "", fmt.Errorf("account has no selectable WebID")
	}
	webID := listing.WebIDs[0]

	res, jar, err = r.do(ctx, http.MethodPost, r.endpoints.PickWebIDURL, map[string]any{
		"webId":    webID,
		"remember": false,
	}, jar)
	if err != nil {
		return jar, "", err
	}
	if res.status >= 400 {
		return jar, "", fmt.Errorf("webid selection returned %d", res.status)
	}

	res, jar, err = r.do(ctx, http.MethodPost, interactionURL+"/login", map[string]any{
		"webId": webID,
	}, jar)
	if err != nil {
		return jar, "", err
	}
	if res.status < 300 || res.status >= 400 {
		return jar, "", fmt.Errorf("interaction login returned %d, expected a redirect", res.status)
	}

	location, err := res.resolveLocation()
	if err != nil {
		return jar, "", err
	}
	return jar, location, nil
}

// consent follows the post-login redirect, confirms consent with
// remember=true, and follows the second redirect to the final redirect URL
// carrying the authorization code.
func (r *Replayer) consent(ctx context.Context, location string, jar cookie.Jar) (cookie.Jar, string, error) {
	res, jar, err := r.do(ctx, http.MethodGet, location, nil, jar)
	if err != nil {
		return jar, "", err
	}
	if res.status >= 400 {
		return jar, "", fmt.Errorf("post-login redirect returned %d", res.status)
	}

	res, jar, err = r.do(ctx, http.MethodPost, r.endpoints.ConsentURL, map[string]any{
		"remember": true,
	}, jar)
	if err != nil {
		return jar, "", err
	}
	if res.status < 300 || res.status >= 400 {
		return jar, "", fmt.Errorf("consent endpoint returned %d, expected a redirect", res.status)
	}

	next, err := res.resolveLocation()
	if err != nil {
		return jar, "", err
	}

	res, jar, err = r.do(ctx, http.MethodGet, next, nil, jar)
	if err != nil {
		return jar, "", err
	}
	if res.status < 300 || res.status >= 400 {
		return jar, "", fmt.Errorf("consent follow-up returned %d, expected the final redirect", res.status)
	}

	finalURL, err := res.resolveLocation()
	if err != nil {
		return jar, "", err
	}
	return jar, finalURL, nil
}

func extractCode(redirectURL string) (string, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return "", fmt.Errorf("malformed final redirect %q: %w", redirectURL, err)
	}
	code := u.Query().Get("code")
	if code == "" {
		return "", fmt.Errorf("final redirect %q carries no authorization code", redirectURL)
	}
	return code, nil
}

type httpResult struct {
	status     int
	header     http.Header
	body       []byte
	requestURL *url.URL
}

// resolveLocation resolves the Location header against the request URL, so
// relative interaction paths become absolute internal URLs.
func (res *httpResult) resolveLocation() (string, error) {
	location := res.header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("response had no Location header")
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("malformed Location %q: %w", location, err)
	}
	return res.requestURL.ResolveReference(ref).String(), nil
}

// do performs one internal call with the given jar and returns the response
// plus the jar extended with any cookies the engine set.
func (r *Replayer) do(ctx context.Context, method, rawURL string, payload any, jar cookie.Jar) (*httpResult, cookie.Jar, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, jar, err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, jar, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	jar.Apply(req)

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, jar, fmt.Errorf("internal call %s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, jar, fmt.Errorf("read internal response from %s: %w", rawURL, err)
	}

	return &httpResult{
		status:     resp.StatusCode,
		header:     resp.Header,
		body:       data,
		requestURL: resp.Request.URL,
	}, jar.Merge(resp), nil
}

func pkceMethod(method string) string {
	if method == "" {
		return "S256"
	}
	return method
}
