// Package flow orchestrates authorization issuance for the FedCM token
// endpoint: direct minting against the embedded engine, interaction replay
// over internal HTTP calls, or a DPoP-bound client-credentials exchange.
//
// Nothing here retries. A failed issuance is surfaced to the caller, who
// triggers a fresh browser-side FedCM attempt; residue from an aborted
// attempt (grants, codes, half-finished interactions) is left in place and a
// later attempt simply mints anew.
package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Liquid-Surf/fedcm-demo/internal/dpop"
	"github.com/Liquid-Surf/fedcm-demo/internal/oidc"
)

// Request carries everything the orchestrator needs about one token request.
// All identity checks have already happened by the time a Request is built.
type Request struct {
	AccountID     string
	WebID         string
	SessionCookie string
	Client        *oidc.Client
	RedirectURI   string
	PKCEChallenge string
	PKCEMethod    string
	State         string
	Nonce         string
}

// Result is the payload value returned to the browser as {"token": ...}:
// an authorization code, a redirect URL embedding one, or an access token.
type Result struct {
	Token string
}

// Issuer produces an authorization code for a request.
type Issuer interface {
	IssueCode(ctx context.Context, req Request) (Result, error)
}

// Step names used in orchestration errors so operators can tell which
// internal endpoint contract broke.
const (
	StepInitiateInteraction = "interaction-initiation"
	StepResolveInteraction  = "resolve-interaction"
	StepSessionRefresh      = "session-refresh"
	StepPickIdentity        = "pick-identity"
	StepConsent             = "consent"
	StepExtractCode         = "extract-code"
	StepCredentialExchange  = "credential-exchange"
)

// StepError identifies which orchestration step failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

func stepErr(step string, err error) *StepError {
	return &StepError{Step: step, Err: err}
}

// Orchestrator fronts the configured issuance paths. When a credential
// exchanger is configured and the optional nonce parameter carries a valid
// DPoP proof, the response carries an access token instead of a code;
// otherwise the nonce stays an opaque pass-through and the configured code
// issuer runs.
type Orchestrator struct {
	issuer    Issuer
	exchanger *CredentialExchanger
	logger    *slog.Logger
}

// NewOrchestrator wires the dispatch. exchanger may be nil.
func NewOrchestrator(issuer Issuer, exchanger *CredentialExchanger, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		issuer:    issuer,
		exchanger: exchanger,
		logger:    logger.With("component", "flow"),
	}
}

// Issue produces the token payload for a validated request.
func (o *Orchestrator) Issue(ctx context.Context, req Request) (Result, error) {
	if req.Nonce != "" && o.exchanger != nil {
		if proof, err := dpop.Parse([]byte(req.Nonce)); err == nil {
			o.logger.Info("nonce carries a DPoP proof, exchanging for an access token",
				"client_id", req.Client.ID, "proof_uri", proof.URI)
			token, err := o.exchanger.Exchange(ctx, req)
			if err != nil {
				return Result{}, err
			}
			return Result{Token: token}, nil
		}
	}
	return o.issuer.IssueCode(ctx, req)
}
