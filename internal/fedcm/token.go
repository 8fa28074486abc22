package fedcm

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Liquid-Surf/fedcm-demo/internal/cookie"
	"github.com/Liquid-Surf/fedcm-demo/internal/flow"
	jsonw "github.com/Liquid-Surf/fedcm-demo/internal/json"
)

// tokenParams is the JSON the relying party passes through the FedCM
// params field; the browser forwards it opaquely.
type tokenParams struct {
	CodeChallenge       string `json:"code_challenge"`
	CodeChallengeMethod string `json:"code_challenge_method"`
	State               string `json:"state"`
	Nonce               string `json:"nonce"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// handleToken is the id_assertion_endpoint: it validates every precondition,
// then asks the orchestrator for an authorization code (or, when the request
// smuggles a DPoP proof through the nonce, an access token). Validation
// failures return before any grant or code is created.
func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		jsonw.WriteBadRequest(w, "malformed request body")
		return
	}

	clientID := r.PostFormValue("client_id")
	if clientID == "" {
		jsonw.WriteBadRequest(w, "client_id missing from the request body")
		return
	}

	var params tokenParams
	if raw := r.PostFormValue("params"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			jsonw.WriteBadRequest(w, "params is not valid JSON")
			return
		}
	}
	if params.Nonce == "" {
		// FedCM has no DPoP field; relying parties that want a bound
		// access token smuggle the proof through the top-level nonce
		params.Nonce = r.PostFormValue("nonce")
	}

	identity, err := h.resolver.Resolve(r.Context(), r)
	if err != nil {
		h.writeResolveError(w, err)
		return
	}

	reqAccountID := r.PostFormValue("account_id")
	if reqAccountID == "" {
		jsonw.WriteBadRequest(w, "account_id missing from the request body")
		return
	}
	if reqAccountID != identity.AccountID {
		// a compromised page script could slip a foreign account_id into
		// the POST body; the session cookie is authoritative
		h.logger.Warn("account_id mismatch",
			"client_id", clientID, "body_account_id", reqAccountID, "cookie_account_id", identity.AccountID)
		jsonw.WriteBadRequest(w, "account_id does not match the account bound to the session cookie")
		return
	}

	client, err := h.validator.Validate(r.Context(), clientID, r.Header.Get("Origin"))
	if err != nil {
		switch {
		case errors.Is(err, ErrClientNotFound):
			jsonw.WriteBadRequest(w, "unknown client_id")
		case errors.Is(err, ErrNoRedirectURIs):
			jsonw.WriteInternalServerError(w, "client registration declares no redirect URI")
		case errors.Is(err, ErrOriginMismatch):
			jsonw.WriteBadRequest(w, "request origin does not match the redirect URI registered for this client")
		default:
			h.logger.Error("client validation failed", "client_id", clientID, "error", err)
			jsonw.WriteInternalServerError(w, "client validation failed")
		}
		return
	}

	// resolution already proved the cookie is present
	sessionCookie, _ := cookie.Get(r, h.cfg.Server.SessionCookie)

	result, err := h.orchestrator.Issue(r.Context(), flow.Request{
		AccountID:     identity.AccountID,
		WebID:         identity.WebID,
		SessionCookie: sessionCookie,
		Client:        client,
		RedirectURI:   client.RedirectURIs[0],
		PKCEChallenge: params.CodeChallenge,
		PKCEMethod:    params.CodeChallengeMethod,
		State:         params.State,
		Nonce:         params.Nonce,
	})
	if err != nil {
		var stepError *flow.StepError
		if errors.As(err, &stepError) {
			h.logger.Error("authorization flow failed",
				"client_id", clientID, "step", stepError.Step, "error", stepError.Err)
		} else {
			h.logger.Error("authorization flow failed", "client_id", clientID, "error", err)
		}
		jsonw.WriteInternalServerError(w, "authorization flow failed")
		return
	}

	_ = jsonw.Write(w, tokenResponse{Token: result.Token})
}
