package flow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Liquid-Surf/fedcm-demo/internal/dpop"
	"github.com/Liquid-Surf/fedcm-demo/internal/oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialExchanger(t *testing.T) {
	ctx := context.Background()

	exchangeRequest := Request{
		WebID:         "https://alice.example/profile#me",
		SessionCookie: "sess-abc",
		Client:        &oidc.Client{ID: "rp-1"},
		Nonce:         "eyJhbGciOiJFUzI1NiJ9.dpop-proof",
	}

	t.Run("mints credentials and exchanges them with the DPoP proof", func(t *testing.T) {
		var tokenCalls int
		mux := http.NewServeMux()
		mux.HandleFunc("POST /credentials", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "CSS-Account-Token sess-abc", r.Header.Get("Authorization"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "fedcm-bridge-token", body["name"])
			assert.Equal(t, "https://alice.example/profile#me", body["webId"])

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"cred-id","secret":"cred-secret"}`))
		})
		mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
			tokenCalls++
			assert.Equal(t, "eyJhbGciOiJFUzI1NiJ9.dpop-proof", r.Header.Get("DPoP"))

			id, secret, ok := r.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "cred-id", id)
			assert.Equal(t, "cred-secret", secret)

			require.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
			assert.Equal(t, "webid", r.PostForm.Get("scope"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"DPoP","expires_in":600}`))
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		exchanger := NewCredentialExchanger(server.URL+"/credentials", server.URL+"/token", 5*time.Second, discardLogger())
		token, err := exchanger.Exchange(ctx, exchangeRequest)
		require.NoError(t, err)
		assert.Equal(t, "at-1", token)
		assert.Equal(t, 1, tokenCalls)
	})

	t.Run("credentials endpoint rejection surfaces as credential-exchange error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "forbidden", http.StatusForbidden)
		}))
		defer server.Close()

		exchanger := NewCredentialExchanger(server.URL+"/credentials", server.URL+"/token", time.Second, discardLogger())
		_, err := exchanger.Exchange(ctx, exchangeRequest)

		var stepError *StepError
		require.ErrorAs(t, err, &stepError)
		assert.Equal(t, StepCredentialExchange, stepError.Step)
		assert.ErrorContains(t, err, "returned 403")
	})

	t.Run("incomplete credentials response is rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"cred-id"}`))
		}))
		defer server.Close()

		exchanger := NewCredentialExchanger(server.URL+"/credentials", server.URL+"/token", time.Second, discardLogger())
		_, err := exchanger.Exchange(ctx, exchangeRequest)
		require.ErrorContains(t, err, "missing id or secret")
	})

	t.Run("token endpoint failure surfaces as credential-exchange error", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("POST /credentials", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"cred-id","secret":"cred-secret"}`))
		})
		mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		exchanger := NewCredentialExchanger(server.URL+"/credentials", server.URL+"/token", time.Second, discardLogger())
		_, err := exchanger.Exchange(ctx, exchangeRequest)

		var stepError *StepError
		require.ErrorAs(t, err, &stepError)
		assert.Equal(t, StepCredentialExchange, stepError.Step)
		assert.ErrorContains(t, err, "token endpoint exchange")
	})
}

func TestOrchestratorDPoPDispatch(t *testing.T) {
	key, err := dpop.GenerateKey()
	require.NoError(t, err)

	var forwardedProof string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/credentials":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"cred-id","secret":"cred-secret"}`))
		case "/token":
			forwardedProof = r.Header.Get("DPoP")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"at-2","token_type":"DPoP"}`))
		}
	}))
	defer server.Close()

	exchanger := NewCredentialExchanger(server.URL+"/credentials", server.URL+"/token", time.Second, discardLogger())

	t.Run("a valid proof in the nonce takes the exchange path", func(t *testing.T) {
		proof, err := dpop.New(http.MethodPost, server.URL+"/token", key)
		require.NoError(t, err)

		orch := NewOrchestrator(&failingIssuer{}, exchanger, discardLogger())
		result, err := orch.Issue(context.Background(), Request{
			WebID:  "https://alice.example/profile#me",
			Client: &oidc.Client{ID: "rp-1"},
			Nonce:  string(proof),
		})
		require.NoError(t, err)
		assert.Equal(t, "at-2", result.Token)
		assert.Equal(t, string(proof), forwardedProof)
	})

	t.Run("an opaque nonce stays on the code path", func(t *testing.T) {
		engine := &fakeEngine{}
		orch := NewOrchestrator(NewDirectMinter(engine, "https://idp.example", discardLogger()), exchanger, discardLogger())

		_, err := orch.Issue(context.Background(), Request{
			WebID:  "https://alice.example/profile#me",
			Client: &oidc.Client{ID: "rp-1"},
			Nonce:  "plain-random-nonce",
		})
		require.NoError(t, err)
		require.Len(t, engine.minted, 1)
		assert.Equal(t, "plain-random-nonce", engine.minted[0].Nonce)
	})
}

// failingIssuer trips the test if the orchestrator falls through to code
// issuance when an exchange was expected.
type failingIssuer struct{}

func (f *failingIssuer) IssueCode(context.Context, Request) (Result, error) {
	return Result{}, assert.AnError
}
