package fedcm

import (
	"net/http"

	"github.com/Liquid-Surf/fedcm-demo/internal/json"
)

type providerList struct {
	ProviderURLs []string `json:"provider_urls"`
}

type providerConfig struct {
	AccountsEndpoint       string   `json:"accounts_endpoint"`
	ClientMetadataEndpoint string   `json:"client_metadata_endpoint"`
	IDAssertionEndpoint    string   `json:"id_assertion_endpoint"`
	DisconnectEndpoint     string   `json:"disconnect_endpoint"`
	RevocationEndpoint     string   `json:"revocation_endpoint"`
	LoginURL               string   `json:"login_url"`
	Branding               branding `json:"branding"`
}

type branding struct {
	BackgroundColor string `json:"background_color"`
	Color           string `json:"color"`
	Context         string `json:"context"`
	Icons           []icon `json:"icons"`
}

type icon struct {
	URL  string `json:"url"`
	Size int    `json:"size"`
}

type clientMetadata struct {
	PrivacyPolicyURL  string `json:"privacy_policy_url"`
	TermsOfServiceURL string `json:"terms_of_service_url"`
}

// handleWebIdentity serves the provider list the browser fetches to discover
// the IdP configuration.
func (h *Handler) handleWebIdentity(w http.ResponseWriter, _ *http.Request) {
	_ = json.Write(w, providerList{ProviderURLs: []string{h.cfg.ConfigURL()}})
}

// handleConfig serves the IdP configuration object: endpoint paths plus the
// branding block the browser renders in its account chooser.
func (h *Handler) handleConfig(w http.ResponseWriter, _ *http.Request) {
	cfg := providerConfig{
		AccountsEndpoint:       PathAccounts,
		ClientMetadataEndpoint: PathClientMetadata,
		IDAssertionEndpoint:    PathToken,
		DisconnectEndpoint:     PathDisconnect,
		RevocationEndpoint:     h.cfg.Engine.RevocationPath,
		LoginURL:               h.cfg.Engine.LoginPath,
		Branding: branding{
			BackgroundColor: h.cfg.Branding.BackgroundColor,
			Color:           h.cfg.Branding.Color,
			Context:         h.cfg.Branding.Context,
			Icons: []icon{{
				URL:  h.cfg.Branding.IconURL,
				Size: h.cfg.Branding.IconSize,
			}},
		},
	}
	_ = json.Write(w, cfg)
}

func (h *Handler) handleClientMetadata(w http.ResponseWriter, _ *http.Request) {
	_ = json.Write(w, clientMetadata{
		PrivacyPolicyURL:  h.cfg.Policy.PrivacyPolicyURL,
		TermsOfServiceURL: h.cfg.Policy.TermsOfServiceURL,
	})
}
