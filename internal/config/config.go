// Package config loads and validates the bridge configuration from YAML.
// Secrets are referenced through environment variables and expanded at load
// time, so config files stay safe to commit.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Liquid-Surf/fedcm-demo/internal/cookie"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FedCM token issuance always uses this scope set; the relying party cannot
// widen it through the request.
var GrantScopes = []string{"openid", "profile", "offline_access", "webid"}

// Strategy selects how the orchestrator produces authorization codes.
type Strategy string

const (
	// StrategyDirect mints a grant and code directly against the engine.
	StrategyDirect Strategy = "direct"
	// StrategyReplay replays the login/consent interaction over internal
	// HTTP calls. Used only when direct minting primitives are unavailable.
	StrategyReplay Strategy = "replay"
)

// Duration wraps time.Duration for YAML decoding of values like "10s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config captures the full bridge configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Engine   EngineConfig   `yaml:"engine"`
	Flow     FlowConfig     `yaml:"flow"`
	Branding BrandingConfig `yaml:"branding"`
	Policy   PolicyConfig   `yaml:"policy"`
	Clients  []ClientConfig `yaml:"clients" validate:"dive"`
	Stores   StoresConfig   `yaml:"stores"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig controls the listener and the session cookie contract with the
// host account system.
type ServerConfig struct {
	BaseURL        string   `yaml:"base_url" validate:"required,url"`
	Addr           string   `yaml:"addr"`
	SessionCookie  string   `yaml:"session_cookie"`
	AllowedOrigins []string `yaml:"allowed_origins" validate:"dive,url"`
	DevMode        bool     `yaml:"dev_mode"`
}

// EngineConfig configures the embedded OIDC engine and, for the replay and
// credential-exchange paths, the internal endpoints the bridge calls.
type EngineConfig struct {
	Issuer          string `yaml:"issuer" validate:"omitempty,url"`
	JWTSecret       string `yaml:"jwt_secret"`
	AuthorizePath   string `yaml:"authorize_path"`
	TokenPath       string `yaml:"token_path"`
	RevocationPath  string `yaml:"revocation_path"`
	LoginPath       string `yaml:"login_path"`
	PickWebIDPath   string `yaml:"pick_webid_path"`
	ConsentPath     string `yaml:"consent_path"`
	CredentialsPath string `yaml:"credentials_path"`
}

// FlowConfig selects the orchestration strategy and bounds internal calls.
type FlowConfig struct {
	Strategy        Strategy `yaml:"strategy" validate:"omitempty,oneof=direct replay"`
	InternalTimeout Duration `yaml:"internal_timeout"`
}

// BrandingConfig feeds the branding block of fedcm.json.
type BrandingConfig struct {
	BackgroundColor string `yaml:"background_color"`
	Color           string `yaml:"color"`
	Context         string `yaml:"context"`
	IconURL         string `yaml:"icon_url"`
	IconSize        int    `yaml:"icon_size"`
}

// PolicyConfig feeds the client metadata endpoint.
type PolicyConfig struct {
	PrivacyPolicyURL  string `yaml:"privacy_policy_url"`
	TermsOfServiceURL string `yaml:"terms_of_service_url"`
}

// ClientConfig describes a statically registered relying party.
type ClientConfig struct {
	ClientID     string   `yaml:"client_id" validate:"required"`
	Secret       string   `yaml:"secret"`
	RedirectURIs []string `yaml:"redirect_uris" validate:"required,min=1,dive,url"`
	Scopes       []string `yaml:"scopes"`
}

// StoresConfig selects where sessions and WebID links live.
type StoresConfig struct {
	Backend             string `yaml:"backend" validate:"omitempty,oneof=memory firestore"`
	FirestoreProject    string `yaml:"firestore_project"`
	FirestoreCollection string `yaml:"firestore_collection"`
}

// LogConfig controls the injected logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// Load reads, expands, defaults, and validates a config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes config bytes. Unknown fields are rejected so typos fail at
// boot instead of silently using defaults.
func Parse(raw []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(raw))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.SessionCookie == "" {
		c.Server.SessionCookie = cookie.DefaultSessionCookie
	}
	if c.Engine.Issuer == "" {
		c.Engine.Issuer = strings.TrimSuffix(c.Server.BaseURL, "/")
	}
	if c.Engine.AuthorizePath == "" {
		c.Engine.AuthorizePath = "/.oidc/auth"
	}
	if c.Engine.TokenPath == "" {
		c.Engine.TokenPath = "/.oidc/token"
	}
	if c.Engine.RevocationPath == "" {
		c.Engine.RevocationPath = "/.oidc/token/revocation"
	}
	if c.Engine.LoginPath == "" {
		c.Engine.LoginPath = "/.account/login/password/"
	}
	if c.Engine.PickWebIDPath == "" {
		c.Engine.PickWebIDPath = "/.account/oidc/pick-webid"
	}
	if c.Engine.ConsentPath == "" {
		c.Engine.ConsentPath = "/.oidc/interaction/consent"
	}
	if c.Engine.CredentialsPath == "" {
		c.Engine.CredentialsPath = "/.account/client-credentials/"
	}
	if c.Flow.Strategy == "" {
		c.Flow.Strategy = StrategyDirect
	}
	if c.Flow.InternalTimeout == 0 {
		c.Flow.InternalTimeout = Duration(10 * time.Second)
	}
	if c.Stores.Backend == "" {
		c.Stores.Backend = "memory"
	}
	if c.Stores.FirestoreCollection == "" {
		c.Stores.FirestoreCollection = "fedcm"
	}
	if c.Branding.Context == "" {
		c.Branding.Context = "Sign in to your Solid pod"
	}
	if c.Branding.IconSize == 0 {
		c.Branding.IconSize = 32
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks struct tags plus the cross-field rules the tags cannot
// express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Stores.Backend == "firestore" && c.Stores.FirestoreProject == "" {
		return fmt.Errorf("invalid config: stores.firestore_project is required for the firestore backend")
	}
	if c.Flow.InternalTimeout.Std() > time.Minute {
		return fmt.Errorf("invalid config: flow.internal_timeout above 1m would strand the browser FedCM prompt")
	}
	return nil
}

// ConfigURL returns the absolute URL of the fedcm.json IdP configuration.
func (c *Config) ConfigURL() string {
	return strings.TrimSuffix(c.Server.BaseURL, "/") + "/.well-known/fedcm/fedcm.json"
}
