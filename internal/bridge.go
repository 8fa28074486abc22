// Package internal wires the FedCM bridge application: stores, the embedded
// OIDC engine, the flow orchestrator, and the HTTP server.
package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Liquid-Surf/fedcm-demo/internal/accounts"
	"github.com/Liquid-Surf/fedcm-demo/internal/config"
	"github.com/Liquid-Surf/fedcm-demo/internal/crypto"
	"github.com/Liquid-Surf/fedcm-demo/internal/fedcm"
	"github.com/Liquid-Surf/fedcm-demo/internal/flow"
	"github.com/Liquid-Surf/fedcm-demo/internal/oidc"
	"github.com/Liquid-Surf/fedcm-demo/internal/server"
	"golang.org/x/sync/errgroup"
)

// Bridge is the assembled application.
type Bridge struct {
	cfg        *config.Config
	httpServer *server.HTTPServer
	logger     *slog.Logger
	closers    []io.Closer
}

// NewBridge builds the application with all dependencies wired.
func NewBridge(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Bridge, error) {
	logger.Info("building FedCM bridge",
		"base_url", cfg.Server.BaseURL,
		"strategy", cfg.Flow.Strategy,
		"stores", cfg.Stores.Backend,
		"clients", len(cfg.Clients))

	cookieStore, webIDStore, closer, err := setupStores(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup stores: %w", err)
	}

	engine, err := setupEngine(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup engine: %w", err)
	}

	resolver := accounts.NewResolver(cfg.Server.SessionCookie, cookieStore, webIDStore, logger)
	validator := fedcm.NewValidator(engine, logger)
	orchestrator, err := setupOrchestrator(cfg, engine, cookieStore, logger)
	if err != nil {
		return nil, fmt.Errorf("setup orchestrator: %w", err)
	}

	handler := fedcm.NewHandler(cfg, resolver, validator, orchestrator, logger)
	routes := server.Routes(server.RouteConfig{
		FedCM:          handler.Routes(),
		OIDCToken:      engine.TokenHandler,
		OIDCTokenPath:  cfg.Engine.TokenPath,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, logger)

	bridge := &Bridge{
		cfg:        cfg,
		httpServer: server.NewHTTPServer(routes, cfg.Server.Addr, logger),
		logger:     logger.With("component", "bridge"),
	}
	if closer != nil {
		bridge.closers = append(bridge.closers, closer)
	}
	return bridge, nil
}

// Run serves until the context is cancelled or a signal arrives, then drains
// and stops.
func (b *Bridge) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.httpServer.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return b.httpServer.Stop(shutdownCtx)
	})

	err := g.Wait()
	for _, closer := range b.closers {
		if cerr := closer.Close(); cerr != nil {
			b.logger.Error("store close failed", "error", cerr)
		}
	}
	b.logger.Info("bridge shut down")
	return err
}

func setupStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (accounts.CookieStore, accounts.WebIDStore, io.Closer, error) {
	switch cfg.Stores.Backend {
	case "firestore":
		store, err := accounts.NewFirestoreStore(ctx, cfg.Stores.FirestoreProject, cfg.Stores.FirestoreCollection, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store, store, nil
	default:
		store := accounts.NewMemoryStore()
		if cfg.Server.DevMode {
			seedDevAccount(store, cfg, logger)
		}
		return store, store, nil, nil
	}
}

// seedDevAccount provisions one signed-in account so the demo relying party
// works against a fresh in-memory bridge without a registration flow.
func seedDevAccount(store *accounts.MemoryStore, cfg *config.Config, logger *slog.Logger) {
	webID := strings.TrimSuffix(cfg.Server.BaseURL, "/") + "/profile/card#me"
	accountID := store.CreateAccount(webID)
	store.SetCookie("dev-session", accountID)

	logger.Warn("dev mode: seeded demo account",
		"account_id", accountID, "web_id", webID,
		"cookie", cfg.Server.SessionCookie+"=dev-session")
}

func setupEngine(cfg *config.Config, logger *slog.Logger) (*oidc.FositeEngine, error) {
	store := oidc.NewStore(logger)
	for _, c := range cfg.Clients {
		client := &oidc.Client{
			ID:           c.ClientID,
			RedirectURIs: c.RedirectURIs,
			Scopes:       clientScopes(c),
			Public:       c.Secret == "",
		}
		if c.Secret != "" {
			hashed, err := crypto.HashClientSecret(c.Secret)
			if err != nil {
				return nil, fmt.Errorf("hash secret for client %s: %w", c.ClientID, err)
			}
			client.Secret = hashed
		}
		store.RegisterClient(client)
	}

	jwtSecret := []byte(cfg.Engine.JWTSecret)
	if len(jwtSecret) == 0 && cfg.Server.DevMode {
		generated, err := crypto.GenerateSecureToken()
		if err != nil {
			return nil, err
		}
		jwtSecret = []byte(generated)
		logger.Warn("dev mode: generated ephemeral JWT secret, tokens will not survive restarts")
	}

	provider, err := oidc.NewProvider(oidc.ProviderConfig{
		Issuer:   cfg.Engine.Issuer,
		TokenURL: cfg.Engine.Issuer + cfg.Engine.TokenPath,
		DevMode:  cfg.Server.DevMode,
	}, store, jwtSecret)
	if err != nil {
		return nil, err
	}
	return oidc.NewFositeEngine(provider, store, time.Hour, logger), nil
}

func clientScopes(c config.ClientConfig) []string {
	if len(c.Scopes) > 0 {
		return c.Scopes
	}
	return config.GrantScopes
}

func setupOrchestrator(cfg *config.Config, engine oidc.Engine, cookies accounts.CookieStore, logger *slog.Logger) (*flow.Orchestrator, error) {
	issuer := cfg.Engine.Issuer
	timeout := cfg.Flow.InternalTimeout.Std()

	var codeIssuer flow.Issuer
	switch cfg.Flow.Strategy {
	case config.StrategyReplay:
		codeIssuer = flow.NewReplayer(flow.ReplayEndpoints{
			AuthorizeURL: issuer + cfg.Engine.AuthorizePath,
			PickWebIDURL: issuer + cfg.Engine.PickWebIDPath,
			ConsentURL:   issuer + cfg.Engine.ConsentPath,
		}, cookies, cfg.Server.SessionCookie, timeout, logger)
	case config.StrategyDirect:
		codeIssuer = flow.NewDirectMinter(engine, issuer, logger)
	default:
		return nil, fmt.Errorf("unknown flow strategy %q", cfg.Flow.Strategy)
	}

	exchanger := flow.NewCredentialExchanger(
		issuer+cfg.Engine.CredentialsPath,
		issuer+cfg.Engine.TokenPath,
		timeout, logger)

	return flow.NewOrchestrator(codeIssuer, exchanger, logger), nil
}
