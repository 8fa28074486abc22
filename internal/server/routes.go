package server

import (
	"log/slog"
	"net/http"
)

// RouteConfig names the handlers mounted on the listener.
type RouteConfig struct {
	// FedCM serves every /.well-known FedCM path, guard included.
	FedCM http.Handler
	// OIDCToken is the engine's standard token endpoint, where relying
	// parties exchange the code the bridge issued.
	OIDCToken http.HandlerFunc
	// OIDCTokenPath is where OIDCToken is mounted.
	OIDCTokenPath string
	// AllowedOrigins drive the CORS policy.
	AllowedOrigins []string
}

// Routes assembles the full handler tree with middleware applied.
func Routes(rc RouteConfig, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/.well-known/web-identity", rc.FedCM)
	mux.Handle("/.well-known/fedcm/", rc.FedCM)
	if rc.OIDCToken != nil && rc.OIDCTokenPath != "" {
		mux.Handle(rc.OIDCTokenPath, rc.OIDCToken)
	}
	mux.Handle("/health", NewHealthHandler())

	return ChainMiddleware(mux,
		NewRequestLogMiddleware(logger),
		NewCORSMiddleware(rc.AllowedOrigins),
	)
}
