package fedcm

import (
	"log/slog"
	"net/http"

	"github.com/Liquid-Surf/fedcm-demo/internal/json"
)

// DestHeader is the fetch metadata header the browser sets on every FedCM
// call. Requests without it never came from the FedCM API.
const DestHeader = "Sec-Fetch-Dest"

const webIdentityDest = "webidentity"

// RequireWebIdentity rejects any request not marked as a FedCM fetch before
// it reaches a handler or touches a store.
func RequireWebIdentity(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(DestHeader) != webIdentityDest {
			logger.Warn("rejected non-webidentity request",
				"path", r.URL.Path, "sec_fetch_dest", r.Header.Get(DestHeader))
			json.WriteBadRequest(w, "missing or incorrect Sec-Fetch-Dest header")
			return
		}
		next.ServeHTTP(w, r)
	})
}
