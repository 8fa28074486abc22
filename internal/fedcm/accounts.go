package fedcm

import (
	"net/http"

	"github.com/Liquid-Surf/fedcm-demo/internal/json"
)

// The account chooser needs a picture; WebID profiles have no reliable one.
// TODO: fetch name and photo from the WebID profile document.
const placeholderPicture = "https://doodleipsum.com/150x150/avatar-2?i=f7de8aff0b8c3f4bc758e106d80d071e"

type accountsResponse struct {
	Accounts []accountEntry `json:"accounts"`
}

type accountEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	GivenName string `json:"given_name"`
	// email carries the WebID; accounts here have no email address and the
	// browser requires the field
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// handleAccounts lists the signed-in accounts for the browser's account
// chooser. The bridge supports exactly one account per session, so the list
// has exactly one entry on success.
func (h *Handler) handleAccounts(w http.ResponseWriter, r *http.Request) {
	identity, err := h.resolver.Resolve(r.Context(), r)
	if err != nil {
		h.writeResolveError(w, err)
		return
	}

	_ = json.Write(w, accountsResponse{
		Accounts: []accountEntry{{
			ID:        identity.AccountID,
			Name:      "Solid account",
			GivenName: "Solid",
			Email:     identity.WebID,
			Picture:   placeholderPicture,
		}},
	})
}
