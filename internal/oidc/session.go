package oidc

import "github.com/ory/fosite"

// Session rides through fosite from code issuance to token exchange. Subject
// is always the WebID, never the host account identifier; GrantID ties the
// issued code back to the persisted grant.
type Session struct {
	*fosite.DefaultSession
	WebID   string `json:"webid"`
	GrantID string `json:"grant_id"`
}

// Clone implements fosite.Session.
func (s *Session) Clone() fosite.Session {
	return &Session{
		DefaultSession: s.DefaultSession.Clone().(*fosite.DefaultSession),
		WebID:          s.WebID,
		GrantID:        s.GrantID,
	}
}
