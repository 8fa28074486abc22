package oidc

import "github.com/ory/fosite"

// Client is a relying party registration as the bridge sees it.
type Client struct {
	ID           string
	Secret       []byte
	RedirectURIs []string
	Scopes       []string
	Audience     []string
	Public       bool

	CreatedAt int64
}

func (c *Client) ToFositeClient() *fosite.DefaultClient {
	return &fosite.DefaultClient{
		ID:            c.ID,
		Secret:        c.Secret,
		RedirectURIs:  c.RedirectURIs,
		Scopes:        c.Scopes,
		GrantTypes:    []string{"authorization_code", "refresh_token", "client_credentials"},
		ResponseTypes: []string{"code"},
		Audience:      c.Audience,
		Public:        c.Public,
	}
}
