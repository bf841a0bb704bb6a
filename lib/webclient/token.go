package webclient

import (
	"context"
	"fmt"

	"linkedin-importer/lib/apperr"
)

type TokenOptions struct {
	// a pre-supplied bearer token, takes priority over the exchange
	StaticToken string
	// client-credentials exchange endpoint
	TokenURL     string
	ClientID     string
	ClientSecret string
}

func (t TokenOptions) empty() bool {
	return t.StaticToken == "" && t.TokenURL == ""
}

// bearerToken returns the token to attach to outbound requests,
// performing a client-credentials exchange on first use. The token is
// reused for the lifetime of the client.
func (c *Client) bearerToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return c.token, nil
	}
	if c.opts.Token.empty() {
		return "", nil
	}
	if c.opts.Token.StaticToken != "" {
		c.token = c.opts.Token.StaticToken
		return c.token, nil
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     c.opts.Token.ClientID,
			"client_secret": c.opts.Token.ClientSecret,
		}).
		SetResult(&body).
		Post(c.opts.Token.TokenURL)
	if err != nil {
		return "", apperr.Auth("token exchange failed").WithError(err)
	}
	if !res.IsSuccess() {
		return "", apperr.Auth(fmt.Sprintf("token exchange returned status %d", res.StatusCode())).
			WithDetail("status", res.StatusCode())
	}
	if body.AccessToken == "" {
		return "", apperr.Auth("token exchange returned no access_token")
	}

	c.token = body.AccessToken
	return c.token, nil
}
