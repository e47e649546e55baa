// Package igdb is the client for the external game metadata provider. It
// knows how to authenticate and fetch; pacing and retries belong to callers.
package igdb

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ludotheque/ludotheque/pkg/upstream"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const serviceName = "igdb"

// tokenRenewEarly renews the bearer token this long before it expires.
const tokenRenewEarly = 60 * time.Second

type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	TokenURL     string
	Timeout      time.Duration
}

type Client struct {
	clientID  string
	hasSecret bool
	baseURL   string
	tokens    oauth2.TokenSource
	api       *upstream.Client
}

func New(cfg Config) *Client {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	// The token source keeps this context for every renewal; it only carries
	// the HTTP client.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)

	return &Client{
		clientID:  cfg.ClientID,
		hasSecret: cfg.ClientSecret != "",
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		tokens:    oauth2.ReuseTokenSourceWithExpiry(nil, cc.TokenSource(tokenCtx), tokenRenewEarly),
		api:       upstream.NewClient(serviceName, upstream.Options{HTTPClient: httpClient}),
	}
}

// HasCredentials reports whether a client id and secret were configured.
// Diagnostics only; a present but wrong secret still fails Authenticate.
func (c *Client) HasCredentials() bool {
	return c.clientID != "" && c.hasSecret
}

// Authenticate makes sure a valid bearer token is cached, fetching one if
// needed. Failures are *upstream.AuthError.
func (c *Client) Authenticate(ctx context.Context) error {
	_, err := c.token(ctx)
	return err
}

func (c *Client) token(ctx context.Context) (*oauth2.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, &upstream.AuthError{Service: serviceName, Err: err}
	}
	return tok, nil
}

// Fetch posts q to the endpoint and decodes the JSON array response into out.
// Non-2xx statuses, timeouts and malformed bodies are *upstream.Error.
func (c *Client) Fetch(ctx context.Context, endpoint string, q *Query, out interface{}) error {
	tok, err := c.token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, strings.NewReader(q.String()))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Client-ID", c.clientID)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "text/plain")
	tok.SetAuthHeader(req)

	return c.api.Do(req, out)
}
