// Package kbank requests client-credentials tokens from the Kasikorn Bank
// open API. It backs the kbank-token diagnostic command only.
package kbank

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const DefaultTokenURL = "https://openapi-sandbox.kasikornbank.com/v2/oauth/token"

// Config identifies a consumer registered with the bank.
type Config struct {
	ConsumerID     string
	ConsumerSecret string
	TokenURL       string
	// TestMode sends the sandbox headers x-test-mode and env-id.
	TestMode bool
}

// ErrMissingCredentials is returned when the consumer id or secret is empty.
var ErrMissingCredentials = errors.New("kbank consumer id and secret are required")

// Token performs one client-credentials exchange.
func Token(ctx context.Context, cfg Config, base http.RoundTripper) (*oauth2.Token, error) {
	if cfg.ConsumerID == "" || cfg.ConsumerSecret == "" {
		return nil, ErrMissingCredentials
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if base == nil {
		base = http.DefaultTransport
	}
	if cfg.TestMode {
		base = sandboxTransport{base: base}
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ConsumerID,
		ClientSecret: cfg.ConsumerSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: base})
	return cc.Token(ctx)
}

type sandboxTransport struct {
	base http.RoundTripper
}

func (t sandboxTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("x-test-mode", "true")
	r.Header.Set("env-id", "OAUTH2")
	return t.base.RoundTrip(r)
}
