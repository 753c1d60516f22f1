// Package oauth wraps the Google OpenID Connect sign-in flows.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"shreelaxmi/site/internal/config"
	"shreelaxmi/site/internal/models"
)

const ProviderGoogle = "google"

var (
	ErrExchange       = errors.New("oauth code exchange failed")
	ErrInvalidIDToken = errors.New("id token rejected")
)

// Provider is the part of an identity provider the HTTP layer needs.
type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (models.ProviderIdentity, error)
	VerifyIDToken(ctx context.Context, rawIDToken string) (models.ProviderIdentity, error)
}

type Google struct {
	oauth    oauth2.Config
	verifier *oidc.IDTokenVerifier
}

var _ Provider = (*Google)(nil)

// NewGoogle runs OIDC discovery against the configured issuer.
func NewGoogle(ctx context.Context, cfg config.GoogleConfig) (*Google, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return newGoogle(cfg, provider.Endpoint(), verifier), nil
}

func newGoogle(cfg config.GoogleConfig, endpoint oauth2.Endpoint, verifier *oidc.IDTokenVerifier) *Google {
	return &Google{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier: verifier,
	}
}

func (g *Google) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange redeems an authorization code and verifies the ID token that comes
// back with it.
func (g *Google) Exchange(ctx context.Context, code string) (models.ProviderIdentity, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return models.ProviderIdentity{}, fmt.Errorf("%w: %v", ErrExchange, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return models.ProviderIdentity{}, fmt.Errorf("%w: no id_token field in oauth2 token", ErrExchange)
	}

	return g.VerifyIDToken(ctx, rawIDToken)
}

type googleClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (g *Google) VerifyIDToken(ctx context.Context, rawIDToken string) (models.ProviderIdentity, error) {
	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return models.ProviderIdentity{}, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}

	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return models.ProviderIdentity{}, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}
	if claims.Subject == "" {
		claims.Subject = idToken.Subject
	}

	identity := models.ProviderIdentity{
		Provider:      ProviderGoogle,
		ExternalID:    claims.Subject,
		Email:         strings.ToLower(strings.TrimSpace(claims.Email)),
		EmailVerified: claims.EmailVerified,
		Name:          strings.TrimSpace(claims.Name),
	}
	if claims.Picture != "" {
		picture := claims.Picture
		identity.AvatarURL = &picture
	}
	return identity, nil
}
