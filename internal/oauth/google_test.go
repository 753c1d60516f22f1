package oauth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"shreelaxmi/site/internal/config"
)

const testIssuer = "https://accounts.google.com"

type fixture struct {
	key    *rsa.PrivateKey
	cfg    config.GoogleConfig
	google *Google
}

func newFixture(t *testing.T, tokenURL string) fixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	cfg := config.GoogleConfig{
		ClientID:     "client-123",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/api/auth/callback/google",
		Issuer:       testIssuer,
	}
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}}
	verifier := oidc.NewVerifier(testIssuer, keySet, &oidc.Config{ClientID: cfg.ClientID})

	endpoint := oauth2.Endpoint{
		AuthURL:   "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:  tokenURL,
		AuthStyle: oauth2.AuthStyleInParams,
	}
	return fixture{key: key, cfg: cfg, google: newGoogle(cfg, endpoint, verifier)}
}

func (f fixture) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(f.key)
	require.NoError(t, err)
	return token
}

func validClaims(aud string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":            testIssuer,
		"aud":            aud,
		"sub":            "10769150350006150715113082367",
		"email":          "Priya@Example.com",
		"email_verified": true,
		"name":           "Priya Sharma",
		"picture":        "https://lh3.googleusercontent.com/a/photo",
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
	}
}

func TestAuthCodeURL(t *testing.T) {
	f := newFixture(t, "http://unused")

	raw := f.google.AuthCodeURL("state-xyz")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "client-123", q.Get("client_id"))
	assert.Equal(t, "state-xyz", q.Get("state"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, f.cfg.RedirectURL, q.Get("redirect_uri"))
	assert.Contains(t, q.Get("scope"), "openid")
	assert.Contains(t, q.Get("scope"), "email")
}

func TestVerifyIDToken(t *testing.T) {
	f := newFixture(t, "http://unused")

	identity, err := f.google.VerifyIDToken(context.Background(), f.sign(t, validClaims("client-123")))
	require.NoError(t, err)

	assert.Equal(t, ProviderGoogle, identity.Provider)
	assert.Equal(t, "10769150350006150715113082367", identity.ExternalID)
	assert.Equal(t, "priya@example.com", identity.Email)
	assert.True(t, identity.EmailVerified)
	assert.Equal(t, "Priya Sharma", identity.Name)
	require.NotNil(t, identity.AvatarURL)
	assert.Equal(t, "https://lh3.googleusercontent.com/a/photo", *identity.AvatarURL)
}

func TestVerifyIDTokenRejects(t *testing.T) {
	f := newFixture(t, "http://unused")

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	expired := validClaims("client-123")
	expired["iat"] = time.Now().Add(-2 * time.Hour).Unix()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	foreignIssuer := validClaims("client-123")
	foreignIssuer["iss"] = "https://evil.example.com"

	forged, err := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims("client-123")).SignedString(otherKey)
	require.NoError(t, err)

	tests := map[string]string{
		"wrong audience": f.sign(t, validClaims("someone-else")),
		"expired":        f.sign(t, expired),
		"foreign issuer": f.sign(t, foreignIssuer),
		"forged":         forged,
		"garbage":        "not.a.token",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.google.VerifyIDToken(context.Background(), raw)
			assert.ErrorIs(t, err, ErrInvalidIDToken)
		})
	}
}

func TestExchange(t *testing.T) {
	var f fixture
	var gotCode string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotCode = r.PostForm.Get("code")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     f.sign(t, validClaims("client-123")),
		})
	}))
	defer server.Close()

	f = newFixture(t, server.URL)

	identity, err := f.google.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "auth-code", gotCode)
	assert.Equal(t, "priya@example.com", identity.Email)
}

func TestExchangeWithoutIDToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access",
			"token_type":   "Bearer",
		})
	}))
	defer server.Close()

	f := newFixture(t, server.URL)

	_, err := f.google.Exchange(context.Background(), "auth-code")
	assert.ErrorIs(t, err, ErrExchange)
}

func TestExchangeRejectedCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer server.Close()

	f := newFixture(t, server.URL)

	_, err := f.google.Exchange(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrExchange)
}
