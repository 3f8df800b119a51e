package authenticator

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/url"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/bytedance/sonic"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/cosify/cosify/internal/config"
)

// UserClaims is the authenticated principal attached to each request.
type UserClaims struct {
	UserID string `json:"sub"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type Authenticator struct {
	*oidc.Provider
	oauth2.Config

	stateSecret  string
	localSecret  string
	issuer       string
	jwksProvider *jwks.CachingProvider
	audience     string
	authEnabled  bool
	auth0Enabled bool
}

func New(conf *config.Config) (*Authenticator, error) {
	a := &Authenticator{
		localSecret: conf.JWT_SECRET,
		stateSecret: conf.STATE_SECRET,
		audience:    "cosify-api",
		authEnabled: conf.JWT_SECRET != "",
	}

	if conf.AUTH0_DOMAIN == "" {
		return a, nil
	}

	issuer := "https://" + conf.AUTH0_DOMAIN + "/"

	provider, err := oidc.NewProvider(context.Background(), issuer)
	if err != nil {
		return nil, err
	}

	issuerURL, err := url.Parse(issuer)
	if err != nil {
		return nil, err
	}

	a.Provider = provider
	a.Config = oauth2.Config{
		ClientID:     conf.AUTH0_CLIENT_ID,
		ClientSecret: conf.AUTH0_CLIENT_SECRET,
		RedirectURL:  conf.AUTH0_CALLBACK_URL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
	a.issuer = issuer
	a.jwksProvider = jwks.NewCachingProvider(issuerURL, 5*time.Minute)
	a.authEnabled = true
	a.auth0Enabled = true

	return a, nil
}

func (a *Authenticator) AuthEnabled() bool {
	return a.authEnabled
}

func (a *Authenticator) Auth0Enabled() bool {
	return a.auth0Enabled
}

func (a *Authenticator) Audience() string {
	return a.audience
}

type localClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken issues a locally signed session token for password logins
// and for sessions established through the OAuth callback.
func (a *Authenticator) GenerateToken(user *UserClaims, ttl time.Duration) (string, error) {
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, localClaims{
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserID,
			Audience:  jwt.ClaimStrings{a.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	return token.SignedString([]byte(a.localSecret))
}

func (a *Authenticator) verifyLocalToken(tokenString string) (*UserClaims, error) {
	claims := &localClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(a.localSecret), nil
	}, jwt.WithAudience(a.audience))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return &UserClaims{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Role:   claims.Role,
	}, nil
}

// VerifyAccessToken validates a bearer token and returns the principal.
// Locally issued HS256 tokens are checked first, then Auth0 RS256 tokens
// when Auth0 is configured.
func (a *Authenticator) VerifyAccessToken(ctx context.Context, token string) (*UserClaims, error) {
	if a.localSecret != "" {
		if claims, err := a.verifyLocalToken(token); err == nil {
			return claims, nil
		}
	}

	if !a.auth0Enabled {
		return nil, errors.New("invalid token")
	}

	jwtValidator, err := validator.New(a.jwksProvider.KeyFunc, validator.RS256, a.issuer, []string{a.Audience()},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &auth0CustomClaims{}
		}))
	if err != nil {
		return nil, err
	}

	payload, err := jwtValidator.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}

	validated, ok := payload.(*validator.ValidatedClaims)
	if !ok {
		return nil, errors.New("unexpected token payload")
	}

	claims := &UserClaims{
		UserID: validated.RegisteredClaims.Subject,
	}
	if custom, ok := validated.CustomClaims.(*auth0CustomClaims); ok {
		claims.Email = custom.Email
		claims.Name = custom.Name
		claims.Role = custom.Role
	}

	return claims, nil
}

type auth0CustomClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"-"`

	RawRole string `json:"https://cosify.app/role"`
}

func (c *auth0CustomClaims) Validate(ctx context.Context) error {
	c.Role = c.RawRole
	return nil
}

// VerifyIDToken verifies that an *oauth2.Token is a valid *oidc.IDToken.
func (a *Authenticator) VerifyIDToken(ctx context.Context, token *oauth2.Token) (*oidc.IDToken, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("no id_token field in oauth2 token")
	}

	oidcConfig := &oidc.Config{
		ClientID: a.ClientID,
	}

	return a.Verifier(oidcConfig).Verify(ctx, rawIDToken)
}

type OAuthState struct {
	CSRF      string `json:"csrf"`
	Redirect  string `json:"redirect"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

func (a *Authenticator) GetSignedState(state OAuthState) (string, error) {
	payload, err := sonic.Marshal(state)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, []byte(a.stateSecret))
	mac.Write(payload)
	sig := mac.Sum(nil)

	combined := append(payload, sig...)
	return base64.StdEncoding.EncodeToString(combined), nil
}

func (a *Authenticator) VerifySignedState(encodedState string) (*OAuthState, error) {
	raw, err := base64.StdEncoding.DecodeString(encodedState)
	if err != nil {
		return nil, errors.New("invalid base64")
	}

	if len(raw) < sha256.Size {
		return nil, errors.New("state too short")
	}

	payload := raw[:len(raw)-sha256.Size]
	sig := raw[len(raw)-sha256.Size:]

	mac := hmac.New(sha256.New, []byte(a.stateSecret))
	mac.Write(payload)
	expectedSig := mac.Sum(nil)
	if !hmac.Equal(sig, expectedSig) {
		return nil, errors.New("invalid state signature")
	}

	var state OAuthState
	if err := sonic.Unmarshal(payload, &state); err != nil {
		return nil, errors.New("invalid state payload")
	}

	if time.Now().Unix() > state.ExpiresAt {
		return nil, errors.New("state expired")
	}

	return &state, nil
}
