package controllers

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"golang.org/x/oauth2"

	"github.com/cosify/cosify/internal/api/authenticator"
	"github.com/cosify/cosify/internal/config"
	"github.com/cosify/cosify/internal/perrors"
	"github.com/cosify/cosify/internal/services"
	"github.com/cosify/cosify/internal/services/analytics"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type SignupBonusRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

func RegisterAuthRoutes(r *router.Router, svc *services.Services, auth *authenticator.Authenticator, conf *config.Config) {
	r.GET("/api/auth/enabled", func(ctx *fasthttp.RequestCtx) {
		writeOK(ctx, requestContext(ctx), "success", map[string]any{
			"auth_enabled":  auth.AuthEnabled(),
			"auth0_enabled": auth.Auth0Enabled(),
		})
	})

	// Login with email/password
	r.POST("/api/auth/login", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		var req LoginRequest
		if err := parseBody(ctx, &req); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidInput("Invalid request body", err))
			return
		}

		if req.Email == "" || req.Password == "" {
			writeError(ctx, stdCtx, "Email and password are required", perrors.NewErrInvalidInput("Email and password are required", errors.New("missing credentials")))
			return
		}

		u, err := svc.User.Authenticate(stdCtx, req.Email, req.Password)
		if err != nil {
			writeError(ctx, stdCtx, "Invalid credentials", perrors.NewErrUnauthorized("Invalid credentials", err))
			return
		}

		token, err := auth.GenerateToken(&authenticator.UserClaims{
			UserID: u.ID,
			Email:  u.Email,
			Name:   u.DisplayName,
			Role:   string(u.Role),
		}, 24*time.Hour)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to generate token", err)
			return
		}

		// Set token as HTTP-only cookie
		var cookie fasthttp.Cookie
		cookie.SetKey("access_token")
		cookie.SetValue(token)
		cookie.SetPath("/")
		cookie.SetHTTPOnly(true)
		cookie.SetSecure(false) // Set to true in production (HTTPS)
		cookie.SetSameSite(fasthttp.CookieSameSiteLaxMode)
		cookie.SetExpire(time.Now().Add(24 * time.Hour))
		ctx.Response.Header.SetCookie(&cookie)

		writeOK(ctx, stdCtx, "success", LoginResponse{
			Token: token,
			User: UserResponse{
				ID:    u.ID,
				Name:  u.DisplayName,
				Email: u.Email,
				Role:  string(u.Role),
			},
		})
	})

	// Get current user info
	r.GET("/api/auth/me", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		claims, err := principal(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", err)
			return
		}

		// The principal may come from Auth0, make sure a local row exists
		u, err := svc.User.EnsureUser(stdCtx, claims.UserID, claims.Email)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to get user", err)
			return
		}

		writeOK(ctx, stdCtx, "success", UserResponse{
			ID:    u.ID,
			Name:  u.DisplayName,
			Email: u.Email,
			Role:  string(u.Role),
		})
	})

	// Logout endpoint
	r.POST("/api/auth/logout", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		// Clear the access_token cookie
		var cookie fasthttp.Cookie
		cookie.SetKey("access_token")
		cookie.SetValue("")
		cookie.SetPath("/")
		cookie.SetHTTPOnly(true)
		cookie.SetExpire(time.Now().Add(-1 * time.Hour))
		ctx.Response.Header.SetCookie(&cookie)

		writeOK(ctx, stdCtx, "success", map[string]any{
			"message": "Logged out successfully",
		})
	})

	// One-shot signup bonus
	r.POST("/api/auth/signup-bonus", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		claims, err := principal(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", err)
			return
		}

		var req SignupBonusRequest
		if err := parseBody(ctx, &req); err == nil {
			// Body values are optional, claims win when both are present
			if req.UserID != "" && req.UserID != claims.UserID && !isAdmin(claims) {
				writeError(ctx, stdCtx, "Cannot claim bonus for another user", perrors.NewErrInvalidInput("Cannot claim bonus for another user", errors.New("user id mismatch")))
				return
			}
		}

		userID := claims.UserID
		email := claims.Email
		if isAdmin(claims) && req.UserID != "" {
			userID = req.UserID
			email = req.Email
		}

		result, err := svc.User.ClaimSignupBonus(stdCtx, userID, email)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to claim signup bonus", err)
			return
		}

		if svc.Analytics != nil {
			svc.Analytics.Track(stdCtx, &analytics.Event{
				Type:   analytics.EventSignup,
				UserID: userID,
				Amount: result.BonusAmount,
			})
		}

		writeOK(ctx, stdCtx, "Signup bonus granted", result)
	})

	r.GET("/api/auth/auth0/login", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		csrf := make([]byte, 16)
		rand.Read(csrf)

		redirect := conf.POST_LOGIN_REDIRECT
		if redirect == "" {
			redirect = "http://localhost:3000"
		}

		state := authenticator.OAuthState{
			CSRF:      base64.RawURLEncoding.EncodeToString(csrf),
			Redirect:  redirect,
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(5 * time.Minute).Unix(),
		}

		encodedState, err := auth.GetSignedState(state)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to create signed state", err)
			return
		}

		url := auth.AuthCodeURL(encodedState, oauth2.SetAuthURLParam("audience", auth.Audience()))
		ctx.Redirect(url, fasthttp.StatusTemporaryRedirect)
	})

	r.GET("/api/auth/auth0/callback", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		encodedState := ctx.URI().QueryArgs().Peek("state")
		code := ctx.URI().QueryArgs().Peek("code")

		if encodedState == nil || code == nil {
			writeError(ctx, stdCtx, "missing parameters", perrors.NewErrInvalidInput("missing parameters", errors.New("missing parameters")))
			return
		}

		state, err := auth.VerifySignedState(string(encodedState))
		if err != nil {
			writeError(ctx, stdCtx, "Failed to decode state", err)
			return
		}

		token, err := auth.Exchange(stdCtx, string(code))
		if err != nil {
			writeError(ctx, stdCtx, "Failed to exchange token", err)
			return
		}

		idToken, err := auth.VerifyIDToken(stdCtx, token)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to verify ID token", err)
			return
		}

		var profile struct {
			Sub   string `json:"sub"`
			Email string `json:"email"`
		}
		if err := idToken.Claims(&profile); err != nil {
			writeError(ctx, stdCtx, "Failed to get claims", err)
			return
		}

		if _, err := svc.User.EnsureUser(stdCtx, profile.Sub, profile.Email); err != nil {
			writeError(ctx, stdCtx, "Failed to provision user", err)
			return
		}

		// Create cookie
		var cookie fasthttp.Cookie
		cookie.SetKey("access_token")
		cookie.SetValue(token.AccessToken)
		cookie.SetPath("/")
		cookie.SetHTTPOnly(true)
		cookie.SetSecure(false) // MUST be true in production (HTTPS)
		cookie.SetSameSite(fasthttp.CookieSameSiteLaxMode)
		cookie.SetExpire(time.Now().Add(1 * time.Hour))
		ctx.Response.Header.SetCookie(&cookie)

		ctx.Redirect(state.Redirect, fasthttp.StatusFound)
	})
}
