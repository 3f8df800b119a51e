package controllers

import (
	"errors"
	"net/http"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/cosify/cosify/internal/api/response"
	"github.com/cosify/cosify/internal/perrors"
	"github.com/cosify/cosify/internal/services"
	"github.com/cosify/cosify/internal/services/analytics"
	"github.com/cosify/cosify/internal/services/invite"
)

type RedeemRequest struct {
	Code string `json:"code"`
}

func RegisterInviteCodeRoutes(r *router.Router, svc *services.Services) {
	// Create invite code
	r.POST("/api/admin/invite-codes", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		claims, err := adminPrincipal(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Admin role required", err)
			return
		}

		var body invite.CreateInviteCodeRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidInput("Invalid request body", err))
			return
		}

		code, err := svc.Invite.Create(stdCtx, claims.UserID, claims.Email, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to create invite code", err)
			return
		}

		response.NewResponse(stdCtx, "Invite code created", code).WithStatus(http.StatusCreated).Write(ctx)
	})

	// List invite codes
	r.GET("/api/admin/invite-codes", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		if _, err := adminPrincipal(ctx); err != nil {
			writeError(ctx, stdCtx, "Admin role required", err)
			return
		}

		codes, err := svc.Invite.List(stdCtx)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list invite codes", err)
			return
		}

		writeOK(ctx, stdCtx, "success", codes)
	})

	// Deactivate invite code
	r.DELETE("/api/admin/invite-codes/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		claims, err := adminPrincipal(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Admin role required", err)
			return
		}

		id, err := pathParam(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invite code id is required", perrors.NewErrInvalidInput("Invite code id is required", err))
			return
		}

		if err := svc.Invite.Deactivate(stdCtx, claims.UserID, claims.Email, id); err != nil {
			writeError(ctx, stdCtx, "Failed to deactivate invite code", err)
			return
		}

		writeOK(ctx, stdCtx, "Invite code deactivated", map[string]any{
			"id": id,
		})
	})

	// Validate a code without redeeming it. Business outcomes are data, not
	// errors, so the UI can show why a code is unusable.
	r.GET("/api/invites/validate", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		code := string(ctx.QueryArgs().Peek("code"))
		if code == "" {
			writeError(ctx, stdCtx, "Code parameter is required", perrors.NewErrInvalidInput("Code parameter is required", errors.New("code is required")))
			return
		}

		result, err := svc.Invite.Validate(stdCtx, code)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to validate invite code", err)
			return
		}

		writeOK(ctx, stdCtx, "success", result)
	})

	// Redeem a code for the authenticated user
	r.POST("/api/invites/redeem", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		claims, err := principal(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", err)
			return
		}

		var body RedeemRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidInput("Invalid request body", err))
			return
		}

		if body.Code == "" {
			writeError(ctx, stdCtx, "Code is required", perrors.NewErrInvalidInput("Code is required", errors.New("code is required")))
			return
		}

		result, err := svc.Invite.Redeem(stdCtx, body.Code, claims.UserID, claims.Email)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to redeem invite code", err)
			return
		}

		if svc.Analytics != nil {
			svc.Analytics.Track(stdCtx, &analytics.Event{
				Type:     analytics.EventInviteRedeemed,
				UserID:   claims.UserID,
				EntityID: body.Code,
				Amount:   result.CreditBonus,
			})
		}

		writeOK(ctx, stdCtx, "Invite code redeemed", result)
	})
}
