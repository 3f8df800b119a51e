package controllers

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/cosify/cosify/internal/services"
)

func RegisterCreditRoutes(r *router.Router, svc *services.Services) {
	// Current spendable balance
	r.GET("/api/credits/balance", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		claims, err := principal(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", err)
			return
		}

		balance, err := svc.Credit.Balance(stdCtx, claims.UserID)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to get balance", err)
			return
		}

		writeOK(ctx, stdCtx, "success", map[string]any{
			"balance": balance,
		})
	})

	// Transaction history, newest first
	r.GET("/api/credits/history", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		claims, err := principal(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", err)
			return
		}

		limit := ctx.QueryArgs().GetUintOrZero("limit")

		history, err := svc.Credit.History(stdCtx, claims.UserID, limit)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to get transaction history", err)
			return
		}

		writeOK(ctx, stdCtx, "success", history)
	})
}
