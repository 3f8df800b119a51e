package controllers

import (
	"errors"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/cosify/cosify/internal/perrors"
	"github.com/cosify/cosify/internal/services"
)

func RegisterAnalyticsRoutes(r *router.Router, svc *services.Services) {
	r.GET("/api/admin/analytics", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		if _, err := adminPrincipal(ctx); err != nil {
			writeError(ctx, stdCtx, "Admin role required", err)
			return
		}

		if svc.Analytics == nil {
			writeError(ctx, stdCtx, "Analytics is not configured", perrors.NewErrNotFound("Analytics is not configured", errors.New("clickhouse not configured")))
			return
		}

		days := ctx.QueryArgs().GetUintOrZero("days")

		summary, err := svc.Analytics.Summary(stdCtx, days)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to load analytics summary", err)
			return
		}

		writeOK(ctx, stdCtx, "success", summary)
	})
}
