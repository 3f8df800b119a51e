package controllers

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/cosify/cosify/internal/services"
	"github.com/cosify/cosify/internal/services/audit"
)

func RegisterAuditTrailRoutes(r *router.Router, svc *services.Services) {
	r.GET("/api/admin/audit-trail", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		if _, err := adminPrincipal(ctx); err != nil {
			writeError(ctx, stdCtx, "Admin role required", err)
			return
		}

		q := &audit.Query{
			EntityType: string(ctx.QueryArgs().Peek("entityType")),
			ActorID:    string(ctx.QueryArgs().Peek("actorId")),
			Days:       ctx.QueryArgs().GetUintOrZero("days"),
			Page:       ctx.QueryArgs().GetUintOrZero("page"),
			Limit:      ctx.QueryArgs().GetUintOrZero("limit"),
		}

		entries, total, err := svc.Audit.List(stdCtx, q)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list audit trail", err)
			return
		}

		writeOK(ctx, stdCtx, "success", map[string]any{
			"entries": entries,
			"total":   total,
		})
	})
}
