package controllers

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/cosify/cosify/internal/perrors"
	"github.com/cosify/cosify/internal/services"
)

type VisibilityRequest struct {
	Public bool `json:"public"`
}

func RegisterFlowRunRoutes(r *router.Router, svc *services.Services) {
	// List the caller's active runs
	r.GET("/api/flow-runs", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		claims, err := principal(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", err)
			return
		}

		runs, err := svc.FlowRun.ListByUser(stdCtx, claims.UserID)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list flow runs", err)
			return
		}

		writeOK(ctx, stdCtx, "success", runs)
	})

	// Soft delete
	r.DELETE("/api/flow-runs/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		claims, err := principal(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", err)
			return
		}

		id, err := pathParam(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Flow run id is required", perrors.NewErrInvalidInput("Flow run id is required", err))
			return
		}

		if err := svc.FlowRun.SoftDelete(stdCtx, id, claims.UserID, isAdmin(claims)); err != nil {
			writeError(ctx, stdCtx, "Failed to delete flow run", err)
			return
		}

		writeOK(ctx, stdCtx, "Flow run deleted", map[string]any{"id": id})
	})

	// Restore a soft-deleted run
	r.POST("/api/flow-runs/{id}/restore", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		claims, err := principal(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", err)
			return
		}

		id, err := pathParam(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Flow run id is required", perrors.NewErrInvalidInput("Flow run id is required", err))
			return
		}

		if err := svc.FlowRun.Restore(stdCtx, id, claims.UserID, isAdmin(claims)); err != nil {
			writeError(ctx, stdCtx, "Failed to restore flow run", err)
			return
		}

		writeOK(ctx, stdCtx, "Flow run restored", map[string]any{"id": id})
	})

	// Purge: rows and storage objects are gone for good
	r.DELETE("/api/flow-runs/{id}/purge", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		claims, err := principal(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", err)
			return
		}

		id, err := pathParam(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Flow run id is required", perrors.NewErrInvalidInput("Flow run id is required", err))
			return
		}

		if err := svc.FlowRun.Purge(stdCtx, id, claims.UserID, isAdmin(claims)); err != nil {
			writeError(ctx, stdCtx, "Failed to purge flow run", err)
			return
		}

		writeOK(ctx, stdCtx, "Flow run purged", map[string]any{"id": id})
	})

	// Toggle public visibility
	r.POST("/api/flow-runs/{id}/visibility", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		claims, err := principal(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", err)
			return
		}

		id, err := pathParam(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Flow run id is required", perrors.NewErrInvalidInput("Flow run id is required", err))
			return
		}

		var body VisibilityRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidInput("Invalid request body", err))
			return
		}

		if err := svc.FlowRun.SetPublic(stdCtx, id, claims.UserID, isAdmin(claims), body.Public); err != nil {
			writeError(ctx, stdCtx, "Failed to update flow run visibility", err)
			return
		}

		writeOK(ctx, stdCtx, "Flow run visibility updated", map[string]any{
			"id":     id,
			"public": body.Public,
		})
	})
}
