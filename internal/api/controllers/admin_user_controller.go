package controllers

import (
	"errors"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/cosify/cosify/internal/perrors"
	"github.com/cosify/cosify/internal/services"
	"github.com/cosify/cosify/internal/services/user"
)

// UserListResponse is the flat shape the admin UI consumes.
type UserListResponse struct {
	Success    bool             `json:"success"`
	Users      []*user.User     `json:"users"`
	Pagination *user.Pagination `json:"pagination"`
}

type SetRoleRequest struct {
	Role user.UserRole `json:"role"`
}

type AdjustCreditsRequest struct {
	Amount    int64      `json:"amount"`
	Reason    string     `json:"reason"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

func RegisterAdminUserRoutes(r *router.Router, svc *services.Services) {
	// User directory
	r.GET("/api/admin/users", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		if _, err := adminPrincipal(ctx); err != nil {
			writeError(ctx, stdCtx, "Admin role required", err)
			return
		}

		q := &user.ListUsersQuery{
			Page:   ctx.QueryArgs().GetUintOrZero("page"),
			Limit:  ctx.QueryArgs().GetUintOrZero("limit"),
			Role:   user.UserRole(ctx.QueryArgs().Peek("role")),
			Search: string(ctx.QueryArgs().Peek("search")),
		}

		if q.Role != "" && !q.Role.Valid() {
			writeError(ctx, stdCtx, "Invalid role filter", perrors.NewErrInvalidInput("Invalid role filter", errors.New("unknown role")))
			return
		}

		users, pagination, err := svc.User.List(stdCtx, q)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list users", err)
			return
		}

		body, err := json.Marshal(UserListResponse{
			Success:    true,
			Users:      users,
			Pagination: pagination,
		})
		if err != nil {
			writeError(ctx, stdCtx, "Failed to encode response", err)
			return
		}

		ctx.Response.Header.Set("content-type", "application/json")
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBody(body)
	})

	// Role management
	r.POST("/api/admin/users/{id}/role", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		claims, err := adminPrincipal(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Admin role required", err)
			return
		}

		id, err := pathParam(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "User id is required", perrors.NewErrInvalidInput("User id is required", err))
			return
		}

		var body SetRoleRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidInput("Invalid request body", err))
			return
		}

		actor, err := svc.User.GetByID(stdCtx, claims.UserID)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to resolve acting user", err)
			return
		}

		updated, err := svc.User.SetRole(stdCtx, actor, id, body.Role)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to set role", err)
			return
		}

		writeOK(ctx, stdCtx, "Role updated", updated)
	})

	// Manual credit adjustment
	r.POST("/api/admin/users/{id}/adjust-credits", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		claims, err := adminPrincipal(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Admin role required", err)
			return
		}

		id, err := pathParam(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "User id is required", perrors.NewErrInvalidInput("User id is required", err))
			return
		}

		var body AdjustCreditsRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidInput("Invalid request body", err))
			return
		}

		if body.Amount == 0 {
			writeError(ctx, stdCtx, "Amount must be non-zero", perrors.NewErrInvalidInput("Amount must be non-zero", errors.New("amount is zero")))
			return
		}

		actor, err := svc.User.GetByID(stdCtx, claims.UserID)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to resolve acting user", err)
			return
		}

		txn, err := svc.User.AdjustCredits(stdCtx, actor, id, body.Amount, body.Reason, body.ExpiresAt)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to adjust credits", err)
			return
		}

		writeOK(ctx, stdCtx, "Credits adjusted", txn)
	})
}
