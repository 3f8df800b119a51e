package controllers

import (
	"context"
	"errors"
	"fmt"

	json "github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"

	"github.com/cosify/cosify/internal/api/authenticator"
	"github.com/cosify/cosify/internal/api/response"
	"github.com/cosify/cosify/internal/perrors"
	"github.com/cosify/cosify/internal/services/user"
)

// requestContext returns a baseline context for handlers. fasthttp does not provide
// a standard context, so we start from Background for downstream calls.
func requestContext(ctx *fasthttp.RequestCtx) context.Context {
	if traceCtx, ok := ctx.UserValue("traceCtx").(context.Context); ok {
		return traceCtx
	}

	return context.Background()
}

func parseBody(ctx *fasthttp.RequestCtx, target any) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return errors.New("request body is empty")
	}

	return json.Unmarshal(body, target)
}

func writeError(ctx *fasthttp.RequestCtx, stdCtx context.Context, message string, err error) {
	response.NewResponse[any](stdCtx, message, nil).WithError(err).Write(ctx)
}

func writeOK(ctx *fasthttp.RequestCtx, stdCtx context.Context, message string, data any) {
	response.NewResponse(stdCtx, message, data).Write(ctx)
}

func pathParam(ctx *fasthttp.RequestCtx, key string) (string, error) {
	val := ctx.UserValue(key)
	if val == nil {
		return "", fmt.Errorf("%s is required", key)
	}

	return fmt.Sprint(val), nil
}

// principal returns the authenticated user attached by the auth middleware.
func principal(ctx *fasthttp.RequestCtx) (*authenticator.UserClaims, error) {
	claims, ok := ctx.UserValue("userClaims").(*authenticator.UserClaims)
	if !ok || claims == nil {
		return nil, perrors.NewErrUnauthorized("Authentication required", errors.New("no user claims on request"))
	}

	return claims, nil
}

// adminPrincipal returns the authenticated user only when it carries an
// admin role.
func adminPrincipal(ctx *fasthttp.RequestCtx) (*authenticator.UserClaims, error) {
	claims, err := principal(ctx)
	if err != nil {
		return nil, err
	}

	if !user.UserRole(claims.Role).IsAdmin() {
		return nil, perrors.NewErrAdminRequired("Admin role required", fmt.Errorf("role %q", claims.Role))
	}

	return claims, nil
}

func isAdmin(claims *authenticator.UserClaims) bool {
	return user.UserRole(claims.Role).IsAdmin()
}
