package controllers

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/cosify/cosify/internal/perrors"
	"github.com/cosify/cosify/internal/services"
)

func RegisterStorageRoutes(r *router.Router, svc *services.Services) {
	// Serve a stored object. Keys are opaque to the client and come from
	// pipeline responses.
	r.GET("/api/r2/{key:*}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		if _, err := principal(ctx); err != nil {
			writeError(ctx, stdCtx, "Unauthorized", err)
			return
		}

		key, err := pathParam(ctx, "key")
		if err != nil {
			writeError(ctx, stdCtx, "Object key is required", perrors.NewErrInvalidInput("Object key is required", err))
			return
		}

		body, contentType, err := svc.Store.Get(stdCtx, key)
		if err != nil {
			writeError(ctx, stdCtx, "Object not found", perrors.NewErrNotFound("Object not found", err))
			return
		}

		if contentType == "" {
			contentType = "image/png"
		}

		ctx.Response.Header.Set("content-type", contentType)
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBody(body)
	})
}
