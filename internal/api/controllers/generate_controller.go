package controllers

import (
	"errors"
	"io"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/cosify/cosify/internal/perrors"
	"github.com/cosify/cosify/internal/services"
	"github.com/cosify/cosify/internal/services/analytics"
	"github.com/cosify/cosify/internal/services/pipeline"
)

// Multipart uploads are capped well above typical photo sizes.
const maxUploadBytes = 20 << 20

func RegisterGenerateRoutes(r *router.Router, svc *services.Services) {
	stages := map[string]pipeline.Stage{
		"/api/generate/stage1": pipeline.StageIntermediate,
		"/api/generate/stage2": pipeline.StageOutfit,
		"/api/generate/stage3": pipeline.StageFinal,
	}

	for path, stage := range stages {
		stage := stage
		r.POST(path, func(ctx *fasthttp.RequestCtx) {
			stdCtx := requestContext(ctx)

			claims, err := principal(ctx)
			if err != nil {
				writeError(ctx, stdCtx, "Unauthorized", err)
				return
			}

			form, err := ctx.MultipartForm()
			if err != nil {
				writeError(ctx, stdCtx, "Invalid multipart form", perrors.NewErrInvalidInput("Invalid multipart form", err))
				return
			}

			req := &pipeline.StageRequest{
				UserID: claims.UserID,
				Stage:  stage,
			}

			if v := form.Value["prompt"]; len(v) > 0 {
				req.Prompt = v[0]
			}
			if v := form.Value["runId"]; len(v) > 0 {
				req.RunID = v[0]
			}
			req.InputKeys = form.Value["inputKey"]

			for _, fh := range form.File["image"] {
				if fh.Size > maxUploadBytes {
					writeError(ctx, stdCtx, "Uploaded image too large", perrors.NewErrInvalidInput("Uploaded image too large", errors.New("image exceeds upload limit")))
					return
				}

				f, err := fh.Open()
				if err != nil {
					writeError(ctx, stdCtx, "Unable to read uploaded image", perrors.NewErrInvalidInput("Unable to read uploaded image", err))
					return
				}
				body, err := io.ReadAll(f)
				f.Close()
				if err != nil {
					writeError(ctx, stdCtx, "Unable to read uploaded image", perrors.NewErrInvalidInput("Unable to read uploaded image", err))
					return
				}

				req.Uploads = append(req.Uploads, body)
			}

			if len(req.Uploads) == 0 && len(req.InputKeys) == 0 {
				writeError(ctx, stdCtx, "An input image is required", perrors.NewErrInvalidInput("An input image is required", errors.New("no image or inputKey provided")))
				return
			}

			// First stage of a fresh flow starts the run implicitly
			if req.RunID == "" {
				run, err := svc.FlowRun.Start(stdCtx, claims.UserID, "cosify")
				if err != nil {
					writeError(ctx, stdCtx, "Failed to start flow run", err)
					return
				}
				req.RunID = run.ID
			} else {
				if _, err := svc.FlowRun.GetOwned(stdCtx, req.RunID, claims.UserID, isAdmin(claims)); err != nil {
					writeError(ctx, stdCtx, "Flow run not found", err)
					return
				}
			}

			result, err := svc.Pipeline.RunStage(stdCtx, req)
			if err != nil {
				writeError(ctx, stdCtx, "Stage failed", err)
				return
			}

			if svc.Analytics != nil {
				svc.Analytics.Track(stdCtx, &analytics.Event{
					Type:     analytics.EventGenerationStage,
					UserID:   claims.UserID,
					EntityID: req.RunID,
					Amount:   1,
				})
			}

			writeOK(ctx, stdCtx, "Stage completed", map[string]any{
				"key":          result.Key,
				"uploadedKeys": result.UploadedKeys,
				"runId":        req.RunID,
			})
		})
	}
}
