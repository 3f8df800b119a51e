package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cosify/cosify/internal/perrors"
	"github.com/cosify/cosify/internal/services/analytics"
	"github.com/cosify/cosify/internal/services/credit"
	"github.com/cosify/cosify/internal/services/flowrun"
	"github.com/cosify/cosify/internal/storage"
)

const stageCreditCost = 1

var tracer = otel.Tracer("cosify/pipeline")

// Generator is one call to the external image model.
type Generator interface {
	Generate(ctx context.Context, prompt string, inputImages [][]byte) ([]byte, error)
}

// CreditConsumer gates stage execution on the caller's balance.
type CreditConsumer interface {
	Consume(ctx context.Context, userID string, amount int64, reason string) (*credit.CreditTransaction, error)
}

// RunRecorder records produced assets against a flow run.
type RunRecorder interface {
	AttachAsset(ctx context.Context, runID, stepSlug string, stepOrder int, storageKey string, kind flowrun.AssetKind) (*flowrun.FlowRunStepAsset, error)
}

// EventTracker receives usage events. Nil when analytics is disabled.
type EventTracker interface {
	Track(ctx context.Context, event *analytics.Event)
}

type PipelineService struct {
	gen     Generator
	store   storage.ObjectStore
	credits CreditConsumer
	runs    RunRecorder
	events  EventTracker
}

func NewPipelineService(gen Generator, store storage.ObjectStore, credits CreditConsumer, runs RunRecorder, events EventTracker) *PipelineService {
	return &PipelineService{
		gen:     gen,
		store:   store,
		credits: credits,
		runs:    runs,
		events:  events,
	}
}

func outputKey(stage Stage, id string) string {
	switch stage {
	case StageIntermediate:
		return "intermediate/" + id + ".png"
	case StageOutfit:
		return "outfit/" + id + ".png"
	case StageFinal:
		return "final_stage3/" + id + ".png"
	}
	return ""
}

// RunStage executes a single stage: charge one credit, collect inputs, call
// the generator once, persist the output at its deterministic key, and record
// the assets on the flow run. There is no retry and no refund on failure.
func (s *PipelineService) RunStage(ctx context.Context, req *StageRequest) (*StageResult, error) {
	if !req.Stage.Valid() {
		return nil, perrors.NewErrInvalidInput("Unknown pipeline stage", fmt.Errorf("stage %q", req.Stage))
	}

	ctx, span := tracer.Start(ctx, "pipeline.stage")
	defer span.End()
	span.SetAttributes(
		attribute.String("pipeline.stage", string(req.Stage)),
		attribute.String("pipeline.run_id", req.RunID),
	)

	if _, err := s.credits.Consume(ctx, req.UserID, stageCreditCost, "generation "+string(req.Stage)); err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.Track(ctx, &analytics.Event{
			Type:     analytics.EventCreditsConsumed,
			UserID:   req.UserID,
			EntityID: req.RunID,
			Amount:   stageCreditCost,
		})
	}

	result := &StageResult{}

	inputs := make([][]byte, 0, len(req.Uploads)+len(req.InputKeys))
	for _, upload := range req.Uploads {
		uploadKey := "uploads/" + uuid.NewString() + ".png"
		if err := s.store.Put(ctx, uploadKey, upload, "image/png"); err != nil {
			return nil, perrors.NewErrInternalServerError("Unable to store uploaded image", err)
		}

		if _, err := s.runs.AttachAsset(ctx, req.RunID, string(req.Stage), req.Stage.Order(), uploadKey, flowrun.AssetUploaded); err != nil {
			return nil, perrors.NewErrInternalServerError("Unable to record uploaded image", err)
		}

		result.UploadedKeys = append(result.UploadedKeys, uploadKey)
		inputs = append(inputs, upload)
	}

	for _, key := range req.InputKeys {
		body, _, err := s.store.Get(ctx, key)
		if err != nil {
			return nil, perrors.NewErrInvalidInput("Unknown input image key", err)
		}
		inputs = append(inputs, body)
	}

	generated, err := s.gen.Generate(ctx, req.Prompt, inputs)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Image generation failed", err)
	}

	key := outputKey(req.Stage, uuid.NewString())
	if err := s.store.Put(ctx, key, generated, "image/png"); err != nil {
		return nil, perrors.NewErrInternalServerError("Unable to store generated image", err)
	}

	if _, err := s.runs.AttachAsset(ctx, req.RunID, string(req.Stage), req.Stage.Order(), key, flowrun.AssetGenerated); err != nil {
		return nil, perrors.NewErrInternalServerError("Unable to record generated image", err)
	}

	result.Key = key
	return result, nil
}
