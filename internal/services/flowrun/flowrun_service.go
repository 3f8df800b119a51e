package flowrun

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cosify/cosify/internal/perrors"
	"github.com/cosify/cosify/internal/storage"
)

type FlowRunService struct {
	repo  *FlowRunRepo
	store storage.ObjectStore
}

func NewFlowRunService(repo *FlowRunRepo, store storage.ObjectStore) *FlowRunService {
	return &FlowRunService{repo: repo, store: store}
}

func (s *FlowRunService) Start(ctx context.Context, userID, flowSlug string) (*FlowRun, error) {
	return s.repo.Create(ctx, userID, flowSlug)
}

// GetOwned fetches a run and verifies the caller may act on it.
func (s *FlowRunService) GetOwned(ctx context.Context, runID, actorID string, admin bool) (*FlowRun, error) {
	run, err := s.repo.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, ErrRunNotFound) {
			return nil, perrors.NewErrNotFound("Flow run not found", err)
		}
		return nil, err
	}

	if run.UserID != actorID && !admin {
		// Hide other users' runs instead of revealing their existence
		return nil, perrors.NewErrNotFound("Flow run not found", ErrRunNotFound)
	}

	return run, nil
}

func (s *FlowRunService) ListByUser(ctx context.Context, userID string) ([]*FlowRun, error) {
	runs, err := s.repo.ListByUser(ctx, userID, StatusActive)
	if err != nil {
		return nil, err
	}

	if runs == nil {
		runs = []*FlowRun{}
	}

	return runs, nil
}

func (s *FlowRunService) AttachAsset(ctx context.Context, runID, stepSlug string, stepOrder int, storageKey string, kind AssetKind) (*FlowRunStepAsset, error) {
	stepID, err := s.repo.UpsertStep(ctx, runID, stepSlug, stepOrder)
	if err != nil {
		return nil, err
	}

	return s.repo.InsertAsset(ctx, stepID, storageKey, kind)
}

func (s *FlowRunService) SoftDelete(ctx context.Context, runID, actorID string, admin bool) error {
	run, err := s.GetOwned(ctx, runID, actorID, admin)
	if err != nil {
		return err
	}

	return s.repo.SetStatus(ctx, run.ID, StatusDeleted)
}

func (s *FlowRunService) Restore(ctx context.Context, runID, actorID string, admin bool) error {
	run, err := s.GetOwned(ctx, runID, actorID, admin)
	if err != nil {
		return err
	}

	return s.repo.SetStatus(ctx, run.ID, StatusActive)
}

func (s *FlowRunService) SetPublic(ctx context.Context, runID, actorID string, admin, public bool) error {
	run, err := s.GetOwned(ctx, runID, actorID, admin)
	if err != nil {
		return err
	}

	return s.repo.SetPublic(ctx, run.ID, public)
}

// Purge hard-deletes the run, its steps and assets, and the backing storage
// objects. Object deletions are best-effort: failures are logged and
// swallowed, the database rows are gone either way.
func (s *FlowRunService) Purge(ctx context.Context, runID, actorID string, admin bool) error {
	run, err := s.GetOwned(ctx, runID, actorID, admin)
	if err != nil {
		return err
	}

	keys, err := s.repo.AssetKeys(ctx, run.ID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteRun(ctx, run.ID); err != nil {
		return err
	}

	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			slog.WarnContext(ctx, "Unable to delete storage object during purge",
				slog.String("run_id", run.ID),
				slog.String("key", key),
				slog.Any("error", err))
		}
	}

	return nil
}
