package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosify/cosify/internal/perrors"
	"github.com/cosify/cosify/internal/services/analytics"
	"github.com/cosify/cosify/internal/services/credit"
	"github.com/cosify/cosify/internal/services/flowrun"
)

type fakeGenerator struct {
	calls  int
	output []byte
	err    error
}

func (f *fakeGenerator) Generate(_ context.Context, _ string, _ [][]byte) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

type fakeObjectStore struct {
	objects map[string][]byte
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}}
}

func (f *fakeObjectStore) Put(_ context.Context, key string, body []byte, _ string) error {
	f.objects[key] = body
	return nil
}

func (f *fakeObjectStore) Get(_ context.Context, key string) ([]byte, string, error) {
	body, ok := f.objects[key]
	if !ok {
		return nil, "", errors.New("no such key")
	}
	return body, "image/png", nil
}

func (f *fakeObjectStore) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

type fakeCredits struct {
	consumed int64
	err      error
}

func (f *fakeCredits) Consume(_ context.Context, _ string, amount int64, _ string) (*credit.CreditTransaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.consumed += amount
	return &credit.CreditTransaction{Amount: -amount, Type: credit.TypeConsumption}, nil
}

type recordedAsset struct {
	stepSlug string
	key      string
	kind     flowrun.AssetKind
}

type fakeRuns struct {
	assets []recordedAsset
}

func (f *fakeRuns) AttachAsset(_ context.Context, _ string, stepSlug string, _ int, storageKey string, kind flowrun.AssetKind) (*flowrun.FlowRunStepAsset, error) {
	f.assets = append(f.assets, recordedAsset{stepSlug: stepSlug, key: storageKey, kind: kind})
	return &flowrun.FlowRunStepAsset{StorageKey: storageKey, Kind: kind}, nil
}

type fakeTracker struct {
	events []*analytics.Event
}

func (f *fakeTracker) Track(_ context.Context, event *analytics.Event) {
	f.events = append(f.events, event)
}

func newTestPipeline(gen *fakeGenerator, credits *fakeCredits) (*PipelineService, *fakeObjectStore, *fakeRuns) {
	store := newFakeObjectStore()
	runs := &fakeRuns{}
	return NewPipelineService(gen, store, credits, runs, nil), store, runs
}

func TestRunStagePersistsOutputAtDeterministicKey(t *testing.T) {
	gen := &fakeGenerator{output: []byte("generated-png")}
	credits := &fakeCredits{}
	svc, store, runs := newTestPipeline(gen, credits)

	result, err := svc.RunStage(context.Background(), &StageRequest{
		UserID:  "u1",
		RunID:   "run1",
		Stage:   StageIntermediate,
		Prompt:  "portrait",
		Uploads: [][]byte{[]byte("raw-photo")},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.Key, "intermediate/"))
	assert.True(t, strings.HasSuffix(result.Key, ".png"))
	require.Len(t, result.UploadedKeys, 1)
	assert.True(t, strings.HasPrefix(result.UploadedKeys[0], "uploads/"))

	assert.Equal(t, []byte("generated-png"), store.objects[result.Key])
	assert.Equal(t, []byte("raw-photo"), store.objects[result.UploadedKeys[0]])

	require.Len(t, runs.assets, 2)
	assert.Equal(t, flowrun.AssetUploaded, runs.assets[0].kind)
	assert.Equal(t, flowrun.AssetGenerated, runs.assets[1].kind)
	assert.Equal(t, "stage1", runs.assets[0].stepSlug)

	assert.Equal(t, int64(1), credits.consumed)
	assert.Equal(t, 1, gen.calls)
}

func TestRunStageKeyPrefixes(t *testing.T) {
	prefixes := map[Stage]string{
		StageIntermediate: "intermediate/",
		StageOutfit:       "outfit/",
		StageFinal:        "final_stage3/",
	}

	for stage, prefix := range prefixes {
		gen := &fakeGenerator{output: []byte("out")}
		svc, _, _ := newTestPipeline(gen, &fakeCredits{})

		result, err := svc.RunStage(context.Background(), &StageRequest{
			UserID:  "u1",
			RunID:   "run1",
			Stage:   stage,
			Uploads: [][]byte{[]byte("in")},
		})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(result.Key, prefix), "stage %s produced key %s", stage, result.Key)
	}
}

func TestRunStageChargesBeforeGenerating(t *testing.T) {
	gen := &fakeGenerator{output: []byte("out")}
	credits := &fakeCredits{err: perrors.New(perrors.ErrCodeInsufficientCredits, "Not enough credits", errors.New("broke"))}
	svc, store, runs := newTestPipeline(gen, credits)

	_, err := svc.RunStage(context.Background(), &StageRequest{
		UserID:  "u1",
		RunID:   "run1",
		Stage:   StageOutfit,
		Uploads: [][]byte{[]byte("in")},
	})
	require.Error(t, err)

	var perr perrors.Err
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "INSUFFICIENT_CREDITS", perr.ErrorCode())

	assert.Zero(t, gen.calls)
	assert.Empty(t, store.objects)
	assert.Empty(t, runs.assets)
}

func TestRunStageReadsInputsByKey(t *testing.T) {
	gen := &fakeGenerator{output: []byte("composited")}
	svc, store, _ := newTestPipeline(gen, &fakeCredits{})

	store.objects["intermediate/a.png"] = []byte("stage1-out")
	store.objects["outfit/b.png"] = []byte("stage2-out")

	result, err := svc.RunStage(context.Background(), &StageRequest{
		UserID:    "u1",
		RunID:     "run1",
		Stage:     StageFinal,
		InputKeys: []string{"intermediate/a.png", "outfit/b.png"},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Key, "final_stage3/"))
	assert.Empty(t, result.UploadedKeys)
}

func TestRunStageReportsEveryUploadedKey(t *testing.T) {
	gen := &fakeGenerator{output: []byte("out")}
	svc, store, _ := newTestPipeline(gen, &fakeCredits{})

	result, err := svc.RunStage(context.Background(), &StageRequest{
		UserID:  "u1",
		RunID:   "run1",
		Stage:   StageIntermediate,
		Uploads: [][]byte{[]byte("photo-a"), []byte("photo-b")},
	})
	require.NoError(t, err)

	require.Len(t, result.UploadedKeys, 2)
	assert.NotEqual(t, result.UploadedKeys[0], result.UploadedKeys[1])
	assert.Equal(t, []byte("photo-a"), store.objects[result.UploadedKeys[0]])
	assert.Equal(t, []byte("photo-b"), store.objects[result.UploadedKeys[1]])
}

func TestRunStageTracksConsumedCredits(t *testing.T) {
	gen := &fakeGenerator{output: []byte("out")}
	tracker := &fakeTracker{}
	svc := NewPipelineService(gen, newFakeObjectStore(), &fakeCredits{}, &fakeRuns{}, tracker)

	_, err := svc.RunStage(context.Background(), &StageRequest{
		UserID:  "u1",
		RunID:   "run1",
		Stage:   StageOutfit,
		Uploads: [][]byte{[]byte("in")},
	})
	require.NoError(t, err)

	require.Len(t, tracker.events, 1)
	assert.Equal(t, analytics.EventCreditsConsumed, tracker.events[0].Type)
	assert.Equal(t, "u1", tracker.events[0].UserID)
	assert.Equal(t, int64(1), tracker.events[0].Amount)
}

func TestRunStageNoEventWhenChargeFails(t *testing.T) {
	tracker := &fakeTracker{}
	credits := &fakeCredits{err: perrors.New(perrors.ErrCodeInsufficientCredits, "Not enough credits", errors.New("broke"))}
	svc := NewPipelineService(&fakeGenerator{}, newFakeObjectStore(), credits, &fakeRuns{}, tracker)

	_, err := svc.RunStage(context.Background(), &StageRequest{
		UserID:  "u1",
		RunID:   "run1",
		Stage:   StageOutfit,
		Uploads: [][]byte{[]byte("in")},
	})
	require.Error(t, err)
	assert.Empty(t, tracker.events)
}

func TestRunStageUnknownInputKey(t *testing.T) {
	gen := &fakeGenerator{output: []byte("out")}
	credits := &fakeCredits{}
	svc, _, _ := newTestPipeline(gen, credits)

	_, err := svc.RunStage(context.Background(), &StageRequest{
		UserID:    "u1",
		RunID:     "run1",
		Stage:     StageOutfit,
		InputKeys: []string{"uploads/missing.png"},
	})
	require.Error(t, err)

	var perr perrors.Err
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "INVALID_INPUT", perr.ErrorCode())
	assert.Zero(t, gen.calls)
}

func TestRunStageGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model overloaded")}
	svc, _, runs := newTestPipeline(gen, &fakeCredits{})

	_, err := svc.RunStage(context.Background(), &StageRequest{
		UserID:  "u1",
		RunID:   "run1",
		Stage:   StageIntermediate,
		Uploads: [][]byte{[]byte("in")},
	})
	require.Error(t, err)

	var perr perrors.Err
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "INTERNAL_ERROR", perr.ErrorCode())

	// The upload was persisted before the failure, nothing generated
	require.Len(t, runs.assets, 1)
	assert.Equal(t, flowrun.AssetUploaded, runs.assets[0].kind)
}

func TestRunStageRejectsUnknownStage(t *testing.T) {
	svc, _, _ := newTestPipeline(&fakeGenerator{}, &fakeCredits{})

	_, err := svc.RunStage(context.Background(), &StageRequest{
		UserID: "u1",
		RunID:  "run1",
		Stage:  Stage("stage9"),
	})
	require.Error(t, err)

	var perr perrors.Err
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "INVALID_INPUT", perr.ErrorCode())
}
