package flowrun

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosify/cosify/internal/perrors"
)

// fakeStore records deletes and can fail specific keys.
type fakeStore struct {
	objects  map[string][]byte
	deleted  []string
	failKeys map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:  map[string][]byte{},
		failKeys: map[string]bool{},
	}
}

func (f *fakeStore) Put(_ context.Context, key string, body []byte, _ string) error {
	f.objects[key] = body
	return nil
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, string, error) {
	body, ok := f.objects[key]
	if !ok {
		return nil, "", errors.New("no such key")
	}
	return body, "image/png", nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	if f.failKeys[key] {
		return errors.New("storage unavailable")
	}
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

func newMockFlowRunService(t *testing.T) (*FlowRunService, *fakeStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := newFakeStore()
	return NewFlowRunService(NewFlowRunRepo(sqlx.NewDb(db, "sqlmock")), store), store, mock
}

func runCols() []string {
	return []string{"id", "user_id", "flow_slug", "status", "is_public", "created_at", "updated_at"}
}

func runRow(id, userID string, status RunStatus) *sqlmock.Rows {
	return sqlmock.NewRows(runCols()).
		AddRow(id, userID, "cosify", string(status), false, time.Now(), time.Now())
}

func errorCode(t *testing.T, err error) string {
	t.Helper()

	var perr perrors.Err
	require.ErrorAs(t, err, &perr)
	return perr.ErrorCode()
}

func TestGetOwnedHidesOtherUsersRuns(t *testing.T) {
	svc, _, mock := newMockFlowRunService(t)

	mock.ExpectQuery("SELECT (.+) FROM flow_runs").
		WithArgs("run1").
		WillReturnRows(runRow("run1", "owner", StatusActive))

	_, err := svc.GetOwned(context.Background(), "run1", "someone-else", false)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", errorCode(t, err))
}

func TestGetOwnedAllowsAdmin(t *testing.T) {
	svc, _, mock := newMockFlowRunService(t)

	mock.ExpectQuery("SELECT (.+) FROM flow_runs").
		WithArgs("run1").
		WillReturnRows(runRow("run1", "owner", StatusActive))

	run, err := svc.GetOwned(context.Background(), "run1", "admin1", true)
	require.NoError(t, err)
	assert.Equal(t, "run1", run.ID)
}

func TestSoftDeleteAndRestore(t *testing.T) {
	svc, _, mock := newMockFlowRunService(t)

	mock.ExpectQuery("SELECT (.+) FROM flow_runs").
		WithArgs("run1").
		WillReturnRows(runRow("run1", "owner", StatusActive))
	mock.ExpectExec("UPDATE flow_runs").
		WithArgs("run1", string(StatusDeleted)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.SoftDelete(context.Background(), "run1", "owner", false))

	mock.ExpectQuery("SELECT (.+) FROM flow_runs").
		WithArgs("run1").
		WillReturnRows(runRow("run1", "owner", StatusDeleted))
	mock.ExpectExec("UPDATE flow_runs").
		WithArgs("run1", string(StatusActive)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.Restore(context.Background(), "run1", "owner", false))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeDeletesRowsAndObjects(t *testing.T) {
	svc, store, mock := newMockFlowRunService(t)

	mock.ExpectQuery("SELECT (.+) FROM flow_runs").
		WithArgs("run1").
		WillReturnRows(runRow("run1", "owner", StatusDeleted))
	mock.ExpectQuery("SELECT a.storage_key").
		WithArgs("run1").
		WillReturnRows(sqlmock.NewRows([]string{"storage_key"}).
			AddRow("uploads/x.png").
			AddRow("intermediate/y.png").
			AddRow("final_stage3/z.png"))
	mock.ExpectExec("DELETE FROM flow_runs").
		WithArgs("run1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.Purge(context.Background(), "run1", "owner", false))
	assert.ElementsMatch(t, []string{"uploads/x.png", "intermediate/y.png", "final_stage3/z.png"}, store.deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeSwallowsStorageDeleteFailures(t *testing.T) {
	svc, store, mock := newMockFlowRunService(t)

	store.failKeys["intermediate/y.png"] = true

	mock.ExpectQuery("SELECT (.+) FROM flow_runs").
		WithArgs("run1").
		WillReturnRows(runRow("run1", "owner", StatusDeleted))
	mock.ExpectQuery("SELECT a.storage_key").
		WithArgs("run1").
		WillReturnRows(sqlmock.NewRows([]string{"storage_key"}).
			AddRow("uploads/x.png").
			AddRow("intermediate/y.png"))
	mock.ExpectExec("DELETE FROM flow_runs").
		WithArgs("run1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// One object delete fails, the purge still succeeds
	require.NoError(t, svc.Purge(context.Background(), "run1", "owner", false))
	assert.Equal(t, []string{"uploads/x.png"}, store.deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeRequiresOwnership(t *testing.T) {
	svc, store, mock := newMockFlowRunService(t)

	mock.ExpectQuery("SELECT (.+) FROM flow_runs").
		WithArgs("run1").
		WillReturnRows(runRow("run1", "owner", StatusActive))

	err := svc.Purge(context.Background(), "run1", "intruder", false)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", errorCode(t, err))
	assert.Empty(t, store.deleted)
}

func TestListByUserReturnsEmptySlice(t *testing.T) {
	svc, _, mock := newMockFlowRunService(t)

	mock.ExpectQuery("SELECT (.+) FROM flow_runs").
		WithArgs("owner", string(StatusActive)).
		WillReturnRows(sqlmock.NewRows(runCols()))

	runs, err := svc.ListByUser(context.Background(), "owner")
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}
