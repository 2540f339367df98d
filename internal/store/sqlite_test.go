package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrastat/landcover-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSQLiteCreateAndGetRun(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "alpha")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "alpha", got.Region)
	assert.Equal(t, model.RunStatusQueued, got.Status)
	assert.Nil(t, got.Result)
}

func TestSQLiteGetRun_NotFound(t *testing.T) {
	st := newTestSQLite(t)

	_, err := st.GetRun(context.Background(), "missing")
	require.Error(t, err)
}

func TestSQLiteUpdateRunStatus(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "alpha")
	require.NoError(t, err)

	require.NoError(t, st.UpdateRunStatus(ctx, run.ID, model.RunStatusSampling))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSampling, got.Status)
}

func TestSQLiteUpdateRunStatus_NotFound(t *testing.T) {
	st := newTestSQLite(t)

	err := st.UpdateRunStatus(context.Background(), "missing", model.RunStatusFailed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteCompleteRun(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "alpha")
	require.NoError(t, err)

	result := &model.RunResult{
		SampleCount: 480,
		ClassPixels: map[string]float64{"water": 10, "built_up": 55},
		Stages: []model.StageResult{
			{Name: "stabilize", Status: model.StageStatusComplete, DurationMS: 120},
		},
	}
	require.NoError(t, st.CompleteRun(ctx, run.ID, model.RunStatusComplete, result))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, 480, got.Result.SampleCount)
	assert.Equal(t, result.ClassPixels, got.Result.ClassPixels)
	require.Len(t, got.Result.Stages, 1)
	assert.Equal(t, "stabilize", got.Result.Stages[0].Name)
}

func TestSQLiteCompleteRun_FailedWithErrorKind(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "cloudy")
	require.NoError(t, err)

	result := &model.RunResult{ErrorKind: "no_imagery", Error: "no imagery for region"}
	require.NoError(t, st.CompleteRun(ctx, run.ID, model.RunStatusFailed, result))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "no_imagery", got.Result.ErrorKind)
}

func TestSQLiteListRuns_Filters(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	a, err := st.CreateRun(ctx, "alpha")
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "beta")
	require.NoError(t, err)
	require.NoError(t, st.UpdateRunStatus(ctx, a.ID, model.RunStatusComplete))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	complete, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, "alpha", complete[0].Region)

	beta, err := st.ListRuns(ctx, RunFilter{Region: "beta"})
	require.NoError(t, err)
	require.Len(t, beta, 1)

	limited, err := st.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
