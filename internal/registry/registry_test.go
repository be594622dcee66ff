package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/xaibench/pkg/errors"
)

func openTemp(t *testing.T) *Registry {
	t.Helper()
	r, err := Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRecordAndGet(t *testing.T) {
	ctx := context.Background()
	r := openTemp(t)

	run := &Run{
		Dataset:     "CENSUS",
		Target:      "income",
		Model:       "Model 1",
		Algorithm:   "RANDOM_FOREST",
		ProblemType: "CLASSIFICATION",
		Split:       "BALANCED",
		Metrics:     map[string]float64{"accuracy": 0.84},
	}
	require.NoError(t, r.Record(ctx, run))
	assert.Len(t, run.ID, 36)
	assert.False(t, run.CreatedAt.IsZero())

	got, err := r.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Dataset, got.Dataset)
	assert.Equal(t, run.Algorithm, got.Algorithm)
	assert.Equal(t, 0.84, got.Metrics["accuracy"])
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))

	_, err = r.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	r := openTemp(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, alg := range []string{"SVM", "XGB", "DECISION_TREE"} {
		require.NoError(t, r.Record(ctx, &Run{
			Dataset:   "IRIS",
			Algorithm: alg,
			Metrics:   map[string]float64{},
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	all, err := r.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "DECISION_TREE", all[0].Algorithm)
	assert.Equal(t, "SVM", all[2].Algorithm)

	two, err := r.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestListOrdersSubsecondTimes(t *testing.T) {
	ctx := context.Background()
	r := openTemp(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// .12s is later than .1s although "…00.1Z" > "…00.12Z" as variable-width text.
	require.NoError(t, r.Record(ctx, &Run{Algorithm: "LATER", Metrics: map[string]float64{}, CreatedAt: base.Add(120 * time.Millisecond)}))
	require.NoError(t, r.Record(ctx, &Run{Algorithm: "EARLIER", Metrics: map[string]float64{}, CreatedAt: base.Add(100 * time.Millisecond)}))

	runs, err := r.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "LATER", runs[0].Algorithm)
	assert.True(t, runs[0].CreatedAt.Equal(base.Add(120*time.Millisecond)))
}

func TestReopenKeepsRuns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")
	r, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, r.Record(ctx, &Run{Dataset: "WINE_QUALITY", Metrics: map[string]float64{"r2": 0.3}}))
	require.NoError(t, r.Close())

	r, err = Open(ctx, path)
	require.NoError(t, err)
	defer r.Close()
	runs, err := r.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, path, r.Path())
}

func TestInMemory(t *testing.T) {
	ctx := context.Background()
	r, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.Record(ctx, &Run{ID: "fixed", Metrics: nil}))
	got, err := r.Get(ctx, "fixed")
	require.NoError(t, err)
	assert.Nil(t, got.Metrics)
}
