package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackdrive/internal/model"
)

func newStoresForTest(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	memory := NewMemoryStore()
	require.NoError(t, memory.Init(ctx))

	sqlite := NewSQLiteStore(filepath.Join(t.TempDir(), "trackdrive.db"))
	require.NoError(t, sqlite.Init(ctx))
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{"memory": memory, "sqlite": sqlite}
}

func testGenome(id string) model.Genome {
	return model.Genome{
		VersionedRecord: model.CurrentVersion(),
		ID:              id,
		Decision:        "combined_grid",
		InputIDs:        []string{"in-00"},
		OutputIDs:       []string{"out-0"},
		Neurons:         []model.Neuron{{ID: "out-0", Activation: "sigmoid", Bias: 0.5}},
		Synapses:        []model.Synapse{{ID: "in-00>out-0", From: "in-00", To: "out-0", Weight: 1.25, Enabled: true}},
	}
}

func TestStoreRuns(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for name, store := range newStoresForTest(t) {
		t.Run(name, func(t *testing.T) {
			older := model.Run{VersionedRecord: model.CurrentVersion(), ID: "run-a", Track: "oval", Decision: "argmax_steer",
				Fitness: "gates", Population: 10, Generations: 5, Seed: 7, CreatedAt: base}
			newer := older
			newer.ID = "run-b"
			newer.Track = "kidney"
			newer.CreatedAt = base.Add(time.Minute)

			require.NoError(t, store.SaveRun(ctx, older))
			require.NoError(t, store.SaveRun(ctx, newer))
			require.Error(t, store.SaveRun(ctx, model.Run{}))

			got, ok, err := store.GetRun(ctx, "run-a")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, older, got)

			_, ok, err = store.GetRun(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			runs, err := store.ListRuns(ctx)
			require.NoError(t, err)
			require.Len(t, runs, 2)
			assert.Equal(t, "run-b", runs[0].ID)
			assert.Equal(t, "run-a", runs[1].ID)
		})
	}
}

func TestStoreGenomes(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStoresForTest(t) {
		t.Run(name, func(t *testing.T) {
			genome := testGenome("g1")
			require.NoError(t, store.SaveGenome(ctx, genome))

			genome.Synapses[0].Weight = 99
			loaded, ok, err := store.GetGenome(ctx, "g1")
			require.NoError(t, err)
			require.True(t, ok)
			if diff := cmp.Diff(testGenome("g1"), loaded); diff != "" {
				t.Fatalf("unexpected genome (-want +got):\n%s", diff)
			}

			stale := testGenome("g2")
			stale.SchemaVersion = 0
			require.ErrorIs(t, store.SaveGenome(ctx, stale), ErrVersionMismatch)

			_, ok, err = store.GetGenome(ctx, "g2")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStoreEvaluations(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStoresForTest(t) {
		t.Run(name, func(t *testing.T) {
			evaluations := []model.Evaluation{
				{RunID: "run-1", Generation: 0, GenomeID: "a", Fitness: 3, GatesPassed: 3, Frames: 120, Reason: "out_of_bounds"},
				{RunID: "run-1", Generation: 1, GenomeID: "b", Fitness: 7, GatesPassed: 7, Frames: 300, Reason: "lap_cap"},
				{RunID: "run-1", Generation: 0, GenomeID: "c", Fitness: 7, GatesPassed: 7, Frames: 310, Reason: "lap_cap"},
				{RunID: "run-1", Generation: 1, GenomeID: "d", Fitness: -1, GatesPassed: -1, Frames: 11, Reason: "stalled"},
				{RunID: "run-2", Generation: 0, GenomeID: "e", Fitness: 100, GatesPassed: 100, Frames: 5000, Reason: "frame_limit"},
			}
			require.NoError(t, store.SaveEvaluations(ctx, evaluations))
			for _, e := range evaluations {
				require.NotEmpty(t, e.ID)
			}

			top, err := store.TopEvaluations(ctx, "run-1", 3)
			require.NoError(t, err)
			got := make([]string, 0, len(top))
			for _, e := range top {
				got = append(got, e.GenomeID)
			}
			assert.Equal(t, []string{"c", "b", "a"}, got)
			assert.Equal(t, evaluations[2], top[0])

			all, err := store.TopEvaluations(ctx, "run-1", 0)
			require.NoError(t, err)
			assert.Len(t, all, 4)

			none, err := store.TopEvaluations(ctx, "missing", 5)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestStoreFitnessHistory(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStoresForTest(t) {
		t.Run(name, func(t *testing.T) {
			for _, summary := range []model.GenerationSummary{
				{RunID: "run-1", Generation: 1, Best: 4, Mean: 2, StdDev: 1, Worst: 0, BestGenomeID: "b"},
				{RunID: "run-1", Generation: 0, Best: 2, Mean: 1, StdDev: 0.5, Worst: 0, BestGenomeID: "a"},
				{RunID: "run-1", Generation: 1, Best: 5, Mean: 2.5, StdDev: 1, Worst: 0, BestGenomeID: "c"},
			} {
				require.NoError(t, store.SaveGenerationSummary(ctx, summary))
			}

			history, err := store.FitnessHistory(ctx, "run-1")
			require.NoError(t, err)
			require.Len(t, history, 2)
			assert.Equal(t, 0, history[0].Generation)
			assert.Equal(t, 5.0, history[1].Best)
			assert.Equal(t, "c", history[1].BestGenomeID)
		})
	}
}

func TestStoreRequiresInit(t *testing.T) {
	ctx := context.Background()
	for name, store := range map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": NewSQLiteStore(filepath.Join(t.TempDir(), "uninit.db")),
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := store.GetRun(ctx, "run")
			require.Error(t, err)
			require.Error(t, store.SaveGenerationSummary(ctx, model.GenerationSummary{RunID: "run"}))
		})
	}
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "trackdrive.db")

	first := NewSQLiteStore(path)
	require.NoError(t, first.Init(ctx))
	require.NoError(t, first.SaveRun(ctx, model.Run{VersionedRecord: model.CurrentVersion(), ID: "run-1", CreatedAt: time.Unix(0, 42).UTC()}))
	version, dirty, err := MigrateVersion(first.db)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)
	require.NoError(t, first.Close())

	second := NewSQLiteStore(path)
	require.NoError(t, second.Init(ctx))
	t.Cleanup(func() { _ = second.Close() })
	run, ok, err := second.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(42), run.CreatedAt.UnixNano())
}

func TestNewStore(t *testing.T) {
	store, err := NewStore("memory", "")
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, store)
	require.NoError(t, CloseIfSupported(store))

	store, err = NewStore("sqlite", filepath.Join(t.TempDir(), "factory.db"))
	require.NoError(t, err)
	require.IsType(t, &SQLiteStore{}, store)

	_, err = NewStore("postgres", "")
	require.Error(t, err)

	require.Error(t, NewSQLiteStore("").Init(context.Background()))
}
