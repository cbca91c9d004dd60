//go:build cgo

package provenance

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openKuzuT(t *testing.T) *KuzuStore {
	t.Helper()
	s, err := NewKuzuStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.InitSchema(context.Background()))
	return s
}

func TestKuzuStore(t *testing.T) {
	t.Run("schema twice", func(t *testing.T) {
		require.NoError(t, openKuzuT(t).InitSchema(context.Background()))
	})
	t.Run("record and query", func(t *testing.T) {
		checkRecordedRun(t, openKuzuT(t))
	})
	t.Run("run IDs are unique", func(t *testing.T) {
		s := openKuzuT(t)
		ctx := context.Background()
		require.NoError(t, s.AddRun(ctx, RunNode{ID: "r", CreatedAt: recordedAt}))
		assert.Error(t, s.AddRun(ctx, RunNode{ID: "r", CreatedAt: recordedAt}))
	})
	t.Run("unknown edge kind", func(t *testing.T) {
		err := openKuzuT(t).AddEdge(context.Background(), Edge{Kind: "FOLLOWS", SourceID: "a", TargetID: "b"})
		assert.ErrorContains(t, err, "unsupported edge kind")
	})
	t.Run("empty run", func(t *testing.T) {
		s := openKuzuT(t)
		got, err := s.Contributors(context.Background(), "nope")
		require.NoError(t, err)
		assert.Empty(t, got)
		trails, err := s.Conflicts(context.Background(), "nope")
		require.NoError(t, err)
		assert.Empty(t, trails)
	})
}

func TestKuzuStore_CloseTwice(t *testing.T) {
	s, err := NewKuzuStore()
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestKuzuFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphs", "provenance.kz")
	ctx := context.Background()

	first, err := NewKuzuFileStore(path)
	require.NoError(t, err)
	require.NoError(t, first.InitSchema(ctx))
	require.NoError(t, Record(ctx, first, "run-1", timelineRun()))
	before, err := first.Stats(ctx)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewKuzuFileStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })
	require.NoError(t, second.InitSchema(ctx))

	run, err := second.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "run-1", run.ID)

	after, err := second.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, after.RunCount)
}
