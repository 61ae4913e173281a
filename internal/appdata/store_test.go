package appdata

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordResultMarksCompletedAndClearsFailure(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "librosa.sqlite"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.RecordFailedSearch(ctx, "main", 7))
	failed, err := store.Failed(ctx, "main")
	require.NoError(t, err)
	require.Len(t, failed, 1)

	require.NoError(t, store.RecordResult(ctx, "main", 7, "duration", 12.345))

	completed, err := store.Completed(ctx, "main")
	require.NoError(t, err)
	require.Equal(t, []int64{7}, completed)

	failed, err = store.Failed(ctx, "main")
	require.NoError(t, err)
	require.Empty(t, failed, "completed wins over failed")
}

func TestPurgeFailedSearchAllowsRetry(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "discogs.sqlite"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.RecordFailedSearch(ctx, "main", 3))
	require.NoError(t, store.PurgeFailedSearch(ctx, "main", 3))

	failed, err := store.Failed(ctx, "main")
	require.NoError(t, err)
	require.Empty(t, failed)
}
