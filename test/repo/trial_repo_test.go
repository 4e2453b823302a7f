package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trialrag/trialrag/internal/model"
	appErr "github.com/trialrag/trialrag/internal/pkg/errors"
	"github.com/trialrag/trialrag/internal/repo"
	"github.com/trialrag/trialrag/test/testutil"
)

func TestTrialRepoSaveAndGet(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	trials := repo.NewTrialRepo(db)
	records := []model.TrialRecord{
		{"nct_id": "NCT001", "title": "Aspirin Trial", "phase": "Phase 1"},
		{"system_id": "SYS-9", "title": "Registry Entry"},
		{"title": "No Identifier"},
	}
	stored, err := trials.Save(context.Background(), records)
	require.NoError(t, err)
	require.Equal(t, 2, stored)

	count, err := trials.Count(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	got, err := trials.GetByNCTID(context.Background(), "NCT001")
	require.NoError(t, err)
	require.Equal(t, "Aspirin Trial", got.Get("title"))
	require.Equal(t, "Phase 1", got.Get("phase"))

	bySystemID, err := trials.GetByNCTID(context.Background(), "SYS-9")
	require.NoError(t, err)
	require.Equal(t, "Registry Entry", bySystemID.Get("title"))

	_, err = trials.GetByNCTID(context.Background(), "NCT404")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestTrialRepoReplacesOnSameID(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	trials := repo.NewTrialRepo(db)
	ctx := context.Background()

	_, err := trials.Save(ctx, []model.TrialRecord{{"nct_id": "NCT001", "title": "Old Title"}})
	require.NoError(t, err)
	_, err = trials.Save(ctx, []model.TrialRecord{{"nct_id": "NCT001", "title": "New Title"}})
	require.NoError(t, err)

	count, err := trials.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	got, err := trials.GetByNCTID(ctx, "NCT001")
	require.NoError(t, err)
	require.Equal(t, "New Title", got.Get("title"))
}

func TestTrialRepoList(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	trials := repo.NewTrialRepo(db)
	ctx := context.Background()

	records := []model.TrialRecord{
		{"nct_id": "NCT001", "title": "First"},
		{"nct_id": "NCT002", "title": "Second"},
		{"nct_id": "NCT003", "title": "Third"},
	}
	_, err := trials.Save(ctx, records)
	require.NoError(t, err)

	page, err := trials.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "NCT001", page[0].Get("nct_id"))
	require.Equal(t, "NCT002", page[1].Get("nct_id"))

	rest, err := trials.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, "NCT003", rest[0].Get("nct_id"))

	all, err := trials.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
}
