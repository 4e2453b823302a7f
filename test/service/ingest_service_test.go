package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	errs "github.com/trialrag/trialrag/internal/pkg/errors"
	"github.com/trialrag/trialrag/internal/repo"
	"github.com/trialrag/trialrag/internal/service"
	"github.com/trialrag/trialrag/test/testutil"
)

func writeTrialFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestServiceLoadFileAndRebuild(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	index := testutil.NewTestIndex(t)

	trials := repo.NewTrialRepo(db)
	svc := service.NewIngestService(trials, index)

	path := writeTrialFile(t, "trials.json", `[
		{
			"nct_id": "NCT001",
			"title": "Melanoma Immunotherapy Study",
			"phase": "Phase 2",
			"conditions": "Melanoma",
			"description": "A study of pembrolizumab for advanced melanoma.",
			"inclusion_criteria": "Adults with confirmed stage III melanoma."
		},
		{
			"nct_id": "NCT002",
			"title": "Aspirin Prevention Study",
			"phase": "Phase 3",
			"conditions": "Cardiovascular Disease",
			"description": "Aspirin for prevention of cardiovascular events."
		}
	]`)

	loaded, err := svc.LoadFile(context.Background(), path, "")
	require.NoError(t, err)
	require.Equal(t, 2, loaded)

	count, err := trials.Count(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	// Description, eligibility and overview chunks for the first trial,
	// description and overview for the second.
	require.Equal(t, 5, index.Count())

	_, err = svc.LoadFile(context.Background(), path, "xml")
	require.ErrorIs(t, err, errs.ErrInvalid)

	rebuilt, err := svc.Rebuild(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, rebuilt)
	require.Equal(t, 5, index.Count())

	results, err := index.Query(context.Background(), "pembrolizumab melanoma", 3, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "NCT001", results[0].Metadata.NCTID)
}

func TestIngestServiceLoadCSV(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	index := testutil.NewTestIndex(t)

	svc := service.NewIngestService(repo.NewTrialRepo(db), index)

	path := writeTrialFile(t, "trials.csv",
		"nct_id,title,phase,description\n"+
			"NCT010,Lupus Registry,Phase 1,A registry of lupus patients.\n")

	loaded, err := svc.LoadFile(context.Background(), path, "csv")
	require.NoError(t, err)
	require.Equal(t, 1, loaded)
	require.Equal(t, 2, index.Count())
}
