package storage

import (
	"os"
	"path/filepath"
	"testing"

	qcerrors "github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/errors"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/verdict"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() map[string]verdict.Verdict {
	return map[string]verdict.Verdict{
		"C1": {Quality: verdict.Incorrect, Comment: "After Photo-Missing"},
		"C2": {Quality: verdict.Correct},
		"C3": {Quality: verdict.NotReviewed},
		"C4": {Quality: verdict.Pending},
	}
}

func TestJSONFile_InitCreatesEmptyMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.json")
	repo := NewJSONFile(path, nil)

	require.NoError(t, repo.Init())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))

	loaded, err := repo.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestJSONFile_InitKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"C9":{"Quality":"Correct","comment":""}}`), 0644))

	repo := NewJSONFile(path, nil)
	require.NoError(t, repo.Init())

	loaded, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, verdict.Correct, loaded["C9"].Quality)
}

func TestJSONFile_RoundTrip(t *testing.T) {
	repo := NewJSONFile(filepath.Join(t.TempDir(), "feedback.json"), nil)

	require.NoError(t, repo.Save(sample()))

	loaded, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, sample(), loaded)
}

func TestJSONFile_WireFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.json")
	repo := NewJSONFile(path, nil)

	require.NoError(t, repo.Save(map[string]verdict.Verdict{
		"C1": {Quality: verdict.Incorrect, Comment: "After Photo-Missing"},
		"C2": {Quality: verdict.Pending},
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"C1": {"Quality": "Incorrect", "comment": "After Photo-Missing"},
		"C2": {"Quality": "Status Yet to be Updated", "comment": ""}
	}`, string(data))
}

func TestJSONFile_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	repo := NewJSONFile(filepath.Join(dir, "feedback.json"), nil)

	require.NoError(t, repo.Save(sample()))
	require.NoError(t, repo.Save(map[string]verdict.Verdict{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "feedback.json", entries[0].Name())
}

func TestJSONFile_FailedSaveKeepsPreviousCopy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feedback.json")
	repo := NewJSONFile(path, nil)
	require.NoError(t, repo.Save(sample()))

	// Missing parent directory: the temp file cannot be created.
	broken := NewJSONFile(filepath.Join(dir, "missing", "feedback.json"), nil)
	err := broken.Save(sample())
	require.Error(t, err)
	assert.True(t, qcerrors.IsPersistence(err))

	loaded, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, sample(), loaded)
}

func TestJSONFile_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"C1": `), 0644))

	_, err := NewJSONFile(path, nil).Load()
	require.Error(t, err)
	assert.True(t, qcerrors.IsPersistence(err))
}

func storedVersion(t *testing.T, repo *SQLite, id string) int {
	t.Helper()
	var row verdictRow
	require.NoError(t, repo.db.Where("complaint_number = ?", id).First(&row).Error)
	return row.Version
}

func TestSQLite_RoundTripAndVersions(t *testing.T) {
	repo, err := OpenSQLite(filepath.Join(t.TempDir(), "verdicts.db"), nil)
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.Save(sample()))

	loaded, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, sample(), loaded)

	assert.Equal(t, 1, storedVersion(t, repo, "C2"))

	next := sample()
	next["C2"] = verdict.Verdict{Quality: verdict.Incorrect, Comment: "After Photo-Wrong/Blurry"}
	require.NoError(t, repo.Save(next))

	assert.Equal(t, 2, storedVersion(t, repo, "C2"))
	assert.Equal(t, 1, storedVersion(t, repo, "C1"), "unchanged records keep their version")
}

func TestSQLite_SessionsDoNotClobberOtherRecords(t *testing.T) {
	repo, err := OpenSQLite(filepath.Join(t.TempDir(), "verdicts.db"), nil)
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.Save(map[string]verdict.Verdict{"C1": {Quality: verdict.Correct}}))
	require.NoError(t, repo.Save(map[string]verdict.Verdict{"C2": {Quality: verdict.NotReviewed}}))

	loaded, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, verdict.Correct, loaded["C1"].Quality)
	assert.Equal(t, verdict.NotReviewed, loaded["C2"].Quality)
}
