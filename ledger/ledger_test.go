package ledger

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRunLifecycle(t *testing.T) {
	l := openTestLedger(t)

	runID, err := l.BeginRun()
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, runID)

	run, err := l.Run(runID)
	require.NoError(t, err)
	assert.Nil(t, run.FinishedAt)
	assert.Zero(t, run.Processed)

	require.NoError(t, l.FinishRun(runID, 7))

	run, err = l.Run(runID)
	require.NoError(t, err)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, 7, run.Processed)
	assert.False(t, run.StartedAt.IsZero())
}

func TestFinishUnknownRun(t *testing.T) {
	l := openTestLedger(t)

	err := l.FinishRun(uuid.New(), 0)
	assert.EqualError(t, err, "run not found")
}

func TestRecordBooks(t *testing.T) {
	l := openTestLedger(t)

	runID, err := l.BeginRun()
	require.NoError(t, err)

	require.NoError(t, l.RecordBook(runID, "https://example.test/en/books/a-en", "a-en", "Health", StatusScraped))
	require.NoError(t, l.RecordBook(runID, "https://example.test/en/books/b-en", "b-en", "Health", StatusCached))
	require.NoError(t, l.RecordBook(runID, "https://example.test/en/books/c-en", "", "", StatusFailed))

	records, err := l.BooksForRun(runID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "a-en", records[0].Slug)
	assert.Equal(t, StatusScraped, records[0].Status)
	assert.Equal(t, StatusFailed, records[2].Status)

	// another run's books stay separate
	other, err := l.BeginRun()
	require.NoError(t, err)
	records, err = l.BooksForRun(other)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	l, err := Open(path)
	require.NoError(t, err)
	runID, err := l.BeginRun()
	require.NoError(t, err)
	require.NoError(t, l.Close())

	// reopening keeps existing rows
	l, err = Open(path)
	require.NoError(t, err)
	defer l.Close()

	run, err := l.Run(runID)
	require.NoError(t, err)
	assert.Equal(t, runID, run.RunID)
}
