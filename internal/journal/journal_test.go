package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestAppendAndRecent(t *testing.T) {
	j := openTestJournal(t)

	first := &Record{
		Task:            "sync",
		UpstreamVersion: "1.3.0",
		LocalVersion:    "1.2.0",
		Outcome:         OutcomeSynced,
		Detail:          "pushed autoupdate",
	}
	require.NoError(t, j.Append(first))
	assert.NotZero(t, first.ID)

	require.NoError(t, j.Append(&Record{
		Task:    "sync",
		Outcome: OutcomeNoUpdate,
	}))

	records, err := j.Recent(10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, OutcomeNoUpdate, records[0].Outcome)
	assert.Equal(t, OutcomeSynced, records[1].Outcome)
	assert.Equal(t, "1.3.0", records[1].UpstreamVersion)
	assert.WithinDuration(t, time.Now().UTC(), records[0].Timestamp, time.Minute)
}

func TestRecentLimit(t *testing.T) {
	j := openTestJournal(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, j.Append(&Record{Task: "sync", Outcome: OutcomeNoUpdate}))
	}

	records, err := j.Recent(3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Append(&Record{Task: "release", Outcome: OutcomeSynced}))
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()

	records, err := j.Recent(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "release", records[0].Task)
}
