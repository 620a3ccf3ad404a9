package audit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, log.Write(NewEntry("issue", "generate_draft", "info", "drafted", nil)))
	require.NoError(t, log.Write(NewEntry("issue", "review", "info", "approved", map[string]interface{}{"attempt": 1})))

	entries, err := log.All()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "generate_draft", entries[0].Node)
	assert.Equal(t, "review", entries[1].Node)
}

func TestAllSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	content := `{"workflow":"issue","node":"a","level":"info","message":"ok"}
not valid json at all
{"workflow":"issue","node":"b","level":"info","message":"ok2"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	log, err := Open(path)
	require.NoError(t, err)

	entries, err := log.All()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Node)
	assert.Equal(t, "b", entries[1].Node)
}

func TestAllMissingFileReturnsEmpty(t *testing.T) {
	log, err := Open(filepath.Join(t.TempDir(), "nope", "audit.jsonl"))
	require.NoError(t, err)

	entries, err := log.All()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTailReturnsLastN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, log.Write(NewEntry("issue", "node", "info", "msg", nil)))
	}

	tail, err := log.Tail(2)
	require.NoError(t, err)
	assert.Len(t, tail, 2)
}

func TestCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, log.Write(NewEntry("issue", "node", "info", "msg", nil)))
	require.NoError(t, log.Write(NewEntry("issue", "node", "info", "msg", nil)))

	count, err := log.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
