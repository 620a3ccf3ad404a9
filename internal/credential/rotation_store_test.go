package credential

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRotationStoreMissingFileIsEmpty(t *testing.T) {
	store, err := NewRotationStore(filepath.Join(t.TempDir(), "rotation.json"))
	require.NoError(t, err)
	assert.False(t, store.IsExhausted("cred-a", time.Now()))
}

func TestMarkExhaustedPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotation.json")
	store, err := NewRotationStore(path)
	require.NoError(t, err)

	expiresAt := time.Now().Add(time.Hour)
	require.NoError(t, store.MarkExhausted("cred-a", expiresAt))
	assert.True(t, store.IsExhausted("cred-a", time.Now()))

	reloaded, err := NewRotationStore(path)
	require.NoError(t, err)
	assert.True(t, reloaded.IsExhausted("cred-a", time.Now()))
}

func TestIsExhaustedExpiresStaleEntries(t *testing.T) {
	store, err := NewRotationStore(filepath.Join(t.TempDir(), "rotation.json"))
	require.NoError(t, err)

	require.NoError(t, store.MarkExhausted("cred-a", time.Now().Add(-time.Minute)))
	assert.False(t, store.IsExhausted("cred-a", time.Now()))
}

func TestLoadRejectsEmptyCredentialSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, writeFile(path, `{"credentials": []}`))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadParsesCredentialSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, writeFile(path, `{"credentials": [{"name": "a", "secret": "s1"}, {"name": "b", "secret": "s2"}]}`))

	set, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, set.Credentials, 2)
	assert.Equal(t, "a", set.Credentials[0].Name)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
