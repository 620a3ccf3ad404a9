package audit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsIdeaEncryptedDetectsGitCryptHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idea.md")
	payload := append([]byte("\x00GITCRYPT"), []byte{0x00, 0x01, 0xFF, 0xFE}...)
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	encrypted, err := IsIdeaEncrypted(path)
	require.NoError(t, err)
	assert.True(t, encrypted)
}

func TestIsIdeaEncryptedPlaintextIsFalse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idea.md")
	require.NoError(t, os.WriteFile(path, []byte("# Just an idea\n"), 0o644))

	encrypted, err := IsIdeaEncrypted(path)
	require.NoError(t, err)
	assert.False(t, encrypted)
}

func TestListIdeasSkipsGitkeepAndSortsByName(t *testing.T) {
	root := t.TempDir()
	dirs := Dirs{Root: root}
	require.NoError(t, dirs.EnsureDirectories())

	ideasDir := filepath.Join(root, "ideas")
	require.NoError(t, os.WriteFile(filepath.Join(ideasDir, "zebra.md"), []byte("z"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(ideasDir, "apple.md"), []byte("a"), 0o644))

	ideas, err := dirs.ListIdeas()
	require.NoError(t, err)
	require.Len(t, ideas, 2)
	assert.Equal(t, "apple.md", ideas[0].Name)
	assert.Equal(t, "zebra.md", ideas[1].Name)
}
