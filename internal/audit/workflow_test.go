package audit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCommitter struct {
	paths   []string
	message string
	err     error
}

func (f *fakeCommitter) Commit(paths []string, message string) error {
	f.paths = paths
	f.message = message
	return f.err
}

func TestGenerateSlugNormalizes(t *testing.T) {
	assert.Equal(t, "rotate-credentials-on-quota", GenerateSlug("Rotate Credentials (on Quota!)"))
}

func TestSanitizeRepoIDTruncatesAndCapitalizes(t *testing.T) {
	assert.Equal(t, "Governa", sanitizeRepoID("governance-orchestrator"))
}

func TestGetRepoShortIDUsesOverride(t *testing.T) {
	RegisterRepoIDOverride("special-repo", "SPECIAL")
	assert.Equal(t, "SPECIAL", GetRepoShortID(filepath.Join(t.TempDir(), "special-repo")))
}

func TestEnsureDirectoriesCreatesTreeWithGitkeep(t *testing.T) {
	root := t.TempDir()
	dirs := Dirs{Root: root}
	require.NoError(t, dirs.EnsureDirectories())

	for _, sub := range []string{"active", "done", "ideas"} {
		keep := filepath.Join(root, sub, ".gitkeep")
		_, err := os.Stat(keep)
		assert.NoError(t, err, "expected %s to exist", keep)
	}
}

func TestNextFileNumberStartsAtOneAndIncrements(t *testing.T) {
	dir := t.TempDir()
	n, err := NextFileNumber(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "SLUG-001-brief.md"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SLUG-003-brief.md"), nil, 0o644))

	n, err = NextFileNumber(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestSaveAuditFileAndMoveToDone(t *testing.T) {
	root := t.TempDir()
	repoRoot := t.TempDir()
	dirs := Dirs{Root: root}

	meta, err := dirs.SaveAuditFile(repoRoot, "rotate-credentials", "brief.md", []byte("content"))
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Number)
	assert.FileExists(t, meta.Path)

	donePath, err := dirs.MoveToDone(meta.Path)
	require.NoError(t, err)
	assert.FileExists(t, donePath)
	assert.NoFileExists(t, meta.Path)
}

func TestMoveToDoneAvoidsCollision(t *testing.T) {
	root := t.TempDir()
	dirs := Dirs{Root: root}
	require.NoError(t, dirs.EnsureDirectories())

	active := filepath.Join(root, "active", "slug-001-brief.md")
	require.NoError(t, os.WriteFile(active, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "done", "slug-001-brief.md"), []byte("existing"), 0o644))

	dest, err := dirs.MoveToDone(active)
	require.NoError(t, err)
	assert.NotEqual(t, filepath.Join(root, "done", "slug-001-brief.md"), dest)
	assert.FileExists(t, dest)
}

func TestBatchCommitSkipsGitkeepAndNoopsWhenEmpty(t *testing.T) {
	root := t.TempDir()
	dirs := Dirs{Root: root}
	require.NoError(t, dirs.EnsureDirectories())

	committer := &fakeCommitter{}
	require.NoError(t, dirs.BatchCommit(committer, "file governance artifacts"))
	assert.Nil(t, committer.paths, "no-op expected when only .gitkeep is present")

	require.NoError(t, os.WriteFile(filepath.Join(root, "active", "slug-001-brief.md"), []byte("x"), 0o644))
	require.NoError(t, dirs.BatchCommit(committer, "file governance artifacts"))
	require.Len(t, committer.paths, 1)
	assert.Equal(t, "file governance artifacts", committer.message)
}

func TestSlugExists(t *testing.T) {
	dir := t.TempDir()
	exists, err := SlugExists(dir, "rotate-credentials")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "rotate-credentials-001-brief.md"), nil, 0o644))
	exists, err = SlugExists(dir, "rotate-credentials")
	require.NoError(t, err)
	assert.True(t, exists)
}
