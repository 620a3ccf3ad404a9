package audit

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// gitCryptHeader is the magic 9-byte prefix (\x00GITCRYPT) git-crypt writes
// at the start of encrypted blobs.
var gitCryptHeader = []byte("\x00GITCRYPT")

// IsIdeaEncrypted reports whether the file at path is a git-crypt-encrypted
// blob, by checking for the magic header rather than trying to parse it as
// plaintext.
func IsIdeaEncrypted(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("audit: opening %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, len(gitCryptHeader))
	n, err := f.Read(header)
	if err != nil && n == 0 {
		return false, nil
	}
	return bytes.Equal(header[:n], gitCryptHeader[:n]) && n == len(gitCryptHeader), nil
}

// Idea describes one staged idea file.
type Idea struct {
	Name      string
	Path      string
	Encrypted bool
}

// ListIdeas enumerates files under the ideas/ directory, flagging which are
// git-crypt encrypted so callers can skip attempting to read them as plain
// text.
func (d Dirs) ListIdeas() ([]Idea, error) {
	entries, err := os.ReadDir(d.ideas())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("audit: reading %s: %w", d.ideas(), err)
	}

	var ideas []Idea
	for _, e := range entries {
		if e.IsDir() || e.Name() == ".gitkeep" {
			continue
		}
		path := filepath.Join(d.ideas(), e.Name())
		encrypted, err := IsIdeaEncrypted(path)
		if err != nil {
			return nil, err
		}
		ideas = append(ideas, Idea{Name: e.Name(), Path: path, Encrypted: encrypted})
	}
	sort.Slice(ideas, func(i, j int) bool { return ideas[i].Name < ideas[j].Name })
	return ideas, nil
}
