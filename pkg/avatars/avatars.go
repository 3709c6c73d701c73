// Package avatars stores avatar image frames on the local filesystem, one
// directory per session. Uploads replace the session's set wholesale.
package avatars

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File is one avatar frame.
type File struct {
	Filename string
	Data     []byte
}

// Store keeps avatar files under a root directory.
type Store struct {
	root string
}

// NewStore ensures root exists and returns a Store over it.
func NewStore(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("avatar root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create avatar root: %w", err)
	}
	return &Store{root: root}, nil
}

// Replace wipes any existing frames for sessionID and writes files in their
// place. Only .png frames are accepted; others are skipped. Returns the
// files actually written.
func (s *Store) Replace(sessionID string, files []File) ([]File, error) {
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return nil, err
	}
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("clear avatar dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create avatar dir: %w", err)
	}

	written := make([]File, 0, len(files))
	for _, f := range files {
		name := filepath.Base(f.Filename)
		if !strings.HasSuffix(strings.ToLower(name), ".png") {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, name), f.Data, 0o644); err != nil {
			return nil, fmt.Errorf("write avatar %s: %w", name, err)
		}
		written = append(written, File{Filename: name, Data: f.Data})
	}
	return written, nil
}

// List returns the stored frames for sessionID sorted by filename. A session
// with no uploads yields ok=false.
func (s *Store) List(sessionID string) ([]File, bool, error) {
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return nil, false, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read avatar dir: %w", err)
	}

	files := make([]File, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, false, fmt.Errorf("read avatar %s: %w", entry.Name(), err)
		}
		files = append(files, File{Filename: entry.Name(), Data: data})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })
	return files, true, nil
}

// sessionDir rejects ids that would escape the root.
func (s *Store) sessionDir(sessionID string) (string, error) {
	if sessionID == "" || sessionID != filepath.Base(sessionID) || strings.ContainsAny(sessionID, `/\`) {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	return filepath.Join(s.root, sessionID), nil
}
