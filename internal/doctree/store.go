package doctree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

const filePerms = 0o644

// Store reads and writes meta.json and the content files below root. It does
// no locking of its own: two callers running Load/Save cycles at the same
// time lose one of the updates. Manager serializes access.
type Store struct {
	root     string
	metaPath string

	writeFile func(path string, r io.Reader) error
}

func NewStore(root, metaFile string) *Store {
	metaPath := metaFile
	if !filepath.IsAbs(metaPath) {
		metaPath = filepath.Join(root, metaFile)
	}
	return &Store{root: root, metaPath: metaPath, writeFile: atomic.WriteFile}
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) MetaPath() string {
	return s.metaPath
}

// Load reads the tree. A missing meta file is an empty tree.
func (s *Store) Load() (*Tree, error) {
	raw, err := os.ReadFile(s.metaPath)
	if errors.Is(err, os.ErrNotExist) {
		return &Tree{Pages: []*PageNode{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read meta file: %w", err)
	}
	var t Tree
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("decode meta file: %w", err)
		}
	}
	if t.Pages == nil {
		t.Pages = []*PageNode{}
	}
	t.Walk(func(n, _ *PageNode) bool {
		if n.Children == nil {
			n.Children = []*PageNode{}
		}
		return true
	})
	return &t, nil
}

func (s *Store) Save(t *Tree) error {
	raw, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("encode meta file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.metaPath), 0o755); err != nil {
		return fmt.Errorf("create meta dir: %w", err)
	}
	if err := s.write(s.metaPath, raw); err != nil {
		return fmt.Errorf("write meta file: %w", err)
	}
	return nil
}

// ContentPath resolves a normalized page path below the content root.
func (s *Store) ContentPath(p string) string {
	return filepath.Join(s.root, filepath.FromSlash(p))
}

func (s *Store) ReadContent(p string) ([]byte, error) {
	return os.ReadFile(s.ContentPath(p))
}

func (s *Store) WriteContent(p string, content []byte) error {
	full := s.ContentPath(p)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create content dir: %w", err)
	}
	if err := s.write(full, content); err != nil {
		return fmt.Errorf("write content file: %w", err)
	}
	return nil
}

func (s *Store) RemoveContent(p string) error {
	err := os.Remove(s.ContentPath(p))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) ContentExists(p string) bool {
	info, err := os.Stat(s.ContentPath(p))
	return err == nil && !info.IsDir()
}

// snapshot captures the current content of p so a failed save can put it back.
type snapshot struct {
	path    string
	data    []byte
	existed bool
}

func (s *Store) snapshot(p string) (*snapshot, error) {
	data, err := s.ReadContent(p)
	if errors.Is(err, os.ErrNotExist) {
		return &snapshot{path: p}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read content file: %w", err)
	}
	return &snapshot{path: p, data: data, existed: true}, nil
}

func (s *Store) restore(snap *snapshot) error {
	if !snap.existed {
		return s.RemoveContent(snap.path)
	}
	return s.write(s.ContentPath(snap.path), snap.data)
}

func (s *Store) write(path string, data []byte) error {
	if err := s.writeFile(path, bytes.NewReader(data)); err != nil {
		return err
	}
	// atomic.WriteFile leaves new files with temp file permissions.
	return os.Chmod(path, filePerms)
}
