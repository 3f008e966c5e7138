package protocol

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store is the named-blob persistence layer through which publisher and
// worker exchange artifacts. Writes are atomic with respect to partial
// content and each name is written at most once per protocol run; a second
// Put to the same name signals a protocol-logic error.
type Store interface {
	Put(name string, payload []byte) error
	Get(name string) ([]byte, error)
}

// FileStore keeps each artifact as a file under a single directory. A write
// goes to a temporary file first and becomes visible only through rename, so
// a failed write never leaves a record under its final name.
type FileStore struct {
	dir     string
	written map[string]bool
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir, written: make(map[string]bool)}, nil
}

func (s *FileStore) Put(name string, payload []byte) error {
	if s.written[name] {
		return fmt.Errorf("artifact %q already published in this run", name)
	}

	final := filepath.Join(s.dir, name)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write artifact %q: %w", name, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publish artifact %q: %w", name, err)
	}

	s.written[name] = true
	return nil
}

func (s *FileStore) Get(name string) ([]byte, error) {
	payload, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %q", ErrArtifactMissing, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact %q: %w", name, err)
	}
	return payload, nil
}

// MemStore is a map-backed Store with the same write-once semantics,
// used when no durable exchange directory is wanted.
type MemStore struct {
	blobs map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string][]byte)}
}

func (s *MemStore) Put(name string, payload []byte) error {
	if _, ok := s.blobs[name]; ok {
		return fmt.Errorf("artifact %q already published in this run", name)
	}
	blob := make([]byte, len(payload))
	copy(blob, payload)
	s.blobs[name] = blob
	return nil
}

func (s *MemStore) Get(name string) ([]byte, error) {
	blob, ok := s.blobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrArtifactMissing, name)
	}
	return blob, nil
}

// Delete removes a record. It exists for failure injection; the protocol
// itself never deletes.
func (s *MemStore) Delete(name string) {
	delete(s.blobs, name)
}
