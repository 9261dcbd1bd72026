package lockfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/matzehuels/flowc/pkg/errors"
	"github.com/matzehuels/flowc/pkg/sdk"
)

// VersionsFile is the name of the version lock file.
const VersionsFile = "versions.lock"

// Versions maps flow aliases to their compatible SDK range.
type Versions map[string]sdk.Interval

// Store persists a Versions map.
type Store interface {
	// Save replaces the stored map with v.
	Save(ctx context.Context, v Versions) error
	// Load returns the stored map. A store that was never written returns
	// an empty map and no error.
	Load(ctx context.Context) (Versions, error)
	Close() error
}

// MarshalVersions encodes v in versions.lock form. Keys are sorted.
func MarshalVersions(v Versions) ([]byte, error) {
	if v == nil {
		v = Versions{}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// UnmarshalVersions decodes versions.lock contents.
func UnmarshalVersions(data []byte) (Versions, error) {
	v := Versions{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode %s", VersionsFile)
	}
	return v, nil
}

// FileStore keeps versions in a versions.lock file.
type FileStore struct {
	mu   sync.RWMutex
	path string
}

// NewFileStore returns a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the lock file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Save(ctx context.Context, v Versions) error {
	data, err := MarshalVersions(v)
	if err != nil {
		return fmt.Errorf("marshal versions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context) (Versions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Versions{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return UnmarshalVersions(data)
}

func (s *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)

// MemoryStore keeps versions in process memory.
type MemoryStore struct {
	mu sync.RWMutex
	v  Versions
}

// NewMemoryStore returns a store seeded with a copy of v.
func NewMemoryStore(v Versions) *MemoryStore {
	return &MemoryStore{v: v.clone()}
}

func (s *MemoryStore) Save(ctx context.Context, v Versions) error {
	s.mu.Lock()
	s.v = v.clone()
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(ctx context.Context) (Versions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.clone(), nil
}

func (s *MemoryStore) Close() error { return nil }

func (v Versions) clone() Versions {
	out := make(Versions, len(v))
	for k, iv := range v {
		out[k] = iv
	}
	return out
}

var _ Store = (*MemoryStore)(nil)
