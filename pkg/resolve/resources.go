package resolve

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/matzehuels/flowc/pkg/errors"
	"github.com/matzehuels/flowc/pkg/paths"
)

// Resources reads module sources by normalized path.
type Resources interface {
	// Read returns the contents of the file at path. A missing file yields
	// an error with code FILE_NOT_FOUND.
	Read(path string) ([]byte, error)
	// Exists reports whether path names a readable regular file.
	Exists(path string) bool
}

// OSResources reads from the filesystem. Relative paths are resolved
// against Root, or the working directory when Root is empty.
type OSResources struct {
	Root string
}

// NewOSResources creates filesystem-backed resources rooted at root.
func NewOSResources(root string) *OSResources {
	return &OSResources{Root: root}
}

func (r *OSResources) resolve(path string) string {
	p := filepath.FromSlash(path)
	if filepath.IsAbs(p) || r.Root == "" {
		return p
	}
	return filepath.Join(r.Root, p)
}

// Read implements [Resources].
func (r *OSResources) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(r.resolve(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", path)
		}
		return nil, err
	}
	return data, nil
}

// Exists implements [Resources].
func (r *OSResources) Exists(path string) bool {
	info, err := os.Stat(r.resolve(path))
	return err == nil && info.Mode().IsRegular()
}

// MemoryResources is an in-memory file tree keyed by normalized path.
// It is safe for concurrent use.
type MemoryResources struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryResources creates resources holding files (path → contents).
func NewMemoryResources(files map[string]string) *MemoryResources {
	m := &MemoryResources{files: make(map[string][]byte, len(files))}
	for p, src := range files {
		m.files[paths.Normalize(p)] = []byte(src)
	}
	return m
}

// Set adds or replaces a file.
func (m *MemoryResources) Set(path, contents string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[paths.Normalize(path)] = []byte(contents)
}

// Read implements [Resources].
func (m *MemoryResources) Read(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[paths.Normalize(path)]
	if !ok {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, fs.ErrNotExist, "read %s", path)
	}
	return append([]byte(nil), data...), nil
}

// Exists implements [Resources].
func (m *MemoryResources) Exists(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[paths.Normalize(path)]
	return ok
}

// Paths returns every stored path in sorted order.
func (m *MemoryResources) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
