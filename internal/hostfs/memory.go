package hostfs

import (
	"path"
	"strings"
	"sync"

	"github.com/cartvfs/n3ds/lib/vfserr"
)

// Memory is an in-memory FS: a mutex-guarded map of normalized path to
// bytes, plus a set of directories created explicitly (files imply their
// ancestor directories exist). It exists so the overlay layer and its tests
// never need a real temp directory.
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool
}

// NewMemory returns an empty in-memory FS.
func NewMemory() *Memory {
	return &Memory{
		files: make(map[string][]byte),
		dirs:  map[string]bool{"/": true},
	}
}

func normalize(p string) string {
	p = path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	return p
}

func (m *Memory) FileExists(p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[normalize(p)]
	return ok
}

func (m *Memory) DirectoryExists(p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dirs[normalize(p)]
}

func (m *Memory) CreateDirectory(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	np := normalize(p)
	for np != "/" {
		m.dirs[np] = true
		np = path.Dir(np)
	}
	m.dirs["/"] = true
	return nil
}

func (m *Memory) ReadAllBytes(p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[normalize(p)]
	if !ok {
		return nil, vfserr.New(vfserr.NotFound, p, "", nil)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Memory) WriteAllBytes(p string, data []byte) error {
	np := normalize(p)
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[np] = buf
	for dir := path.Dir(np); dir != "/"; dir = path.Dir(dir) {
		m.dirs[dir] = true
	}
	m.dirs["/"] = true
	return nil
}

func (m *Memory) GetTempDirectory() (string, error) {
	return "/tmp", nil
}

func (m *Memory) DeleteDirectory(p string) error {
	np := normalize(p)
	prefix := np
	if prefix != "/" {
		prefix += "/"
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for f := range m.files {
		if f == np || strings.HasPrefix(f, prefix) {
			delete(m.files, f)
		}
	}
	for d := range m.dirs {
		if d == np || strings.HasPrefix(d, prefix) {
			delete(m.dirs, d)
		}
	}
	return nil
}

func (m *Memory) Walk(root string, fn func(path string, isDir bool)) error {
	np := normalize(root)
	prefix := np
	if prefix != "/" {
		prefix += "/"
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for f := range m.files {
		if f != np && strings.HasPrefix(f, prefix) {
			fn(f, false)
		}
	}
	for d := range m.dirs {
		if d != "/" && d != np && strings.HasPrefix(d, prefix) {
			fn(d, true)
		}
	}
	return nil
}

var _ FS = (*Memory)(nil)
