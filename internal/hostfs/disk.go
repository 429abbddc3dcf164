package hostfs

import (
	"os"
	"path/filepath"
)

// Disk is a real-filesystem FS, adapted from the directory-walking style of
// a folder-based ROM container: plain os/filepath calls, errors returned
// verbatim (no wrapping needed — the overlay layer attaches the path/kind
// context via vfserr).
type Disk struct{}

// NewDisk returns a disk-backed FS.
func NewDisk() Disk { return Disk{} }

func (Disk) FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (Disk) DirectoryExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (Disk) CreateDirectory(path string) error {
	return os.MkdirAll(path, 0o755)
}

func (Disk) ReadAllBytes(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (Disk) WriteAllBytes(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (Disk) GetTempDirectory() (string, error) {
	return os.MkdirTemp("", "n3dsvfs-*")
}

func (Disk) DeleteDirectory(path string) error {
	return os.RemoveAll(path)
}

func (Disk) Walk(root string, fn func(path string, isDir bool)) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if p == root {
			return nil
		}
		fn(p, d.IsDir())
		return nil
	})
}

var _ FS = Disk{}
